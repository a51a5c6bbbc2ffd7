// Package git shells out to the git CLI for the versioned-sidechannel
// carrier's journal branch: creating the orphan ref and reading the
// committed oplog blob at its tip.
package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// DefaultJournalRef is the versioned-sidechannel carrier's branch: an
// orphan branch carrying only appended operation-log blobs,
// never merged into the working branch history.
const DefaultJournalRef = "refs/heads/wk-sync"

// EnsureJournalBranch resolves ref to a commit, creating it as an empty
// orphan branch if it does not yet exist, so the versioned-sidechannel
// carrier always has somewhere to push operation commits.
func EnsureJournalBranch(ref string) error {
	if RefExists(ref) {
		return nil
	}
	cmd := exec.Command("git", "update-ref", ref, "")
	if out, err := cmd.CombinedOutput(); err != nil {
		// An empty target is rejected by update-ref; create the ref via a
		// proper orphan commit instead.
		return createOrphanRef(ref, out, err)
	}
	return nil
}

func createOrphanRef(ref string, _ []byte, _ error) error {
	treeCmd := exec.Command("git", "hash-object", "-t", "tree", "/dev/null")
	treeOut, err := treeCmd.Output()
	if err != nil {
		// hash-object requires a real path on some platforms; fall back to
		// mktree with no entries, which always succeeds.
		treeOut, err = exec.Command("git", "mktree").Output()
		if err != nil {
			return fmt.Errorf("build empty tree for %s: %w", ref, err)
		}
	}
	tree := strings.TrimSpace(string(treeOut))

	commitCmd := exec.Command("git", "commit-tree", tree, "-m", "wk sync journal root")
	commitOut, err := commitCmd.Output()
	if err != nil {
		return fmt.Errorf("create orphan commit for %s: %w", ref, err)
	}
	commit := strings.TrimSpace(string(commitOut))

	if err := exec.Command("git", "update-ref", ref, commit).Run(); err != nil {
		return fmt.Errorf("set ref %s: %w", ref, err)
	}
	return nil
}

// RefExists reports whether ref currently resolves to a commit.
func RefExists(ref string) bool {
	return exec.Command("git", "show-ref", "--verify", "--quiet", ref).Run() == nil
}

// ReadBlob reads a ref's tree for path and returns its raw content, used to
// fetch the oplog blob committed at the journal branch tip.
func ReadBlob(ref, path string) ([]byte, error) {
	out, err := exec.Command("git", "show", ref+":"+path).Output()
	if err != nil {
		return nil, fmt.Errorf("read %s:%s: %w", ref, path, err)
	}
	return out, nil
}

package transport

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/wk-dev/wk/internal/git"
	"github.com/wk-dev/wk/internal/oplog"
	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

// oplogBlobPath is the single file committed to the journal branch on
// every push: every operation sent through the journal so far, replayed in order by every
// peer that pulls it. There is no per-peer delta; the branch's commit
// history is itself the delta.
const oplogBlobPath = "oplog.log"

// GitCarrier is a Carrier over a git repository's orphan journal branch:
// Send appends the operation to the journal's oplog blob, commits it to
// ref, and pushes;
// Recv fetches ref from remote and replays any operations beyond what
// this carrier has already returned.
type GitCarrier struct {
	dir    string // repository working directory
	remote string // remote name, e.g. "origin"; "" for a local-only journal
	ref    string

	mu   sync.Mutex
	seen int // operations already returned by Recv, by position in the replayed log
}

// NewGitCarrier opens a versioned-sidechannel carrier rooted at dir,
// ensuring the orphan journal branch exists. remote may be empty to
// operate against the local ref only (useful for tests and single-host
// setups), in which case Send/Recv never shell out to push/fetch.
func NewGitCarrier(dir, remote, ref string) (*GitCarrier, error) {
	if ref == "" {
		ref = git.DefaultJournalRef
	}
	if err := git.EnsureJournalBranch(ref); err != nil {
		return nil, werr.Wrap(werr.TransportError, fmt.Errorf("ensure journal branch: %w", err))
	}
	return &GitCarrier{dir: dir, remote: remote, ref: ref}, nil
}

func (c *GitCarrier) Send(ctx context.Context, op types.Operation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ops, err := c.currentOps()
	if err != nil {
		return err
	}
	ops = append(ops, op)
	if err := c.commitOps(ctx, ops); err != nil {
		return err
	}
	if c.remote != "" {
		if out, err := c.git(ctx, "push", c.remote, c.ref+":"+c.ref).CombinedOutput(); err != nil {
			return werr.Wrap(werr.TransportError, fmt.Errorf("push journal: %w: %s", err, out))
		}
	}
	return nil
}

// Recv fetches the remote journal (if configured) and returns the next
// operation this carrier has not yet seen. It returns werr.NotFound when
// the journal has no new operations; callers poll.
func (c *GitCarrier) Recv(ctx context.Context) (types.Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remote != "" {
		if out, err := c.git(ctx, "fetch", c.remote, c.ref+":"+c.ref).CombinedOutput(); err != nil {
			return types.Operation{}, werr.Wrap(werr.TransportError, fmt.Errorf("fetch journal: %w: %s", err, out))
		}
	}
	ops, err := c.currentOps()
	if err != nil {
		return types.Operation{}, err
	}
	if c.seen >= len(ops) {
		return types.Operation{}, werr.New(werr.NotFound, "no new operations in journal")
	}
	op := ops[c.seen]
	c.seen++
	return op, nil
}

func (c *GitCarrier) Close() error { return nil }

func (c *GitCarrier) currentOps() ([]types.Operation, error) {
	blob, err := git.ReadBlob(c.ref, oplogBlobPath)
	if err != nil {
		// An empty journal (orphan root commit, no blob yet) is not an error.
		if strings.Contains(err.Error(), "does not exist") || strings.Contains(err.Error(), "invalid object name") {
			return nil, nil
		}
		return nil, werr.Wrap(werr.TransportError, fmt.Errorf("read journal blob: %w", err))
	}
	ops, err := oplog.DecodeFrames(blob)
	if err != nil {
		return nil, werr.Wrap(werr.TransportError, fmt.Errorf("decode journal blob: %w", err))
	}
	return ops, nil
}

func (c *GitCarrier) commitOps(ctx context.Context, ops []types.Operation) error {
	blob, err := oplog.EncodeFrames(ops)
	if err != nil {
		return werr.Wrap(werr.TransportError, fmt.Errorf("encode journal blob: %w", err))
	}

	hashCmd := c.git(ctx, "hash-object", "-w", "--stdin")
	hashCmd.Stdin = strings.NewReader(string(blob))
	blobHashOut, err := hashCmd.Output()
	if err != nil {
		return werr.Wrap(werr.TransportError, fmt.Errorf("hash journal blob: %w", err))
	}
	blobHash := strings.TrimSpace(string(blobHashOut))

	mktreeCmd := c.git(ctx, "mktree")
	mktreeCmd.Stdin = strings.NewReader(fmt.Sprintf("100644 blob %s\t%s\n", blobHash, oplogBlobPath))
	treeOut, err := mktreeCmd.Output()
	if err != nil {
		return werr.Wrap(werr.TransportError, fmt.Errorf("build journal tree: %w", err))
	}
	tree := strings.TrimSpace(string(treeOut))

	parentOut, err := c.git(ctx, "rev-parse", c.ref).Output()
	if err != nil {
		return werr.Wrap(werr.TransportError, fmt.Errorf("resolve journal parent: %w", err))
	}
	parent := strings.TrimSpace(string(parentOut))

	commitCmd := c.git(ctx, "commit-tree", tree, "-p", parent, "-m", "sync "+strconv.Itoa(len(ops))+" operations")
	commitOut, err := commitCmd.Output()
	if err != nil {
		return werr.Wrap(werr.TransportError, fmt.Errorf("commit journal: %w", err))
	}
	commit := strings.TrimSpace(string(commitOut))

	if err := c.git(ctx, "update-ref", c.ref, commit, parent).Run(); err != nil {
		return werr.Wrap(werr.TransportError, fmt.Errorf("advance journal ref: %w", err))
	}
	return nil
}

func (c *GitCarrier) git(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = c.dir
	return cmd
}

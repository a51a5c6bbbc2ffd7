// Package resolve implements partial issue-id resolution:
// prefixes of three or more characters resolve to a full issue id when
// unambiguous; ambiguous prefixes fail with the list of candidates.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wk-dev/wk/internal/werr"
)

// MinPrefixLen is the shortest partial id the resolver accepts. Raising
// this to 4 if ambiguity becomes user-visible at scale is a one-line
// change here.
const MinPrefixLen = 3

// AmbiguousError reports every id matching a partial reference.
type AmbiguousError struct {
	Partial    string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous id %q: matches %s", e.Partial, strings.Join(e.Candidates, ", "))
}

// Lister returns every known issue id, used to scan for partial matches.
// Callers typically back this with an indexed prefix scan at the storage
// layer rather than loading the whole id space, but the resolver itself
// only needs the candidate set.
type Lister func() ([]string, error)

// Resolve resolves a (possibly partial) id reference against list. A
// reference that is already a full, known id is returned unchanged without
// requiring MinPrefixLen. A reference shorter than MinPrefixLen that isn't
// itself a known id is rejected as invalid input.
func Resolve(ref string, list Lister) (string, error) {
	ids, err := list()
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", ref, err)
	}

	for _, id := range ids {
		if id == ref {
			return id, nil
		}
	}

	if len(ref) < MinPrefixLen {
		return "", werr.New(werr.InvalidInput, fmt.Sprintf("id reference %q is shorter than the minimum %d characters", ref, MinPrefixLen))
	}

	var candidates []string
	for _, id := range ids {
		if strings.HasPrefix(id, ref) {
			candidates = append(candidates, id)
		}
	}

	switch len(candidates) {
	case 0:
		return "", werr.New(werr.NotFound, fmt.Sprintf("no issue matches id or prefix %q", ref))
	case 1:
		return candidates[0], nil
	default:
		sort.Strings(candidates)
		return "", werr.Wrap(werr.NotFound, &AmbiguousError{Partial: ref, Candidates: candidates})
	}
}

// ResolveAll resolves each ref in refs independently, stopping at the
// first error so ambiguity candidates are reported for the ref that
// caused them.
// Bulk commands that need partial-failure semantics should call
// Resolve per id themselves instead so they can continue past failures.
func ResolveAll(refs []string, list Lister) ([]string, error) {
	ids, err := list()
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	lister := func() ([]string, error) { return ids, nil }

	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		full, err := Resolve(ref, lister)
		if err != nil {
			return nil, err
		}
		out = append(out, full)
	}
	return out, nil
}

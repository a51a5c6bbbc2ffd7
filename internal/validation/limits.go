// Package validation enforces the per-field length limits on titles,
// descriptions, notes, labels, and reasons.
package validation

import (
	"fmt"

	"github.com/wk-dev/wk/internal/werr"
)

const (
	MaxTitleLen       = 120
	MaxDescriptionLen = 1 << 20 // 1 MiB
	MaxNoteLen        = 200 << 10 // 200 KiB
	MaxLabelLen       = 100
	MaxReasonLen      = 500
)

// Title rejects a title longer than MaxTitleLen. Callers that want the
// `new` auto-split/truncation behavior should call SplitTitle
// instead of this function, which is for `edit title` where overflow is a
// hard rejection.
func Title(title string) error {
	if title == "" {
		return werr.New(werr.InvalidInput, "title must not be empty")
	}
	if len(title) > MaxTitleLen {
		return werr.New(werr.LimitExceeded, fmt.Sprintf("title exceeds %d characters", MaxTitleLen))
	}
	return nil
}

func Description(desc string) error {
	if len(desc) > MaxDescriptionLen {
		return werr.New(werr.LimitExceeded, fmt.Sprintf("description exceeds %d bytes", MaxDescriptionLen))
	}
	return nil
}

func Note(content string) error {
	if len(content) > MaxNoteLen {
		return werr.New(werr.LimitExceeded, fmt.Sprintf("note exceeds %d bytes", MaxNoteLen))
	}
	return nil
}

func Label(label string) error {
	if label == "" {
		return werr.New(werr.InvalidInput, "label must not be empty")
	}
	if len(label) > MaxLabelLen {
		return werr.New(werr.LimitExceeded, fmt.Sprintf("label exceeds %d characters", MaxLabelLen))
	}
	return nil
}

func Reason(reason string) error {
	if len(reason) > MaxReasonLen {
		return werr.New(werr.LimitExceeded, fmt.Sprintf("reason exceeds %d characters", MaxReasonLen))
	}
	return nil
}

// SplitTitle implements the `new` auto-truncation rule: a title
// up to MaxTitleLen chars is preserved as-is; beyond that, the overflow is
// absorbed into the description, joined with the existing description (if
// any) separated by a blank line. If truncating at MaxTitleLen would split
// a word, the break moves back to the preceding space so words are not cut
// mid-token; if no space exists in range, it falls back to a hard
// truncation with an ellipsis.
func SplitTitle(title, description string) (shortTitle, newDescription string) {
	if len(title) <= MaxTitleLen {
		return title, description
	}

	cut := MaxTitleLen
	usedEllipsis := false
	if space := lastSpaceBefore(title, cut); space > 0 {
		cut = space
	} else {
		cut = MaxTitleLen - 1
		usedEllipsis = true
	}

	head := title[:cut]
	tail := title[cut:]
	for len(tail) > 0 && tail[0] == ' ' {
		tail = tail[1:]
	}

	if usedEllipsis {
		head = title[:MaxTitleLen-1] + "…"
		tail = title[MaxTitleLen-1:]
	}

	if description == "" {
		return head, tail
	}
	return head, tail + "\n\n" + description
}

func lastSpaceBefore(s string, limit int) int {
	for i := limit; i > 0; i-- {
		if s[i-1] == ' ' {
			return i - 1
		}
	}
	return -1
}

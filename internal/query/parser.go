package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field names the issue timestamp a filter expression compares against.
type Field int

const (
	FieldAge Field = iota
	FieldActivity
	FieldCompleted
	FieldSkipped
	FieldClosed
)

var fieldAliases = map[string]Field{
	"age":       FieldAge,
	"created":   FieldAge,
	"activity":  FieldActivity,
	"updated":   FieldActivity,
	"completed": FieldCompleted,
	"done":      FieldCompleted,
	"skipped":   FieldSkipped,
	"cancelled": FieldSkipped,
	"closed":    FieldClosed,
}

// statusBareFields are the FIELD names that also double as a bare
// STATUS_BARE token: "closed", "completed", "done", "skipped",
// "cancelled" used alone mean "has this status", with no comparison.
var statusBareFields = map[string]bool{
	"closed":    true,
	"completed": true,
	"done":      true,
	"skipped":   true,
	"cancelled": true,
}

// Op is a comparison operator, case-insensitively accepting both symbolic
// and word forms.
type Op int

const (
	OpLT Op = iota
	OpLTE
	OpGT
	OpGTE
	OpEQ
	OpNE
)

var opWords = map[string]Op{
	"<": OpLT, "lt": OpLT,
	"<=": OpLTE, "lte": OpLTE,
	">": OpGT, "gt": OpGT,
	">=": OpGTE, "gte": OpGTE,
	"=": OpEQ, "eq": OpEQ,
	"!=": OpNE, "ne": OpNE,
}

// Expr is one parsed filter expression: either a bare status shorthand, or
// a field/op/value comparison.
type Expr struct {
	Bare  bool
	Field Field

	Op       Op
	Duration time.Duration
	IsNow    bool
	Date     time.Time
	HasDate  bool
}

// Parse parses a single filter expression
// using the Lexer for the FIELD and OP tokens (both are plain identifiers
// or symbols, never containing characters the tokenizer can't handle).
// VALUE is read as the raw remainder of the input rather than re-tokenized,
// since DATE literals contain '-', a character the identifier/number
// tokenizer does not accept. Each CLI filter flag contributes one Expr;
// expressions compose as an implicit AND at the call site.
func Parse(input string) (*Expr, error) {
	l := NewLexer(input)

	nameTok, err := l.NextToken()
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", input, err)
	}
	if nameTok.Type == TokenEOF {
		return nil, fmt.Errorf("empty filter expression")
	}
	if nameTok.Type != TokenIdent {
		return nil, fmt.Errorf("invalid filter expression %q: expected a field name", input)
	}
	name := strings.ToLower(nameTok.Value)

	opTok, err := l.NextToken()
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", input, err)
	}
	if opTok.Type == TokenEOF {
		if statusBareFields[name] {
			return &Expr{Bare: true, Field: fieldAliases[name]}, nil
		}
		return nil, fmt.Errorf("invalid filter expression %q: expected FIELD OP VALUE or a bare status", input)
	}

	field, ok := fieldAliases[name]
	if !ok {
		return nil, fmt.Errorf("unknown filter field %q", nameTok.Value)
	}

	op, ok := opWords[strings.ToLower(opTok.Value)]
	if !ok {
		return nil, fmt.Errorf("unknown filter operator %q", opTok.Value)
	}

	value := strings.TrimSpace(l.rest())
	if value == "" {
		return nil, fmt.Errorf("invalid filter expression %q: expected FIELD OP VALUE", input)
	}
	if len(strings.Fields(value)) != 1 {
		return nil, fmt.Errorf("invalid filter expression %q: expected FIELD OP VALUE", input)
	}

	expr := &Expr{Field: field, Op: op}

	switch {
	case strings.EqualFold(value, "now"):
		expr.IsNow = true
	case isDateLiteral(value):
		d, err := time.ParseInLocation("2006-01-02", value, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", value, err)
		}
		expr.Date = d
		expr.HasDate = true
	default:
		dur, err := parseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", value, err)
		}
		expr.Duration = dur
	}

	return expr, nil
}

func isDateLiteral(s string) bool {
	return len(s) == 10 && s[4] == '-' && s[7] == '-'
}

// parseDuration parses a DURATION literal: <number><unit> where unit is
// one of ms, s, m, h, d, w, M (30d), y (365d).
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9') {
		i++
	}
	if i == 0 {
		return 0, fmt.Errorf("missing numeric component")
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, err
	}
	unit := s[i:]
	switch unit {
	case "ms":
		return time.Duration(n) * time.Millisecond, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	case "m":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "w":
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case "M":
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	case "y":
		return time.Duration(n) * 365 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit %q", unit)
	}
}

// Threshold resolves the expression's VALUE to an absolute instant,
// relative to now.
func (e *Expr) Threshold(now time.Time) time.Time {
	switch {
	case e.IsNow:
		return now
	case e.HasDate:
		return e.Date
	default:
		return now.Add(-e.Duration)
	}
}

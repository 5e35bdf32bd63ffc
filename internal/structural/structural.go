// Package structural enforces shape limits on chat input before any
// pattern matching runs: presence, length, line count, word count, and
// character set. Checks run in that fixed order and stop at the first
// violation.
package structural

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidInput reports input that is empty or whitespace-only after
// trimming.
var ErrInvalidInput = errors.New("input is empty")

// Kind identifies which limit a violation breached.
type Kind string

const (
	KindLengthExceeded      Kind = "length_exceeded"
	KindLineCountExceeded   Kind = "line_count_exceeded"
	KindWordCountExceeded   Kind = "word_count_exceeded"
	KindInvalidCharacterSet Kind = "invalid_character_set"
)

// Violation describes a single structural limit breach. Limit and
// Actual are zero for character set violations, where no meaningful
// count exists.
type Violation struct {
	Kind   Kind
	Limit  int
	Actual int
}

func (v *Violation) Error() string {
	switch v.Kind {
	case KindInvalidCharacterSet:
		return "input contains invalid characters"
	default:
		return fmt.Sprintf("%s: %d exceeds limit %d", v.Kind, v.Actual, v.Limit)
	}
}

// Limits holds the structural thresholds. Zero values are not treated
// as unlimited; construct via DefaultLimits and override fields.
type Limits struct {
	MaxLength int
	MaxLines  int
	MaxWords  int
}

// DefaultLimits returns the thresholds used for chat messages.
func DefaultLimits() Limits {
	return Limits{
		MaxLength: 2000,
		MaxLines:  50,
		MaxWords:  300,
	}
}

// Check validates text against the limits. The length, line, and word
// checks run on the text as given; only the presence check considers a
// trimmed view, so leading and trailing whitespace still counts toward
// length.
func (l Limits) Check(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrInvalidInput
	}

	if n := utf8.RuneCountInString(text); n > l.MaxLength {
		return &Violation{Kind: KindLengthExceeded, Limit: l.MaxLength, Actual: n}
	}

	if n := strings.Count(text, "\n") + 1; n > l.MaxLines {
		return &Violation{Kind: KindLineCountExceeded, Limit: l.MaxLines, Actual: n}
	}

	if n := len(strings.Fields(text)); n > l.MaxWords {
		return &Violation{Kind: KindWordCountExceeded, Limit: l.MaxWords, Actual: n}
	}

	if !validCharset(text) {
		return &Violation{Kind: KindInvalidCharacterSet}
	}

	return nil
}

// validCharset rejects control characters other than tab, newline, and
// carriage return, the DEL character, the C1 range, and any byte
// sequence that is not valid UTF-8.
func validCharset(text string) bool {
	for _, r := range text {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			continue
		case r < 0x20:
			return false
		case r == 0x7f:
			return false
		case r >= 0x80 && r <= 0x9f:
			return false
		case r == utf8.RuneError:
			// Range loops yield RuneError for each invalid byte.
			return false
		case !unicode.IsGraphic(r):
			return false
		}
	}
	return true
}

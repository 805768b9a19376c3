package workflow

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

// DefaultMaxLabelSize bounds node labels in bytes.
const DefaultMaxLabelSize = 256

var (
	ErrLabelTooLarge = errors.New("label exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("label contains invalid UTF-8 sequences")
)

// SanitizeLabel cleans a node label: it rejects oversize or non-UTF-8 input,
// turns tabs and line breaks into spaces, drops other control characters
// (ANSI escapes, NUL, BEL) and trims surrounding whitespace.
// An empty result fails with domain.ErrEmptyLabel.
func SanitizeLabel(label string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxLabelSize
	}
	if len(label) > limit {
		// Rejected rather than truncated so the stored label is what the user typed.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrLabelTooLarge, len(label), limit)
	}
	if !utf8.ValidString(label) {
		return "", ErrInvalidUTF8
	}

	var b strings.Builder
	b.Grow(len(label))
	for _, r := range label {
		switch {
		case r == '\n' || r == '\t' || r == '\r':
			b.WriteRune(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", domain.ErrEmptyLabel
	}
	return out, nil
}

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
)

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		limit   int
		want    string
		wantErr error
	}{
		{name: "plain", in: "Send Email", want: "Send Email"},
		{name: "trims", in: "  VIP?  ", want: "VIP?"},
		{name: "newlines become spaces", in: "a\nb", want: "a b"},
		{name: "strips escapes", in: "\x1b[31mred\x1b[0m", want: "[31mred[0m"},
		{name: "empty", in: "   ", wantErr: domain.ErrEmptyLabel},
		{name: "too large", in: "abcdef", limit: 3, wantErr: ErrLabelTooLarge},
		{name: "invalid utf8", in: "\xff", wantErr: ErrInvalidUTF8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeLabel(tt.in, tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

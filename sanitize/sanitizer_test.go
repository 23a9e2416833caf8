package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Plain text untouched",
			input:    "hello room",
			expected: "hello room",
		},
		{
			name:     "Surrounding whitespace trimmed",
			input:    "   alice  ",
			expected: "alice",
		},
		{
			name:     "Markup stripped including content",
			input:    "<script>alert('x')</script>hi",
			expected: "hi",
		},
		{
			name:     "Nested tags",
			input:    "<div><b>bold</b></div>text",
			expected: "text",
		},
		{
			name:     "Control characters dropped",
			input:    "he\x00llo\x1b[0m",
			expected: "hello[0m",
		},
		{
			name:     "Stray closing bracket kept",
			input:    "a > b",
			expected: "a > b",
		},
		{
			name:     "Only markup yields empty",
			input:    "  <img src=x>  ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestField_NonStringNeverCoerced(t *testing.T) {
	req := require.New(t)
	req.Equal("", Field(nil))
	req.Equal("", Field(42))
	req.Equal("", Field(42.5))
	req.Equal("", Field(true))
	req.Equal("", Field([]any{"a"}))
	req.Equal("alice", Field("  alice "))
}

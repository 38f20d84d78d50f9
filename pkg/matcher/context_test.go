package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractContext(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		start         int
		end           int
		snippetLength int
		wantBefore    string
		wantAfter     string
	}{
		{
			name:          "normal case - symmetric window",
			content:       "0123456789MATCH0123456789",
			start:         10,
			end:           15,
			snippetLength: 4,
			wantBefore:    "6789",
			wantAfter:     "0123",
		},
		{
			name:          "start of content - no bytes before",
			content:       "MATCH0123456789",
			start:         0,
			end:           5,
			snippetLength: 10,
			wantBefore:    "",
			wantAfter:     "0123456789",
		},
		{
			name:          "end of content - no bytes after",
			content:       "0123456789MATCH",
			start:         10,
			end:           15,
			snippetLength: 10,
			wantBefore:    "0123456789",
			wantAfter:     "",
		},
		{
			name:          "fewer bytes available than requested - before",
			content:       "12MATCH345",
			start:         2,
			end:           7,
			snippetLength: 10,
			wantBefore:    "12",
			wantAfter:     "345",
		},
		{
			name:          "no context requested (snippetLength=0)",
			content:       "0123456789MATCH0123456789",
			start:         10,
			end:           15,
			snippetLength: 0,
			wantBefore:    "",
			wantAfter:     "",
		},
		{
			name:          "single byte file with match",
			content:       "MATCH",
			start:         0,
			end:           5,
			snippetLength: 3,
			wantBefore:    "",
			wantAfter:     "",
		},
		{
			name:          "empty content",
			content:       "",
			start:         0,
			end:           0,
			snippetLength: 3,
			wantBefore:    "",
			wantAfter:     "",
		},
		{
			name:          "context does not span beyond the requested byte count even across newlines",
			content:       "a\nb\nc\nMATCH\nd\ne\nf",
			start:         6,
			end:           11,
			snippetLength: 2,
			wantBefore:    "c\n",
			wantAfter:     "\nd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after := ExtractContext([]byte(tt.content), tt.start, tt.end, tt.snippetLength)

			assert.Equal(t, tt.wantBefore, string(before), "before context mismatch")
			assert.Equal(t, tt.wantAfter, string(after), "after context mismatch")
		})
	}
}

func TestExtractContext_BoundaryConditions(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		start         int
		end           int
		snippetLength int
		wantBefore    string
		wantAfter     string
	}{
		{
			name:          "start exceeds content length",
			content:       "short",
			start:         100,
			end:           100,
			snippetLength: 3,
			wantBefore:    "",
			wantAfter:     "",
		},
		{
			name:          "end exceeds content length",
			content:       "short",
			start:         0,
			end:           100,
			snippetLength: 3,
			wantBefore:    "",
			wantAfter:     "",
		},
		{
			name:          "negative snippet length (should return empty)",
			content:       "12MATCH3",
			start:         2,
			end:           7,
			snippetLength: -1,
			wantBefore:    "",
			wantAfter:     "",
		},
		{
			name:          "zero-length match (start == end)",
			content:       "0123456789",
			start:         5,
			end:           5,
			snippetLength: 3,
			wantBefore:    "234",
			wantAfter:     "567",
		},
		{
			name:          "invalid range (start > end)",
			content:       "0123456789",
			start:         7,
			end:           3,
			snippetLength: 2,
			wantBefore:    "",
			wantAfter:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, after := ExtractContext([]byte(tt.content), tt.start, tt.end, tt.snippetLength)

			assert.Equal(t, tt.wantBefore, string(before), "before context mismatch")
			assert.Equal(t, tt.wantAfter, string(after), "after context mismatch")
		})
	}
}

func TestExtractContext_DoesNotPinOriginalBuffer(t *testing.T) {
	content := []byte(strings.Repeat("x", 1000) + "MATCH" + strings.Repeat("y", 1000))
	before, after := ExtractContext(content, 1000, 1005, 8)
	assert.Equal(t, "xxxxxxxx", string(before))
	assert.Equal(t, "yyyyyyyy", string(after))

	// Mutating the original buffer must not affect the extracted copies.
	for i := range content {
		content[i] = 'Z'
	}
	assert.Equal(t, "xxxxxxxx", string(before))
	assert.Equal(t, "yyyyyyyy", string(after))
}

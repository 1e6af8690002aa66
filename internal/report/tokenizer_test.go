package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected []string
	}{
		{
			name:     "unquoted fields",
			line:     "a,b,c",
			expected: []string{"a", "b", "c"},
		},
		{
			name:     "quoted field with comma",
			line:     `"Smith, John",100`,
			expected: []string{"Smith, John", "100"},
		},
		{
			name:     "quotes are not emitted",
			line:     `"Invoice #","3-327551"`,
			expected: []string{"Invoice #", "3-327551"},
		},
		{
			name:     "empty fields preserved",
			line:     "a,,c,",
			expected: []string{"a", "", "c", ""},
		},
		{
			name:     "empty line yields one empty field",
			line:     "",
			expected: []string{""},
		},
		{
			name:     "unterminated quote swallows remaining commas",
			line:     `"abc,def`,
			expected: []string{"abc,def"},
		},
		{
			name:     "quote in middle of field toggles state",
			line:     `ab"cd,ef"gh,ij`,
			expected: []string{"abcd,efgh", "ij"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TokenizeLine(tt.line))
		})
	}
}

func TestTokenizeLineNeverDropsData(t *testing.T) {
	// Every non-quote, non-separator rune of the input must survive
	// tokenization, however malformed the quoting.
	line := `P235/75R15,"All Terrain, LT",,"2",45.00,"10.50`
	fields := TokenizeLine(line)

	var joined int
	for _, f := range fields {
		joined += len(f)
	}
	assert.Equal(t, 6, len(fields))
	assert.Positive(t, joined)
	assert.Equal(t, "All Terrain, LT", fields[1])
	assert.Equal(t, "10.50", fields[5])
}

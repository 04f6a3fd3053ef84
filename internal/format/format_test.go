package format

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a*b*", Sanitize(`a\*b\*`))
	assert.Equal(t, "plain", Sanitize("plain"))
	assert.Equal(t, "", Sanitize(`\\\`))
	assert.NotContains(t, Sanitize(`C:\path\to\file`), `\`)
}

func TestFormatList(t *testing.T) {
	in := "Items:\n  - first\n-second\n1. one\n2. two\n   3. three  \nplain"
	want := "Items:\n• first\n• second\n1. one\n2. two\n3. three\nplain"

	assert.Equal(t, want, FormatList(in))
}

func TestFormatList_PreservesLineCount(t *testing.T) {
	in := "a\n\n- b\n\n"
	out := FormatList(in)

	assert.Equal(t, strings.Count(in, "\n"), strings.Count(out, "\n"))
	assert.Equal(t, "a\n\n• b\n\n", out)
}

func TestFormatList_DashOnly(t *testing.T) {
	assert.Equal(t, "• ", FormatList("-"))
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		maxSize int
		want    []string
	}{
		{"empty", "", 10, nil},
		{"shorter than max", "hello", 10, []string{"hello"}},
		{"exact multiple", "abcdef", 3, []string{"abc", "def"}},
		{"remainder", "abcdefg", 3, []string{"abc", "def", "g"}},
		{"multibyte", "привет", 4, []string{"прив", "ет"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chunk(tt.text, tt.maxSize))
		})
	}
}

func TestChunk_TelegramLimit(t *testing.T) {
	text := strings.Repeat("x", 10000)

	chunks := Chunk(text, MaxMessageLength)

	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 4096)
	assert.Len(t, chunks[1], 4096)
	assert.Len(t, chunks[2], 1808)
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestChunk_DefaultSize(t *testing.T) {
	text := strings.Repeat("я", MaxMessageLength+1)

	chunks := Chunk(text, 0)

	assert.Len(t, chunks, 2)
	assert.Equal(t, MaxMessageLength, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, text, strings.Join(chunks, ""))
}

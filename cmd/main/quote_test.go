package main

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapLines(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"empty", "", 35, nil},
		{"fits", "That's what she said.", 35, []string{"That's what she said."}},
		{"wraps", "I am running away from my responsibilities. And it feels good.", 20,
			[]string{"I am running away", "from my", "responsibilities.", "And it feels good."}},
		{"exact width", "aaa bbb ccc", 7, []string{"aaa bbb", "ccc"}},
		{"long word", "a supercalifragilistic b", 5, []string{"a", "supercalifragilistic", "b"}},
		{"no wrap", "one  two   three", 0, []string{"one two three"}},
		{"runes", "éé éé", 5, []string{"éé éé"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapLines(tt.text, tt.width)
			assert.Equal(t, tt.want, got)
			if tt.width > 0 {
				for _, line := range got {
					if !strings.Contains(line, " ") {
						continue
					}
					assert.LessOrEqual(t, len([]rune(line)), tt.width, "line %q", line)
				}
			}
		})
	}
}

func TestQuoteString(t *testing.T) {
	q := Quote{Lines: []string{"Would I rather be feared", "or loved?"}, Author: "Michael"}
	assert.Equal(t, "Would I rather be feared\nor loved?\n- Michael", q.String())
}

func TestAuthorPicker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authors.txt")
	require.NoError(t, os.WriteFile(path, []byte("Dwight\nMichael Scott\n\n  Jim  \nAndy Bernard\n"), 0o644))

	p, err := NewAuthorPicker(path, 12, "Michael Scott")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	for i := 0; i < 50; i++ {
		got := p.Pick()
		assert.True(t, slices.Contains([]string{"Dwight", "Jim"}, got), "Pick() = %q", got)
	}
}

func TestAuthorPickerFallback(t *testing.T) {
	p, err := NewAuthorPicker("", 12, "Michael Scott")
	require.NoError(t, err)
	assert.Equal(t, "Michael Scott", p.Pick())

	path := filepath.Join(t.TempDir(), "authors.txt")
	require.NoError(t, os.WriteFile(path, []byte("A Very Long Author Name\n"), 0o644))
	p, err = NewAuthorPicker(path, 12, "Michael Scott")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, "Michael Scott", p.Pick())

	_, err = NewAuthorPicker(filepath.Join(t.TempDir(), "missing.txt"), 12, "Michael Scott")
	assert.Error(t, err)
}

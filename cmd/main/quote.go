package main

import (
	"bufio"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"unicode/utf8"
)

// Quote is a sampled sentence laid out for display.
type Quote struct {
	Model  string   `json:"model"`
	Quote  string   `json:"quote"`
	Lines  []string `json:"lines"`
	Author string   `json:"author"`
}

// String renders the quote as its wrapped lines followed by the attribution.
func (q Quote) String() string {
	var sb strings.Builder
	for _, line := range q.Lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString("- ")
	sb.WriteString(q.Author)
	return sb.String()
}

// WrapLines splits text on spaces into lines of at most width characters.
// A single word longer than width gets a line of its own. A width of zero or
// less keeps the whole text on one line.
func WrapLines(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	var line strings.Builder
	lineLen := 0
	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if lineLen > 0 && lineLen+1+wordLen > width {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}
		if lineLen > 0 {
			line.WriteByte(' ')
			lineLen++
		}
		line.WriteString(word)
		lineLen += wordLen
	}
	return append(lines, line.String())
}

// AuthorPicker attributes quotes to a random author.
type AuthorPicker struct {
	authors  []string
	fallback string
}

// NewAuthorPicker reads one author per line from path, keeping only names
// shorter than maxLen characters. An empty path, or a file with no usable
// names, attributes every quote to fallback.
func NewAuthorPicker(path string, maxLen int, fallback string) (*AuthorPicker, error) {
	p := &AuthorPicker{fallback: fallback}
	if path == "" {
		return p, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open authors file: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		if maxLen > 0 && utf8.RuneCountInString(name) >= maxLen {
			continue
		}
		p.authors = append(p.authors, name)
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read authors file: %w", err)
	}
	return p, nil
}

// Len returns the number of names the picker chooses from.
func (p *AuthorPicker) Len() int {
	return len(p.authors)
}

// Pick returns a uniformly random author, or the fallback if there are none.
func (p *AuthorPicker) Pick() string {
	if len(p.authors) == 0 {
		return p.fallback
	}
	return p.authors[rand.IntN(len(p.authors))]
}

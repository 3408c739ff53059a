package markov

import (
	"bufio"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token represents a single word of the input text. EOC is set on the last
// word of a sentence.
type Token struct {
	Text string
	EOC  bool
}

// Tokenizer splits raw text into sentences of words. This allows the builder
// and sampler to stay independent of the segmentation strategy.
type Tokenizer interface {
	// NewStream returns a stateful StreamTokenizer for processing an io.Reader.
	NewStream(io.Reader) StreamTokenizer
	// Split returns the words of a single sentence, in the same form the
	// stream produces them.
	Split(text string) []string
}

// StreamTokenizer is a stateful tokenizer that returns one token at a time.
type StreamTokenizer interface {
	// Next returns the next token from the stream. It returns io.EOF as the
	// error when the stream is fully consumed.
	Next() (*Token, error)
}

// maxLineSize bounds a single line of corpus text.
const maxLineSize = 1 << 20

var (
	abbrCapped = []string{
		"ala", "ariz", "ark", "calif", "colo", "conn", "del", "fla", "ga", "ill",
		"ind", "kan", "kans", "ky", "la", "md", "mass", "mich", "minn", "miss",
		"mo", "mont", "neb", "nebr", "nev", "okla", "ore", "pa", "penn", "tenn",
		"tex", "va", "vt", "wash", "wis", "wisc", "wyo",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"mr", "mrs", "ms", "dr", "gen", "rep", "sen", "st", "sgt", "capt", "col",
		"lt", "maj", "cmdr", "adm", "jr", "sr", "esq", "hon", "rev", "prof", "gov",
	}
	abbrLower = []string{"etc", "v", "vs", "viz", "al", "pct"}
)

// DefaultTokenizer splits text on whitespace and ends sentences after words
// ending in '.', '?' or '!', unless the word is a known abbreviation or the next
// word starts in lowercase. Case and punctuation are kept verbatim.
type DefaultTokenizer struct {
	lineBreaks bool
	capped     map[string]struct{}
	lower      map[string]struct{}
}

// Option Is a function that configures a DefaultTokenizer.
type Option func(*DefaultTokenizer)

// WithLineBreaks makes every line break end a sentence, for corpora with one
// quote per line.
// Default: false
func WithLineBreaks(enabled bool) Option {
	return func(t *DefaultTokenizer) {
		t.lineBreaks = enabled
	}
}

// WithAbbreviations adds words (without the trailing dot) that never end a
// sentence. Capitalized words are matched case-insensitively.
func WithAbbreviations(words ...string) Option {
	return func(t *DefaultTokenizer) {
		for _, w := range words {
			w = strings.TrimSuffix(w, ".")
			if r, _ := utf8.DecodeRuneInString(w); unicode.IsUpper(r) {
				t.capped[strings.ToLower(w)] = struct{}{}
			} else {
				t.lower[w] = struct{}{}
			}
		}
	}
}

// NewDefaultTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more Option functions.
func NewDefaultTokenizer(opts ...Option) *DefaultTokenizer {
	t := &DefaultTokenizer{
		capped: make(map[string]struct{}, len(abbrCapped)),
		lower:  make(map[string]struct{}, len(abbrLower)),
	}
	for _, w := range abbrCapped {
		t.capped[w] = struct{}{}
	}
	for _, w := range abbrLower {
		t.lower[w] = struct{}{}
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Split returns the whitespace-separated words of text.
func (t *DefaultTokenizer) Split(text string) []string {
	return strings.Fields(text)
}

// NewStream Returns the stream processor.
func (t *DefaultTokenizer) NewStream(r io.Reader) StreamTokenizer {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &DefaultStreamTokenizer{
		scanner: scanner,
		t:       t,
	}
}

// isAbbreviation reports whether a dotted word such as "Mr." or "etc." is a
// known abbreviation.
func (t *DefaultTokenizer) isAbbreviation(dotted string) bool {
	clipped := strings.TrimSuffix(dotted, ".")
	if clipped == "" {
		return false
	}
	if r, _ := utf8.DecodeRuneInString(clipped); unicode.IsUpper(r) {
		_, ok := t.capped[strings.ToLower(clipped)]
		return ok
	}
	_, ok := t.lower[clipped]
	return ok
}

// endsSentence decides whether word closes a sentence given the word after
// it. An empty next means the end of input.
func (t *DefaultTokenizer) endsSentence(word, next string) bool {
	core := strings.TrimRight(word, `"')]’”`)
	if core == "" {
		return false
	}
	last, _ := utf8.DecodeLastRuneInString(core)
	if last != '.' && last != '?' && last != '!' {
		return false
	}
	if next != "" {
		first, _ := utf8.DecodeRuneInString(next)
		if unicode.IsLower(first) || first == '-' || first == '–' || first == '—' {
			return false
		}
	}
	if last == '?' || last == '!' {
		return true
	}
	upper := 0
	for _, r := range core {
		if r >= 'A' && r <= 'Z' {
			upper++
		}
	}
	if upper > 1 {
		return true
	}
	return !t.isAbbreviation(core)
}

// DefaultStreamTokenizer is the default implementation of the StreamTokenizer interface.
// It reads lines with a bufio.Scanner and keeps one word of lookahead to decide
// sentence boundaries.
type DefaultStreamTokenizer struct {
	scanner  *bufio.Scanner
	t        *DefaultTokenizer
	buffer   []string
	lineEnds []bool
	done     bool
}

// fill reads the next non-empty line into the buffer.
func (s *DefaultStreamTokenizer) fill() error {
	for !s.done {
		if !s.scanner.Scan() {
			s.done = true
			return s.scanner.Err()
		}
		words := strings.Fields(s.scanner.Text())
		if len(words) == 0 {
			continue
		}
		s.buffer = append(s.buffer, words...)
		for i := range words {
			s.lineEnds = append(s.lineEnds, i == len(words)-1)
		}
		return nil
	}
	return nil
}

// Next returns the next token from the stream. When the stream is exhausted,
// it returns a nil Token and io.EOF. The last word of the input always ends a
// sentence.
func (s *DefaultStreamTokenizer) Next() (*Token, error) {
	for len(s.buffer) < 2 && !s.done {
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
	if len(s.buffer) == 0 {
		return nil, io.EOF
	}

	word, lineEnd := s.buffer[0], s.lineEnds[0]
	s.buffer, s.lineEnds = s.buffer[1:], s.lineEnds[1:]

	var next string
	if len(s.buffer) > 0 {
		next = s.buffer[0]
	}
	eoc := next == "" || (s.t.lineBreaks && lineEnd) || s.t.endsSentence(word, next)
	return &Token{Text: word, EOC: eoc}, nil
}

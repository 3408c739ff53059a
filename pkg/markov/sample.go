package markov

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxAttempts is the number of walks Sample tries before giving up.
	DefaultMaxAttempts = 10
	// DefaultMaxWords caps a single walk, so cyclic chains cannot loop forever.
	DefaultMaxWords = 4096
)

// sampleOptions Is used by Sample to configure default options.
type sampleOptions struct {
	maxAttempts int
	minChars    int
	maxWords    int
	intN        func(int) int
	start       string
}

// SampleOption is a function that configures sampling parameters. It's used
// as a variadic argument in Sample.
type SampleOption func(*sampleOptions)

// WithMaxAttempts sets how many walks are tried before Sample fails with
// ErrNoSentenceFound. Values below 1 are treated as 1.
func WithMaxAttempts(n int) SampleOption {
	return func(o *sampleOptions) { o.maxAttempts = n }
}

// WithMinChars rejects sentences shorter than n characters.
func WithMinChars(n int) SampleOption {
	return func(o *sampleOptions) { o.minChars = n }
}

// WithMaxWords sets the longest walk, in words, before it is abandoned.
func WithMaxWords(n int) SampleOption {
	return func(o *sampleOptions) { o.maxWords = n }
}

// WithRand draws from r instead of the global source, which makes sampling
// reproducible. A *rand.Rand is not safe for concurrent use, so r must not be
// shared between concurrent Sample calls.
func WithRand(r *rand.Rand) SampleOption {
	return func(o *sampleOptions) { o.intN = r.IntN }
}

// WithStart makes every sampled sentence begin with the words of text. With
// fewer words than the model order, the words must start a sentence in the
// corpus; otherwise their last order words must appear anywhere in it.
func WithStart(text string) SampleOption {
	return func(o *sampleOptions) { o.start = text }
}

// walkResult classifies the outcome of a single walk.
type walkResult int

const (
	walkAccepted walkResult = iota
	walkDeadEnd
	walkEmpty
	walkTooLong
	walkTooShort
)

func (r walkResult) String() string {
	switch r {
	case walkAccepted:
		return "accepted"
	case walkDeadEnd:
		return "dead_end"
	case walkEmpty:
		return "empty"
	case walkTooLong:
		return "too_long"
	case walkTooShort:
		return "too_short"
	}
	return "unknown"
}

// Sample draws a random sentence from m whose length in characters is at most
// maxChars; a maxChars of zero or less disables the limit. Each walk starts
// from the begin state and picks every next word with probability
// proportional to its count, until End is drawn. Walks that are too long, hit
// an unknown state or end before any word are discarded whole and retried,
// never truncated. When all attempts are used up, Sample returns a
// *SampleError matching ErrNoSentenceFound.
func (g *Generator) Sample(ctx context.Context, m *Model, maxChars int, opts ...SampleOption) (string, error) {
	options := &sampleOptions{
		maxAttempts: DefaultMaxAttempts,
		maxWords:    DefaultMaxWords,
		intN:        rand.IntN,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.maxAttempts < 1 {
		options.maxAttempts = 1
	}

	state, prefix, err := g.startState(m, options.start)
	if err != nil {
		return "", err
	}

	for attempt := 1; attempt <= options.maxAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return "", err
		}
		sentence, result := m.walk(state, prefix, maxChars, options)
		if result == walkAccepted {
			g.logger.DebugContext(ctx, "Sentence sampled",
				slog.Int("attempt", attempt),
				slog.Int("length", utf8.RuneCountInString(sentence)),
			)
			return sentence, nil
		}
		g.logger.DebugContext(ctx, "Sampling attempt rejected",
			slog.Int("attempt", attempt),
			slog.String("reason", result.String()),
			slog.Int("max_chars", maxChars),
		)
	}

	return "", &SampleError{
		Attempts: options.maxAttempts,
		MaxChars: maxChars,
		MinChars: options.minChars,
	}
}

// startState returns the state a walk begins in and the words already emitted.
func (g *Generator) startState(m *Model, start string) ([]string, []string, error) {
	words := g.tokenizer.Split(start)
	if len(words) == 0 {
		return beginState(m.order), nil, nil
	}

	var state []string
	if len(words) >= m.order {
		state = slices.Clone(words[len(words)-m.order:])
	} else {
		state = append(beginState(m.order-len(words)), words...)
	}
	if _, ok := m.chain[stateKey(state)]; !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStart, start)
	}
	return state, words, nil
}

// walk performs one random walk from init. The sentence is built from prefix
// followed by every drawn word.
func (m *Model) walk(init, prefix []string, maxChars int, o *sampleOptions) (string, walkResult) {
	state := slices.Clone(init)
	words := slices.Clone(prefix)
	length := utf8.RuneCountInString(strings.Join(words, " "))

	for {
		t, ok := m.chain[stateKey(state)]
		if !ok {
			return "", walkDeadEnd
		}
		next := t.choose(o.intN)
		if next == End {
			if len(words) == 0 {
				return "", walkEmpty
			}
			break
		}

		if len(words) > 0 {
			length++
		}
		length += utf8.RuneCountInString(next)
		words = append(words, next)
		// The walk can only grow, so it is rejected as soon as it is too long.
		if (maxChars > 0 && length > maxChars) || len(words) > o.maxWords {
			return "", walkTooLong
		}
		state = append(state[1:], next)
	}

	if maxChars > 0 && length > maxChars {
		return "", walkTooLong
	}
	if length < o.minChars {
		return "", walkTooShort
	}
	return strings.Join(words, " "), walkAccepted
}

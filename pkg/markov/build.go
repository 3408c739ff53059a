package markov

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"
)

// buildOptions Is used by the build functions to configure default options.
type buildOptions struct {
	filter   func([]string) bool
	progress func(sentences int)
}

// BuildOption is a function that configures model building. It's used as a
// variadic argument in Build and Train.
type BuildOption func(*buildOptions)

// WithSentenceFilter drops every sentence for which keep returns false.
func WithSentenceFilter(keep func(tokens []string) bool) BuildOption {
	return func(o *buildOptions) { o.filter = keep }
}

// WithProgress registers a callback invoked after each accepted sentence with
// the number of sentences accepted so far.
func WithProgress(fn func(sentences int)) BuildOption {
	return func(o *buildOptions) { o.progress = fn }
}

// WellFormed is a sentence filter that rejects sentences containing double
// quotes, parentheses or brackets, or a single quote at the edge of a word.
// Such sentences tend to produce unbalanced punctuation when recombined.
func WellFormed(tokens []string) bool {
	for _, tok := range tokens {
		if strings.ContainsAny(tok, `"()[]`) {
			return false
		}
		if strings.HasPrefix(tok, "'") || strings.HasSuffix(tok, "'") {
			return false
		}
	}
	return true
}

// builder owns a chain under construction. Nothing else can observe the
// counts until finish hands out the immutable Model.
type builder struct {
	order     int
	counts    *chainCounts
	options   *buildOptions
	padded    []string
	sentences int
	skipped   int
}

func newBuilder(order int, opts []BuildOption) (*builder, error) {
	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	options := &buildOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return &builder{
		order:   order,
		counts:  newChainCounts(order),
		options: options,
	}, nil
}

// addSentence records every link of one sentence. It reports whether the
// sentence was used.
func (b *builder) addSentence(sentence []string) bool {
	tokens := make([]string, 0, len(sentence))
	for _, tok := range sentence {
		if tok = strings.TrimSpace(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 || slices.Contains(tokens, Begin) || slices.Contains(tokens, End) {
		b.skipped++
		return false
	}
	if b.options.filter != nil && !b.options.filter(tokens) {
		b.skipped++
		return false
	}

	b.padded = append(b.padded[:0], beginState(b.order)...)
	b.padded = append(b.padded, tokens...)
	b.padded = append(b.padded, End)
	for i := 0; i+b.order < len(b.padded); i++ {
		b.counts.add(b.padded[i:i+b.order], b.padded[i+b.order], 1)
	}

	b.sentences++
	if b.options.progress != nil {
		b.options.progress(b.sentences)
	}
	return true
}

func (b *builder) finish() (*Model, error) {
	if b.sentences == 0 {
		return nil, ErrEmptyCorpus
	}
	return b.counts.model(), nil
}

// Build creates a Model of the given order from a corpus of tokenized
// sentences. Each sentence is padded with order Begin markers and terminated by
// End, and every window of order tokens counts one transition to the token
// after it. Sentences without any non-blank token are discarded; if none
// remain, Build fails with ErrEmptyCorpus.
func Build(corpus [][]string, order int, opts ...BuildOption) (*Model, error) {
	b, err := newBuilder(order, opts)
	if err != nil {
		return nil, err
	}
	for _, sentence := range corpus {
		b.addSentence(sentence)
	}
	return b.finish()
}

// Train reads raw text from data, splits it into sentences with the
// Generator's tokenizer and builds a Model of the given order. Sentences whose
// text is at most one character long are skipped.
func (g *Generator) Train(ctx context.Context, data io.Reader, order int, opts ...BuildOption) (*Model, error) {
	b, err := newBuilder(order, opts)
	if err != nil {
		return nil, err
	}

	stream := g.tokenizer.NewStream(data)
	var current []string
	var chars int

	flush := func() {
		// Skip near-empty sentences such as a stray "." between quotes.
		if chars+len(current)-1 > 1 {
			b.addSentence(current)
		} else if len(current) > 0 {
			b.skipped++
		}
		current = current[:0]
		chars = 0
	}

	for {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		token, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("tokenizer error: %w", err)
		}
		current = append(current, token.Text)
		chars += utf8.RuneCountInString(token.Text)
		if token.EOC {
			flush()
		}
	}
	if len(current) > 0 {
		flush()
	}

	model, err := b.finish()
	if err != nil {
		g.logger.WarnContext(ctx, "Training produced no usable sentences",
			slog.Int("order", order),
			slog.Int("sentences_skipped", b.skipped),
		)
		return nil, err
	}

	g.logger.InfoContext(ctx, "Training completed",
		slog.Int("order", order),
		slog.Int("sentences_processed", b.sentences),
		slog.Int("sentences_skipped", b.skipped),
		slog.Int("states", model.Len()),
	)
	return model, nil
}

package markov

import (
	"io"
	"log/slog"
)

const (
	// Begin is the reserved token used to pad the state at the start of a sentence.
	Begin = "___BEGIN__"
	// End is the reserved token that follows the last word of every sentence.
	End = "___END__"
)

// Generator is the main entry point for training and sampling models. It holds
// the tokenizer used to read raw text and a logger. It never holds a model: models
// are passed explicitly, so one Generator can serve many models concurrently.
type Generator struct {
	tokenizer Tokenizer
	logger    *slog.Logger
}

// NewGenerator creates a Generator using the given Tokenizer. A nil tokenizer
// falls back to NewDefaultTokenizer.
func NewGenerator(tokenizer Tokenizer) *Generator {
	if tokenizer == nil {
		tokenizer = NewDefaultTokenizer()
	}
	return &Generator{
		tokenizer: tokenizer,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Generator. By default, all logs are discarded.
func (g *Generator) SetLogger(logger *slog.Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Tokenizer returns the tokenizer the Generator was created with.
func (g *Generator) Tokenizer() Tokenizer {
	return g.tokenizer
}

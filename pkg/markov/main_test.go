package markov

import (
	"context"
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const fishCorpus = "One fish two fish. Red fish blue fish."

var catCorpus = [][]string{
	{"the", "cat", "sat."},
	{"the", "cat", "ran."},
}

// trainTestModel trains an order 2 model on fishCorpus.
func trainTestModel(t *testing.T) (context.Context, *Generator, *Model) {
	t.Helper()
	ctx := context.Background()
	g := NewGenerator(NewDefaultTokenizer())
	m, err := g.Train(ctx, strings.NewReader(fishCorpus), 2)
	if err != nil {
		t.Fatalf("setup: Train() failed: %v", err)
	}
	return ctx, g, m
}

// buildCatModel builds the order 1 model of catCorpus.
func buildCatModel(t *testing.T) *Model {
	t.Helper()
	m, err := Build(catCorpus, 1)
	if err != nil {
		t.Fatalf("setup: Build() failed: %v", err)
	}
	return m
}

var (
	benchmarkCorpus string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus reads Go source files to create a corpus for benchmarking.
func createBenchmarkCorpus() string {
	corpusOnce.Do(func() {
		var sb strings.Builder
		goRoot := build.Default.GOROOT
		filesToRead := []string{
			filepath.Join(goRoot, "src/net/http/server.go"),
			filepath.Join(goRoot, "src/go/parser/parser.go"),
			filepath.Join(goRoot, "src/encoding/json/encode.go"),
		}

		for _, file := range filesToRead {
			content, err := os.ReadFile(file)
			if err != nil {
				benchmarkCorpus = "This is a fallback corpus for benchmarking. It is not very long but will prevent a crash."
				return
			}
			sb.Write(content)
			sb.WriteString("\n")
		}
		benchmarkCorpus = sb.String()
	})
	return benchmarkCorpus
}

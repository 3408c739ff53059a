package markov

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestSampleScenario(t *testing.T) {
	m := buildCatModel(t)
	g := NewGenerator(nil)
	ctx := context.Background()

	seen := make(map[string]int)
	for i := 0; i < 200; i++ {
		s, err := g.Sample(ctx, m, 50)
		if err != nil {
			t.Fatalf("Sample() failed: %v", err)
		}
		seen[s]++
	}
	for s := range seen {
		if s != "the cat sat." && s != "the cat ran." {
			t.Errorf("Sample() got = %q, want one of the two corpus walks", s)
		}
	}
	if len(seen) != 2 {
		t.Errorf("expected both walks over 200 samples, got %v", seen)
	}
}

func TestSampleRespectsMaxChars(t *testing.T) {
	corpus := `The quick brown fox jumps over the lazy dog. The lazy dog sleeps all day.
A quick brown dog jumps over the fox. The fox sleeps. A dog jumps.
The cat jumps over the quick dog and sleeps all day long in the sun.`
	g := NewGenerator(NewDefaultTokenizer())
	ctx := context.Background()

	for _, order := range []int{1, 2} {
		m, err := g.Train(ctx, strings.NewReader(corpus), order)
		if err != nil {
			t.Fatalf("Train() failed: %v", err)
		}
		for _, maxChars := range []int{15, 25, 40, 80} {
			for i := 0; i < 100; i++ {
				s, err := g.Sample(ctx, m, maxChars, WithMaxAttempts(100))
				if errors.Is(err, ErrNoSentenceFound) {
					continue
				}
				if err != nil {
					t.Fatalf("Sample() failed: %v", err)
				}
				if n := utf8.RuneCountInString(s); n > maxChars {
					t.Errorf("order %d: %q has %d characters, limit %d", order, s, n, maxChars)
				}
				if !m.Recognizes(g.Tokenizer().Split(s)) {
					t.Errorf("order %d: %q does not end at a real END transition", order, s)
				}
			}
		}
	}
}

func TestSampleWeighted(t *testing.T) {
	corpus := make([][]string, 0, 10)
	for i := 0; i < 9; i++ {
		corpus = append(corpus, []string{"A"})
	}
	corpus = append(corpus, []string{"B"})
	m, err := Build(corpus, 1)
	if err != nil {
		t.Fatal(err)
	}

	g := NewGenerator(nil)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))

	const draws = 20000
	var hits int
	for i := 0; i < draws; i++ {
		s, err := g.Sample(ctx, m, 10, WithRand(rng))
		if err != nil {
			t.Fatalf("Sample() failed: %v", err)
		}
		if s == "A" {
			hits++
		}
	}
	// The standard error at p=0.9 over 20000 draws is about 0.0021.
	if freq := float64(hits) / draws; freq < 0.89 || freq > 0.91 {
		t.Errorf("frequency of A = %.4f, want 0.9 +/- 0.01", freq)
	}
}

func TestChooseUsesCumulativeCounts(t *testing.T) {
	m, err := NewModel(1, []Record{
		{State: []string{Begin}, Next: "a", Count: 2},
		{State: []string{Begin}, Next: "b", Count: 1},
		{State: []string{Begin}, Next: "c", Count: 3},
		{State: []string{"a"}, Next: End, Count: 2},
		{State: []string{"b"}, Next: End, Count: 1},
		{State: []string{"c"}, Next: End, Count: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	tr := m.chain[stateKey([]string{Begin})]
	want := []string{"a", "a", "b", "c", "c", "c"}
	for r, w := range want {
		got := tr.choose(func(n int) int {
			if n != 6 {
				t.Fatalf("draw over %d, want 6", n)
			}
			return r
		})
		if got != w {
			t.Errorf("draw %d chose %q, want %q", r, got, w)
		}
	}
}

func TestSampleNoSentenceFound(t *testing.T) {
	_, g, m := trainTestModel(t)

	_, err := g.Sample(context.Background(), m, 1)
	if !errors.Is(err, ErrNoSentenceFound) {
		t.Fatalf("Sample() error = %v, want ErrNoSentenceFound", err)
	}
	var sampleErr *SampleError
	if !errors.As(err, &sampleErr) {
		t.Fatalf("expected a *SampleError, got %T", err)
	}
	if sampleErr.Attempts != DefaultMaxAttempts || sampleErr.MaxChars != 1 {
		t.Errorf("unexpected error details: %+v", sampleErr)
	}

	_, err = g.Sample(context.Background(), m, 1, WithMaxAttempts(0))
	if errors.As(err, &sampleErr) && sampleErr.Attempts != 1 {
		t.Errorf("WithMaxAttempts(0) made %d attempts, want 1", sampleErr.Attempts)
	}
}

func TestSampleFailedWalks(t *testing.T) {
	testCases := map[string][]Record{
		"end before any word": {
			{State: []string{Begin}, Next: End, Count: 1},
		},
		"cycle without end": {
			{State: []string{Begin}, Next: "a", Count: 1},
			{State: []string{"a"}, Next: "a", Count: 1},
		},
	}
	g := NewGenerator(nil)

	for name, records := range testCases {
		t.Run(name, func(t *testing.T) {
			m, err := NewModel(1, records)
			if err != nil {
				t.Fatal(err)
			}
			_, err = g.Sample(context.Background(), m, 0, WithMaxWords(50))
			if !errors.Is(err, ErrNoSentenceFound) {
				t.Errorf("Sample() error = %v, want ErrNoSentenceFound", err)
			}
		})
	}
}

func TestSampleWithStart(t *testing.T) {
	ctx, g, m := trainTestModel(t)

	testCases := []struct {
		start    string
		expected string
		err      error
	}{
		{start: "Red", expected: "Red fish blue fish."},
		{start: "One fish", expected: "One fish two fish."},
		{start: "fish two", expected: "fish two fish."},
		{start: "Green", err: ErrUnknownStart},
		{start: "fish", err: ErrUnknownStart},
	}
	for _, tc := range testCases {
		t.Run(tc.start, func(t *testing.T) {
			s, err := g.Sample(ctx, m, 100, WithStart(tc.start))
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Errorf("Sample() error = %v, want %v", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Sample() failed: %v", err)
			}
			if s != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, s)
			}
		})
	}
}

func TestSampleMinChars(t *testing.T) {
	m, err := Build([][]string{{"Hi."}, {"Hello", "there", "friend."}}, 1)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGenerator(nil)
	for i := 0; i < 20; i++ {
		s, err := g.Sample(context.Background(), m, 0, WithMinChars(5), WithMaxAttempts(200))
		if err != nil {
			t.Fatalf("Sample() failed: %v", err)
		}
		if s != "Hello there friend." {
			t.Errorf("got %q, want the long sentence", s)
		}
	}
}

func TestSampleConcurrent(t *testing.T) {
	ctx, g, m := trainTestModel(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s, err := g.Sample(ctx, m, 100)
				if err != nil {
					errs <- err
					return
				}
				if s != "One fish two fish." && s != "Red fish blue fish." {
					errs <- errors.New("unexpected sentence " + s)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestSampleCanceled(t *testing.T) {
	_, g, m := trainTestModel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Sample(ctx, m, 100); !errors.Is(err, context.Canceled) {
		t.Errorf("Sample() error = %v, want context.Canceled", err)
	}
}

func BenchmarkSample(b *testing.B) {
	corpus := createBenchmarkCorpus()
	ctx := context.Background()
	g := NewGenerator(NewDefaultTokenizer())

	m, err := g.Train(ctx, strings.NewReader(corpus), 2)
	if err != nil {
		b.Fatalf("Train() setup for benchmark failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, err := g.Sample(ctx, m, 0)
		if err != nil && !errors.Is(err, ErrNoSentenceFound) {
			b.Fatalf("Sample() failed: %v", err)
		}
		b.SetBytes(int64(len(s)))
	}
}

// Package corpus resolves corpus file patterns into a single bounded text
// stream for training.
package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultMaxBytes bounds how much corpus text is read for a single model.
const DefaultMaxBytes = 1_000_000

// ErrNoFiles is returned when no pattern matches a regular file.
var ErrNoFiles = errors.New("corpus: no files match")

// Source is an io.ReadCloser over the concatenation of every matched file, in
// lexical path order, with a newline between files. Files are opened one at a
// time as reading progresses.
type Source struct {
	files   []string
	next    int
	cur     *os.File
	pending bool // a separator is owed before the next file
	reader  io.Reader
}

// Open resolves patterns (doublestar globs such as "data/**/*.txt" or plain
// paths) and returns a Source reading at most maxBytes bytes in total. A
// maxBytes of zero or less reads everything.
func Open(patterns []string, maxBytes int64) (*Source, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid corpus pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				return nil, fmt.Errorf("could not stat corpus file %q: %w", match, err)
			}
			if info.IsDir() {
				continue
			}
			if _, dup := seen[match]; dup {
				continue
			}
			seen[match] = struct{}{}
			files = append(files, match)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, strings.Join(patterns, ", "))
	}
	slices.Sort(files)

	s := &Source{files: files}
	s.reader = readerFunc(s.read)
	if maxBytes > 0 {
		s.reader = io.LimitReader(s.reader, maxBytes)
	}
	return s, nil
}

// Files returns the matched files in reading order.
func (s *Source) Files() []string {
	return slices.Clone(s.files)
}

// Read implements io.Reader.
func (s *Source) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

// Close closes the file currently being read, if any.
func (s *Source) Close() error {
	if s.cur == nil {
		return nil
	}
	err := s.cur.Close()
	s.cur = nil
	s.next = len(s.files)
	return err
}

func (s *Source) read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		if s.cur == nil {
			if s.next >= len(s.files) {
				return 0, io.EOF
			}
			if s.pending {
				s.pending = false
				p[0] = '\n'
				return 1, nil
			}
			f, err := os.Open(s.files[s.next])
			if err != nil {
				return 0, fmt.Errorf("could not open corpus file: %w", err)
			}
			s.cur = f
			s.next++
		}

		n, err := s.cur.Read(p)
		if errors.Is(err, io.EOF) {
			_ = s.cur.Close()
			s.cur = nil
			s.pending = s.next < len(s.files)
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) {
	return f(p)
}

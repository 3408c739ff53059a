package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/CTAG07/quotegen/pkg/markov"
	"github.com/CTAG07/quotegen/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestConfig writes a config that keeps the corpus and every store
// under dir, and returns its path.
func writeTestConfig(t *testing.T, dir, driver string) string {
	t.Helper()
	corpusPath := filepath.Join(dir, "quotes.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte("The cat sat. The cat sat. The cat ran.\nThe dog sat.\n"), 0o644))

	content := fmt.Sprintf(`server:
  log_level: error
model:
  name: cats
  order: 1
corpus:
  paths: [%q]
store:
  driver: %s
  dir: %q
  sqlite_path: %q
  bolt_path: %q
`, corpusPath, driver, filepath.Join(dir, "models"), filepath.Join(dir, "quotegen.db"), filepath.Join(dir, "quotegen.bolt"))

	path := filepath.Join(dir, "quotegen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readStats(t *testing.T, configPath, name string) markov.ModelStats {
	t.Helper()
	out, err := runCLI(t, configPath, "stats", name)
	require.NoError(t, err)
	var stats markov.ModelStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	return stats
}

func TestCLIWorkflow(t *testing.T) {
	for _, driver := range []string{store.DriverFile, store.DriverSQLite, store.DriverBolt} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			configPath := writeTestConfig(t, dir, driver)

			out, err := runCLI(t, configPath, "build", "--quiet")
			require.NoError(t, err)
			assert.Contains(t, out, `built model "cats": order 1, 4 sentences`)

			out, err = runCLI(t, configPath, "sample", "--wrap", "0")
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
			require.Len(t, lines, 2)
			assert.True(t, slices.Contains([]string{"The cat sat.", "The cat ran.", "The dog sat."}, lines[0]), "sample = %q", lines[0])
			assert.Equal(t, "- Michael Scott", lines[1])

			out, err = runCLI(t, configPath, "sample", "-n", "3", "--json", "--start", "The dog")
			require.NoError(t, err)
			decoder := json.NewDecoder(strings.NewReader(out))
			for i := 0; i < 3; i++ {
				var q Quote
				require.NoError(t, decoder.Decode(&q))
				assert.Equal(t, "The dog sat.", q.Quote)
			}

			_, err = runCLI(t, configPath, "sample", "--max-chars", "1")
			assert.ErrorIs(t, err, markov.ErrNoSentenceFound)

			stats := readStats(t, configPath, "cats")
			assert.Equal(t, 4, stats.Sentences)

			exportPath := filepath.Join(dir, "cats.json")
			_, err = runCLI(t, configPath, "export", "-o", exportPath)
			require.NoError(t, err)
			require.FileExists(t, exportPath)

			_, err = runCLI(t, configPath, "import", "copy", exportPath)
			require.NoError(t, err)
			_, err = runCLI(t, configPath, "import", "--merge", "cats", exportPath)
			require.NoError(t, err)
			merged := readStats(t, configPath, "cats")
			assert.Equal(t, 2*stats.TotalFrequency, merged.TotalFrequency)
			assert.Equal(t, stats.Transitions, merged.Transitions)

			_, err = runCLI(t, configPath, "prune", "cats", "--min-freq", "2", "--into", "common")
			require.NoError(t, err)
			pruned := readStats(t, configPath, "common")
			assert.Less(t, pruned.Transitions, merged.Transitions)
			out, err = runCLI(t, configPath, "sample", "common", "--wrap", "0")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, "The cat sat.\n"), "sample of pruned model = %q", out)

			out, err = runCLI(t, configPath, "list")
			require.NoError(t, err)
			assert.Equal(t, "cats\ncommon\ncopy\n", out)

			_, err = runCLI(t, configPath, "delete", "copy")
			require.NoError(t, err)
			_, err = runCLI(t, configPath, "delete", "copy")
			assert.ErrorIs(t, err, store.ErrNotFound)
		})
	}
}

func TestCLIBuildEmptyCorpus(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir, store.DriverFile)
	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("   \n"), 0o644))

	_, err := runCLI(t, configPath, "build", "--quiet", "--corpus", empty)
	assert.ErrorIs(t, err, markov.ErrEmptyCorpus)
}

func TestCLIVersion(t *testing.T) {
	// The version command must not create a config file.
	configPath := filepath.Join(t.TempDir(), "quotegen.yaml")
	out, err := runCLI(t, configPath, "version")
	require.NoError(t, err)
	assert.Equal(t, "quotegen dev (commit none, built unknown)\n", out)
	assert.NoFileExists(t, configPath)
}

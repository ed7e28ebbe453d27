package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	movies := filepath.Join(dir, "movies.json")
	sim := filepath.Join(dir, "sim.json")
	require.NoError(t, os.WriteFile(movies, []byte(`{
		"movie_id": {"0": 27205, "1": 157336, "2": 577922},
		"title": {"0": "Inception", "1": "Interstellar", "2": "Tenet"}
	}`), 0o644))
	require.NoError(t, os.WriteFile(sim, []byte(`[[1, 0.4, 0.7], [0.4, 1, 0.2], [0.7, 0.2, 1]]`), 0o644))

	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "catalog:\n  movies_path: " + movies + "\n  similarity_path: " + sim +
		"\ntmdb:\n  api_key_env: MOVIEREC_CMD_TEST_NO_KEY\nlogging:\n  level: disabled\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRecommendCommand(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "--config", cfg, "recommend", "Inception")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Tenet\t"))
	assert.True(t, strings.HasPrefix(lines[1], "Interstellar\t"))
	assert.Contains(t, lines[0], "placeholder")
}

func TestRecommendCommandUnknownTitle(t *testing.T) {
	cfg := writeFixture(t)

	_, err := run(t, "--config", cfg, "recommend", "Nope")
	assert.Error(t, err)
}

func TestChatCommand(t *testing.T) {
	cfg := writeFixture(t)

	out, err := run(t, "--config", cfg, "chat", "recommend", "something", "like", "tenet")
	require.NoError(t, err)
	assert.Equal(t, "I recommend: Inception, Interstellar\n", out)
}

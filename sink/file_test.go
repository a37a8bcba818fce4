package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.jsonl")
	s, err := NewFile(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Submit(context.Background(), testRecord("first")))
	require.NoError(t, s.Submit(context.Background(), testRecord("second")))
	require.NoError(t, s.Drain(context.Background()))

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "first", lines[0]["message"])
	assert.Equal(t, "second", lines[1]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "checkout", lines[0]["service"])
}

func TestFileSinkCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "service.jsonl")
	s, err := NewFile(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Submit(context.Background(), testRecord("x")))
	require.NoError(t, s.Drain(context.Background()))

	assert.FileExists(t, path)
}

func TestFileSinkCloseFlushes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.jsonl")
	s, err := NewFile(path)
	require.NoError(t, err)

	require.NoError(t, s.Submit(context.Background(), testRecord("buffered")))
	require.NoError(t, s.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, "buffered", lines[0]["message"])
}

func TestFileSinkRejectsAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.jsonl")
	s, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Submit(context.Background(), testRecord("late")), ErrClosed)
	assert.ErrorIs(t, s.Drain(context.Background()), ErrClosed)
	assert.NoError(t, s.Close(), "close is idempotent")
}

func TestFileSinkAppendsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.jsonl")

	first, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, first.Submit(context.Background(), testRecord("from first")))
	require.NoError(t, first.Close())

	second, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, second.Submit(context.Background(), testRecord("from second")))
	require.NoError(t, second.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Equal(t, "from first", lines[0]["message"])
	assert.Equal(t, "from second", lines[1]["message"])
}

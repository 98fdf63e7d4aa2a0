package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileArchive_AppendAndRead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "archive")
	a, err := NewFileArchive(dir)
	require.NoError(t, err)

	first := []Action{
		{ID: "1", Type: ActionThought, Content: "Analyzing"},
		{ID: "2", Type: ActionToolUse, Tool: "calculator", ToolInput: map[string]any{"expression": "1 < 2"}, ToolOutput: "1"},
	}
	second := []Action{{ID: "3", Type: ActionResponse, Content: "done"}}

	require.NoError(t, a.Archive(context.Background(), "ws:abc", first))
	require.NoError(t, a.Archive(context.Background(), "ws:abc", second))
	require.NoError(t, a.Archive(context.Background(), "ws:abc", nil))

	got, err := a.Read("ws:abc")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "1 < 2", got[1].ToolInput["expression"])

	data, err := os.ReadFile(filepath.Join(dir, "ws_abc.jsonl"))
	require.NoError(t, err)
	assert.Equal(t, 5, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), `"expression":"1 < 2"`)
}

func TestFileArchive_ReadMissing(t *testing.T) {
	a, err := NewFileArchive(t.TempDir())
	require.NoError(t, err)

	got, err := a.Read("nobody")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileArchive_CancelledContext(t *testing.T) {
	a, err := NewFileArchive(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = a.Archive(ctx, "s", []Action{{ID: "1"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", safeFilename(`a/b\c`))
	assert.Equal(t, "_hidden", safeFilename(".hidden"))
}

package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/clock"
)

func TestWeatherTool_DeterministicAndSimulatedLatency(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	w := NewWeatherTool(fake, 800*time.Millisecond)

	first, err := w.Execute(context.Background(), map[string]any{"location": "Tokyo"})
	require.NoError(t, err)
	second, err := w.Execute(context.Background(), map[string]any{"location": "tokyo"})
	require.NoError(t, err)

	assert.Contains(t, first, "Weather in Tokyo:")
	assert.Contains(t, first, "°C")
	assert.Equal(t, first[len("Weather in Tokyo"):], second[len("Weather in tokyo"):])
	assert.Equal(t, 1600*time.Millisecond, fake.Slept())
}

func TestWeatherTool_Imperial(t *testing.T) {
	out, err := NewWeatherTool(clock.NewFake(time.Now()), 0).
		Execute(context.Background(), map[string]any{"location": "Oslo", "units": "imperial"})
	require.NoError(t, err)
	assert.Contains(t, out, "°F")
}

func TestWeatherTool_CancelledDuringLatency(t *testing.T) {
	fake := clock.NewFake(time.Now())
	fake.Block = true
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWeatherTool(fake, time.Second).Execute(ctx, map[string]any{"location": "Lima"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebSearchTool(t *testing.T) {
	s := NewWebSearchTool(clock.NewFake(time.Now()), 0, 2)

	out, err := s.Execute(context.Background(), map[string]any{"query": "golang generics"})
	require.NoError(t, err)
	assert.Contains(t, out, "Results for: golang generics")
	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, "2. ")
	assert.NotContains(t, out, "3. ")

	out, err = s.Execute(context.Background(), map[string]any{"query": "x", "count": float64(4)})
	require.NoError(t, err)
	assert.Contains(t, out, "4. ")
}

func TestRunCodeTool(t *testing.T) {
	_, err := NewRunCodeTool(false).Execute(context.Background(), map[string]any{"code": "1 + 1"})
	assert.ErrorIs(t, err, ErrCodeExecutionDisabled)

	out, err := NewRunCodeTool(true).Execute(context.Background(), map[string]any{
		"code": "// sum\nconsole.log(1 + 2);\nprint((2 + 2) * 3)",
	})
	require.NoError(t, err)
	assert.Equal(t, "3\n12", out)

	_, err = NewRunCodeTool(true).Execute(context.Background(), map[string]any{"code": "require('fs')"})
	assert.ErrorIs(t, err, ErrUnsupportedExpression)
}

func TestReadFileTool(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, "notes.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(ws, "dir"), 0o755))
	tool := NewReadFileTool(ws)

	out, err := tool.Execute(context.Background(), map[string]any{"path": "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = tool.Execute(context.Background(), map[string]any{"path": "../outside.txt"})
	assert.ErrorContains(t, err, "outside the workspace")

	_, err = tool.Execute(context.Background(), map[string]any{"path": "missing.txt"})
	assert.ErrorContains(t, err, "file not found")

	_, err = tool.Execute(context.Background(), map[string]any{"path": "dir"})
	assert.ErrorContains(t, err, "not a file")
}

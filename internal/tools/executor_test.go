package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/metrics"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/schema"
)

func newTestExecutor(t *testing.T, ts ...*stubTool) *Executor {
	t.Helper()
	r := NewRegistry()
	for _, s := range ts {
		require.NoError(t, r.Register(s))
	}
	return NewExecutor(r,
		WithTimeout(50*time.Millisecond),
		WithExecutorMetrics(metrics.MustNew(prometheus.NewRegistry())),
	)
}

func TestExecutor_Success(t *testing.T) {
	echo := newStub("echo", func(_ context.Context, p map[string]any) (string, error) {
		return p["text"].(string), nil
	})
	e := newTestExecutor(t, echo)

	res := e.Execute(context.Background(), "echo", map[string]any{"text": "hi"})

	assert.True(t, res.OK())
	assert.Equal(t, "hi", res.Output)
	assert.Equal(t, "hi", res.Text())
	assert.Equal(t, "ok", res.Outcome())
	assert.Equal(t, "echo", res.Tool)
}

func TestExecutor_NotFoundIsRecoverable(t *testing.T) {
	e := newTestExecutor(t)

	res := e.Execute(context.Background(), "ghost", nil)

	require.False(t, res.OK())
	assert.Equal(t, KindNotFound, res.Err.Kind)
	assert.ErrorIs(t, res.Err, ErrToolNotFound)
	assert.Contains(t, res.Text(), "Error:")
}

func TestExecutor_MissingRequiredSkipsExecute(t *testing.T) {
	s := newStub("weather", nil)
	s.schema = schema.ParameterSchema{
		Required: []string{"location"},
		Fields:   map[string]schema.Field{"location": {Kind: schema.KindString}},
	}
	e := newTestExecutor(t, s)

	res := e.Execute(context.Background(), "weather", map[string]any{})

	require.False(t, res.OK())
	assert.Equal(t, KindValidation, res.Err.Kind)
	assert.ErrorIs(t, res.Err, ErrValidation)
	assert.Contains(t, res.Err.Error(), "location")
	assert.Equal(t, 0, s.calls)
}

func TestExecutor_KindMismatchIsValidation(t *testing.T) {
	s := newStub("typed", nil)
	s.schema = schema.ParameterSchema{
		Fields: map[string]schema.Field{"n": {Kind: schema.KindNumber}},
	}
	e := newTestExecutor(t, s)

	res := e.Execute(context.Background(), "typed", map[string]any{"n": "three"})

	require.False(t, res.OK())
	assert.Equal(t, KindValidation, res.Err.Kind)
	assert.Equal(t, 0, s.calls)
}

func TestExecutor_ToolErrorIsExecution(t *testing.T) {
	boom := errors.New("boom")
	e := newTestExecutor(t, newStub("fail", func(context.Context, map[string]any) (string, error) {
		return "", boom
	}))

	res := e.Execute(context.Background(), "fail", nil)

	require.False(t, res.OK())
	assert.Equal(t, KindExecution, res.Err.Kind)
	assert.ErrorIs(t, res.Err, boom)
	assert.ErrorIs(t, res.Err, ErrToolExecution)
}

func TestExecutor_PanicIsRecovered(t *testing.T) {
	e := newTestExecutor(t, newStub("panicky", func(context.Context, map[string]any) (string, error) {
		panic("kaboom")
	}))

	var res Result
	require.NotPanics(t, func() {
		res = e.Execute(context.Background(), "panicky", nil)
	})

	require.False(t, res.OK())
	assert.Equal(t, KindExecution, res.Err.Kind)
	var pe *PanicError
	require.True(t, errors.As(res.Err, &pe))
	assert.Equal(t, "kaboom", pe.Value)
}

func TestExecutor_Timeout(t *testing.T) {
	tests := []struct {
		name string
		run  func(ctx context.Context, _ map[string]any) (string, error)
	}{
		{
			name: "honours context",
			run: func(ctx context.Context, _ map[string]any) (string, error) {
				<-ctx.Done()
				return "", ctx.Err()
			},
		},
		{
			name: "ignores context",
			run: func(context.Context, map[string]any) (string, error) {
				time.Sleep(300 * time.Millisecond)
				return "late", nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestExecutor(t, newStub("slow", tt.run))

			start := time.Now()
			res := e.Execute(context.Background(), "slow", nil)

			require.False(t, res.OK())
			assert.Equal(t, KindTimeout, res.Err.Kind)
			assert.ErrorIs(t, res.Err, ErrToolTimeout)
			assert.Less(t, time.Since(start), 250*time.Millisecond)
		})
	}
}

func TestExecutor_CallerCancellationIsNotTimeout(t *testing.T) {
	called := false
	wait := newStub("wait", func(ctx context.Context, _ map[string]any) (string, error) {
		called = true
		<-ctx.Done()
		return "", ctx.Err()
	})

	t.Run("already cancelled", func(t *testing.T) {
		e := newTestExecutor(t, wait)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res := e.Execute(ctx, "wait", nil)

		require.False(t, res.OK())
		assert.Equal(t, KindCancelled, res.Err.Kind)
		assert.Equal(t, "cancelled", res.Outcome())
		assert.ErrorIs(t, res.Err, ErrToolCancelled)
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("caller deadline", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, r.Register(wait))
		e := NewExecutor(r, WithTimeout(time.Second))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		res := e.Execute(ctx, "wait", nil)

		require.False(t, res.OK())
		assert.Equal(t, KindCancelled, res.Err.Kind)
		assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
		assert.NotErrorIs(t, res.Err, ErrToolTimeout)
	})
}

func TestExecutor_PerToolTimeout(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newStub("slow", func(ctx context.Context, _ map[string]any) (string, error) {
		select {
		case <-time.After(30 * time.Millisecond):
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})))
	e := NewExecutor(r, WithTimeout(5*time.Millisecond), WithToolTimeout("slow", time.Second))

	res := e.Execute(context.Background(), "slow", nil)
	assert.True(t, res.OK())
	assert.Equal(t, "done", res.Output)
}

func TestExecutor_ParamsAreCopied(t *testing.T) {
	e := newTestExecutor(t, newStub("mutator", func(_ context.Context, p map[string]any) (string, error) {
		p["injected"] = true
		return "ok", nil
	}))
	params := map[string]any{"a": 1}

	e.Execute(context.Background(), "mutator", params)

	assert.NotContains(t, params, "injected")
}

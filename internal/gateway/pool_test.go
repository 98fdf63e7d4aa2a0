package gateway

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/agent"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/router"
)

// waitRouter sends messages containing "wait" to the block tool and
// everything else to next.
type waitRouter struct{ next router.Router }

func (r waitRouter) Classify(u string, ts router.Tools) router.Decision {
	if strings.Contains(u, "wait") && !router.HasObservation(u) {
		return router.Decision{Kind: router.NeedsTool, Tool: "block"}
	}
	return r.next.Classify(u, ts)
}

// withBlocker installs a block tool that holds until release is closed and
// returns a channel closed once the tool has started.
func withBlocker(t *testing.T, f *fixture, release <-chan struct{}) <-chan struct{} {
	t.Helper()
	started := make(chan struct{})
	var once sync.Once
	require.NoError(t, f.registry.Register(blockingTool{run: func(ctx context.Context) {
		once.Do(func() { close(started) })
		select {
		case <-release:
		case <-ctx.Done():
		}
	}}))
	f.router = waitRouter{next: f.router}
	return started
}

func TestNewPool_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := NewPool(0, f.factory, nil, nil)
	assert.Error(t, err)

	_, err = NewPool(4, nil, nil, nil)
	assert.Error(t, err)
}

func TestPool_GetOrCreate(t *testing.T) {
	p := newFixture(t).pool(t, 4)

	a := p.GetOrCreate("a")
	assert.Same(t, a, p.GetOrCreate("a"))
	assert.Equal(t, "a", a.ID())
	assert.Equal(t, 1, p.Len())

	_, ok := p.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, p.Len())
}

func TestPool_EvictionArchives(t *testing.T) {
	f := newFixture(t)
	p := f.pool(t, 2)
	ctx := context.Background()

	_, err := p.Send(ctx, "s1", "hello")
	require.NoError(t, err)
	_, err = p.Send(ctx, "s2", "12 * 4")
	require.NoError(t, err)
	_, err = p.Send(ctx, "s3", "thanks")
	require.NoError(t, err)

	assert.Equal(t, []string{"s2", "s3"}, p.IDs())
	stored, err := f.archive.Read("s1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// A returning session starts fresh.
	assert.Empty(t, p.GetOrCreate("s1").Messages())
}

func TestPool_Remove(t *testing.T) {
	f := newFixture(t)
	p := f.pool(t, 4)
	_, err := p.Send(context.Background(), "gone", "weather in Lima")
	require.NoError(t, err)

	assert.True(t, p.Remove("gone"))
	assert.False(t, p.Remove("gone"))

	stored, err := f.archive.Read("gone")
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestPool_ArchiveAll(t *testing.T) {
	f := newFixture(t)
	p := f.pool(t, 4)
	ctx := context.Background()
	_, err := p.Send(ctx, "a", "weather in Lima")
	require.NoError(t, err)
	_, err = p.Send(ctx, "b", "hello")
	require.NoError(t, err)

	n, err := p.ArchiveAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3+1, n)

	a, _ := p.Get("a")
	assert.Len(t, a.Actions(), 1)
}

func TestPool_Close(t *testing.T) {
	f := newFixture(t)
	p := f.pool(t, 4)
	_, err := p.Send(context.Background(), "a", "hello")
	require.NoError(t, err)

	p.Close()
	assert.Zero(t, p.Len())
	stored, err := f.archive.Read("a")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPool_EvictedBusySessionIsNotDuplicated(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	started := withBlocker(t, f, release)
	p := f.pool(t, 1)
	ctx := context.Background()

	first := p.GetOrCreate("a")
	done := make(chan error, 1)
	go func() {
		_, err := first.ProcessMessage(ctx, "please wait")
		done <- err
	}()
	<-started

	_, err := p.Send(ctx, "b", "hello")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, p.IDs())
	assert.Equal(t, 1, p.Draining())

	got, ok := p.Get("a")
	require.True(t, ok)
	assert.Same(t, first, got)

	again := p.GetOrCreate("a")
	assert.Same(t, first, again)
	assert.Zero(t, p.Draining())
	_, err = again.ProcessMessage(ctx, "hello again")
	assert.ErrorIs(t, err, agent.ErrBusy)

	close(release)
	require.NoError(t, <-done)

	_, err = p.Send(ctx, "a", "thanks")
	require.NoError(t, err)
	assert.Len(t, first.Messages(), 4)

	stored, err := f.archive.Read("b")
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestPool_EvictedBusySessionArchivesWhenDone(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	started := withBlocker(t, f, release)
	p := f.pool(t, 1)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := p.Send(ctx, "a", "please wait")
		done <- err
	}()
	<-started

	_, err := p.Send(ctx, "b", "hello")
	require.NoError(t, err)
	require.Equal(t, 1, p.Draining())

	close(release)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool { return p.Draining() == 0 }, 2*time.Second, 10*time.Millisecond)
	stored, err := f.archive.Read("a")
	require.NoError(t, err)
	assert.Len(t, stored, 4)

	fresh := p.GetOrCreate("a")
	assert.Empty(t, fresh.Messages())
}

func TestPool_CloseWaitsForDraining(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	started := withBlocker(t, f, release)
	p := f.pool(t, 2)
	ctx := context.Background()

	go func() { _, _ = p.Send(ctx, "a", "please wait") }()
	<-started

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a session was still busy")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the session finished")
	}
	stored, err := f.archive.Read("a")
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

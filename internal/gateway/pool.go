package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/agent"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/metrics"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/session"
)

// Factory builds a fresh orchestrator for a session ID.
type Factory func(id string) *agent.Orchestrator

// Pool keeps the most recently used sessions in memory. Evicted sessions
// have their action logs archived before they are dropped. A session evicted
// mid-message is parked as draining until its message finishes; asking for
// its ID in the meantime returns the same orchestrator.
type Pool struct {
	factory Factory
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	cache    *lru.Cache[string, *agent.Orchestrator]
	draining map[string]*agent.Orchestrator
	drains   sync.WaitGroup
}

// NewPool creates a Pool holding at most size sessions.
func NewPool(size int, factory Factory, logger *slog.Logger, m *metrics.Metrics) (*Pool, error) {
	if factory == nil {
		return nil, errors.New("gateway: nil session factory")
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		factory:  factory,
		logger:   logger,
		metrics:  m,
		draining: make(map[string]*agent.Orchestrator),
	}
	cache, err := lru.NewWithEvict(size, p.onEvict)
	if err != nil {
		return nil, fmt.Errorf("gateway: session pool: %w", err)
	}
	p.cache = cache
	return p, nil
}

// onEvict runs inside cache calls, which are all made with p.mu held.
func (p *Pool) onEvict(id string, o *agent.Orchestrator) {
	n, err := o.ArchiveActions(context.Background(), 0)
	if errors.Is(err, agent.ErrBusy) {
		p.logger.Info("Session evicted while busy, draining", "session", id)
		p.draining[id] = o
		p.drains.Add(1)
		go p.drain(id, o)
		return
	}
	p.logEvicted(id, n, err)
}

// drain archives a parked session once its in-flight message completes,
// unless GetOrCreate has taken it back in the meantime.
func (p *Pool) drain(id string, o *agent.Orchestrator) {
	defer p.drains.Done()
	for {
		o.WaitIdle()

		p.mu.Lock()
		if p.draining[id] != o {
			p.mu.Unlock()
			return
		}
		n, err := o.ArchiveActions(context.Background(), 0)
		if errors.Is(err, agent.ErrBusy) {
			p.mu.Unlock()
			continue
		}
		delete(p.draining, id)
		p.mu.Unlock()

		p.logEvicted(id, n, err)
		return
	}
}

func (p *Pool) logEvicted(id string, n int, err error) {
	switch {
	case err == nil:
		p.logger.Info("Session evicted", "session", id, "archived", n)
	case errors.Is(err, agent.ErrNoArchive):
		p.logger.Info("Session evicted", "session", id)
	default:
		p.logger.Warn("Session evicted without archiving", "session", id, "err", err)
	}
}

// GetOrCreate returns the session's orchestrator, creating it on first use.
func (p *Pool) GetOrCreate(id string) *agent.Orchestrator {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.cache.Get(id); ok {
		return o
	}
	o, ok := p.draining[id]
	if ok {
		delete(p.draining, id)
	} else {
		o = p.factory(id)
	}
	p.cache.Add(id, o)
	p.metrics.SetSessions(p.cache.Len())
	return o
}

// Get returns a pooled or draining orchestrator without creating one.
func (p *Pool) Get(id string) (*agent.Orchestrator, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if o, ok := p.cache.Get(id); ok {
		return o, true
	}
	o, ok := p.draining[id]
	return o, ok
}

// Draining reports how many evicted sessions still have a message in flight.
func (p *Pool) Draining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.draining)
}

// Remove drops a session, archiving it like an eviction.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok := p.cache.Remove(id)
	p.metrics.SetSessions(p.cache.Len())
	return ok
}

func (p *Pool) Len() int { return p.cache.Len() }

// IDs lists pooled session IDs from oldest to newest.
func (p *Pool) IDs() []string { return p.cache.Keys() }

// Send processes text in the named session, creating it when needed.
func (p *Pool) Send(ctx context.Context, id, text string) ([]session.ChatMessage, error) {
	return p.GetOrCreate(id).ProcessMessage(ctx, text)
}

// ArchiveAll trims every pooled session to its newest keep actions. Busy
// sessions are skipped and retried on the next call.
func (p *Pool) ArchiveAll(ctx context.Context, keep int) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, o := range p.cache.Values() {
		n, err := o.ArchiveActions(ctx, keep)
		switch {
		case err == nil:
			total += n
		case errors.Is(err, agent.ErrBusy), errors.Is(err, agent.ErrNoArchive):
		default:
			errs = append(errs, fmt.Errorf("session %s: %w", o.ID(), err))
		}
	}
	return total, errors.Join(errs...)
}

// Close archives and drops every pooled session, waiting for busy ones to
// finish their current message.
func (p *Pool) Close() {
	p.mu.Lock()
	p.cache.Purge()
	p.metrics.SetSessions(0)
	p.mu.Unlock()

	p.drains.Wait()
}

// Package dependency wires core ngamumule services using go.uber.org/dig.
package dependency

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/agent"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/clock"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/config"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/gateway"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/metrics"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/router"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/scheduler"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/session"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/tools"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *tools.Registry
	router    *router.RuleRouter
	factory   gateway.Factory
	pool      *gateway.Pool
	scheduler *scheduler.Service
	server    *gateway.Server
	gatherer  prometheus.Gatherer
}

func (c *Container) Config() *config.Config        { return c.cfg }
func (c *Container) Logger() *slog.Logger          { return c.logger }
func (c *Container) Registry() *tools.Registry     { return c.registry }
func (c *Container) Router() *router.RuleRouter    { return c.router }
func (c *Container) Pool() *gateway.Pool           { return c.pool }
func (c *Container) Scheduler() *scheduler.Service { return c.scheduler }
func (c *Container) Gateway() *gateway.Server      { return c.server }
func (c *Container) Gatherer() prometheus.Gatherer { return c.gatherer }

// NewOrchestrator builds a standalone session outside the gateway pool.
func (c *Container) NewOrchestrator(id string) *agent.Orchestrator { return c.factory(id) }

// Option overrides a default collaborator.
type Option func(*options)

type options struct {
	logger *slog.Logger
	clock  clock.Clock
	prom   *prometheus.Registry
}

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithClock replaces the system clock used for simulated latency.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithPrometheus registers collectors on reg instead of the global registry.
func WithPrometheus(reg *prometheus.Registry) Option { return func(o *options) { o.prom = reg } }

// New builds and wires all core services from cfg.
func New(cfg *config.Config, opts ...Option) (*Container, error) {
	o := options{logger: slog.Default(), clock: clock.System{}}
	for _, opt := range opts {
		opt(&o)
	}

	d := dig.New()
	providers := []any{
		func() *config.Config { return cfg },
		func() *slog.Logger { return o.logger },
		func() clock.Clock { return o.clock },
		func() (*metrics.Metrics, prometheus.Gatherer) {
			if o.prom == nil {
				return metrics.Default(), prometheus.DefaultGatherer
			}
			return metrics.MustNew(o.prom), o.prom
		},
		newToolRegistry,
		newExecutor,
		newRouter,
		newArchive,
		newFactory,
		newPool,
		newScheduler,
		newServer,
	}
	for _, p := range providers {
		if err := d.Provide(p); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		registry *tools.Registry,
		rt *router.RuleRouter,
		factory gateway.Factory,
		pool *gateway.Pool,
		sched *scheduler.Service,
		server *gateway.Server,
		gatherer prometheus.Gatherer,
	) {
		result = &Container{
			cfg:       cfg,
			logger:    o.logger,
			registry:  registry,
			router:    rt,
			factory:   factory,
			pool:      pool,
			scheduler: sched,
			server:    server,
			gatherer:  gatherer,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newToolRegistry(cfg *config.Config, clk clock.Clock) (*tools.Registry, error) {
	latency := cfg.Tools.SimulatedLatency
	workspace := cfg.WorkspacePath()

	return tools.NewRegistryBuilder().
		WithTool(tools.NewCalculatorTool()).
		WithTool(tools.NewWeatherTool(clk, latency)).
		WithTool(tools.NewWebSearchTool(clk, latency, cfg.Tools.SearchResults)).
		WithTool(tools.NewRunCodeTool(cfg.Tools.RunCode.Enabled)).
		WithToolIf(workspace != "", tools.NewReadFileTool(workspace)).
		WithToolIf(cfg.Tools.Fetch.Enabled, tools.NewFetchURLTool(cfg.Tools.Fetch.MaxChars)).
		Build()
}

func newExecutor(cfg *config.Config, reg *tools.Registry, m *metrics.Metrics, logger *slog.Logger) *tools.Executor {
	opts := []tools.ExecutorOption{
		tools.WithTimeout(cfg.Tools.DefaultTimeout),
		tools.WithExecutorMetrics(m),
		tools.WithExecutorLogger(logger),
	}
	for name, d := range cfg.Tools.Timeouts {
		opts = append(opts, tools.WithToolTimeout(name, d))
	}
	return tools.NewExecutor(reg, opts...)
}

func newRouter(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*router.RuleRouter, error) {
	return router.NewRuleRouter(logger, router.Config{
		Priority:        cfg.Router.Priority,
		DefaultLocation: cfg.Agent.DefaultLocation,
	}, nil, m)
}

// newArchive returns a nil sink when no archive directory is configured.
func newArchive(cfg *config.Config) (session.ArchiveSink, error) {
	dir := cfg.ArchiveDir()
	if dir == "" {
		return nil, nil
	}
	a, err := session.NewFileArchive(dir)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}
	return a, nil
}

func newFactory(
	cfg *config.Config,
	reg *tools.Registry,
	exec *tools.Executor,
	rt *router.RuleRouter,
	archive session.ArchiveSink,
	clk clock.Clock,
	m *metrics.Metrics,
	logger *slog.Logger,
) gateway.Factory {
	return func(id string) *agent.Orchestrator {
		opts := []agent.Option{
			agent.WithSessionID(id),
			agent.WithMaxIterations(cfg.Agent.MaxIterations),
			agent.WithThinkDelay(cfg.Agent.ThinkDelay),
			agent.WithExecutor(exec),
			agent.WithClock(clk),
			agent.WithMetrics(m),
			agent.WithLogger(logger),
		}
		if archive != nil {
			opts = append(opts, agent.WithArchive(archive))
		}
		return agent.New(reg, rt, opts...)
	}
}

func newPool(cfg *config.Config, factory gateway.Factory, m *metrics.Metrics, logger *slog.Logger) (*gateway.Pool, error) {
	return gateway.NewPool(cfg.Gateway.MaxSessions, factory, logger, m)
}

func newScheduler(cfg *config.Config, pool *gateway.Pool, logger *slog.Logger) (*scheduler.Service, error) {
	svc := scheduler.New(logger,
		func(ctx context.Context, id, message string) error {
			_, err := pool.Send(ctx, id, message)
			return err
		},
		pool.ArchiveAll,
	)
	for _, job := range scheduler.JobsFromConfig(cfg.Scheduler, cfg.Archive) {
		if err := svc.Add(job); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

func newServer(cfg *config.Config, pool *gateway.Pool, reg *tools.Registry, gatherer prometheus.Gatherer, logger *slog.Logger) *gateway.Server {
	return gateway.NewServer(cfg.Gateway, pool, reg, gatherer, logger)
}

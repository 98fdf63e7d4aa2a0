// Package scheduler fires configured prompts and action-log archival on cron
// schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	robfigcron "github.com/robfig/cron/v3"

	"github.com/sanimiftah/ngamumule-platform-sub000/internal/config"
	"github.com/sanimiftah/ngamumule-platform-sub000/internal/shared/stringutils"
)

var (
	ErrJobNotFound  = errors.New("scheduler: job not found")
	ErrDuplicateJob = errors.New("scheduler: duplicate job name")
	ErrNoHandler    = errors.New("scheduler: no handler for job kind")
)

// Kind selects what a job does when it fires.
type Kind string

const (
	KindPrompt  Kind = "prompt"
	KindArchive Kind = "archive"
)

// Job is one scheduled unit of work. Prompt jobs send Message into Session;
// archive jobs trim every live session down to Keep actions.
type Job struct {
	Name     string
	Schedule string
	Kind     Kind
	Session  string
	Message  string
	Keep     int
}

// Status is a Job plus its run history.
type Status struct {
	Job
	Next      time.Time
	LastRun   time.Time
	LastError string
	Runs      int
}

// PromptFunc delivers a scheduled message to a session.
type PromptFunc func(ctx context.Context, session, message string) error

// ArchiveFunc trims live sessions to keep actions and reports how many
// actions it archived.
type ArchiveFunc func(ctx context.Context, keep int) (int, error)

type entry struct {
	job    Job
	id     robfigcron.EntryID
	status Status
}

// Service owns a robfig cron runner and the jobs registered on it.
type Service struct {
	logger    *slog.Logger
	cron      *robfigcron.Cron
	parser    robfigcron.Parser
	onPrompt  PromptFunc
	onArchive ArchiveFunc

	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
}

// New creates a Service. Either handler may be nil, in which case jobs of
// that kind fail with ErrNoHandler when they fire.
func New(logger *slog.Logger, onPrompt PromptFunc, onArchive ArchiveFunc) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:    logger.With("component", "scheduler"),
		cron:      robfigcron.New(),
		parser:    robfigcron.NewParser(robfigcron.Minute | robfigcron.Hour | robfigcron.Dom | robfigcron.Month | robfigcron.Dow | robfigcron.Descriptor),
		onPrompt:  onPrompt,
		onArchive: onArchive,
		entries:   make(map[string]*entry),
		ctx:       context.Background(),
	}
}

// JobsFromConfig turns the scheduler and archive sections into jobs.
// Archival is skipped when no archive schedule is set.
func JobsFromConfig(sc config.SchedulerConfig, ac config.ArchiveConfig) []Job {
	jobs := make([]Job, 0, len(sc.Prompts)+1)
	for i, p := range sc.Prompts {
		name := stringutils.StringOrDefault(p.Name, fmt.Sprintf("prompt-%d", i+1))
		session := stringutils.StringOrDefault(p.Session, "scheduler:"+name)
		jobs = append(jobs, Job{
			Name:     name,
			Schedule: p.Schedule,
			Kind:     KindPrompt,
			Session:  session,
			Message:  p.Message,
		})
	}
	if ac.Schedule != "" {
		jobs = append(jobs, Job{
			Name:     "archive",
			Schedule: ac.Schedule,
			Kind:     KindArchive,
			Keep:     ac.Keep,
		})
	}
	return jobs
}

// Add parses the job's schedule and registers it.
func (s *Service) Add(job Job) error {
	if job.Name == "" {
		return errors.New("scheduler: job name is required")
	}
	sched, err := s.parser.Parse(job.Schedule)
	if err != nil {
		return fmt.Errorf("scheduler: job %q: invalid schedule %q: %w", job.Name, job.Schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[job.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name)
	}
	name := job.Name
	id := s.cron.Schedule(sched, robfigcron.FuncJob(func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		_ = s.Run(ctx, name)
	}))
	s.entries[name] = &entry{job: job, id: id, status: Status{Job: job}}
	return nil
}

// Remove unregisters the named job. Unknown names are ignored.
func (s *Service) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[name]; ok {
		s.cron.Remove(e.id)
		delete(s.entries, name)
	}
}

// Jobs returns the status of every job, sorted by name.
func (s *Service) Jobs() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Status, 0, len(s.entries))
	for _, e := range s.entries {
		st := e.status
		st.Next = s.cron.Entry(e.id).Next
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Run executes the named job immediately and records the outcome.
func (s *Service) Run(ctx context.Context, name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	job := e.job
	s.mu.Unlock()

	s.logger.Info("Executing job", "name", job.Name, "kind", job.Kind)
	start := time.Now()
	err := s.execute(ctx, job)
	if err != nil {
		s.logger.Error("Job failed", "name", job.Name, "err", err)
	}

	s.mu.Lock()
	if e, ok := s.entries[name]; ok {
		e.status.LastRun = start
		e.status.Runs++
		e.status.LastError = ""
		if err != nil {
			e.status.LastError = err.Error()
		}
	}
	s.mu.Unlock()
	return err
}

func (s *Service) execute(ctx context.Context, job Job) error {
	switch job.Kind {
	case KindPrompt:
		if s.onPrompt == nil {
			return ErrNoHandler
		}
		return s.onPrompt(ctx, job.Session, job.Message)
	case KindArchive:
		if s.onArchive == nil {
			return ErrNoHandler
		}
		n, err := s.onArchive(ctx, job.Keep)
		if err == nil {
			s.logger.Info("Archived actions", "count", n, "keep", job.Keep)
		}
		return err
	default:
		return fmt.Errorf("%w: %q", ErrNoHandler, job.Kind)
	}
}

// Start runs the scheduler. Blocks until ctx is cancelled and waits for
// running jobs before returning.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	n := len(s.entries)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler: started", "jobs", n)

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler: stopped")
	return ctx.Err()
}

package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cybergrid-controller/internal/metrics"
)

// Job is a named action run at a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(context.Context) error
}

// JobStatus is the operational view of one registered job.
type JobStatus struct {
	Name     string    `json:"name"`
	Interval string    `json:"interval"`
	LastRun  time.Time `json:"last_run,omitzero"`
}

// Scheduler runs registered jobs sequentially on one background
// goroutine, polling on a fixed tick. Within a pass, a job fires only
// when its interval has elapsed since its previous invocation. A slow
// job delays every other job's next poll.
type Scheduler struct {
	log  *slog.Logger
	tick time.Duration

	mu      sync.Mutex
	jobs    []Job
	lastRun map[string]time.Time
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a scheduler polling at the given tick; zero means one
// second.
func New(log *slog.Logger, tick time.Duration) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if tick <= 0 {
		tick = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		log:     log,
		tick:    tick,
		lastRun: map[string]time.Time{},
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// Register adds a job. Call before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	s.log.Info("registered job", slog.String("job", job.Name), slog.Duration("interval", job.Interval))
}

// Start launches the polling loop. The first pass runs immediately, so
// every registered job fires once at startup.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	jobs := len(s.jobs)
	s.mu.Unlock()
	s.log.Info("starting scheduler", slog.Int("jobs", jobs))
	go s.loop()
}

// Stop cancels the loop and waits for it to exit, which happens within
// one poll tick. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

// Jobs reports the registered jobs and their last invocation times.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, JobStatus{
			Name:     job.Name,
			Interval: job.Interval.String(),
			LastRun:  s.lastRun[job.Name],
		})
	}
	return out
}

func (s *Scheduler) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	s.pass()
	for {
		select {
		case <-ticker.C:
			s.pass()
		case <-s.ctx.Done():
			s.log.Info("scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) pass() {
	s.mu.Lock()
	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	s.mu.Unlock()
	for _, job := range jobs {
		s.mu.Lock()
		previous := s.lastRun[job.Name]
		s.mu.Unlock()
		now := time.Now()
		if now.Sub(previous) < job.Interval {
			continue
		}
		s.runJob(job)
		s.mu.Lock()
		s.lastRun[job.Name] = now
		s.mu.Unlock()
	}
}

// runJob contains a single invocation: errors and panics are logged
// and never escape to the loop.
func (s *Scheduler) runJob(job Job) {
	defer func() {
		if r := recover(); r != nil {
			metrics.JobFailures.WithLabelValues(job.Name).Inc()
			s.log.Error("job panicked", slog.String("job", job.Name), slog.Any("panic", r))
		}
	}()
	metrics.JobRuns.WithLabelValues(job.Name).Inc()
	if err := job.Run(s.ctx); err != nil {
		metrics.JobFailures.WithLabelValues(job.Name).Inc()
		s.log.Error("job failed", slog.String("job", job.Name), slog.String("error", err.Error()))
	}
}

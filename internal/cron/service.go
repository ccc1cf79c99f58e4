package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/metrics"
)

const defaultInterval = time.Minute

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("unknown cron job")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lease    Lease
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding the
// sweep lease, renewing it for as long as the cycle runs.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lease    Lease
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lease == nil {
		return nil, errors.New("lease required")
	}
	registry := params.Registry
	if registry == nil {
		registry, _ = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lease:    params.Lease,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cron cycle finished with failures")
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron service stopping")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce runs a single named job under the lease and returns its error.
func (s *Service) RunOnce(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	var jobErr error
	held, err := s.withLease(ctx, func(ctx context.Context) {
		jobErr = s.runJob(ctx, job)
	})
	if err != nil {
		return err
	}
	if !held {
		return fmt.Errorf("cron lease held by another worker")
	}
	return jobErr
}

func (s *Service) runCycle(ctx context.Context) error {
	var failures error
	held, err := s.withLease(ctx, func(ctx context.Context) {
		for _, job := range s.registry.Jobs() {
			if ctx.Err() != nil {
				failures = multierr.Append(failures, fmt.Errorf("%s: %w", job.Name(), ctx.Err()))
				continue
			}
			failures = multierr.Append(failures, s.runJob(ctx, job))
		}
	})
	if err != nil {
		return err
	}
	if !held {
		s.metrics.IncSkippedCycle()
		s.logg.Info(ctx, "cron lease held by another worker; skipping cycle")
	}
	return failures
}

// withLease runs fn while the lease is held. fn's context is cancelled if
// renewal discovers the lease has passed to another worker.
func (s *Service) withLease(ctx context.Context, fn func(context.Context)) (bool, error) {
	held, err := s.lease.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire cron lease: %w", err)
	}
	if !held {
		return false, nil
	}

	leaseCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go s.keepAlive(leaseCtx, cancel, done)

	fn(leaseCtx)

	cancel()
	<-done
	// the key must be freed even after ctx is cancelled
	if err := s.lease.Release(context.WithoutCancel(ctx)); err != nil {
		s.logg.Error(ctx, "release cron lease", err)
	}
	return true, nil
}

func (s *Service) keepAlive(ctx context.Context, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)

	every := s.lease.TTL() / 3
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.lease.Renew(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrLeaseLost):
				s.logg.Error(ctx, "cron lease lost mid-cycle; stopping jobs", err)
				cancel()
				return
			case ctx.Err() != nil:
				return
			default:
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cron lease renewal failed")
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	s.logg.Info(jobCtx, "job start")

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveRun(job.Name(), elapsed, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "job completed")
	return nil
}

package cron

import (
	"context"
	"errors"
	"fmt"
)

// Job is one unit of scheduled work run inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs by name and hands them out in registration order.
type Registry struct {
	order []string
	jobs  map[string]Job
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{jobs: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register rejects nil jobs, blank names and duplicate names.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("cron job required")
	}
	name := job.Name()
	if name == "" {
		return errors.New("cron job name required")
	}
	if _, exists := r.jobs[name]; exists {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.jobs[name] = job
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Lookup(name string) (Job, bool) {
	job, ok := r.jobs[name]
	return job, ok
}

func (r *Registry) Jobs() []Job {
	out := make([]Job, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.jobs[name])
	}
	return out
}

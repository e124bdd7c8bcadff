// Package invoice runs the periodic invoice job. Invoice generation itself
// is not implemented; the job only reports how many businesses are billable.
package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
)

const jobName = "InvoiceCronJob"

// Billable counts businesses matching filters. *repo.BusinessRepo
// satisfies it.
type Billable interface {
	Count(ctx context.Context, f entity.Filters) (int, error)
}

type Job struct {
	billable Billable
	logger   *zap.SugaredLogger
	timeout  time.Duration
}

func NewJob(billable Billable, logger *zap.SugaredLogger) *Job {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Job{billable: billable, logger: logger, timeout: time.Minute}
}

// Run executes one pass. Failures are logged and never returned, so one bad
// run does not stop the schedule.
func (j *Job) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	start := time.Now()
	j.logger.Infow("scheduled invoice generation started", "job", jobName, "at", start.UTC())
	defer func() {
		if r := recover(); r != nil {
			j.logger.Errorw("invoice generation failed", "job", jobName, "panic", r)
		}
	}()

	j.logger.Infow("processing monthly invoices", "job", jobName)
	n, err := j.billable.Count(ctx, entity.Filters{})
	if err != nil {
		j.logger.Errorw("invoice generation failed", "job", jobName, "err", err)
		return
	}
	j.logger.Infow("invoice generation completed successfully",
		"job", jobName,
		"billable", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Scheduler fires Job on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.SugaredLogger
}

// NewScheduler registers job under spec. spec uses the six-field format
// with seconds, or a descriptor such as @daily.
func NewScheduler(ctx context.Context, spec string, job *Job, logger *zap.SugaredLogger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := cron.New()
	if err := c.AddFunc(spec, func() { job.Run(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule %s %q: %w", jobName, spec, err)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Infow("invoice job scheduled", "job", jobName, "next", e.Next)
	}
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

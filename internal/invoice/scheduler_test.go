package invoice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ovaphlow/pitchfork/service-directory/internal/business/entity"
)

type countFunc func(ctx context.Context, f entity.Filters) (int, error)

func (f countFunc) Count(ctx context.Context, fl entity.Filters) (int, error) { return f(ctx, fl) }

func observed() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return zap.New(core).Sugar(), logs
}

func TestRunLogsLifecycle(t *testing.T) {
	logger, logs := observed()
	job := NewJob(countFunc(func(context.Context, entity.Filters) (int, error) { return 7, nil }), logger)
	job.Run(context.Background())

	require.Equal(t, 1, logs.FilterMessage("scheduled invoice generation started").Len())
	require.Equal(t, 1, logs.FilterMessage("processing monthly invoices").Len())
	done := logs.FilterMessage("invoice generation completed successfully").All()
	require.Len(t, done, 1)
	require.EqualValues(t, 7, done[0].ContextMap()["billable"])
}

func TestRunSwallowsErrors(t *testing.T) {
	logger, logs := observed()
	job := NewJob(countFunc(func(context.Context, entity.Filters) (int, error) {
		return 0, errors.New("db down")
	}), logger)
	require.NotPanics(t, func() { job.Run(context.Background()) })
	require.Equal(t, 1, logs.FilterMessage("invoice generation failed").Len())
	require.Equal(t, 0, logs.FilterMessage("invoice generation completed successfully").Len())

	job = NewJob(countFunc(func(context.Context, entity.Filters) (int, error) { panic("boom") }), logger)
	require.NotPanics(t, func() { job.Run(context.Background()) })
	require.Equal(t, 2, logs.FilterMessage("invoice generation failed").Len())
}

func TestNewSchedulerValidatesSpec(t *testing.T) {
	job := NewJob(countFunc(func(context.Context, entity.Filters) (int, error) { return 0, nil }), nil)
	_, err := NewScheduler(context.Background(), "not a schedule", job, nil)
	require.Error(t, err)

	s, err := NewScheduler(context.Background(), "0 0 9 1 * *", job, nil)
	require.NoError(t, err)
	s.Start()
	require.Len(t, s.cron.Entries(), 1)
	s.Stop()
}

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rnrspay/internal/services/payroll"
)

type runCall struct {
	month int
	year  int
}

type fakeRunner struct {
	mu      sync.Mutex
	runs    []runCall
	retries int
	runErr  error
}

func (f *fakeRunner) Run(_ context.Context, month, year int) (*payroll.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, runCall{month: month, year: year})
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &payroll.RunSummary{Month: month, Year: year, Processed: 2}, nil
}

func (f *fakeRunner) RetryFailed(_ context.Context) (*payroll.RunSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
	return &payroll.RunSummary{Processed: 1}, nil
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestNewRejectsBadConfig(t *testing.T) {
	runner := &fakeRunner{}

	_, err := New(runner, Config{Timezone: "Mars/Olympus"}, quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")

	_, err = New(runner, Config{PayrollSpec: "not a cron"}, quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payroll cron spec")

	_, err = New(runner, Config{RetrySpec: "61 * * * *"}, quietLog())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cron spec")
}

func TestNewUsesDefaults(t *testing.T) {
	s, err := New(&fakeRunner{}, Config{}, quietLog())
	require.NoError(t, err)
	assert.Equal(t, "Africa/Kigali", s.loc.String())
}

func TestTriggerPayroll(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(runner, Config{}, quietLog())
	require.NoError(t, err)

	summary, err := s.TriggerPayroll(context.Background(), 3, 2026)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Month)
	assert.Equal(t, 2026, summary.Year)
	assert.Equal(t, 2, summary.Processed)

	require.Len(t, runner.runs, 1)
	assert.Equal(t, runCall{month: 3, year: 2026}, runner.runs[0])
}

func TestTriggerPayrollPropagatesRunInProgress(t *testing.T) {
	runner := &fakeRunner{runErr: payroll.ErrRunInProgress}
	s, err := New(runner, Config{}, quietLog())
	require.NoError(t, err)

	_, err = s.TriggerPayroll(context.Background(), 3, 2026)
	assert.ErrorIs(t, err, payroll.ErrRunInProgress)
}

func TestTriggerRetry(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(runner, Config{}, quietLog())
	require.NoError(t, err)

	summary, err := s.TriggerRetry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, runner.retries)
}

func TestStartStop(t *testing.T) {
	s, err := New(&fakeRunner{}, Config{}, quietLog())
	require.NoError(t, err)

	s.Start()
	ctx := s.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("stop context not done with no running jobs")
	}
}

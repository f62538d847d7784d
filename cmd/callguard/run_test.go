package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsn-capital/gocommon/config"
	"github.com/fsn-capital/gocommon/observe"
)

func newTestObserver(t *testing.T, cfg *config.Config) observe.Observer {
	t.Helper()
	obs, err := observe.NewObserver(context.Background(), cfg.Observe(&bytes.Buffer{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.Shutdown(context.Background()) })
	return obs
}

func testLoadConfig() *config.Config {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Metrics.Listen = ""
	cfg.RateLimit.Calls = 5
	cfg.RateLimit.Period = 50 * time.Millisecond
	cfg.Retry.Base = time.Millisecond
	cfg.Retry.MaxTries = 3
	return cfg
}

func TestRunLoad_WindowsNeverExceedLimit(t *testing.T) {
	cfg := testLoadConfig()

	summary, err := runLoad(context.Background(), cfg, loadOptions{
		Workers:     8,
		Duration:    300 * time.Millisecond,
		FailureRate: 0.3,
		Latency:     time.Millisecond,
	})
	require.NoError(t, err)

	require.NotEmpty(t, summary.Windows)
	for i, w := range summary.Windows {
		assert.LessOrEqual(t, w.Admitted, cfg.RateLimit.Calls, "window %d", i+1)
	}
	assert.Positive(t, summary.Succeeded+summary.Failed)
}

func TestRunLoad_AlwaysFailing(t *testing.T) {
	cfg := testLoadConfig()
	cfg.RateLimit.Enabled = false

	summary, err := runLoad(context.Background(), cfg, loadOptions{
		Workers:     2,
		Duration:    100 * time.Millisecond,
		FailureRate: 1,
		Latency:     time.Millisecond,
	})
	require.NoError(t, err)

	assert.Zero(t, summary.Succeeded)
	assert.Positive(t, summary.Failed)
	assert.Empty(t, summary.Windows)
}

func TestRunLoad_RejectsNoWorkers(t *testing.T) {
	_, err := runLoad(context.Background(), testLoadConfig(), loadOptions{Duration: time.Millisecond})
	assert.ErrorContains(t, err, "workers")
}

func TestSimulatedCall(t *testing.T) {
	assert.NoError(t, simulatedCall(0, 0)(context.Background()))
	assert.True(t, errors.Is(simulatedCall(1, 0)(context.Background()), errTransient))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, simulatedCall(0, time.Hour)(ctx), context.Canceled)
}

func TestLoadSummary_Print(t *testing.T) {
	var buf bytes.Buffer
	loadSummary{
		Succeeded: 14,
		Failed:    1,
		Windows:   []windowStat{{Admitted: 15, Woken: 3}},
	}.print(&buf)

	assert.Equal(t, "windows:\n  #1   admitted=15 woken=3\ncalls: 14 succeeded, 1 failed\n", buf.String())
}

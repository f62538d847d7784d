package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fsn-capital/gocommon/config"
)

// execute runs the root command with args, resetting every flag to its
// default first.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var reset func(c *cobra.Command)
	reset = func(c *cobra.Command) {
		for _, fs := range []*pflag.FlagSet{c.PersistentFlags(), c.Flags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
		for _, sub := range c.Commands() {
			reset(sub)
		}
	}
	reset(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "callguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "callguard "+Version)
	assert.Contains(t, out, "Go Version:")
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--config", writeConfig(t, "rate_limit:\n  calls: 20\n"))
	require.NoError(t, err)
	assert.Equal(t, "configuration valid\n", out)

	out, err = execute(t, "validate", "--config", writeConfig(t, `
rate_limit:
  calls: 0
retry:
  wait_gen: poly
`))
	require.ErrorIs(t, err, errInvalidConfig)
	assert.Contains(t, out, "  - rate_limit.calls:")
	assert.Contains(t, out, "  - retry.wait_gen:")
	assert.Equal(t, 2, strings.Count(out, "  - "))
}

func TestConfigShowCommand(t *testing.T) {
	t.Setenv("GOCOMMON_RETRY_MAX_TRIES", "5")

	out, err := execute(t, "config", "show", "--config", writeConfig(t, "service: uploader\n"))
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "uploader", cfg.Service)
	assert.Equal(t, 5, cfg.Retry.MaxTries)
	assert.Equal(t, config.Default().RateLimit, cfg.RateLimit)
}

func TestNewMux(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.RateLimit.Calls = 1

	obs := newTestObserver(t, cfg)
	c, err := newClient(cfg, obs, false)
	require.NoError(t, err)
	mux := newMux(obs, c)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, c.exec.Close())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limiter finalized")
}

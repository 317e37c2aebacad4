package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.BinaryAddr)
	assert.Equal(t, "127.0.0.1:8001", cfg.HTTPAddr)
	assert.Equal(t, 10, cfg.Bench.Repetitions)
	assert.Equal(t, 3, cfg.Bench.Warmup)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, TrackerMemory, cfg.Tracker)
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "bench.yaml", `
http_addr: 0.0.0.0:9001
call_timeout: 2s
tracker: redis
redis:
  addr: redis.internal:6379
bench:
  repetitions: 50
  operations: [ping, echo]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9001", cfg.HTTPAddr)
	assert.Equal(t, "127.0.0.1:8080", cfg.BinaryAddr, "unset keys keep their default")
	assert.Equal(t, 2*time.Second, cfg.CallTimeout)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, "mcpbench:", cfg.Redis.Prefix)
	assert.Equal(t, 50, cfg.Bench.Repetitions)
	assert.Equal(t, 3, cfg.Bench.Warmup)
	assert.Equal(t, []string{"ping", "echo"}, cfg.Bench.Operations)
}

func TestLoad_DefaultFileIsPickedUp(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, DefaultFile, "log_level: debug\n")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "bench.yaml", "bench:\n  repetitions: 50\n")

	t.Setenv("MCPBENCH_REPETITIONS", "7")
	t.Setenv("MCPBENCH_HANDLER_TIMEOUT", "1500ms")
	t.Setenv("MCPBENCH_OPERATIONS", "ping,echo")
	t.Setenv("MCPBENCH_REDIS_DB", "2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Bench.Repetitions)
	assert.Equal(t, 1500*time.Millisecond, cfg.HandlerTimeout)
	assert.Equal(t, []string{"ping", "echo"}, cfg.Bench.Operations)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "GITHUB_TOKEN=from-dotenv\nGITHUB_REPO=acme/widgets\nMCPBENCH_TRACKER=github\n")

	// Registered so the variables loaded from .env are removed after the test.
	t.Setenv("GITHUB_TOKEN", "")
	os.Unsetenv("GITHUB_TOKEN")
	t.Setenv("GITHUB_REPO", "")
	os.Unsetenv("GITHUB_REPO")
	t.Setenv("MCPBENCH_TRACKER", "")
	os.Unsetenv("MCPBENCH_TRACKER")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, TrackerGitHub, cfg.Tracker)
	assert.Equal(t, "from-dotenv", cfg.GitHub.Token)
	assert.Equal(t, "acme/widgets", cfg.GitHub.Repo)
	assert.Equal(t, "****", cfg.Redacted().GitHub.Token)
	assert.Equal(t, "from-dotenv", cfg.GitHub.Token, "redaction works on a copy")
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_REPO", "")

	_, err := Load(writeFile(t, dir, "unknown.yaml", "no_such_key: 1\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "tracker.yaml", "tracker: postgres\n"))
	assert.ErrorContains(t, err, "unknown tracker")

	_, err = Load(writeFile(t, dir, "github.yaml", "tracker: github\n"))
	assert.ErrorContains(t, err, "GITHUB_TOKEN")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := Default().YAML()
	require.NoError(t, err)
	path := writeFile(t, dir, "echo.yaml", string(out))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

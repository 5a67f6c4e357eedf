package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/payetl/pkg/payetl"
)

var configEnvVars = []string{
	"S3_BUCKET", "S3_PREFIX", "AWS_REGION", "S3_ENDPOINT", "DB_CREDENTIALS",
	"DATABASE_URL", "DB_AUTH", "BATCH_SIZE", "HEADER_SKIP_ROWS", "SCRATCH_DIR",
	"LOAD_ATOMIC", "TIMEOUT",
}

// isolateEnv clears every variable Load reads and runs the test in an empty
// directory so neither payetl.yaml nor .env leak in.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, name := range configEnvVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, payetl.DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, payetl.DefaultHeaderSkipRows, cfg.HeaderSkipRows)
	assert.Equal(t, payetl.DefaultScratchDir, cfg.ScratchDir)
	assert.False(t, cfg.Atomic)
	assert.Empty(t, cfg.Bucket)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := isolateEnv(t)
	content := `bucket: payroll-drops
prefix: Paylocity/
region: us-east-2
batch_size: 250
header_skip_rows: 4
scratch_dir: /var/tmp/payetl
atomic: true
timeout: 5m
`
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "payroll-drops", cfg.Bucket)
	assert.Equal(t, "Paylocity/", cfg.Prefix)
	assert.Equal(t, "us-east-2", cfg.Region)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, 4, cfg.HeaderSkipRows)
	assert.Equal(t, "/var/tmp/payetl", cfg.ScratchDir)
	assert.True(t, cfg.Atomic)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := isolateEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("bucket: from-yaml\nbatch_size: 10\n"), 0644))
	t.Setenv("S3_BUCKET", "from-env")
	t.Setenv("DB_CREDENTIALS", `{"host":"db","port":5432}`)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Bucket)
	assert.Equal(t, 10, cfg.BatchSize, "unset env vars must not clobber file values")
	assert.Equal(t, `{"host":"db","port":5432}`, cfg.DBCredentials)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolateEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("S3_PREFIX=from-dotenv/\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("S3_PREFIX") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv/", cfg.Prefix)
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	isolateEnv(t)

	_, err := Load("/nonexistent/payetl.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: [unclosed"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, payetl.ErrInvalidConfig)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	isolateEnv(t)
	t.Setenv("BATCH_SIZE", "lots")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, payetl.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Bucket = "b"
	cfg.DatabaseURL = "postgresql://localhost/warehouse"
	require.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.BatchSize = 0
	cfg.DBAuth = "kerberos"
	cfg.Timeout = -time.Second
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, payetl.ErrInvalidConfig)
	assert.ErrorIs(t, err, payetl.ErrUnsupportedAuthMethod)
	assert.Contains(t, err.Error(), "S3_BUCKET")
	assert.Contains(t, err.Error(), "DB_CREDENTIALS")
	assert.Contains(t, err.Error(), "batch size")
	assert.Contains(t, err.Error(), "timeout")
}

func TestValidateCleaning(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ValidateCleaning())

	cfg.HeaderSkipRows = -1
	cfg.ScratchDir = ""
	err := cfg.ValidateCleaning()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header skip rows")
	assert.Contains(t, err.Error(), "scratch dir")
}

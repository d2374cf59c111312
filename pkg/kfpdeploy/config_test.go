package kfpdeploy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nais/kfp-deploy/pkg/versionlabel"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	cfg := NewConfig()
	flags := flag.NewFlagSet("kfp-deploy", flag.ContinueOnError)
	err := InitConfig(cfg, flags, args)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(t, "http://kfp:8080", "my-pipeline", "pipeline.yaml")
	require.NoError(t, err)

	assert.Equal(t, "http://kfp:8080", cfg.Host)
	assert.Equal(t, "my-pipeline", cfg.PipelineName)
	assert.Equal(t, "pipeline.yaml", cfg.PipelineFile)
	assert.Equal(t, DefaultTimezone, cfg.Timezone)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, OutputText, cfg.Output)
	assert.False(t, cfg.DryRun)
}

func TestTimezoneFlag(t *testing.T) {
	cfg, err := parse(t, "-t", "JST", "host", "p", "f")
	require.NoError(t, err)
	assert.Equal(t, "JST", cfg.Timezone)

	cfg, err = parse(t, "host", "p", "f", "--timezone", "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
}

func TestTimezoneFromEnvironment(t *testing.T) {
	t.Setenv("TIMEZONE", "Europe/Oslo")

	cfg, err := parse(t, "host", "p", "f")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Oslo", cfg.Timezone)

	// flags take precedence
	cfg, err = parse(t, "-t", "UTC", "host", "p", "f")
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
}

func TestUnknownTimezoneFailsValidation(t *testing.T) {
	_, err := parse(t, "-t", "Mars/Olympus", "host", "p", "f")
	assert.ErrorIs(t, err, versionlabel.ErrUnknownTimezone)
}

func TestArgumentCount(t *testing.T) {
	for _, args := range [][]string{
		{},
		{"host"},
		{"host", "p"},
		{"host", "p", "f", "extra"},
	} {
		_, err := parse(t, args...)
		assert.ErrorIs(t, err, ErrArgumentsRequired, args)
	}
}

func TestEmptyArguments(t *testing.T) {
	_, err := parse(t, " ", "p", "f")
	assert.ErrorIs(t, err, ErrHostRequired)

	_, err = parse(t, "host", "", "f")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = parse(t, "host", "p", "")
	assert.ErrorIs(t, err, ErrFileRequired)
}

func TestOutputFormat(t *testing.T) {
	_, err := parse(t, "--output", "xml", "host", "p", "f")
	assert.ErrorIs(t, err, ErrUnknownOutput)

	cfg, err := parse(t, "--output", "yaml", "host", "p", "f")
	require.NoError(t, err)
	assert.Equal(t, OutputYAML, cfg.Output)
}

func TestTimezoneAliases(t *testing.T) {
	cfg, err := parse(t, "--timezone-alias", "CET=Europe/Oslo", "--timezone-alias", "IST=Asia/Kolkata", "-t", "IST", "host", "p", "f")
	require.NoError(t, err)

	aliases, err := cfg.Aliases()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"CET": "Europe/Oslo",
		"IST": "Asia/Kolkata",
	}, aliases)

	namer, err := cfg.Namer()
	require.NoError(t, err)
	label, err := namer.Create("p", cfg.Timezone, time.Date(2020, time.December, 31, 12, 34, 56, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "p-v201231-180456", label)

	_, err = parse(t, "--timezone-alias", "nonsense", "host", "p", "f")
	assert.ErrorIs(t, err, ErrMalformedAlias)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kfp-deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
timezone: CET
timeout: 30s
timezone-alias:
  - CET=Europe/Oslo
pushgateway-url: http://pushgateway:9091
`), 0o644))

	cfg, err := parse(t, "--config", path, "host", "p", "f")
	require.NoError(t, err)
	assert.Equal(t, "CET", cfg.Timezone)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)

	// flags override the file
	cfg, err = parse(t, "--config", path, "-t", "UTC", "--timezone-alias", "CET=Europe/Paris", "host", "p", "f")
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	aliases, err := cfg.Aliases()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", aliases["CET"])
}

func TestConfigFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kfp-deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: hunter2\n"), 0o644))

	_, err := parse(t, "--config", path, "host", "p", "f")
	assert.Error(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("KFP_DEPLOY_TEST_BOOL", "true")
	t.Setenv("KFP_DEPLOY_TEST_DURATION", "garbage")
	t.Setenv("KFP_DEPLOY_TEST_SLICE", "a=b,c=d")

	assert.True(t, getEnvBool("KFP_DEPLOY_TEST_BOOL", false))
	assert.False(t, getEnvBool("KFP_DEPLOY_TEST_UNSET", false))
	assert.Equal(t, time.Second, getEnvDuration("KFP_DEPLOY_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a=b", "c=d"}, getEnvStringSlice("KFP_DEPLOY_TEST_SLICE"))
	assert.Equal(t, []string{}, getEnvStringSlice("KFP_DEPLOY_TEST_UNSET"))
}

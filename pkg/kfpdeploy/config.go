package kfpdeploy

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/nais/kfp-deploy/pkg/conftools"
	"github.com/nais/kfp-deploy/pkg/versionlabel"
)

const (
	DefaultTimezone = "UTC"
	DefaultTimeout  = time.Minute * 2
	DefaultOutput   = OutputText
	DefaultLogLevel = "info"
)

var (
	ErrArgumentsRequired = errors.New("exactly three arguments required: deploy_target_host pipeline_name pipeline_file")
	ErrHostRequired      = errors.New("deploy target host must not be empty")
	ErrNameRequired      = errors.New("pipeline name must not be empty")
	ErrFileRequired      = errors.New("pipeline file must not be empty")
	ErrMalformedAlias    = errors.New("timezone alias must be in the form CODE=Area/Location")
	ErrUnknownOutput     = errors.New("output format must be one of text, json, yaml")
)

// Keys that are never printed in clear text.
var secretKeys = []string{"token"}

type Config struct {
	Host         string
	PipelineName string
	PipelineFile string

	Actions                   bool
	ConfigFile                string
	DryRun                    bool
	LogLevel                  string
	OpenTelemetryCollectorURL string
	Output                    string
	PushgatewayURL            string
	Quiet                     bool
	Timeout                   time.Duration
	Timezone                  string
	TimezoneAlias             []string
	Token                     string

	// Identifies one invocation in logs, traces and request headers.
	CorrelationID string

	args []string
}

// FileConfig holds the options that may also be given in a configuration file.
type FileConfig struct {
	OpenTelemetryCollectorURL string   `json:"otel-collector-endpoint"`
	PushgatewayURL            string   `json:"pushgateway-url"`
	Timeout                   string   `json:"timeout"`
	Timezone                  string   `json:"timezone"`
	TimezoneAlias             []string `json:"timezone-alias"`
}

// NewConfig returns an empty Config to be filled in by InitConfig.
// Values are resolved with the following precedence: flags > environment variables > config file > default values.
func NewConfig() *Config {
	return &Config{}
}

func InitConfig(cfg *Config, flags *flag.FlagSet, arguments []string) error {
	flags.BoolVar(&cfg.Actions, "actions", getEnvBool("ACTIONS", false), "Use GitHub Actions compatible error and warning messages. (env ACTIONS)")
	flags.StringVar(&cfg.ConfigFile, "config", os.Getenv("CONFIG"), "Configuration file with timezone aliases and defaults. (env CONFIG)")
	flags.BoolVar(&cfg.DryRun, "dry-run", getEnvBool("DRY_RUN", false), "Look up the pipeline, but don't upload anything. (env DRY_RUN)")
	flags.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", DefaultLogLevel), "Log level: trace, debug, info, warning, error. (env LOG_LEVEL)")
	flags.StringVar(&cfg.OpenTelemetryCollectorURL, "otel-collector-endpoint", os.Getenv("OTEL_COLLECTOR_ENDPOINT"), "OpenTelemetry collector endpoint. Traces are not exported if empty. (env OTEL_COLLECTOR_ENDPOINT)")
	flags.StringVar(&cfg.Output, "output", getEnv("OUTPUT", DefaultOutput), "Format of the result printed to standard output: text, json, yaml. (env OUTPUT)")
	flags.StringVar(&cfg.PushgatewayURL, "pushgateway-url", os.Getenv("PUSHGATEWAY_URL"), "Push deployment metrics to this Prometheus Pushgateway. (env PUSHGATEWAY_URL)")
	flags.BoolVar(&cfg.Quiet, "quiet", getEnvBool("QUIET", false), "Suppress printing of informational messages except errors. (env QUIET)")
	flags.DurationVar(&cfg.Timeout, "timeout", getEnvDuration("TIMEOUT", DefaultTimeout), "Timeout for each request to the pipelines service. (env TIMEOUT)")
	flags.StringVarP(&cfg.Timezone, "timezone", "t", getEnv("TIMEZONE", DefaultTimezone), "Timezone used in version names, e.g. UTC, JST or Europe/Oslo. (env TIMEZONE)")
	flags.StringSliceVar(&cfg.TimezoneAlias, "timezone-alias", getEnvStringSlice("TIMEZONE_ALIAS"), "Additional timezone alias in the form CODE=Area/Location. Can be specified multiple times. (env TIMEZONE_ALIAS)")
	flags.StringVar(&cfg.Token, "token", os.Getenv("KFP_TOKEN"), "Bearer token for the pipelines service. (env KFP_TOKEN)")

	err := flags.Parse(arguments)
	if err != nil {
		return err
	}

	cfg.args = flags.Args()

	if len(cfg.ConfigFile) > 0 {
		err = cfg.applyFile(flags)
		if err != nil {
			return err
		}
	}

	return nil
}

// LogFlags prints all options at debug level, with secrets redacted.
func LogFlags(flags *flag.FlagSet) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	v, err := conftools.FromFlags(flags)
	if err != nil {
		log.Debugf("unable to print configuration: %s", err)
		return
	}
	for _, line := range conftools.Format(v, secretKeys) {
		log.Debug(line)
	}
}

// applyFile fills in options neither given as flag nor as environment variable.
func (cfg *Config) applyFile(flags *flag.FlagSet) error {
	file := &FileConfig{}
	err := conftools.LoadFile(cfg.ConfigFile, file)
	if err != nil {
		return err
	}

	unset := func(flagName, envName string) bool {
		_, env := os.LookupEnv(envName)
		return !flags.Changed(flagName) && !env
	}

	if len(file.Timezone) > 0 && unset("timezone", "TIMEZONE") {
		cfg.Timezone = file.Timezone
	}
	if len(file.OpenTelemetryCollectorURL) > 0 && unset("otel-collector-endpoint", "OTEL_COLLECTOR_ENDPOINT") {
		cfg.OpenTelemetryCollectorURL = file.OpenTelemetryCollectorURL
	}
	if len(file.PushgatewayURL) > 0 && unset("pushgateway-url", "PUSHGATEWAY_URL") {
		cfg.PushgatewayURL = file.PushgatewayURL
	}
	if len(file.Timeout) > 0 && unset("timeout", "TIMEOUT") {
		cfg.Timeout, err = time.ParseDuration(file.Timeout)
		if err != nil {
			return fmt.Errorf("timeout in %s: %w", cfg.ConfigFile, err)
		}
	}

	// Aliases from flags or environment are applied after those in the file.
	cfg.TimezoneAlias = append(slices.Clone(file.TimezoneAlias), cfg.TimezoneAlias...)

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		duration, err := time.ParseDuration(value)
		if err == nil {
			return duration
		}
	}
	return fallback
}

func getEnvStringSlice(key string) []string {
	if value, ok := os.LookupEnv(key); ok && len(value) > 0 {
		return strings.Split(value, ",")
	}

	return []string{}
}

func getEnvBool(key string, def bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}

	return b
}

// Aliases parses the CODE=Area/Location timezone aliases.
func (cfg *Config) Aliases() (map[string]string, error) {
	aliases := make(map[string]string, len(cfg.TimezoneAlias))
	for _, alias := range cfg.TimezoneAlias {
		code, location, ok := strings.Cut(alias, "=")
		code = strings.TrimSpace(code)
		location = strings.TrimSpace(location)
		if !ok || len(code) == 0 || len(location) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedAlias, alias)
		}
		aliases[code] = location
	}
	return aliases, nil
}

func (cfg *Config) Namer() (*versionlabel.Namer, error) {
	aliases, err := cfg.Aliases()
	if err != nil {
		return nil, err
	}
	return versionlabel.New(aliases), nil
}

// Validate checks the invocation and fills in the positional arguments.
// An unknown timezone is reported here, before any request is made.
func (cfg *Config) Validate() error {
	if len(cfg.args) != 3 {
		return ErrArgumentsRequired
	}
	cfg.Host = strings.TrimSpace(cfg.args[0])
	cfg.PipelineName = cfg.args[1]
	cfg.PipelineFile = cfg.args[2]

	if len(cfg.Host) == 0 {
		return ErrHostRequired
	}

	if len(cfg.PipelineName) == 0 {
		return ErrNameRequired
	}

	if len(cfg.PipelineFile) == 0 {
		return ErrFileRequired
	}

	switch cfg.Output {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutput, cfg.Output)
	}

	namer, err := cfg.Namer()
	if err != nil {
		return err
	}

	_, err = namer.Location(cfg.Timezone)
	if err != nil {
		return err
	}

	return nil
}

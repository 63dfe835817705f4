// Package config provides YAML configuration parsing for the metadeploy CLI.
//
// Example configuration:
//
//	instance_url: https://example.my.salesforce.com
//	api_version: "59.0"
//	session_id: ${SF_SESSION_ID}
//	timeout: 2m
//
//	poll:
//	  initial_wait: 1s
//	  max_polls: 50
//
//	deploy:
//	  rollback_on_error: true
//	  test_level: RunLocalTests
//
//	metrics:
//	  push_url: ${PUSHGATEWAY_URL:-}
package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/metadeploy"
)

const (
	defaultAPIVersion  = "59.0"
	defaultTimeout     = 2 * time.Minute
	defaultInitialWait = time.Second
	defaultMaxPolls    = 50
	maxMaxPolls        = 200
	defaultMetricsJob  = "metadeploy"
)

// apiVersionPattern matches Metadata API versions such as "59.0".
var apiVersionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// Config is the root configuration structure.
//
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// InstanceURL is the org base URL. Required.
	InstanceURL string `yaml:"instance_url"`

	// APIVersion is the Metadata API version. Defaults to "59.0".
	APIVersion string `yaml:"api_version"`

	// SessionID is an already established session. Required.
	// Usually supplied through ${VAR} expansion.
	SessionID string `yaml:"session_id"`

	// Timeout bounds each remote call. Defaults to 2m.
	Timeout Duration `yaml:"timeout"`

	Poll    PollConfig    `yaml:"poll"`
	Deploy  DeployConfig  `yaml:"deploy"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// PollConfig controls the wait-for-completion loop.
type PollConfig struct {
	// InitialWait is the wait before the first status query; it doubles
	// after each poll. Defaults to 1s.
	InitialWait Duration `yaml:"initial_wait"`

	// MaxPolls is the poll budget. Defaults to 50.
	MaxPolls int `yaml:"max_polls"`
}

// DeployConfig maps to [metadeploy.DeployOptions].
//
// RollbackOnError is a pointer so an omitted key keeps the default (true).
type DeployConfig struct {
	PerformRetrieve   bool     `yaml:"perform_retrieve"`
	RollbackOnError   *bool    `yaml:"rollback_on_error"`
	CheckOnly         bool     `yaml:"check_only"`
	IgnoreWarnings    bool     `yaml:"ignore_warnings"`
	SinglePackage     bool     `yaml:"single_package"`
	AllowMissingFiles bool     `yaml:"allow_missing_files"`
	TestLevel         string   `yaml:"test_level"`
	RunTests          []string `yaml:"run_tests"`
}

// MetricsConfig controls pushing run metrics to a Pushgateway.
type MetricsConfig struct {
	// PushURL is the Pushgateway base URL. Empty disables pushing.
	PushURL string `yaml:"push_url"`

	// Job is the Pushgateway job name. Defaults to "metadeploy".
	Job string `yaml:"job"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DeployOptions converts the deploy section to library options.
func (c *Config) DeployOptions() metadeploy.DeployOptions {
	opts := metadeploy.DefaultDeployOptions()
	opts.PerformRetrieve = c.Deploy.PerformRetrieve
	if c.Deploy.RollbackOnError != nil {
		opts.RollbackOnError = *c.Deploy.RollbackOnError
	}
	opts.CheckOnly = c.Deploy.CheckOnly
	opts.IgnoreWarnings = c.Deploy.IgnoreWarnings
	opts.SinglePackage = c.Deploy.SinglePackage
	opts.AllowMissingFiles = c.Deploy.AllowMissingFiles
	opts.TestLevel = metadeploy.TestLevel(c.Deploy.TestLevel)
	opts.RunTests = append([]string(nil), c.Deploy.RunTests...)
	return opts
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		varName := submatches[1]
		hasDefault := submatches[2] != ""
		defaultVal := submatches[3]

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in string values are expanded after parsing.
// Returns an error if the file cannot be read, parsed or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expand resolves ${VAR} references in every string setting.
func (c *Config) expand() error {
	fields := []struct {
		name string
		ptr  *string
	}{
		{"instance_url", &c.InstanceURL},
		{"api_version", &c.APIVersion},
		{"session_id", &c.SessionID},
		{"deploy.test_level", &c.Deploy.TestLevel},
		{"metrics.push_url", &c.Metrics.PushURL},
		{"metrics.job", &c.Metrics.Job},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.ptr)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.ptr = expanded
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.APIVersion == "" {
		c.APIVersion = defaultAPIVersion
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(defaultTimeout)
	}
	if c.Poll.InitialWait == 0 {
		c.Poll.InitialWait = Duration(defaultInitialWait)
	}
	if c.Poll.MaxPolls == 0 {
		c.Poll.MaxPolls = defaultMaxPolls
	}
	if c.Metrics.Job == "" {
		c.Metrics.Job = defaultMetricsJob
	}
}

func (c *Config) validate() error {
	if c.InstanceURL == "" {
		return fmt.Errorf("instance_url is required")
	}
	if err := validateHTTPURL(c.InstanceURL); err != nil {
		return fmt.Errorf("instance_url: %w", err)
	}

	if c.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}

	if !apiVersionPattern.MatchString(c.APIVersion) {
		return fmt.Errorf("api_version must look like \"59.0\", got %q", c.APIVersion)
	}

	if c.Timeout.Duration() < time.Second {
		return fmt.Errorf("timeout must be at least 1s, got %s", c.Timeout.Duration())
	}

	if c.Poll.InitialWait.Duration() <= 0 {
		return fmt.Errorf("poll.initial_wait must be positive, got %s", c.Poll.InitialWait.Duration())
	}
	if c.Poll.MaxPolls < 1 || c.Poll.MaxPolls > maxMaxPolls {
		return fmt.Errorf("poll.max_polls must be between 1 and %d, got %d", maxMaxPolls, c.Poll.MaxPolls)
	}

	level := metadeploy.TestLevel(c.Deploy.TestLevel)
	if !level.Valid() {
		return fmt.Errorf("deploy.test_level %q is not one of NoTestRun, RunSpecifiedTests, RunLocalTests, RunAllTestsInOrg",
			c.Deploy.TestLevel)
	}
	if level == metadeploy.TestLevelRunSpecifiedTests && len(c.Deploy.RunTests) == 0 {
		return fmt.Errorf("deploy.run_tests is required when test_level is RunSpecifiedTests")
	}
	if level != metadeploy.TestLevelRunSpecifiedTests && len(c.Deploy.RunTests) > 0 {
		return fmt.Errorf("deploy.run_tests is only allowed when test_level is RunSpecifiedTests")
	}

	if c.Metrics.PushURL != "" {
		if err := validateHTTPURL(c.Metrics.PushURL); err != nil {
			return fmt.Errorf("metrics.push_url: %w", err)
		}
	}

	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme == "" {
		return fmt.Errorf("url must have a scheme (http:// or https://)")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme)
	}
	return nil
}

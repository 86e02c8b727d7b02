// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for the bridge.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Worker configures the handoff channel.
	Worker WorkerConfig `yaml:"worker"`

	// Authorization configures risk classification and approvals.
	Authorization AuthorizationConfig `yaml:"authorization"`

	// Credentials configures the credential broker.
	Credentials CredentialsConfig `yaml:"credentials"`

	// Audit configures the audit sink.
	Audit AuditConfig `yaml:"audit"`

	// Per-environment overrides, applied after the base config.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the fields that can be overridden per environment.
type Overrides struct {
	Worker        *WorkerConfig        `yaml:"worker,omitempty"`
	Authorization *AuthorizationConfig `yaml:"authorization,omitempty"`
	Credentials   *CredentialsConfig   `yaml:"credentials,omitempty"`
	Audit         *AuditConfig         `yaml:"audit,omitempty"`
}

// WorkerConfig configures how worker processes are launched.
type WorkerConfig struct {
	// Command is the worker argv. The task file path is appended as the
	// final argument.
	Command []string `yaml:"command"`

	// TransientDir holds task files while workers run.
	// Default: ${PROCTOR_ROOT}/transient
	TransientDir string `yaml:"transient_dir"`

	// Timeout is the default wall-clock budget per run.
	// Default: 5m
	Timeout string `yaml:"timeout"`

	// GracePeriod is the SIGTERM-to-SIGKILL window on timeout.
	// Default: 5s
	GracePeriod string `yaml:"grace_period"`
}

// AuthorizationConfig configures the authorization coordinator.
type AuthorizationConfig struct {
	// ApprovalWindow is how long approvals remain honorable.
	// Default: 1h
	ApprovalWindow string `yaml:"approval_window"`

	// RiskPolicyFile is an optional JSONC file extending the built-in
	// risk rules.
	RiskPolicyFile string `yaml:"risk_policy_file"`

	// RequiredCapabilities are the capabilities every task needs.
	// Default: desktop/control
	RequiredCapabilities []string `yaml:"required_capabilities"`
}

// CredentialsConfig configures the credential broker.
type CredentialsConfig struct {
	// BundleFile is the age-encrypted capability bundle.
	BundleFile string `yaml:"bundle_file"`

	// IdentityKeyFile holds the age identity that decrypts the bundle.
	// "-" reads the key from stdin.
	IdentityKeyFile string `yaml:"identity_key_file"`
}

// AuditConfig configures the audit sink.
type AuditConfig struct {
	// LogFile is the JSONL audit log. Empty disables auditing.
	// Default: ${PROCTOR_ROOT}/audit.jsonl
	LogFile string `yaml:"log_file"`

	// ArchiveDir is where encrypted ledger exports are written.
	// Default: ${PROCTOR_ROOT}/archives
	ArchiveDir string `yaml:"archive_dir"`

	// ArchiveCompression selects the export compression.
	// Values: "none", "lz4", "zstd". Default: zstd
	ArchiveCompression string `yaml:"archive_compression"`

	// ArchiveKeyFile holds the master key for archive encryption.
	// Empty disables snapshot export.
	ArchiveKeyFile string `yaml:"archive_key_file"`
}

// Default returns the default configuration. These defaults ensure all
// fields have sensible values before the config file is merged in; the
// worker command and credential files have no defaults and must come
// from the file.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "proctor")

	return &Config{
		Environment: Development,
		Worker: WorkerConfig{
			TransientDir: filepath.Join(defaultRoot, "transient"),
			Timeout:      "5m",
			GracePeriod:  "5s",
		},
		Authorization: AuthorizationConfig{
			ApprovalWindow:       "1h",
			RequiredCapabilities: []string{"desktop/control"},
		},
		Audit: AuditConfig{
			LogFile:            filepath.Join(defaultRoot, "audit.jsonl"),
			ArchiveDir:         filepath.Join(defaultRoot, "archives"),
			ArchiveCompression: "zstd",
		},
	}
}

// Load loads configuration from the PROCTOR_CONFIG environment
// variable. There are no fallbacks: if PROCTOR_CONFIG is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("PROCTOR_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("PROCTOR_CONFIG environment variable not set; " +
			"set it to the path of your proctor.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path. The config
// file is the single source of truth; environment variables do not
// override values. The only expansion performed is ${HOME} and similar
// path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Worker != nil {
		if len(overrides.Worker.Command) > 0 {
			c.Worker.Command = overrides.Worker.Command
		}
		if overrides.Worker.TransientDir != "" {
			c.Worker.TransientDir = overrides.Worker.TransientDir
		}
		if overrides.Worker.Timeout != "" {
			c.Worker.Timeout = overrides.Worker.Timeout
		}
		if overrides.Worker.GracePeriod != "" {
			c.Worker.GracePeriod = overrides.Worker.GracePeriod
		}
	}

	if overrides.Authorization != nil {
		if overrides.Authorization.ApprovalWindow != "" {
			c.Authorization.ApprovalWindow = overrides.Authorization.ApprovalWindow
		}
		if overrides.Authorization.RiskPolicyFile != "" {
			c.Authorization.RiskPolicyFile = overrides.Authorization.RiskPolicyFile
		}
		if len(overrides.Authorization.RequiredCapabilities) > 0 {
			c.Authorization.RequiredCapabilities = overrides.Authorization.RequiredCapabilities
		}
	}

	if overrides.Credentials != nil {
		if overrides.Credentials.BundleFile != "" {
			c.Credentials.BundleFile = overrides.Credentials.BundleFile
		}
		if overrides.Credentials.IdentityKeyFile != "" {
			c.Credentials.IdentityKeyFile = overrides.Credentials.IdentityKeyFile
		}
	}

	if overrides.Audit != nil {
		if overrides.Audit.LogFile != "" {
			c.Audit.LogFile = overrides.Audit.LogFile
		}
		if overrides.Audit.ArchiveDir != "" {
			c.Audit.ArchiveDir = overrides.Audit.ArchiveDir
		}
		if overrides.Audit.ArchiveCompression != "" {
			c.Audit.ArchiveCompression = overrides.Audit.ArchiveCompression
		}
		if overrides.Audit.ArchiveKeyFile != "" {
			c.Audit.ArchiveKeyFile = overrides.Audit.ArchiveKeyFile
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// configured paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Worker.TransientDir = expandVars(c.Worker.TransientDir, vars)
	c.Authorization.RiskPolicyFile = expandVars(c.Authorization.RiskPolicyFile, vars)
	c.Credentials.BundleFile = expandVars(c.Credentials.BundleFile, vars)
	c.Credentials.IdentityKeyFile = expandVars(c.Credentials.IdentityKeyFile, vars)
	c.Audit.LogFile = expandVars(c.Audit.LogFile, vars)
	c.Audit.ArchiveDir = expandVars(c.Audit.ArchiveDir, vars)
	c.Audit.ArchiveKeyFile = expandVars(c.Audit.ArchiveKeyFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if len(c.Worker.Command) == 0 {
		errs = append(errs, fmt.Errorf("worker.command is required"))
	}
	if _, err := time.ParseDuration(c.Worker.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("worker.timeout: %w", err))
	}
	if _, err := time.ParseDuration(c.Worker.GracePeriod); err != nil {
		errs = append(errs, fmt.Errorf("worker.grace_period: %w", err))
	}
	if _, err := time.ParseDuration(c.Authorization.ApprovalWindow); err != nil {
		errs = append(errs, fmt.Errorf("authorization.approval_window: %w", err))
	}
	if len(c.Authorization.RequiredCapabilities) == 0 {
		errs = append(errs, fmt.Errorf("authorization.required_capabilities is required"))
	}
	switch c.Audit.ArchiveCompression {
	case "", "none", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Errorf("audit.archive_compression must be one of: none, lz4, zstd"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// WorkerTimeout returns the parsed worker timeout. Call Validate
// first.
func (c *Config) WorkerTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Worker.Timeout)
	return d
}

// WorkerGracePeriod returns the parsed grace period.
func (c *Config) WorkerGracePeriod() time.Duration {
	d, _ := time.ParseDuration(c.Worker.GracePeriod)
	return d
}

// ApprovalWindow returns the parsed approval window.
func (c *Config) ApprovalWindow() time.Duration {
	d, _ := time.ParseDuration(c.Authorization.ApprovalWindow)
	return d
}

// EnsurePaths creates the transient and archive directories.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Worker.TransientDir,
		c.Audit.ArchiveDir,
	}
	if c.Audit.LogFile != "" {
		paths = append(paths, filepath.Dir(c.Audit.LogFile))
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}

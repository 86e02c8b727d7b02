// Copyright 2026 The Proctor Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/proctor-works/proctor/bridge"
	"github.com/proctor-works/proctor/handoff"
	"github.com/proctor-works/proctor/ledger"
	"github.com/proctor-works/proctor/ledger/archive"
	"github.com/proctor-works/proctor/lib/authorize"
	"github.com/proctor-works/proctor/lib/config"
	"github.com/proctor-works/proctor/lib/credential"
	"github.com/proctor-works/proctor/lib/risk"
	"github.com/proctor-works/proctor/lib/secret"
	"github.com/proctor-works/proctor/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "proctor-bridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath    string
		requesterID   string
		maxIterations int
		timeout       time.Duration
		capabilities  []string
		logLevel      string
	)

	// Handle --version before flag parsing to match the other binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("proctor-bridge %s\n", version.Info())
		return nil
	}

	flagSet := pflag.NewFlagSet("proctor-bridge", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to proctor.yaml (overrides PROCTOR_CONFIG)")
	flagSet.StringVar(&requesterID, "requester", "", "identity of the requesting agent (required)")
	flagSet.IntVar(&maxIterations, "max-iterations", 0, "bound on the worker's action loop (default from worker)")
	flagSet.DurationVar(&timeout, "timeout", 0, "wall-clock budget for the worker (default from config)")
	flagSet.StringSliceVar(&capabilities, "capability", nil, "required capability (repeatable, default from config)")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if requesterID == "" {
		return fmt.Errorf("--requester is required")
	}
	taskDescription := strings.TrimSpace(strings.Join(flagSet.Args(), " "))
	if taskDescription == "" {
		return fmt.Errorf("task description required: proctor-bridge --requester ID -- <task text>")
	}

	logger, err := newLogger(logLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	var cfg *config.Config
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, store, cleanup, err := buildBridge(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	response, err := b.Invoke(ctx, requesterID, taskDescription, bridge.Options{
		MaxIterations:        maxIterations,
		Timeout:              timeout,
		RequiredCapabilities: capabilities,
	})
	if err != nil {
		return err
	}

	if err := exportSnapshot(cfg, store, logger); err != nil {
		// Retention failures must not reclassify a finished invocation.
		logger.Error("ledger snapshot export failed", "error", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	if !response.Success {
		os.Exit(1)
	}
	return nil
}

// buildBridge wires every component from the configuration. The
// returned cleanup closes the audit log and the credential broker.
func buildBridge(cfg *config.Config, logger *slog.Logger) (*bridge.Bridge, *ledger.Ledger, func(), error) {
	var audit *ledger.AuditLog
	if cfg.Audit.LogFile != "" {
		var err error
		audit, err = ledger.NewAuditLog(cfg.Audit.LogFile, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening audit log: %w", err)
		}
	}
	store := ledger.New(nil, audit)

	var policy *risk.Policy
	if cfg.Authorization.RiskPolicyFile != "" {
		var err error
		policy, err = risk.LoadPolicy(cfg.Authorization.RiskPolicyFile)
		if err != nil {
			audit.Close()
			return nil, nil, nil, fmt.Errorf("loading risk policy: %w", err)
		}
	}

	coordinator, err := authorize.NewCoordinator(authorize.CoordinatorConfig{
		Classifier:     risk.NewClassifier(policy),
		Ledger:         store,
		ApprovalWindow: cfg.ApprovalWindow(),
		Logger:         logger,
	})
	if err != nil {
		audit.Close()
		return nil, nil, nil, err
	}

	broker := credential.NewBroker(logger)
	if cfg.Credentials.BundleFile != "" {
		identityKey, err := secret.ReadFromPath(cfg.Credentials.IdentityKeyFile)
		if err != nil {
			audit.Close()
			return nil, nil, nil, fmt.Errorf("reading identity key: %w", err)
		}
		defer identityKey.Close()
		if err := broker.LoadBundle(cfg.Credentials.BundleFile, identityKey); err != nil {
			audit.Close()
			return nil, nil, nil, err
		}
	}

	channel, err := handoff.NewChannel(handoff.Config{
		WorkerCommand: cfg.Worker.Command,
		TransientDir:  cfg.Worker.TransientDir,
		Timeout:       cfg.WorkerTimeout(),
		GracePeriod:   cfg.WorkerGracePeriod(),
		Logger:        logger,
	})
	if err != nil {
		broker.Close()
		audit.Close()
		return nil, nil, nil, err
	}

	b, err := bridge.New(bridge.Config{
		Coordinator:          coordinator,
		Broker:               broker,
		Channel:              channel,
		Ledger:               store,
		RequiredCapabilities: cfg.Authorization.RequiredCapabilities,
		Logger:               logger,
	})
	if err != nil {
		broker.Close()
		audit.Close()
		return nil, nil, nil, err
	}

	cleanup := func() {
		broker.Close()
		audit.Close()
	}
	return b, store, cleanup, nil
}

// exportSnapshot writes an encrypted ledger snapshot to the archive
// directory. A no-op unless both the archive directory and the archive
// key are configured.
func exportSnapshot(cfg *config.Config, store *ledger.Ledger, logger *slog.Logger) error {
	if cfg.Audit.ArchiveDir == "" || cfg.Audit.ArchiveKeyFile == "" {
		return nil
	}

	masterKey, err := secret.ReadFromPath(cfg.Audit.ArchiveKeyFile)
	if err != nil {
		return fmt.Errorf("reading archive key: %w", err)
	}
	defer masterKey.Close()

	tag := archive.CompressionZstd
	if cfg.Audit.ArchiveCompression != "" {
		tag, err = archive.ParseCompressionTag(cfg.Audit.ArchiveCompression)
		if err != nil {
			return err
		}
	}

	data, err := archive.Export(store.All(), masterKey, tag)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.Audit.ArchiveDir,
		fmt.Sprintf("ledger-%s.par", time.Now().UTC().Format("20060102T150405Z")))
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	logger.Info("ledger snapshot exported", "path", path, "transactions", store.Len())
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})), nil
}

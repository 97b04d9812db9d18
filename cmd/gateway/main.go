// Package main is the entry point for the certificate gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/certgw/internal/config"
	"github.com/vyrodovalexey/certgw/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(flags.configPath, logger)
	applyLogOverrides(cfg, flags)
	logger = reconfigureLogger(cfg, logger)

	app, err := initApplication(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize gateway", observability.Error(err))
	}

	if err := runGateway(app, logger); err != nil {
		_ = logger.Sync()
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("CERTGW_CONFIG_PATH", "configs/certgw.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("CERTGW_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the config file")
	logFormat := flag.String("log-format", getEnvOrDefault("CERTGW_LOG_FORMAT", ""),
		"Log format (json, console); overrides the config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("certgw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the bootstrap logger from flags.
func initLogger(flags cliFlags) observability.Logger {
	cfg := observability.DefaultLogConfig()
	if flags.logLevel != "" {
		cfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Format = flags.logFormat
	}

	logger, err := observability.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadConfig loads the configuration file and applies flag overrides.
func loadConfig(configPath string, logger observability.Logger) *config.Config {
	logger.Info("starting certgw",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.Int("port", cfg.Server.Port),
		observability.Int("metrics_port", cfg.Server.MetricsPort),
		observability.String("revocation_backend", cfg.Revocation.Backend),
		observability.Strings("allowed_common_names", cfg.Auth.AllowedCommonNames),
		observability.Bool("vault", cfg.Vault.Enabled),
	)

	return cfg
}

// applyLogOverrides lets flags win over the configuration file.
func applyLogOverrides(cfg *config.Config, flags cliFlags) {
	if flags.logLevel != "" {
		cfg.Observability.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Observability.Logging.Format = flags.logFormat
	}
}

// reconfigureLogger swaps the bootstrap logger for one built from the
// logging section. On failure the bootstrap logger is kept.
func reconfigureLogger(cfg *config.Config, bootstrap observability.Logger) observability.Logger {
	logger, err := observability.NewLogger(cfg.Observability.Logging)
	if err != nil {
		bootstrap.Warn("invalid logging configuration, keeping bootstrap logger", observability.Error(err))
		return bootstrap
	}
	_ = bootstrap.Sync()
	observability.SetGlobalLogger(logger)
	return logger
}

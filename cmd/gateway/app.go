package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vyrodovalexey/certgw/internal/audit"
	"github.com/vyrodovalexey/certgw/internal/auth"
	"github.com/vyrodovalexey/certgw/internal/auth/otp"
	"github.com/vyrodovalexey/certgw/internal/authz"
	"github.com/vyrodovalexey/certgw/internal/config"
	"github.com/vyrodovalexey/certgw/internal/downstream"
	"github.com/vyrodovalexey/certgw/internal/eiam"
	"github.com/vyrodovalexey/certgw/internal/health"
	"github.com/vyrodovalexey/certgw/internal/observability"
	"github.com/vyrodovalexey/certgw/internal/revocation"
	"github.com/vyrodovalexey/certgw/internal/server"
	"github.com/vyrodovalexey/certgw/internal/vault"
)

// application holds all application components.
type application struct {
	server        *server.Server
	healthChecker *health.Checker
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	ledger        revocation.Store
	auditLogger   audit.Logger
	config        *config.Config
}

// componentMetrics bundles per-package metrics. Every field is nil when
// metrics are disabled, which the record methods tolerate.
type componentMetrics struct {
	vault      *vault.Metrics
	revocation *revocation.Metrics
	eiam       *eiam.Metrics
	authz      *authz.Metrics
	otp        *otp.Metrics
	auth       *auth.Metrics
	downstream *downstream.Metrics
	audit      *audit.Metrics
	health     *health.Metrics
}

func newComponentMetrics(namespace string, reg prometheus.Registerer) componentMetrics {
	if reg == nil {
		return componentMetrics{}
	}
	return componentMetrics{
		vault:      vault.NewMetrics(namespace, reg),
		revocation: revocation.NewMetrics(namespace, reg),
		eiam:       eiam.NewMetrics(namespace, reg),
		authz:      authz.NewMetrics(namespace, reg),
		otp:        otp.NewMetrics(namespace, reg),
		auth:       auth.NewMetrics(namespace, reg),
		downstream: downstream.NewMetrics(namespace, reg),
		audit:      audit.NewMetrics(namespace, reg),
		health:     health.NewMetrics(namespace, reg),
	}
}

// initApplication wires every component in dependency order. Partially
// created resources are released when a later step fails.
func initApplication(ctx context.Context, cfg *config.Config, logger observability.Logger) (_ *application, err error) {
	app := &application{config: cfg}
	defer func() {
		if err == nil {
			return
		}
		app.close(logger)
		if app.tracer != nil {
			if shutdownErr := app.tracer.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
				logger.Error("failed to shutdown tracer", observability.Error(shutdownErr))
			}
		}
	}()

	var reg prometheus.Registerer
	namespace := cfg.Observability.Metrics.Namespace
	if cfg.Observability.Metrics.Enabled {
		app.metrics = observability.NewMetrics(namespace)
		app.metrics.SetBuildInfo(version, gitCommit, buildTime)
		reg = app.metrics.Registry()
	}
	cm := newComponentMetrics(namespace, reg)

	tracer, err := observability.NewTracer(ctx, cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	app.tracer = tracer

	vaultClient, err := initVault(ctx, cfg.Vault, logger, cm.vault)
	if err != nil {
		return nil, err
	}

	// A nil *vault.Client must not become a non-nil interface.
	var secrets otp.SecretReader
	if vaultClient != nil {
		secrets = vaultClient
	}
	publicKey, err := otp.LoadPublicKey(ctx, cfg.OTP, secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to load OTP verification key: %w", err)
	}

	store, err := revocation.Open(ctx, cfg.Revocation)
	if err != nil {
		return nil, fmt.Errorf("failed to open revocation ledger: %w", err)
	}
	app.ledger = store
	ledger := revocation.Instrument(app.ledger, cfg.Revocation.Backend, cm.revocation)

	auditLogger, err := audit.NewLogger(cfg.Audit,
		audit.WithLoggerLogger(logger),
		audit.WithLoggerMetrics(cm.audit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit logger: %w", err)
	}
	app.auditLogger = auditLogger

	directory, err := eiam.NewClient(cfg.EIAM,
		eiam.WithLogger(logger),
		eiam.WithMetrics(cm.eiam),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity directory client: %w", err)
	}

	authorizer, err := authz.NewAuthorizer(directory, cfg.Authorization,
		authz.WithLogger(logger),
		authz.WithMetrics(cm.authz),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authorizer: %w", err)
	}

	validator, err := otp.NewValidator(cfg.OTP, publicKey, ledger,
		otp.WithValidatorLogger(logger),
		otp.WithValidatorMetrics(cm.otp),
		otp.WithAuditLogger(app.auditLogger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTP validator: %w", err)
	}

	decider, err := auth.NewDecider(cfg.Auth, authorizer, validator,
		auth.WithDeciderLogger(logger),
		auth.WithDeciderMetrics(cm.auth),
		auth.WithDeciderAuditLogger(app.auditLogger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create authentication decider: %w", err)
	}

	generator, err := downstream.NewClient(cfg.Downstream,
		downstream.WithLogger(logger),
		downstream.WithMetrics(cm.downstream),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create downstream client: %w", err)
	}

	app.healthChecker = health.NewChecker(version, health.WithMetrics(cm.health))
	app.healthChecker.RegisterCheck("revocation", app.ledger.Ping, true)
	if vaultClient != nil {
		app.healthChecker.RegisterCheck("vault", vaultClient.Ping, false)
	}

	handlers, err := server.NewHandlers(decider, generator,
		server.WithHandlersLogger(logger),
		server.WithHandlersAuditLogger(app.auditLogger),
		server.WithCommonNameHeader(cfg.Auth.CommonNameHeader),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handlers: %w", err)
	}

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithHealthChecker(app.healthChecker),
		server.WithRateLimit(cfg.RateLimit),
	}
	if app.metrics != nil {
		opts = append(opts, server.WithMetrics(app.metrics))
	}
	srv, err := server.New(cfg.Server, handlers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	app.server = srv

	return app, nil
}

// initVault creates the Vault client when enabled. A disabled Vault
// yields a nil client and no error.
func initVault(
	ctx context.Context,
	cfg *vault.Config,
	logger observability.Logger,
	metrics *vault.Metrics,
) (*vault.Client, error) {
	client, err := vault.New(ctx, cfg, vault.WithLogger(logger), vault.WithMetrics(metrics))
	if errors.Is(err, vault.ErrDisabled) {
		logger.Debug("vault disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	logger.Info("vault client created", observability.String("address", cfg.Address))
	return client, nil
}

// close releases resources that outlive request handling.
func (a *application) close(logger observability.Logger) {
	if a.auditLogger != nil {
		if err := a.auditLogger.Close(); err != nil {
			logger.Error("failed to close audit logger", observability.Error(err))
		}
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			logger.Error("failed to close revocation ledger", observability.Error(err))
		}
	}
}

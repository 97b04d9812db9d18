package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/certgw/internal/audit"
	"github.com/vyrodovalexey/certgw/internal/auth/otp"
	"github.com/vyrodovalexey/certgw/internal/authz"
	"github.com/vyrodovalexey/certgw/internal/domain"
	"github.com/vyrodovalexey/certgw/internal/observability"
)

var decisionTracer = otel.Tracer("github.com/vyrodovalexey/certgw/internal/auth")

// Decider resolves the external id a request acts for.
type Decider interface {
	// Resolve returns the authorized external id. Rejections are
	// *domain.Error values; any other error is fatal and comes unmodified
	// from the directory or the revocation ledger.
	Resolve(ctx context.Context, rc RequestAuthContext) (string, error)
}

type decider struct {
	trustedCNs map[string]struct{}
	authorizer authz.Authorizer
	tokens     otp.Validator
	auditor    audit.Logger
	logger     observability.Logger
	metrics    *Metrics
}

// DeciderOption is a functional option for the decider.
type DeciderOption func(*decider)

// WithDeciderLogger sets the logger.
func WithDeciderLogger(logger observability.Logger) DeciderOption {
	return func(d *decider) {
		d.logger = logger
	}
}

// WithDeciderMetrics sets the metrics.
func WithDeciderMetrics(metrics *Metrics) DeciderOption {
	return func(d *decider) {
		d.metrics = metrics
	}
}

// WithDeciderAuditLogger sets the audit logger for certificate path grants.
func WithDeciderAuditLogger(auditor audit.Logger) DeciderOption {
	return func(d *decider) {
		d.auditor = auditor
	}
}

// NewDecider creates a Decider.
func NewDecider(
	config *Config,
	authorizer authz.Authorizer,
	tokens otp.Validator,
	opts ...DeciderOption,
) (Decider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if authorizer == nil || tokens == nil {
		return nil, fmt.Errorf("authorizer and token validator are required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	d := &decider{
		trustedCNs: make(map[string]struct{}, len(config.AllowedCommonNames)),
		authorizer: authorizer,
		tokens:     tokens,
		auditor:    audit.NewNoopLogger(),
		logger:     observability.NopLogger(),
	}
	for _, cn := range config.AllowedCommonNames {
		d.trustedCNs[strings.TrimSpace(cn)] = struct{}{}
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Resolve implements Decider.
func (d *decider) Resolve(ctx context.Context, rc RequestAuthContext) (string, error) {
	path := PathBearer
	if d.certificatePath(rc) {
		path = PathCertificate
	}

	ctx, span := decisionTracer.Start(ctx, "auth.Resolve",
		trace.WithAttributes(attribute.String("auth.path", path)),
	)
	defer span.End()

	start := time.Now()

	var (
		extID string
		err   error
	)
	if path == PathCertificate {
		extID, err = d.resolveCertificate(ctx, rc)
	} else {
		extID, err = d.resolveBearer(ctx, rc)
	}

	d.metrics.RecordResolve(path, resultLabel(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, resultLabel(err))
		return "", err
	}

	return extID, nil
}

func (d *decider) certificatePath(rc RequestAuthContext) bool {
	if rc.EmbeddedIdentity == nil || rc.ClientCertificateCommonName == "" {
		return false
	}
	_, trusted := d.trustedCNs[rc.ClientCertificateCommonName]
	return trusted
}

func (d *decider) resolveCertificate(ctx context.Context, rc RequestAuthContext) (string, error) {
	identity := rc.EmbeddedIdentity
	if err := d.authorizer.Authorize(ctx, identity.UUID, identity.IDPSource); err != nil {
		return "", err
	}

	d.logger.WithContext(ctx).Debug("certificate identity authorized",
		observability.String("common_name", rc.ClientCertificateCommonName),
		observability.String("ext_id", identity.UUID),
	)
	d.auditor.LogEvent(ctx, audit.IdentityAuthorizedEvent(
		rc.ClientCertificateCommonName, identity.UUID, identity.IDPSource, rc.RemoteAddress,
	))

	return identity.UUID, nil
}

func (d *decider) resolveBearer(ctx context.Context, rc RequestAuthContext) (string, error) {
	principal, err := d.tokens.Validate(ctx, rc.BearerToken, rc.RemoteAddress)
	if err != nil {
		return "", err
	}
	return principal.ExternalID, nil
}

func resultLabel(err error) string {
	if err == nil {
		return "authorized"
	}
	if code, ok := domain.CodeOf(err); ok {
		return string(code)
	}
	return "error"
}

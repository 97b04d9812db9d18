package authz

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/certgw/internal/domain"
	"github.com/vyrodovalexey/certgw/internal/eiam"
	"github.com/vyrodovalexey/certgw/internal/observability"
)

// Decision labels.
const (
	decisionAllowed         = "allowed"
	decisionInvalidInput    = "invalid_input"
	decisionUnknownIdentity = "unknown_identity"
	decisionMissingRole     = "missing_role"
	decisionError           = "error"
)

// Authorizer authorizes directory identities.
type Authorizer interface {
	// Authorize returns nil when the identity holds an allowed role.
	// Rejections are *domain.Error values; directory failures are returned
	// unmodified.
	Authorize(ctx context.Context, extID, idpSource string) error
}

type authorizer struct {
	directory eiam.Client
	policy    *Policy
	logger    observability.Logger
	metrics   *Metrics
}

// Option is a functional option for the authorizer.
type Option func(*authorizer)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *authorizer) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(a *authorizer) {
		a.metrics = metrics
	}
}

// NewAuthorizer creates an authorizer backed by directory. A nil policy
// means DefaultPolicy.
func NewAuthorizer(directory eiam.Client, policy *Policy, opts ...Option) (Authorizer, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory client is required")
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	policy.index()

	a := &authorizer{
		directory: directory,
		policy:    policy,
		logger:    observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Authorize implements Authorizer.
func (a *authorizer) Authorize(ctx context.Context, extID, idpSource string) error {
	logger := a.logger.WithContext(ctx)

	if domain.IsBlank(extID) || domain.IsBlank(idpSource) {
		a.metrics.RecordDecision(decisionInvalidInput)
		return domain.Reject(domain.ErrInvalidIdentity, "extId and idpSource are required")
	}

	correlationID := observability.RequestIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	profiles, err := a.directory.QueryUser(ctx, extID, idpSource, correlationID)
	if err != nil {
		if _, isPolicy := domain.CodeOf(err); isPolicy {
			a.metrics.RecordDecision(decisionInvalidInput)
		} else {
			a.metrics.RecordDecision(decisionError)
		}
		return err
	}

	if len(profiles) == 0 {
		a.metrics.RecordDecision(decisionUnknownIdentity)
		logger.Info("identity not found in directory",
			observability.String("ext_id", extID),
			observability.String("idp_source", idpSource),
		)
		return domain.Reject(domain.ErrInvalidIdentity, "identity not found in directory")
	}

	for _, profile := range profiles {
		for _, authorization := range profile.Authorizations {
			if a.policy.Allows(authorization.RoleExternalID) {
				a.metrics.RecordDecision(decisionAllowed)
				logger.Debug("identity authorized",
					observability.String("ext_id", extID),
					observability.String("role", authorization.RoleExternalID),
					observability.String("profile_state", string(profile.State)),
				)
				return nil
			}
		}
	}

	a.metrics.RecordDecision(decisionMissingRole)
	logger.Info("identity has no authorizing role",
		observability.String("ext_id", extID),
		observability.String("idp_source", idpSource),
		observability.Int("profiles", len(profiles)),
	)
	return domain.Reject(domain.ErrInvalidIdentityRole, "no profile holds an allowed role")
}

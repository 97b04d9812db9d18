package otp

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/certgw/internal/audit"
	"github.com/vyrodovalexey/certgw/internal/domain"
	"github.com/vyrodovalexey/certgw/internal/observability"
	"github.com/vyrodovalexey/certgw/internal/revocation"
)

// HeaderPrefix is how every base64url encoded JSON header starts.
const HeaderPrefix = "eyJ"

// Validator validates bearer tokens.
type Validator interface {
	// Validate checks token and returns the principal it vouches for.
	// remoteAddr is only recorded in the audit event. Policy rejections are
	// *domain.Error values; any other error is fatal.
	Validate(ctx context.Context, token, remoteAddr string) (domain.Principal, error)
}

type validator struct {
	config    *Config
	key       *rsa.PublicKey
	algorithm jwa.SignatureAlgorithm
	ledger    revocation.Ledger
	logger    observability.Logger
	metrics   *Metrics
	auditor   audit.Logger
	now       func() time.Time
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*validator)

// WithValidatorLogger sets the logger.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *validator) {
		v.logger = logger
	}
}

// WithValidatorMetrics sets the metrics.
func WithValidatorMetrics(metrics *Metrics) ValidatorOption {
	return func(v *validator) {
		v.metrics = metrics
	}
}

// WithAuditLogger sets the audit logger receiving sec-kpi events.
func WithAuditLogger(auditor audit.Logger) ValidatorOption {
	return func(v *validator) {
		v.auditor = auditor
	}
}

// WithClock overrides the clock used for expiry checks and audit timestamps.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *validator) {
		v.now = now
	}
}

// NewValidator creates a bearer token validator.
func NewValidator(
	config *Config,
	key *rsa.PublicKey,
	ledger revocation.Ledger,
	opts ...ValidatorOption,
) (Validator, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if key == nil {
		return nil, fmt.Errorf("public key is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("revocation ledger is required")
	}
	if _, ok := rsaAlgorithms[config.GetEffectiveAlgorithm()]; !ok {
		return nil, fmt.Errorf("unsupported algorithm %q", config.Algorithm)
	}

	v := &validator{
		config:    config,
		key:       key,
		algorithm: jwa.SignatureAlgorithm(config.GetEffectiveAlgorithm()),
		ledger:    ledger,
		logger:    observability.NopLogger(),
		auditor:   audit.NewNoopLogger(),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

type rejection struct {
	reason string
	err    *domain.Error
}

func reject(reason string, base *domain.Error, message string, cause error) *rejection {
	return &rejection{reason: reason, err: domain.RejectWithCause(base, message, cause)}
}

// Validate implements Validator.
func (v *validator) Validate(ctx context.Context, token, remoteAddr string) (domain.Principal, error) {
	start := time.Now()
	logger := v.logger.WithContext(ctx)

	claims, rej, err := v.verify(ctx, token)
	if err != nil {
		v.metrics.RecordValidation(statusError, reasonLedgerError, time.Since(start))
		logger.Error("bearer token validation failed", observability.Error(err))
		return domain.Principal{}, err
	}
	if rej != nil {
		v.metrics.RecordValidation(statusRejected, rej.reason, time.Since(start))
		logger.Debug("bearer token rejected",
			observability.String("reason", rej.reason),
			observability.String("code", string(rej.err.Code)),
		)
		return domain.Principal{}, rej.err
	}

	principal := domain.Principal{ExternalID: claims.ExternalID, IDPSource: claims.IDPSource}
	v.emitSecurityKPI(ctx, logger, claims, remoteAddr)
	v.metrics.RecordValidation(statusSuccess, reasonOK, time.Since(start))

	return principal, nil
}

// verify runs the checks in their fixed order. It returns either the claims,
// a rejection, or a fatal error.
func (v *validator) verify(ctx context.Context, token string) (*Claims, *rejection, error) {
	if token == "" {
		return nil, reject(reasonMissing, domain.ErrMissingToken, "bearer token is missing", nil), nil
	}

	if !strings.HasPrefix(token, HeaderPrefix) {
		return nil, reject(reasonPrefix, domain.ErrMalformedToken, "token does not start with a JSON header", nil), nil
	}

	if rej := v.checkStructure(token); rej != nil {
		return nil, rej, nil
	}

	tok, err := jwt.ParseString(token,
		jwt.WithKey(v.algorithm, v.key),
		jwt.WithValidate(false),
	)
	if err != nil {
		return nil, reject(reasonSignature, domain.ErrInvalidToken, "token verification failed", err), nil
	}

	// Only exp and nbf are time checks; iat is informational.
	err = jwt.Validate(tok,
		jwt.WithResetValidators(true),
		jwt.WithValidator(jwt.IsExpirationValid()),
		jwt.WithValidator(jwt.IsNbfValid()),
		jwt.WithAcceptableSkew(v.config.ClockSkew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, reject(reasonExpired, domain.ErrInvalidToken, "token has expired", err), nil
		}
		return nil, reject(reasonNotBefore, domain.ErrInvalidToken, "token is not valid yet", err), nil
	}

	claims := claimsFromToken(tok)

	revoked, err := v.ledger.CurrentRevokedIDs(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read revocation ledger: %w", err)
	}
	if claims.TokenID != "" && revoked.Contains(claims.TokenID) {
		return nil, reject(reasonRevoked, domain.ErrInvalidToken, "token has been revoked", nil), nil
	}

	if domain.IsBlank(claims.Scope) || claims.Scope != v.config.GetEffectiveRequiredScope() {
		return nil, reject(reasonScope, domain.ErrInvalidToken, "token scope is not accepted", nil), nil
	}

	if domain.IsBlank(claims.ExternalID) || domain.IsBlank(claims.IDPSource) || domain.IsBlank(claims.Type) {
		return nil, reject(reasonClaims, domain.ErrInvalidToken, "required claim is missing", nil), nil
	}
	if claims.Type != v.config.GetEffectiveRequiredType() {
		return nil, reject(reasonClaims, domain.ErrInvalidToken, "token type is not accepted", nil), nil
	}

	return claims, nil, nil
}

type joseHeader struct {
	Algorithm string `json:"alg"`
}

// checkStructure inspects the compact serialization before any cryptography
// runs: three segments, a JSON header naming the configured algorithm, and a
// signature as long as the key modulus.
func (v *validator) checkStructure(token string) *rejection {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return reject(reasonStructure, domain.ErrMalformedToken, "token is not a compact JWS", nil)
	}

	rawHeader, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return reject(reasonStructure, domain.ErrMalformedToken, "token header is not base64url", err)
	}
	var header joseHeader
	if err := json.Unmarshal(rawHeader, &header); err != nil {
		return reject(reasonStructure, domain.ErrMalformedToken, "token header is not JSON", err)
	}

	if header.Algorithm != v.algorithm.String() {
		return reject(reasonAlgorithm, domain.ErrInvalidToken,
			fmt.Sprintf("unexpected signing algorithm %q", header.Algorithm), nil)
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return reject(reasonStructure, domain.ErrMalformedToken, "token signature is not base64url", err)
	}
	if len(signature) != v.key.Size() {
		return reject(reasonSignatureLen, domain.ErrMalformedToken,
			fmt.Sprintf("signature length %d does not match key size %d", len(signature), v.key.Size()), nil)
	}

	return nil
}

func (v *validator) emitSecurityKPI(ctx context.Context, logger observability.Logger, claims *Claims, remoteAddr string) {
	now := v.now()

	logger.Info("sec-kpi",
		observability.String(audit.KPITimestampKey, audit.FormatKPITime(now)),
		observability.String(audit.KPISystemKey, audit.KPISystemAPI),
		observability.String(audit.KPITokenIDKey, claims.TokenID),
		observability.String(audit.KPIOTPTypeKey, claims.OTPType),
		observability.String(audit.KPIIPAddressKey, remoteAddr),
		observability.String(audit.KPIExtIDKey, claims.ExternalID),
		observability.String(audit.KPIIDPSourceKey, claims.IDPSource),
	)

	v.auditor.LogEvent(ctx, audit.SecurityKPIEvent(audit.OTPValidation{
		Time:       now,
		TokenID:    claims.TokenID,
		OTPType:    claims.OTPType,
		RemoteAddr: remoteAddr,
		ExternalID: claims.ExternalID,
		IDPSource:  claims.IDPSource,
	}))
}

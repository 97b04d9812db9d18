package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/certgw/internal/observability"
)

const tracerName = "github.com/vyrodovalexey/certgw/internal/downstream"

// Targets.
const (
	TargetGeneration = "generation"
	TargetManagement = "management"
)

// Header constants.
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-ID"
	HeaderUserExtID   = "X-User-Ext-Id"
	ContentTypeJSON   = "application/json"
)

// CertificateKind selects the generation endpoint.
type CertificateKind string

// Certificate kinds.
const (
	KindVaccination CertificateKind = "vaccination"
	KindTest        CertificateKind = "test"
	KindRecovery    CertificateKind = "recovery"
)

// IsValid returns true for a known kind.
func (k CertificateKind) IsValid() bool {
	switch k {
	case KindVaccination, KindTest, KindRecovery:
		return true
	default:
		return false
	}
}

// Response is a successful downstream answer.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Client calls the downstream services.
type Client interface {
	// CreateCertificate forwards a creation payload on behalf of extID.
	CreateCertificate(ctx context.Context, kind CertificateKind, extID string, payload []byte) (*Response, error)

	// Revoke asks the management service to revoke uvci.
	Revoke(ctx context.Context, uvci string) error
}

type httpClient struct {
	generationURL string
	managementURL string
	httpClient    *http.Client
	breakers      map[string]*gobreaker.CircuitBreaker
	logger        observability.Logger
	metrics       *Metrics
	tracer        trace.Tracer
}

// ClientOption is a functional option for the client.
type ClientOption func(*httpClient)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *httpClient) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) ClientOption {
	return func(c *httpClient) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) ClientOption {
	return func(c *httpClient) {
		c.metrics = metrics
	}
}

// NewClient creates a downstream client.
func NewClient(config *Config, opts ...ClientOption) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &httpClient{
		generationURL: withTrailingSlash(config.GenerationURL),
		managementURL: withTrailingSlash(config.ManagementURL),
		logger:        observability.NopLogger(),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: config.GetEffectiveTimeout()}
	}

	breaker := config.GetEffectiveBreaker()
	c.breakers = map[string]*gobreaker.CircuitBreaker{
		TargetGeneration: c.newBreaker(TargetGeneration, breaker),
		TargetManagement: c.newBreaker(TargetManagement, breaker),
	}

	return c, nil
}

func (c *httpClient) newBreaker(name string, cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker {
	threshold := safeIntToUint32(cfg.Threshold)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Timeout,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			var restErr *RestError
			if errors.As(err, &restErr) {
				return !restErr.serverError()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			c.metrics.RecordTransition(name, from.String(), to.String())
		},
	})
}

// CreateCertificate implements Client.
func (c *httpClient) CreateCertificate(
	ctx context.Context,
	kind CertificateKind,
	extID string,
	payload []byte,
) (*Response, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown certificate kind %q", kind)
	}

	headers := http.Header{}
	headers.Set(HeaderUserExtID, extID)
	return c.post(ctx, TargetGeneration, c.generationURL+GenerationPathPrefix+string(kind), payload, headers)
}

// Revoke implements Client.
func (c *httpClient) Revoke(ctx context.Context, uvci string) error {
	payload, err := json.Marshal(map[string]string{"uvci": uvci})
	if err != nil {
		return fmt.Errorf("failed to marshal revocation: %w", err)
	}
	_, err = c.post(ctx, TargetManagement, c.managementURL+RevocationPath, payload, nil)
	return err
}

func (c *httpClient) post(
	ctx context.Context,
	target, endpoint string,
	payload []byte,
	headers http.Header,
) (*Response, error) {
	ctx, span := c.tracer.Start(ctx, "downstream."+target,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("downstream.target", target),
			attribute.String("http.url", endpoint),
		),
	)
	defer span.End()

	start := time.Now()
	result, err := c.breakers[target].Execute(func() (interface{}, error) {
		return c.do(ctx, endpoint, payload, headers)
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.RecordRequest(target, "open", time.Since(start))
		span.SetStatus(codes.Error, "circuit open")
		c.logger.WithContext(ctx).Warn("circuit breaker rejected call", observability.String("target", target))
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, target)
	}

	var restErr *RestError
	switch {
	case errors.As(err, &restErr):
		c.metrics.RecordRequest(target, strconv.Itoa(restErr.Status), time.Since(start))
		span.SetAttributes(attribute.Int("http.status_code", restErr.Status))
		c.logger.WithContext(ctx).Warn("downstream rejected call",
			observability.String("target", target),
			observability.Int("status", restErr.Status),
			observability.Int("error_code", restErr.ErrorCode),
		)
		return nil, restErr
	case err != nil:
		c.metrics.RecordRequest(target, "error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "downstream call failed")
		return nil, err
	}

	resp := result.(*Response)
	c.metrics.RecordRequest(target, strconv.Itoa(resp.Status), time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))
	return resp, nil
}

func (c *httpClient) do(ctx context.Context, endpoint string, payload []byte, headers http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range headers {
		req.Header[key] = values
	}
	req.Header.Set(HeaderContentType, ContentTypeJSON)
	if requestID := observability.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(HeaderRequestID, requestID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		restErr := &RestError{}
		if err := json.Unmarshal(body, restErr); err != nil {
			return nil, fmt.Errorf("failed to parse error response with status %d: %w", resp.StatusCode, err)
		}
		restErr.Status = resp.StatusCode
		return nil, restErr
	}

	return &Response{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get(HeaderContentType),
		Body:        body,
	}, nil
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

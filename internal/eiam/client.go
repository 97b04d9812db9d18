package eiam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/certgw/internal/domain"
	"github.com/vyrodovalexey/certgw/internal/observability"
)

const tracerName = "github.com/vyrodovalexey/certgw/internal/eiam"

// maxResponseBytes caps how much of a directory response is read.
const maxResponseBytes = 1 << 20

// Client queries the identity directory.
type Client interface {
	// QueryUser returns the profiles of the user identified by extID and
	// idpSource. An unknown user yields an empty slice, not an error.
	QueryUser(ctx context.Context, extID, idpSource, correlationID string) ([]domain.DirectoryProfile, error)
}

// HTTPError is a non-2xx answer from the directory.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("eiam returned status %d: %s", e.StatusCode, e.Body)
}

type httpClient struct {
	config     *Config
	endpoint   string
	httpClient *http.Client
	logger     observability.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

// ClientOption is a functional option for the client.
type ClientOption func(*httpClient)

// WithHTTPClient sets the HTTP client, overriding timeout and TLS settings.
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

// NewClient creates a directory client.
func NewClient(config *Config, opts ...ClientOption) (Client, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &httpClient{
		config:   config,
		endpoint: strings.TrimSuffix(config.URL, "/") + config.GetEffectiveQueryPath(),
		logger:   observability.NopLogger(),
		tracer:   otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		tlsConfig, err := config.TLS.BuildTLSConfig()
		if err != nil {
			return nil, err
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsConfig
		c.httpClient = &http.Client{
			Timeout:   config.GetEffectiveTimeout(),
			Transport: transport,
		}
	}

	return c, nil
}

// QueryUser implements Client.
func (c *httpClient) QueryUser(
	ctx context.Context,
	extID, idpSource, correlationID string,
) ([]domain.DirectoryProfile, error) {
	if domain.IsBlank(extID) || domain.IsBlank(idpSource) {
		return nil, domain.Reject(domain.ErrInvalidIdentity, "extId and idpSource are required")
	}

	ctx, span := c.tracer.Start(ctx, "eiam.QueryUser",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("eiam.idp_source", idpSource)),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.query(ctx, &QueryUsersRequest{
		ExtID:         extID,
		IDPSource:     idpSource,
		CorrelationID: correlationID,
	})
	if err != nil {
		c.metrics.RecordRequest("error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "directory query failed")
		c.logger.WithContext(ctx).Error("directory query failed",
			observability.String("correlation_id", correlationID),
			observability.Error(err),
		)
		return nil, err
	}

	profiles := resp.Profiles()
	c.metrics.RecordRequest("success", time.Since(start))
	span.SetAttributes(attribute.Int("eiam.profiles", len(profiles)))
	c.logger.WithContext(ctx).Debug("directory query completed",
		observability.String("correlation_id", correlationID),
		observability.Int("profiles", len(profiles)),
	)

	return profiles, nil
}

func (c *httpClient) query(ctx context.Context, body *QueryUsersRequest) (*QueryUsersResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(HeaderContentType, ContentTypeJSON)
	req.Header.Set(HeaderAccept, ContentTypeJSON)
	if body.CorrelationID != "" {
		req.Header.Set(HeaderCorrelationID, body.CorrelationID)
	}
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var out QueryUsersResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &out, nil
}

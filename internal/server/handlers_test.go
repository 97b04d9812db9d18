package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/certgw/internal/audit"
	"github.com/vyrodovalexey/certgw/internal/auth"
	"github.com/vyrodovalexey/certgw/internal/domain"
	"github.com/vyrodovalexey/certgw/internal/downstream"
	"github.com/vyrodovalexey/certgw/internal/observability"
)

type fakeDecider struct {
	mu    sync.Mutex
	calls []auth.RequestAuthContext
	extID string
	err   error
	panic bool
}

func (f *fakeDecider) Resolve(_ context.Context, rc auth.RequestAuthContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rc)
	if f.panic {
		panic("decider exploded")
	}
	return f.extID, f.err
}

type createCall struct {
	kind    downstream.CertificateKind
	extID   string
	payload string
}

type fakeDownstream struct {
	mu        sync.Mutex
	creates   []createCall
	revokes   []string
	requestID string
	resp      *downstream.Response
	err       error
}

func (f *fakeDownstream) CreateCertificate(
	ctx context.Context,
	kind downstream.CertificateKind,
	extID string,
	payload []byte,
) (*downstream.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{kind: kind, extID: extID, payload: string(payload)})
	f.requestID = observability.RequestIDFromContext(ctx)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeDownstream) Revoke(ctx context.Context, uvci string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokes = append(f.revokes, uvci)
	f.requestID = observability.RequestIDFromContext(ctx)
	return f.err
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (r *recordingAuditor) LogEvent(_ context.Context, e *audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAuditor) Close() error { return nil }

type fixture struct {
	server     *Server
	decider    *fakeDecider
	downstream *fakeDownstream
	auditor    *recordingAuditor
}

func newFixture(t *testing.T, handlerOpts []HandlersOption, serverOpts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		decider: &fakeDecider{extID: "U1"},
		downstream: &fakeDownstream{resp: &downstream.Response{
			Status:      http.StatusOK,
			ContentType: "application/json",
			Body:        []byte(`{"uvci":"urn:uvci:01:CH:1"}`),
		}},
		auditor: &recordingAuditor{},
	}

	opts := append([]HandlersOption{WithHandlersAuditLogger(f.auditor)}, handlerOpts...)
	handlers, err := NewHandlers(f.decider, f.downstream, opts...)
	require.NoError(t, err)

	f.server, err = New(DefaultConfig(), handlers, serverOpts...)
	require.NoError(t, err)
	return f
}

func (f *fixture) do(t *testing.T, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.RemoteAddr = "10.0.0.7:54321"
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreate_ForwardsAuthorizedRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		kind downstream.CertificateKind
	}{
		{path: RouteVaccination, kind: downstream.KindVaccination},
		{path: RouteTest, kind: downstream.KindTest},
		{path: RouteRecovery, kind: downstream.KindRecovery},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)
			body := `{"otp":"eyJtoken","name":{"familyName":"Rochat"}}`
			rec := f.do(t, tt.path, body, map[string]string{RequestIDHeader: "req-42"})

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"uvci":"urn:uvci:01:CH:1"}`, rec.Body.String())
			assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

			require.Len(t, f.decider.calls, 1)
			assert.Equal(t, "eyJtoken", f.decider.calls[0].BearerToken)
			assert.Equal(t, "10.0.0.7", f.decider.calls[0].RemoteAddress)
			assert.Nil(t, f.decider.calls[0].EmbeddedIdentity)

			require.Len(t, f.downstream.creates, 1)
			assert.Equal(t, createCall{kind: tt.kind, extID: "U1", payload: body}, f.downstream.creates[0])
			assert.Equal(t, "req-42", f.downstream.requestID)

			require.Len(t, f.auditor.events, 1)
			assert.Equal(t, audit.ActionCertificateCreated, f.auditor.events[0].Action)
		})
	}
}

func TestCreate_CredentialSources(t *testing.T) {
	t.Parallel()

	t.Run("authorization header when body carries no otp", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		rec := f.do(t, RouteTest, `{}`, map[string]string{"Authorization": "Bearer eyJheader"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "eyJheader", f.decider.calls[0].BearerToken)
	})

	t.Run("embedded identity and proxy common name", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, []HandlersOption{WithCommonNameHeader("X-Client-CN")})
		rec := f.do(t, RouteTest, `{"identity":{"uuid":"U9","idpSource":"IDP9"}}`,
			map[string]string{"X-Client-CN": "test-cn"})
		require.Equal(t, http.StatusOK, rec.Code)

		rc := f.decider.calls[0]
		assert.Equal(t, "test-cn", rc.ClientCertificateCommonName)
		require.NotNil(t, rc.EmbeddedIdentity)
		assert.Equal(t, auth.EmbeddedIdentity{UUID: "U9", IDPSource: "IDP9"}, *rc.EmbeddedIdentity)
	})

	t.Run("common name header ignored unless configured", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		f.do(t, RouteTest, `{}`, map[string]string{"X-Client-CN": "test-cn"})
		assert.Empty(t, f.decider.calls[0].ClientCertificateCommonName)
	})
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	rec := f.do(t, RouteRevoke, `{"uvci":"urn:uvci:01:CH:1","otp":"eyJtoken"}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, []string{"urn:uvci:01:CH:1"}, f.downstream.revokes)
	require.Len(t, f.auditor.events, 1)
	assert.Equal(t, audit.ActionCertificateRevoked, f.auditor.events[0].Action)
	assert.Equal(t, "urn:uvci:01:CH:1", f.auditor.events[0].Resource.ID)
}

func kpiLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var line map[string]any
		require.NoError(t, json.Unmarshal(raw, &line))
		if line["message"] == "kpi" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestKPILogLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path     string
		body     string
		expected string
	}{
		{path: RouteVaccination, body: `{"otp":"eyJtoken"}`, expected: audit.KPITypeVaccination},
		{path: RouteTest, body: `{"otp":"eyJtoken"}`, expected: audit.KPITypeTest},
		{path: RouteRecovery, body: `{"otp":"eyJtoken"}`, expected: audit.KPITypeRecovery},
		{path: RouteRevoke, body: `{"uvci":"urn:uvci:01:CH:1","otp":"eyJtoken"}`, expected: audit.KPITypeRevocation},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger, err := observability.NewLoggerWithSyncer(observability.DefaultLogConfig(), zapcore.AddSync(&buf))
			require.NoError(t, err)

			f := newFixture(t, []HandlersOption{WithHandlersLogger(logger)})
			rec := f.do(t, tt.path, tt.body, nil)
			require.Less(t, rec.Code, 300)

			lines := kpiLines(t, &buf)
			require.Len(t, lines, 1)
			assert.Equal(t, tt.expected, lines[0]["type"])
			assert.Equal(t, "U1", lines[0]["uuid"])
			assert.Equal(t, "api", lines[0]["cc"])
			assert.NotEmpty(t, lines[0]["ts"])
			assert.NotContains(t, lines[0], "extId")
		})
	}
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		deciderErr    error
		downstreamErr error
		expectedCode  int
		expectedBody  string
	}{
		{
			name:         "missing token",
			deciderErr:   domain.ErrMissingToken,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"errorCode":"MISSING_BEARER","errorMessage":"Bearer token is missing"}`,
		},
		{
			name:         "malformed token",
			deciderErr:   domain.Reject(domain.ErrMalformedToken, "signature is 10 bytes"),
			expectedCode: http.StatusForbidden,
			expectedBody: `{"errorCode":"INVALID_OTP_LENGTH","errorMessage":"Invalid OTP length, the token is likely truncated or corrupted"}`,
		},
		{
			name:         "role missing",
			deciderErr:   domain.ErrInvalidIdentityRole,
			expectedCode: http.StatusForbidden,
			expectedBody: `{"errorCode":"INVALID_IDENTITY_USER_ROLE","errorMessage":"Invalid identity user role"}`,
		},
		{
			name:         "fatal decider failure hides detail",
			deciderErr:   errors.New("dial tcp eiam:443: connection refused"),
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"errorCode":500,"errorMessage":"Internal server error"}`,
		},
		{
			name: "downstream rejection relayed",
			downstreamErr: &downstream.RestError{
				ErrorCode: 459, ErrorMessage: "Certificate already revoked", Status: http.StatusConflict,
			},
			expectedCode: http.StatusConflict,
			expectedBody: `{"errorCode":459,"errorMessage":"Certificate already revoked"}`,
		},
		{
			name:          "breaker open",
			downstreamErr: fmt.Errorf("%w: management", downstream.ErrUnavailable),
			expectedCode:  http.StatusServiceUnavailable,
			expectedBody:  `{"errorCode":503,"errorMessage":"Service unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, nil)
			f.decider.err = tt.deciderErr
			if tt.deciderErr != nil {
				f.decider.extID = ""
			}
			f.downstream.err = tt.downstreamErr

			rec := f.do(t, RouteRevoke, `{"uvci":"u"}`, nil)
			assert.Equal(t, tt.expectedCode, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())

			if _, policy := domain.CodeOf(tt.deciderErr); policy {
				assert.Empty(t, f.downstream.revokes, "rejected requests are never forwarded")
				require.Len(t, f.auditor.events, 1)
				assert.Equal(t, audit.ActionAccessDenied, f.auditor.events[0].Action)
			}
		})
	}
}

func TestBadRequests(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	rec := f.do(t, RouteVaccination, `{"otp":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, RouteRevoke, `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body StatusError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusBadRequest, body.ErrorCode)
	assert.Empty(t, f.decider.calls)
}

func TestNewHandlers_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewHandlers(nil, &fakeDownstream{})
	assert.Error(t, err)

	_, err = NewHandlers(&fakeDecider{}, nil)
	assert.Error(t, err)
}

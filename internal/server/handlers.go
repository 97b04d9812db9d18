package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/certgw/internal/audit"
	"github.com/vyrodovalexey/certgw/internal/auth"
	"github.com/vyrodovalexey/certgw/internal/downstream"
	"github.com/vyrodovalexey/certgw/internal/observability"
)

// Route paths.
const (
	RouteBase        = "/api/v1/covidcertificate"
	RouteVaccination = RouteBase + "/vaccination"
	RouteTest        = RouteBase + "/test"
	RouteRecovery    = RouteBase + "/recovery"
	RouteRevoke      = RouteBase + "/revoke"
)

// credentials are the authorization inputs every protected body may carry.
type credentials struct {
	OTP      string                 `json:"otp,omitempty"`
	Identity *auth.EmbeddedIdentity `json:"identity,omitempty"`
}

type revocationRequest struct {
	credentials
	UVCI string `json:"uvci"`
}

// Handlers serves the protected routes.
type Handlers struct {
	decider    auth.Decider
	downstream downstream.Client
	auditor    audit.Logger
	logger     observability.Logger
	cnHeader   string
	errors     *errorRenderer
}

// HandlersOption is a functional option for Handlers.
type HandlersOption func(*Handlers)

// WithHandlersLogger sets the logger.
func WithHandlersLogger(logger observability.Logger) HandlersOption {
	return func(h *Handlers) {
		h.logger = logger
	}
}

// WithHandlersAuditLogger sets the audit logger.
func WithHandlersAuditLogger(auditor audit.Logger) HandlersOption {
	return func(h *Handlers) {
		h.auditor = auditor
	}
}

// WithCommonNameHeader trusts a proxy supplied header for the client
// certificate common name when the connection carries none.
func WithCommonNameHeader(header string) HandlersOption {
	return func(h *Handlers) {
		h.cnHeader = header
	}
}

// NewHandlers creates the route handlers.
func NewHandlers(decider auth.Decider, client downstream.Client, opts ...HandlersOption) (*Handlers, error) {
	if decider == nil || client == nil {
		return nil, errors.New("decider and downstream client are required")
	}

	h := &Handlers{
		decider:    decider,
		downstream: client,
		auditor:    audit.NewNoopLogger(),
		logger:     observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.errors = &errorRenderer{logger: h.logger, auditor: h.auditor}

	return h, nil
}

// Register mounts the protected routes on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.POST(RouteVaccination, h.create(downstream.KindVaccination))
	r.POST(RouteTest, h.create(downstream.KindTest))
	r.POST(RouteRecovery, h.create(downstream.KindRecovery))
	r.POST(RouteRevoke, h.revoke)
}

func (h *Handlers) create(kind downstream.CertificateKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := c.GetRawData()
		if err != nil {
			h.errors.badRequest(c, "Http message not readable")
			return
		}

		var creds credentials
		if err := json.Unmarshal(payload, &creds); err != nil {
			h.errors.badRequest(c, "Http message not readable")
			return
		}

		extID, ok := h.resolve(c, creds)
		if !ok {
			return
		}

		resp, err := h.downstream.CreateCertificate(c.Request.Context(), kind, extID, payload)
		if err != nil {
			h.errors.render(c, err)
			return
		}

		h.auditor.LogEvent(c.Request.Context(), audit.CertificateCreatedEvent(string(kind), extID, c.RemoteIP()))
		h.logger.WithContext(c.Request.Context()).Info("kpi",
			observability.String(audit.KPITimestampKey, audit.FormatKPITime(time.Now())),
			observability.String(audit.KPISystemKey, audit.KPISystemAPI),
			observability.String(audit.KPITypeKey, kpiType(kind)),
			observability.String(audit.KPIUUIDKey, extID),
		)

		contentType := resp.ContentType
		if contentType == "" {
			contentType = gin.MIMEJSON
		}
		c.Data(resp.Status, contentType, resp.Body)
	}
}

func (h *Handlers) revoke(c *gin.Context) {
	var req revocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.badRequest(c, "Http message not readable")
		return
	}

	extID, ok := h.resolve(c, req.credentials)
	if !ok {
		return
	}

	if err := h.downstream.Revoke(c.Request.Context(), req.UVCI); err != nil {
		h.errors.render(c, err)
		return
	}

	h.auditor.LogEvent(c.Request.Context(), audit.CertificateRevokedEvent(req.UVCI, extID, c.RemoteIP()))
	h.logger.WithContext(c.Request.Context()).Info("kpi",
		observability.String(audit.KPITimestampKey, audit.FormatKPITime(time.Now())),
		observability.String(audit.KPISystemKey, audit.KPISystemAPI),
		observability.String(audit.KPITypeKey, audit.KPITypeRevocation),
		observability.String(audit.KPIUUIDKey, extID),
	)
	c.Status(http.StatusCreated)
}

// resolve runs the decider. It renders the failure and returns false when
// the request may not proceed.
func (h *Handlers) resolve(c *gin.Context, creds credentials) (string, bool) {
	token := strings.TrimSpace(creds.OTP)
	if token == "" {
		token = auth.ExtractBearerToken(c.Request)
	}

	commonName := auth.CommonNameFromTLS(c.Request.TLS)
	if commonName == "" && h.cnHeader != "" {
		commonName = strings.TrimSpace(c.GetHeader(h.cnHeader))
	}

	extID, err := h.decider.Resolve(c.Request.Context(), auth.RequestAuthContext{
		ClientCertificateCommonName: commonName,
		EmbeddedIdentity:            creds.Identity,
		BearerToken:                 token,
		RemoteAddress:               c.RemoteIP(),
	})
	if err != nil {
		h.errors.render(c, err)
		return "", false
	}
	return extID, true
}

func kpiType(kind downstream.CertificateKind) string {
	switch kind {
	case downstream.KindVaccination:
		return audit.KPITypeVaccination
	case downstream.KindTest:
		return audit.KPITypeTest
	case downstream.KindRecovery:
		return audit.KPITypeRecovery
	default:
		return string(kind)
	}
}

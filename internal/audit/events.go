package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event.
type EventType string

// Event types.
const (
	EventTypeAuthentication EventType = "authentication"
	EventTypeAuthorization  EventType = "authorization"
	EventTypeSecurity       EventType = "security"
	EventTypeOperation      EventType = "operation"
)

// Action represents the action being audited.
type Action string

// Actions.
const (
	ActionOTPValidated       Action = "otp_validated"
	ActionIdentityAuthorized Action = "identity_authorized"
	ActionAccessDenied       Action = "access_denied"
	ActionCertificateCreated Action = "certificate_created"
	ActionCertificateRevoked Action = "certificate_revoked"
)

// Outcome represents the outcome of an audited action.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

// Level represents the severity of an audit event.
type Level string

// Levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Event is one audit record.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	Action    Action                 `json:"action"`
	Outcome   Outcome                `json:"outcome"`
	Level     Level                  `json:"level"`
	Subject   *Subject               `json:"subject,omitempty"`
	Resource  *Resource              `json:"resource,omitempty"`
	Error     *ErrorDetails          `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	TraceID   string                 `json:"traceId,omitempty"`
	SpanID    string                 `json:"spanId,omitempty"`
}

// Subject is the actor of an event.
type Subject struct {
	ID         string `json:"id,omitempty"`
	Type       string `json:"type,omitempty"`
	IDPSource  string `json:"idpSource,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	AuthMethod string `json:"authMethod,omitempty"`
}

// Resource is the object an event acts on.
type Resource struct {
	Type string `json:"type,omitempty"`
	ID   string `json:"id,omitempty"`
	Path string `json:"path,omitempty"`
}

// ErrorDetails describes why an action failed.
type ErrorDetails struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewEvent creates an event with a fresh id and the current time.
func NewEvent(eventType EventType, action Action, outcome Outcome) *Event {
	level := LevelInfo
	if outcome != OutcomeSuccess {
		level = LevelWarning
	}

	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Action:    action,
		Outcome:   outcome,
		Level:     level,
	}
}

// WithSubject sets the subject.
func (e *Event) WithSubject(subject *Subject) *Event {
	e.Subject = subject
	return e
}

// WithResource sets the resource.
func (e *Event) WithResource(resource *Resource) *Event {
	e.Resource = resource
	return e
}

// WithError sets the error details.
func (e *Event) WithError(code, message string) *Event {
	e.Error = &ErrorDetails{Code: code, Message: message}
	return e
}

// WithMetadata adds a metadata entry.
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

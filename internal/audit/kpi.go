package audit

import (
	"time"
)

// Keys of the sec-kpi metadata.
const (
	KPITimestampKey = "ts"
	KPISystemKey    = "cc"
	KPITokenIDKey   = "jti"
	KPIOTPTypeKey   = "otp"
	KPIIPAddressKey = "ip"
	KPIExtIDKey     = "extId"
	KPIIDPSourceKey = "idpSource"
	KPIUVCIKey      = "uvci"
)

// KPISystemAPI tags events produced by the API gateway.
const KPISystemAPI = "api"

// Keys and values of the kpi lines written per forwarded certificate call.
const (
	KPITypeKey = "type"
	KPIUUIDKey = "uuid"

	KPITypeVaccination = "v"
	KPITypeTest        = "t"
	KPITypeRecovery    = "r"
	KPITypeRevocation  = "re"
)

// KPITimeLayout is the local time layout of the ts key.
const KPITimeLayout = "2006-01-02 15:04:05.000"

// KPILocation is the zone the ts key is rendered in. It falls back to UTC
// when the zone database is missing.
var KPILocation = loadKPILocation()

func loadKPILocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		return time.UTC
	}
	return loc
}

// FormatKPITime renders t the way the ts key expects.
func FormatKPITime(t time.Time) string {
	return t.In(KPILocation).Format(KPITimeLayout)
}

// OTPValidation holds the facts of one successful bearer token validation.
type OTPValidation struct {
	Time       time.Time
	TokenID    string
	OTPType    string
	RemoteAddr string
	ExternalID string
	IDPSource  string
}

// SecurityKPIEvent builds the sec-kpi event for a successful validation.
func SecurityKPIEvent(v OTPValidation) *Event {
	e := NewEvent(EventTypeSecurity, ActionOTPValidated, OutcomeSuccess).
		WithSubject(&Subject{
			ID:         v.ExternalID,
			Type:       "machine",
			IDPSource:  v.IDPSource,
			IPAddress:  v.RemoteAddr,
			AuthMethod: "otp",
		}).
		WithMetadata(KPITimestampKey, FormatKPITime(v.Time)).
		WithMetadata(KPISystemKey, KPISystemAPI).
		WithMetadata(KPITokenIDKey, v.TokenID).
		WithMetadata(KPIOTPTypeKey, v.OTPType).
		WithMetadata(KPIIPAddressKey, v.RemoteAddr).
		WithMetadata(KPIExtIDKey, v.ExternalID).
		WithMetadata(KPIIDPSourceKey, v.IDPSource)
	e.Timestamp = v.Time.UTC()
	return e
}

// IdentityAuthorizedEvent builds the event for a certificate path authorization.
func IdentityAuthorizedEvent(commonName, externalID, idpSource, remoteAddr string) *Event {
	return NewEvent(EventTypeAuthorization, ActionIdentityAuthorized, OutcomeSuccess).
		WithSubject(&Subject{
			ID:         externalID,
			Type:       "user",
			IDPSource:  idpSource,
			IPAddress:  remoteAddr,
			AuthMethod: "mtls",
		}).
		WithMetadata("commonName", commonName).
		WithMetadata(KPISystemKey, KPISystemAPI)
}

// AccessDeniedEvent builds the event for a policy rejection.
func AccessDeniedEvent(code, remoteAddr, path string) *Event {
	return NewEvent(EventTypeAuthorization, ActionAccessDenied, OutcomeDenied).
		WithSubject(&Subject{IPAddress: remoteAddr}).
		WithResource(&Resource{Type: "endpoint", Path: path}).
		WithError(code, "")
}

// CertificateRevokedEvent builds the event for a forwarded revocation.
func CertificateRevokedEvent(uvci, externalID, remoteAddr string) *Event {
	return NewEvent(EventTypeOperation, ActionCertificateRevoked, OutcomeSuccess).
		WithSubject(&Subject{ID: externalID, IPAddress: remoteAddr}).
		WithResource(&Resource{Type: "certificate", ID: uvci}).
		WithMetadata(KPITimestampKey, FormatKPITime(time.Now())).
		WithMetadata(KPISystemKey, KPISystemAPI).
		WithMetadata(KPIUVCIKey, uvci)
}

// CertificateCreatedEvent builds the event for a forwarded certificate creation.
func CertificateCreatedEvent(kind, externalID, remoteAddr string) *Event {
	return NewEvent(EventTypeOperation, ActionCertificateCreated, OutcomeSuccess).
		WithSubject(&Subject{ID: externalID, IPAddress: remoteAddr}).
		WithResource(&Resource{Type: "certificate", Path: kind}).
		WithMetadata(KPITimestampKey, FormatKPITime(time.Now())).
		WithMetadata(KPISystemKey, KPISystemAPI)
}

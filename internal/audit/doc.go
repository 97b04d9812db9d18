// Package audit writes security audit events as JSON lines.
//
// Every successful bearer token validation produces exactly one sec-kpi
// event (see SecurityKPIEvent). Certificate path authorizations and
// forwarded revocations are audited too. Events carry the trace and span id
// of the active OpenTelemetry span when there is one.
package audit

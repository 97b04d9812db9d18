// Package downstream calls the certificate generation and management
// services the gateway fronts.
//
// Each target sits behind its own gobreaker circuit breaker. Transport
// failures and 5xx answers count against the breaker; 4xx answers are relayed
// to the caller as *RestError and leave it closed. A rejected call returns
// ErrUnavailable.
package downstream

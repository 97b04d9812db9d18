// Package health provides liveness and readiness endpoints.
//
// Liveness only reports that the process serves HTTP. Readiness runs every
// registered dependency check with a shared timeout; a failing critical check
// makes the gateway unready, a failing non-critical one degrades it. A
// draining checker is unready regardless of its checks.
package health

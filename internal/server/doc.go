// Package server exposes the certificate gateway over HTTP with gin.
//
// The protected routes resolve the acting external id through the
// authorization decider before anything is forwarded downstream. Policy
// rejections render 403 with a wire code, downstream rejections are relayed
// with their status, and every other failure is a bare 500.
package server

// Package gateway implements the single-flight request gateway.
//
// Each Gateway issues at most one outstanding request; issuing a new one
// cancels the previous. Outcomes are a discriminated Result: timeouts and
// supersession come back as cancelled, genuine transport or application
// failures as errors with a readable message. The gateway never panics or
// raises to its caller for expected failure modes.
package gateway

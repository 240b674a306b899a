package metrics

import "time"

// GateAllowed records a passed gate.
func GateAllowed(gate string) {
	GateDecisions.WithLabelValues(gate, "allowed").Inc()
}

// GateDenied records a refusal by gate; reason is the limit or rule that fired.
func GateDenied(gate, reason string) {
	GateDecisions.WithLabelValues(gate, reason).Inc()
}

// EngineCompleted records a successful engine call.
func EngineCompleted(operation string, duration time.Duration) {
	EngineCallsTotal.WithLabelValues(operation, "success").Inc()
	EngineCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// EngineFailed records a failed engine call.
func EngineFailed(operation string, duration time.Duration) {
	EngineCallsTotal.WithLabelValues(operation, "error").Inc()
	EngineCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

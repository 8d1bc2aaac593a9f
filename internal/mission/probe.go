package mission

import (
	"context"

	"lunarmonkeys/internal/logging"
)

// HealthChecker is anything that can answer a reachability check.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ProbeResult is the outcome of a connectivity probe.
type ProbeResult struct {
	Success bool
	Err     error
}

// Probe performs a single reachability request. Failure is reported in the
// result, never as a panic or fatal error.
func Probe(ctx context.Context, hc HealthChecker) ProbeResult {
	timer := logging.StartTimer(logging.CategoryBoot, "Connectivity probe")

	logging.Boot("Starting backend connection test...")
	err := hc.Health(ctx)
	logging.Audit().Probe(err, timer.Stop())
	if err != nil {
		logging.BootWarn("Backend connection failed: %v", err)
		return ProbeResult{Success: false, Err: err}
	}
	logging.Boot("Backend connection successful")
	return ProbeResult{Success: true}
}

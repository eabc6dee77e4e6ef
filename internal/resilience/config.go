package resilience

import "github.com/sells-group/docextract/internal/config"

// FromConfig builds breaker settings from the application config.
func FromConfig(cfg config.ResilienceConfig) Config {
	return FromCircuitConfig(cfg.FailureThreshold, cfg.ResetTimeoutSecs)
}

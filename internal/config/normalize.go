package config

import (
	"fmt"
	"strings"
)

// normalize case-folds enumerations in place and returns human readable
// warnings for values it had to change. Unknown values are left for Validate.
func normalize(cfg *Config) []string {
	var warnings []string
	changed := func(field string, from, to any) {
		warnings = append(warnings, fmt.Sprintf("%s normalized from %v to %v", field, from, to))
	}

	if raw := string(cfg.Coordinator.Mode); raw != "" {
		if m := NormalizeCoordinatorMode(raw); m != "" && m != cfg.Coordinator.Mode {
			changed("coordinator.mode", raw, m)
			cfg.Coordinator.Mode = m
		}
	}
	if raw := string(cfg.Pricing.Transport); raw != "" {
		if tr := NormalizeTransport(raw); tr != "" && tr != cfg.Pricing.Transport {
			changed("pricing.transport", raw, tr)
			cfg.Pricing.Transport = tr
		}
	}
	if raw := string(cfg.Pricing.Retry.Mode); raw != "" {
		if m := NormalizeRetryBackoff(raw); m != "" && m != cfg.Pricing.Retry.Mode {
			changed("pricing.retry.mode", raw, m)
			cfg.Pricing.Retry.Mode = m
		}
	}
	cfg.Pricing.URL = strings.TrimRight(strings.TrimSpace(cfg.Pricing.URL), "/")
	return warnings
}

package aggregator

import (
	"github.com/miradorstack/mirador-thermal/internal/config"
	"github.com/miradorstack/mirador-thermal/internal/models"
)

const (
	actionFanUp = "Fan Speed Up"
	actionAuto  = "Auto"
)

// ThresholdPolicy classifies a temperature. Values strictly above Critical are
// critical, strictly above Warning are warnings, and strictly below CoolBelow
// (when positive) are cool.
type ThresholdPolicy struct {
	Name      string
	Warning   float64
	Critical  float64
	CoolBelow float64
}

// DefaultPolicy is the 70/80 policy used by the endpoints and summaries.
func DefaultPolicy() ThresholdPolicy {
	return ThresholdPolicy{Name: "default", Warning: 70, Critical: 80}
}

// TablePolicy is the 75/85 policy with a Cool band used by the device table.
func TablePolicy() ThresholdPolicy {
	return ThresholdPolicy{Name: "table", Warning: 75, Critical: 85, CoolBelow: 50}
}

// PolicyFromConfig builds a named policy from configuration.
func PolicyFromConfig(name string, cfg config.PolicyConfig) ThresholdPolicy {
	return ThresholdPolicy{Name: name, Warning: cfg.Warning, Critical: cfg.Critical, CoolBelow: cfg.CoolBelow}
}

// Classify maps v onto a status.
func (p ThresholdPolicy) Classify(v float64) models.Status {
	switch {
	case v > p.Critical:
		return models.StatusCritical
	case v > p.Warning:
		return models.StatusWarning
	case p.CoolBelow > 0 && v < p.CoolBelow:
		return models.StatusCool
	default:
		return models.StatusNormal
	}
}

// Action is the cooling action shown next to a device: fans up above the
// warning threshold.
func (p ThresholdPolicy) Action(v float64) string {
	if v > p.Warning {
		return actionFanUp
	}
	return actionAuto
}

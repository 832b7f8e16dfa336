// Package rules holds the deterministic decision layer: traffic signal
// policy and the per-track violation heuristics (wrong-way, speed,
// emergency-vehicle) evaluated over smoothed trajectories.
package rules

// Action is a traffic signal phase. The current rule set is single-approach
// and only ever produces green; additional phases are a policy change, not an
// engine change.
type Action string

const ActionGreen Action = "GREEN"

// Reasons attached to signal decisions.
const (
	ReasonEmergency   = "emergency corridor"
	ReasonHighDensity = "high density"
	ReasonLowDensity  = "low density"
	ReasonNormalFlow  = "normal flow"
)

// Decision is the per-frame signal output.
type Decision struct {
	Action   Action `json:"action"`
	Duration int    `json:"duration"`
	Reason   string `json:"reason"`
}

// SignalPolicy maps lane density and the emergency flag to a signal decision.
// Rules are evaluated in strict priority order; the first match wins.
type SignalPolicy struct {
	// StandardGreen is the default green duration in seconds.
	StandardGreen int
	// MinGreen is the green duration under low density.
	MinGreen int
	// MaxGreen caps extended green time and is the emergency duration.
	MaxGreen int
	// HighDensity is the exclusive lower bound for "heavy traffic".
	HighDensity int
	// LowDensity is the exclusive upper bound for "light traffic".
	LowDensity int
}

// DefaultSignalPolicy returns the standard rule parameters.
func DefaultSignalPolicy() SignalPolicy {
	return SignalPolicy{
		StandardGreen: 30,
		MinGreen:      10,
		MaxGreen:      60,
		HighDensity:   15,
		LowDensity:    5,
	}
}

// Decide evaluates the rules for one frame. It is a pure function of its
// inputs.
func (p SignalPolicy) Decide(density int, emergency bool) Decision {
	if emergency {
		return Decision{Action: ActionGreen, Duration: p.MaxGreen, Reason: ReasonEmergency}
	}
	if density > p.HighDensity {
		duration := p.StandardGreen + density*2
		if duration > p.MaxGreen {
			duration = p.MaxGreen
		}
		return Decision{Action: ActionGreen, Duration: duration, Reason: ReasonHighDensity}
	}
	if density < p.LowDensity {
		return Decision{Action: ActionGreen, Duration: p.MinGreen, Reason: ReasonLowDensity}
	}
	return Decision{Action: ActionGreen, Duration: p.StandardGreen, Reason: ReasonNormalFlow}
}

// Decide applies the default policy.
func Decide(density int, emergency bool) Decision {
	return DefaultSignalPolicy().Decide(density, emergency)
}

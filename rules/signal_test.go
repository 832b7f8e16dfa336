package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideRuleOrder(t *testing.T) {
	tests := []struct {
		name      string
		density   int
		emergency bool
		duration  int
		reason    string
	}{
		{"emergency wins over density", 20, true, 60, ReasonEmergency},
		{"emergency at zero density", 0, true, 60, ReasonEmergency},
		{"high density extends green", 20, false, 60, ReasonHighDensity},
		{"high density just above bound", 16, false, 60, ReasonHighDensity},
		{"low density minimal green", 2, false, 10, ReasonLowDensity},
		{"zero density minimal green", 0, false, 10, ReasonLowDensity},
		{"normal flow", 10, false, 30, ReasonNormalFlow},
		{"boundary density 5", 5, false, 30, ReasonNormalFlow},
		{"boundary density 15", 15, false, 30, ReasonNormalFlow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.density, tt.emergency)
			assert.Equal(t, ActionGreen, d.Action)
			assert.Equal(t, tt.duration, d.Duration)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestDecideHighDensityCap(t *testing.T) {
	// With the default parameters every density above the high bound
	// computes at least 30+16*2=62, so the cap always applies.
	d := Decide(100, false)
	assert.Equal(t, 60, d.Duration)

	// A raised cap lets the formula through.
	p := DefaultSignalPolicy()
	p.MaxGreen = 90
	assert.Equal(t, 62, p.Decide(16, false).Duration)
}

func TestDecideIsPure(t *testing.T) {
	p := DefaultSignalPolicy()
	first := p.Decide(8, false)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, p.Decide(8, false))
	}
}

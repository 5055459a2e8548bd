package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeDefaults(t *testing.T) {
	r := Recompute(DefaultWeights())
	assert.InDelta(t, 0.3, r.Need, 1e-9)
	assert.InDelta(t, 1.04, r.Opportunity, 1e-9)
	assert.InDelta(t, 1.34, r.Combined, 1e-9)
	assert.Equal(t, "Need: 0.30 • Opportunity: 1.04 • Combined: 1.34", r.Summary())
}

func TestRecompute(t *testing.T) {
	tests := []struct {
		name string
		w    Weights
		want Result
	}{
		{"empty", Weights{}, Result{}},
		{"last need", Weights{"economic_activity_score": {Need: 1}}, Result{Need: 0.7, Combined: 0.7}},
		{"negative opp", Weights{"population_score": {Opportunity: -1}}, Result{Opportunity: -0.08, Combined: -0.08}},
		{"unknown ignored", Weights{"rainfall": {Need: 1, Opportunity: 1}}, Result{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recompute(tt.w)
			assert.InDelta(t, tt.want.Need, got.Need, 1e-9)
			assert.InDelta(t, tt.want.Opportunity, got.Opportunity, 1e-9)
			assert.InDelta(t, tt.want.Combined, got.Combined, 1e-9)
		})
	}
}

func TestWeightsClone(t *testing.T) {
	w := DefaultWeights()
	c := w.Clone()
	c["population_score"] = Weight{}
	assert.Equal(t, 1.0, w["population_score"].Need)
	assert.Len(t, w, len(Indicators))
	assert.True(t, Known("climate_score"))
	assert.False(t, Known("rainfall"))
}

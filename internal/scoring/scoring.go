// Package scoring is the Need & Opportunity calculator.
//
// The model is a placeholder: each indicator's weights are scaled by a
// fixed coefficient proportional to its position in Indicators. It does
// not read grid values.
package scoring

import "fmt"

const (
	needStep        = 0.1
	opportunityStep = 0.08
)

// Indicator is one of the fixed PTI score columns.
type Indicator struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Indicators is the fixed, ordered indicator list.
var Indicators = []Indicator{
	{"population_score", "Population pressure"},
	{"displacement_score", "Displacement"},
	{"climate_score", "Climate exposure"},
	{"conflict_score", "Conflict"},
	{"food_nutrition_security_score", "Food & nutrition"},
	{"access_services_score", "Access to services"},
	{"economic_activity_score", "Economic activity"},
}

// Weight is the need and opportunity weight of one indicator.
type Weight struct {
	Need        float64 `json:"need" minimum:"-1" maximum:"1"`
	Opportunity float64 `json:"opp" minimum:"-1" maximum:"1"`
}

// Weights maps indicator id to its weight. Missing ids weigh zero.
type Weights map[string]Weight

// DefaultWeights is the starting weight table.
func DefaultWeights() Weights {
	w := make(Weights, len(Indicators))
	for _, ind := range Indicators {
		w[ind.ID] = Weight{}
	}
	w["population_score"] = Weight{Need: 1}
	w["displacement_score"] = Weight{Need: 1}
	w["access_services_score"] = Weight{Opportunity: 1}
	w["economic_activity_score"] = Weight{Opportunity: 1}
	return w
}

// Clone copies w.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Known reports whether id is one of Indicators.
func Known(id string) bool {
	for _, ind := range Indicators {
		if ind.ID == id {
			return true
		}
	}
	return false
}

// Result is the outcome of Recompute.
type Result struct {
	Need        float64 `json:"need"`
	Opportunity float64 `json:"opportunity"`
	Combined    float64 `json:"combined"`
}

// Recompute sums the weighted positional coefficients.
func Recompute(w Weights) Result {
	var r Result
	for i, ind := range Indicators {
		pos := float64(i + 1)
		r.Need += w[ind.ID].Need * needStep * pos
		r.Opportunity += w[ind.ID].Opportunity * opportunityStep * pos
	}
	r.Combined = r.Need + r.Opportunity
	return r
}

// Summary is the one-line score text.
func (r Result) Summary() string {
	return fmt.Sprintf("Need: %.2f • Opportunity: %.2f • Combined: %.2f", r.Need, r.Opportunity, r.Combined)
}

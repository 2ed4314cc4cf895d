// Package scoring computes the deterministic close-probability estimate and
// coaching urgency tier from already-extracted stage fields. Pure arithmetic,
// no model calls.
package scoring

import "github.com/MikeSquared-Agency/caliper/internal/archetype"

// Config carries the business constants behind the probability formula.
// They are tuned by the coaching team, so they live in a struct rather than
// as scattered literals.
type Config struct {
	// Blend weights, summing to 1.0.
	PerformanceWeight float64
	ReadinessWeight   float64
	InvestmentWeight  float64
	TrustWeight       float64

	// Behavioral readiness blends situational urgency with the emotional
	// state constant.
	UrgencyShare   float64
	EmotionalShare float64

	// Readiness constant per emotional-state label.
	Readiness        map[string]float64
	DefaultReadiness float64

	// Investment psychology constant per archetype.
	Investment        map[string]float64
	DefaultInvestment float64

	// Output clamp bounds. The estimate is probabilistic, never certain.
	FloorProbability float64
	CeilProbability  float64

	// Urgency tier thresholds over the final probability.
	UrgentThreshold   float64
	StandardThreshold float64
}

// DefaultConfig returns the production constants.
func DefaultConfig() Config {
	return Config{
		PerformanceWeight: 0.35,
		ReadinessWeight:   0.40,
		InvestmentWeight:  0.15,
		TrustWeight:       0.10,

		UrgencyShare:   0.6,
		EmotionalShare: 0.4,

		Readiness: map[string]float64{
			"desperate": 0.9,
			"hopeful":   0.8,
			"angry":     0.4,
		},
		DefaultReadiness: 0.7,

		Investment: map[string]float64{
			archetype.DesperateSaver:       0.85,
			archetype.HopefulBuilder:       0.75,
			archetype.AnalyticalResearcher: 0.65,
			archetype.ConsensusSeeker:      0.55,
			archetype.SkepticalEvaluator:   0.45,
		},
		DefaultInvestment: 0.60,

		FloorProbability: 0.10,
		CeilProbability:  0.95,

		UrgentThreshold:   0.75,
		StandardThreshold: 0.60,
	}
}

// Inputs are the extracted fields the formula consumes. Absent fields are
// defaulted by the caller before they get here (mid-range scores, neutral
// state) so the arithmetic never raises.
type Inputs struct {
	// CategoryScores are the six original framework category ratings,
	// each 0-10.
	CategoryScores []float64
	// UrgencyLevel is the situational urgency rating, 0-10.
	UrgencyLevel float64
	// EmotionalState is the categorical label from the coaching analysis.
	EmotionalState string
	// Archetype is the classified primary archetype name.
	Archetype string
	// ArchetypeConfidence is in [0,1].
	ArchetypeConfidence float64
}

// SuccessProbability computes the clamped close-probability estimate.
func (c Config) SuccessProbability(in Inputs) float64 {
	var total float64
	for _, s := range in.CategoryScores {
		total += s
	}
	maxTotal := float64(len(in.CategoryScores)) * 10
	performance := 0.0
	if maxTotal > 0 {
		performance = total / maxTotal
	}

	readiness, ok := c.Readiness[in.EmotionalState]
	if !ok {
		readiness = c.DefaultReadiness
	}
	behavioral := (in.UrgencyLevel/10)*c.UrgencyShare + readiness*c.EmotionalShare

	investment, ok := c.Investment[in.Archetype]
	if !ok {
		investment = c.DefaultInvestment
	}

	p := performance*c.PerformanceWeight +
		behavioral*c.ReadinessWeight +
		investment*c.InvestmentWeight +
		in.ArchetypeConfidence*c.TrustWeight

	return clamp(p, c.FloorProbability, c.CeilProbability)
}

// Urgency tiers.
const (
	TierUrgent   = "urgent"
	TierStandard = "standard"
	TierLow      = "low"
)

// Tier holds the urgency classification and its playbook.
type Tier struct {
	Level   string   `json:"level"`
	Actions []string `json:"recommended_actions"`
}

// Urgency maps a success probability onto a coaching urgency tier with a
// fixed list of recommended next actions.
func (c Config) Urgency(probability float64) Tier {
	switch {
	case probability >= c.UrgentThreshold:
		return Tier{
			Level: TierUrgent,
			Actions: []string{
				"Schedule follow-up call within 24 hours",
				"Send marriage assessment and program overview today",
				"Prepare payment link for the recommended package",
			},
		}
	case probability >= c.StandardThreshold:
		return Tier{
			Level: TierStandard,
			Actions: []string{
				"Schedule follow-up call within 3 days",
				"Send recap email with key discovery points",
				"Share relevant client success story",
			},
		}
	default:
		return Tier{
			Level: TierLow,
			Actions: []string{
				"Add to nurture sequence",
				"Send educational content on relationship repair",
				"Revisit in two weeks",
			},
		}
	}
}

// Grade maps a framework total onto a letter grade. max is the category
// count times ten.
func Grade(total, max float64) string {
	if max <= 0 {
		return "F"
	}
	switch ratio := total / max; {
	case ratio >= 0.90:
		return "A"
	case ratio >= 0.80:
		return "B"
	case ratio >= 0.65:
		return "C"
	case ratio >= 0.50:
		return "D"
	default:
		return "F"
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package scoring

import (
	"math"
	"testing"

	"github.com/MikeSquared-Agency/caliper/internal/archetype"
)

func TestSuccessProbability_KnownScenario(t *testing.T) {
	cfg := DefaultConfig()

	// 27/60 framework performance, mid urgency, neutral emotional state,
	// unknown archetype, mid confidence.
	in := Inputs{
		CategoryScores:      []float64{7, 5, 6, 4, 3, 2},
		UrgencyLevel:        5,
		EmotionalState:      "confused",
		Archetype:           "Mixed Profile",
		ArchetypeConfidence: 0.5,
	}

	// performance = 27/60 = 0.45
	// behavioral  = 0.5*0.6 + 0.7*0.4 = 0.58
	// p = 0.45*0.35 + 0.58*0.40 + 0.60*0.15 + 0.5*0.10 = 0.5295
	want := 0.5295
	got := cfg.SuccessProbability(in)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("probability = %v, want %v", got, want)
	}
}

func TestSuccessProbability_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	in := Inputs{
		CategoryScores:      []float64{8, 7, 9, 6, 7, 8},
		UrgencyLevel:        8,
		EmotionalState:      "desperate",
		Archetype:           archetype.DesperateSaver,
		ArchetypeConfidence: 0.85,
	}
	first := cfg.SuccessProbability(in)
	for i := 0; i < 50; i++ {
		if got := cfg.SuccessProbability(in); got != first {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
}

func TestSuccessProbability_ClampRange(t *testing.T) {
	cfg := DefaultConfig()

	extremes := []Inputs{
		{CategoryScores: []float64{0, 0, 0, 0, 0, 0}, UrgencyLevel: 0, EmotionalState: "angry", Archetype: archetype.SkepticalEvaluator},
		{CategoryScores: []float64{10, 10, 10, 10, 10, 10}, UrgencyLevel: 10, EmotionalState: "desperate", Archetype: archetype.DesperateSaver, ArchetypeConfidence: 1},
		{CategoryScores: nil, UrgencyLevel: 0},
		{CategoryScores: []float64{10, 10, 10, 10, 10, 10, 10}, UrgencyLevel: 10, EmotionalState: "desperate", Archetype: archetype.DesperateSaver, ArchetypeConfidence: 1},
	}
	for i, in := range extremes {
		got := cfg.SuccessProbability(in)
		if got < cfg.FloorProbability || got > cfg.CeilProbability {
			t.Errorf("extreme %d: probability %v outside [%v, %v]", i, got, cfg.FloorProbability, cfg.CeilProbability)
		}
	}
}

func TestSuccessProbability_CeilingClamped(t *testing.T) {
	cfg := DefaultConfig()
	in := Inputs{
		CategoryScores:      []float64{10, 10, 10, 10, 10, 10},
		UrgencyLevel:        10,
		EmotionalState:      "desperate",
		Archetype:           archetype.DesperateSaver,
		ArchetypeConfidence: 1.0,
	}
	if got := cfg.SuccessProbability(in); got != cfg.CeilProbability {
		t.Errorf("maxed inputs should clamp to ceiling %v, got %v", cfg.CeilProbability, got)
	}
}

func TestSuccessProbability_UnknownLabelsDefault(t *testing.T) {
	cfg := DefaultConfig()
	base := Inputs{
		CategoryScores: []float64{5, 5, 5, 5, 5, 5},
		UrgencyLevel:   5,
	}

	unknown := base
	unknown.EmotionalState = "bewildered"
	unknown.Archetype = "Moon Walker"

	neutral := base
	neutral.EmotionalState = "neutral"
	neutral.Archetype = "Mixed Profile"

	if cfg.SuccessProbability(unknown) != cfg.SuccessProbability(neutral) {
		t.Error("unrecognized labels should score as the defaults")
	}
}

func TestUrgency_Tiers(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		p    float64
		want string
	}{
		{0.95, TierUrgent},
		{0.75, TierUrgent},
		{0.74, TierStandard},
		{0.60, TierStandard},
		{0.59, TierLow},
		{0.10, TierLow},
	}
	for _, tt := range tests {
		got := cfg.Urgency(tt.p)
		if got.Level != tt.want {
			t.Errorf("Urgency(%v) = %q, want %q", tt.p, got.Level, tt.want)
		}
		if len(got.Actions) == 0 {
			t.Errorf("Urgency(%v) has no recommended actions", tt.p)
		}
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		total float64
		max   float64
		want  string
	}{
		{56, 60, "A"},
		{50, 60, "B"},
		{40, 60, "C"},
		{30, 60, "D"},
		{27, 60, "F"},
		{63, 70, "A"},
		{0, 0, "F"},
	}
	for _, tt := range tests {
		if got := Grade(tt.total, tt.max); got != tt.want {
			t.Errorf("Grade(%v, %v) = %q, want %q", tt.total, tt.max, got, tt.want)
		}
	}
}

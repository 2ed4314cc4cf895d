package archetype

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			"desperate saver",
			"She filed the divorce papers last week. This is my last chance, I'm desperate.",
			DesperateSaver,
		},
		{
			"analytical researcher",
			"What's your success rate? Do you have data or research backing the methodology?",
			AnalyticalResearcher,
		},
		{
			"skeptical evaluator",
			"Honestly this sounds too good to be true. Is there a guarantee or a refund? We tried before and it didn't work.",
			SkepticalEvaluator,
		},
		{
			"consensus seeker",
			"I'd have to ask my wife. Both of us would need to agree, we decide together.",
			ConsensusSeeker,
		},
		{
			"hopeful builder",
			"We just want to grow together and build a stronger marriage. I have hope for our future.",
			HopefulBuilder,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got.Primary != tt.want {
				t.Errorf("primary = %q, want %q (scores %v)", got.Primary, tt.want, got.Scores)
			}
			if got.Confidence != FallbackConfidence {
				t.Errorf("confidence = %v, want %v", got.Confidence, FallbackConfidence)
			}
			if got.Secondary == got.Primary {
				t.Errorf("secondary %q must differ from primary", got.Secondary)
			}
		})
	}
}

func TestClassify_NoSignalDefaults(t *testing.T) {
	got := Classify("The weather was fine. They discussed scheduling.")
	if got.Primary != HopefulBuilder {
		t.Errorf("zero-hit transcript should default to %q, got %q", HopefulBuilder, got.Primary)
	}
	if got.Confidence != FallbackConfidence {
		t.Errorf("confidence = %v", got.Confidence)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "divorce papers, last chance, how does it work, success rate"
	a := Classify(text)
	for i := 0; i < 20; i++ {
		b := Classify(text)
		if b.Primary != a.Primary || b.Secondary != a.Secondary {
			t.Fatalf("classification not deterministic: %+v vs %+v", a, b)
		}
	}
}

func TestJourney_NeverEmpty(t *testing.T) {
	for _, text := range []string{"", "short", "nothing emotional about scheduling a meeting at noon"} {
		phases := Journey(text)
		if len(phases) == 0 {
			t.Fatalf("journey for %q must not be empty", text)
		}
		for _, p := range phases {
			if p.State == "" || p.Intensity <= 0 {
				t.Errorf("phase %+v missing state or intensity", p)
			}
		}
	}
}

func TestJourney_DetectsArc(t *testing.T) {
	opening := strings.Repeat("I'm so worried and scared about where this is going. ", 5)
	middle := strings.Repeat("Talking it through, the situation and the background and the history. ", 5)
	closing := strings.Repeat("Actually I'm ready to commit, let's do it, sign me up. ", 5)

	phases := Journey(opening + middle + closing)
	if len(phases) != 3 {
		t.Fatalf("expected 3 phases, got %d", len(phases))
	}
	if phases[0].State != "anxious" {
		t.Errorf("opening state = %q, want anxious", phases[0].State)
	}
	if phases[2].State != "motivated" {
		t.Errorf("closing state = %q, want motivated", phases[2].State)
	}
}

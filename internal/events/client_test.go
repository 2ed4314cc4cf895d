package events

import (
	"testing"
	"time"

	"github.com/MikeSquared-Agency/caliper/internal/extract"
	"github.com/MikeSquared-Agency/caliper/internal/pipeline"
	"github.com/MikeSquared-Agency/caliper/internal/scoring"
	"github.com/MikeSquared-Agency/caliper/internal/stage"
)

func TestBuildEvent(t *testing.T) {
	report := &pipeline.Report{
		ID:                "r-123",
		Filename:          "call.txt",
		AnalysisTimestamp: time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC),
		Stages: map[string]pipeline.StageResult{
			stage.OutcomeDetection: {Payload: extract.Payload{"call_outcome": "won"}},
			stage.ArchetypeAnalysis: {
				Payload:  extract.Payload{"primary_archetype": "Consensus Seeker"},
				Fallback: true,
			},
			stage.EmotionalJourney: {Fallback: true},
		},
		SuccessProbability: 0.66,
		CoachingUrgency:    scoring.Tier{Level: scoring.TierStandard},
	}

	ev := buildEvent(report)
	if ev.ReportID != "r-123" || ev.Filename != "call.txt" {
		t.Errorf("identity fields wrong: %+v", ev)
	}
	if ev.CallOutcome != "won" {
		t.Errorf("call_outcome = %q", ev.CallOutcome)
	}
	if ev.PrimaryArchetype != "Consensus Seeker" {
		t.Errorf("primary_archetype = %q", ev.PrimaryArchetype)
	}
	if ev.FallbackStages != 2 {
		t.Errorf("fallback_stages = %d, want 2", ev.FallbackStages)
	}
	if ev.CoachingUrgency != scoring.TierStandard {
		t.Errorf("coaching_urgency = %q", ev.CoachingUrgency)
	}
	if ev.AnalyzedAt != "2026-08-12T09:00:00Z" {
		t.Errorf("analyzed_at = %q", ev.AnalyzedAt)
	}
}

func TestBuildEvent_DegradedReportDefaults(t *testing.T) {
	report := &pipeline.Report{
		ID:              "r-456",
		Stages:          map[string]pipeline.StageResult{},
		CoachingUrgency: scoring.Tier{Level: scoring.TierLow},
	}
	ev := buildEvent(report)
	if ev.CallOutcome != "undetermined" {
		t.Errorf("call_outcome = %q, want undetermined", ev.CallOutcome)
	}
	if ev.PrimaryArchetype != "Mixed Profile" {
		t.Errorf("primary_archetype = %q, want Mixed Profile", ev.PrimaryArchetype)
	}
}

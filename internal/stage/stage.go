// Package stage declares the analysis stages as data: each stage carries its
// prompt builder, required-field contract and fallback payload. One generic
// runner in the pipeline package executes them all uniformly.
package stage

import (
	"github.com/MikeSquared-Agency/caliper/internal/archetype"
	"github.com/MikeSquared-Agency/caliper/internal/config"
	"github.com/MikeSquared-Agency/caliper/internal/extract"
)

// Stage names, used as report keys.
const (
	OutcomeDetection  = "outcome_detection"
	Discovery         = "discovery_analysis"
	SalesFramework    = "sales_framework_analysis"
	PsychProfile      = "psychological_profile"
	CoachingAnalysis  = "marriage_coaching_analysis"
	EmotionalJourney  = "emotional_journey"
	ArchetypeAnalysis = "archetype_analysis"
	TalkTrack         = "talk_track_improvements"
)

// Context is everything a stage may draw on when building its prompt or
// fallback: the normalized transcript, the package catalog, and the resolved
// payloads of the stages it depends on.
type Context struct {
	Transcript string
	Catalog    []config.Package
	Prior      map[string]extract.Payload
}

// Stage is one declarative analysis step.
type Stage struct {
	Name      string
	MaxTokens int
	// DependsOn lists stage names whose payloads must be resolved before
	// this stage's prompt is built. Stages with no dependencies fan out
	// concurrently.
	DependsOn []string
	// Required is the dotted-path field contract a model response must
	// satisfy to be accepted as non-fallback.
	Required []string
	Prompt   func(Context) string
	// Fallback builds a schema-conformant payload when the model path
	// fails. Most stages return a static shape; the journey and archetype
	// stages run deterministic heuristics over the transcript instead.
	Fallback func(Context) extract.Payload
}

// All returns the stage graph in declaration order. Execution order is
// driven by DependsOn, not slice position.
func All() []Stage {
	return []Stage{
		{
			Name:      OutcomeDetection,
			MaxTokens: 1500,
			Required:  []string{"call_outcome"},
			Prompt:    outcomePrompt,
			Fallback:  outcomeFallback,
		},
		{
			Name:      Discovery,
			MaxTokens: 2000,
			Required:  []string{"discovery_completion_percentage", "discovery_depth_score"},
			Prompt:    discoveryPrompt,
			Fallback:  discoveryFallback,
		},
		{
			Name:      SalesFramework,
			MaxTokens: 3500,
			DependsOn: []string{Discovery},
			Required: []string{
				"framework_scores.call_control.score",
				"framework_scores.discovery_depth.score",
				"framework_scores.empathetic_confrontation.score",
				"framework_scores.objection_handling.score",
				"framework_scores.value_positioning.score",
				"framework_scores.closing_strength.score",
				"framework_scores.relationship_dynamics_education.score",
				"total_score",
				"overall_grade",
			},
			Prompt:   frameworkPrompt,
			Fallback: frameworkFallback,
		},
		{
			Name:      PsychProfile,
			MaxTokens: 2500,
			Required: []string{
				"big_five_personality.openness.score",
				"decision_making_style.primary_style",
				"emotional_state.primary_emotion",
			},
			Prompt:   psychPrompt,
			Fallback: psychFallback,
		},
		{
			Name:      CoachingAnalysis,
			MaxTokens: 3000,
			Required: []string{
				"marriage_situation_assessment.urgency_level",
				"marriage_situation_assessment.emotional_state",
			},
			Prompt:   coachingPrompt,
			Fallback: coachingFallback,
		},
		{
			Name:      EmotionalJourney,
			MaxTokens: 2000,
			Required:  []string{"emotional_journey_phases"},
			Prompt:    journeyPrompt,
			Fallback:  journeyFallback,
		},
		{
			Name:      ArchetypeAnalysis,
			MaxTokens: 1500,
			DependsOn: []string{PsychProfile, EmotionalJourney},
			Required:  []string{"primary_archetype", "confidence_score"},
			Prompt:    archetypePrompt,
			Fallback:  archetypeFallback,
		},
		{
			Name:      TalkTrack,
			MaxTokens: 4000,
			DependsOn: []string{SalesFramework, CoachingAnalysis},
			Required:  []string{"talk_track_analysis", "script_drilling_priorities"},
			Prompt:    talkTrackPrompt,
			Fallback:  talkTrackFallback,
		},
	}
}

// FrameworkCategories are the seven rated categories of the sales framework
// stage, in report order. The first six feed the deterministic scorer.
var FrameworkCategories = []string{
	"call_control",
	"discovery_depth",
	"empathetic_confrontation",
	"objection_handling",
	"value_positioning",
	"closing_strength",
	"relationship_dynamics_education",
}

// ScoredCategories is the subset of FrameworkCategories the success
// probability formula sums over.
var ScoredCategories = FrameworkCategories[:6]

func journeyFallback(c Context) extract.Payload {
	phases := archetype.Journey(c.Transcript)
	out := make([]any, 0, len(phases))
	dominant := "neutral"
	best := -1.0
	for _, p := range phases {
		out = append(out, map[string]any{
			"phase":           p.Phase,
			"emotional_state": p.State,
			"intensity":       p.Intensity,
			"trigger":         p.Indicator,
		})
		if p.State != "neutral" && p.Intensity > best {
			best = p.Intensity
			dominant = p.State
		}
	}
	return extract.Payload{
		"emotional_journey_phases": out,
		"emotional_patterns":       map[string]any{"dominant_emotion": dominant},
		"emotional_coaching_strategy": map[string]any{
			"next_call_emotional_approach": "empathetic discovery",
		},
	}
}

func archetypeFallback(c Context) extract.Payload {
	r := archetype.Classify(c.Transcript)
	return extract.Payload{
		"primary_archetype":   r.Primary,
		"secondary_archetype": r.Secondary,
		"confidence_score":    r.Confidence,
		"archetype_evidence": map[string]any{
			"supporting_quotes":     []any{},
			"behavioral_indicators": []any{},
		},
	}
}

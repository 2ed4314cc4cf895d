package stage

import "github.com/MikeSquared-Agency/caliper/internal/extract"

// Static fallback payloads. Built fresh per call so callers can annotate
// their copy without aliasing.

func outcomeFallback(Context) extract.Payload {
	return extract.Payload{
		"call_outcome":       "undetermined",
		"package_discussed":  "none",
		"purchase_confirmed": false,
		"price_discussed":    false,
		"outcome_evidence": map[string]any{
			"supporting_quotes": []any{},
			"timestamps":        []any{},
		},
		"next_steps_agreed": "none",
	}
}

func discoveryFallback(Context) extract.Payload {
	questions := map[string]any{}
	for _, q := range []string{
		"how_long_married",
		"what_changed_recently",
		"tried_counseling_before",
		"spouse_awareness_of_call",
		"cost_of_divorce_explored",
		"ideal_marriage_vision",
	} {
		questions[q] = map[string]any{"asked": false, "timestamp": ""}
	}
	return extract.Payload{
		"pitch_transition":                map[string]any{"detected": false, "timestamp": "", "transition_quote": ""},
		"required_questions":              questions,
		"discovery_completion_percentage": float64(0),
		"discovery_depth_score":           float64(5),
		"missing_questions":               []any{},
	}
}

func frameworkFallback(Context) extract.Payload {
	scores := map[string]any{}
	for _, cat := range FrameworkCategories {
		scores[cat] = map[string]any{
			"score":    float64(5),
			"analysis": "analysis unavailable",
		}
	}
	return extract.Payload{
		"framework_scores": scores,
		"total_score":      float64(35),
		"overall_grade":    "C",
	}
}

func psychFallback(Context) extract.Payload {
	traits := map[string]any{}
	for _, t := range []string{"openness", "conscientiousness", "extraversion", "agreeableness", "neuroticism"} {
		traits[t] = map[string]any{
			"score":        float64(50),
			"confidence":   float64(50),
			"implications": "analysis unavailable",
		}
	}
	return extract.Payload{
		"big_five_personality":  traits,
		"decision_making_style": map[string]any{"primary_style": "mixed", "confidence": float64(50)},
		"emotional_state": map[string]any{
			"primary_emotion": "neutral",
			"intensity":       float64(5),
			"stability":       float64(5),
		},
		"communication_preferences": map[string]any{
			"directness":   float64(5),
			"detail_level": "medium",
			"pace":         "moderate",
		},
	}
}

func coachingFallback(Context) extract.Payload {
	return extract.Payload{
		"marriage_situation_assessment": map[string]any{
			"relationship_status": "unclear",
			"urgency_level":       float64(5),
			"emotional_state":     "confused",
			"core_problems":       []any{},
		},
		"marriage_coaching_elements": map[string]any{
			"listening_with_intent": map[string]any{
				"information_gathering_score": float64(5),
				"information_callback_score":  float64(5),
			},
			"empathy_vs_confrontation_balance": map[string]any{
				"empathy_score":       float64(5),
				"confrontation_score": float64(5),
			},
			"value_vs_price_analysis": map[string]any{
				"marriage_value_positioning": map[string]any{"score": float64(5)},
			},
			"marriage_analogies_effectiveness": map[string]any{
				"analogies_used": map[string]any{},
			},
		},
		"critical_triggers": map[string]any{
			"immediate_coaching_required": false,
			"trigger_patterns":            []any{},
		},
	}
}

func talkTrackFallback(Context) extract.Payload {
	return extract.Payload{
		"talk_track_analysis": map[string]any{
			"opening_improvements": map[string]any{
				"current_opening_effectiveness": float64(5),
				"improved_opening_script":       "analysis unavailable",
				"hook_recommendations":          []any{},
			},
			"discovery_talk_track": map[string]any{
				"strong_questions_asked":     []any{},
				"missing_critical_questions": []any{},
			},
			"objection_handling_scripts": map[string]any{
				"price_objection_improvements": map[string]any{"common_price_objections": []any{}},
				"spouse_objection_handling":    map[string]any{"wife_resistance_concerns": []any{}},
			},
			"closing_improvements": map[string]any{"recommended_closing_scripts": []any{}},
		},
		"script_drilling_priorities": map[string]any{
			"top_3_scripts_to_master":        []any{},
			"daily_practice_recommendations": "analysis unavailable",
		},
		"role_play_scenarios": []any{},
	}
}

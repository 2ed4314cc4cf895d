package stage

import (
	"encoding/json"
	"fmt"
	"strings"
)

// priorJSON renders a dependency's payload for prompt inclusion. A missing
// dependency renders as an empty object; prompts tolerate that.
func priorJSON(c Context, name string) string {
	p, ok := c.Prior[name]
	if !ok {
		return "{}"
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func catalogLines(c Context) string {
	var sb strings.Builder
	for _, pkg := range c.Catalog {
		fmt.Fprintf(&sb, "- %s ($%.0f): %s\n", pkg.Name, pkg.Price, pkg.Description)
	}
	return sb.String()
}

func outcomePrompt(c Context) string {
	return fmt.Sprintf(`You are analyzing a marriage coaching sales call to determine its outcome.

PACKAGES OFFERED:
%s
TRANSCRIPT:
%s

Classify the call outcome and identify which package was discussed or purchased.

Respond with ONLY this JSON object:
{
  "call_outcome": "won|lost|undetermined",
  "package_discussed": "exact package name or none",
  "purchase_confirmed": true/false,
  "price_discussed": true/false,
  "outcome_evidence": {
    "supporting_quotes": ["exact quotes indicating the outcome"],
    "timestamps": ["[MM:SS] markers where the outcome became clear"]
  },
  "next_steps_agreed": "what was agreed at the end of the call, or none"
}`, catalogLines(c), c.Transcript)
}

func discoveryPrompt(c Context) string {
	return fmt.Sprintf(`You are auditing the discovery phase of a marriage coaching sales call.

TRANSCRIPT:
%s

Identify the transition from discovery into the pitch, then check whether each
required discovery question was asked.

Respond with ONLY this JSON object:
{
  "pitch_transition": { "detected": true/false, "timestamp": "[MM:SS]", "transition_quote": "exact quote" },
  "required_questions": {
    "how_long_married": { "asked": true/false, "timestamp": "[MM:SS]" },
    "what_changed_recently": { "asked": true/false, "timestamp": "[MM:SS]" },
    "tried_counseling_before": { "asked": true/false, "timestamp": "[MM:SS]" },
    "spouse_awareness_of_call": { "asked": true/false, "timestamp": "[MM:SS]" },
    "cost_of_divorce_explored": { "asked": true/false, "timestamp": "[MM:SS]" },
    "ideal_marriage_vision": { "asked": true/false, "timestamp": "[MM:SS]" }
  },
  "discovery_completion_percentage": 0-100,
  "discovery_depth_score": 1-10,
  "missing_questions": ["questions that should have been asked"]
}`, c.Transcript)
}

func frameworkPrompt(c Context) string {
	return fmt.Sprintf(`You are a sales manager scoring this marriage coaching call against the seven-category framework.

DISCOVERY AUDIT (prior analysis):
%s

TRANSCRIPT:
%s

Score each category 1-10 with specific quotes.

Respond with ONLY this JSON object:
{
  "framework_scores": {
    "call_control": { "score": 1-10, "analysis": "...", "what_worked": [], "what_needed_improvement": [], "coaching_fix": "..." },
    "discovery_depth": { "score": 1-10, "analysis": "...", "what_worked": [], "what_needed_improvement": [], "coaching_fix": "..." },
    "empathetic_confrontation": { "score": 1-10, "analysis": "...", "what_worked": [], "what_needed_improvement": [], "coaching_fix": "..." },
    "objection_handling": { "score": 1-10, "analysis": "...", "objections_encountered": [], "coaching_fix": "..." },
    "value_positioning": { "score": 1-10, "analysis": "...", "what_worked": [], "what_needed_improvement": [], "coaching_fix": "..." },
    "closing_strength": { "score": 1-10, "analysis": "...", "what_worked": [], "what_needed_improvement": [], "coaching_fix": "..." },
    "relationship_dynamics_education": { "score": 1-10, "analysis": "how well the rep educated on relationship dynamics", "coaching_fix": "..." }
  },
  "total_score": "sum of all 7 scores out of 70",
  "overall_grade": "A|B|C|D|F"
}`, priorJSON(c, Discovery), c.Transcript)
}

func psychPrompt(c Context) string {
	return fmt.Sprintf(`Analyze this marriage coaching prospect's psychological profile using Big Five personality traits.

TRANSCRIPT:
%s

Respond with ONLY this JSON object:
{
  "big_five_personality": {
    "openness": { "score": 1-100, "confidence": 1-100, "implications": "..." },
    "conscientiousness": { "score": 1-100, "confidence": 1-100, "implications": "..." },
    "extraversion": { "score": 1-100, "confidence": 1-100, "implications": "..." },
    "agreeableness": { "score": 1-100, "confidence": 1-100, "implications": "..." },
    "neuroticism": { "score": 1-100, "confidence": 1-100, "implications": "..." }
  },
  "decision_making_style": { "primary_style": "analytical|emotional|intuitive|consensus", "confidence": 1-100, "time_preference": "immediate|days|weeks|months", "information_needs": "minimal|moderate|extensive" },
  "emotional_state": { "primary_emotion": "hopeful|anxious|skeptical|desperate|calm", "intensity": 1-10, "stability": 1-10 },
  "communication_preferences": { "directness": 1-10, "detail_level": "high|medium|low", "pace": "fast|moderate|slow" }
}`, c.Transcript)
}

func coachingPrompt(c Context) string {
	return fmt.Sprintf(`Analyze this marriage coaching sales call for coaching-specific technique and situation.

TRANSCRIPT:
%s

Respond with ONLY this JSON object:
{
  "marriage_situation_assessment": {
    "relationship_status": "together|separated|divorcing|unclear",
    "urgency_level": 1-10,
    "emotional_state": "desperate|hopeful|angry|resigned|confused",
    "core_problems": ["specific marriage problems mentioned"]
  },
  "marriage_coaching_elements": {
    "listening_with_intent": { "information_gathering_score": 1-10, "information_callback_score": 1-10 },
    "empathy_vs_confrontation_balance": { "empathy_score": 1-10, "confrontation_score": 1-10, "balance_assessment": "..." },
    "value_vs_price_analysis": { "marriage_value_positioning": { "score": 1-10, "effective_framing": [] } },
    "marriage_analogies_effectiveness": { "analogies_used": {} }
  },
  "critical_triggers": {
    "immediate_coaching_required": true/false,
    "trigger_patterns": [{ "pattern": "failure pattern observed", "severity": "low|medium|high|emergency", "evidence": "quote" }]
  }
}`, c.Transcript)
}

func journeyPrompt(c Context) string {
	return fmt.Sprintf(`Map the prospect's emotional journey through this marriage coaching sales call.

TRANSCRIPT:
%s

Respond with ONLY this JSON object:
{
  "emotional_journey_phases": [
    { "phase": "opening|discovery|presentation|objection_handling|closing", "emotional_state": "...", "intensity": 1-10, "trigger": "what caused this state" }
  ],
  "emotional_patterns": { "dominant_emotion": "...", "volatility": 1-10 },
  "emotional_coaching_strategy": { "next_call_emotional_approach": "..." }
}`, c.Transcript)
}

func archetypePrompt(c Context) string {
	return fmt.Sprintf(`Classify this marriage coaching prospect into exactly one primary archetype.

ARCHETYPES:
- Analytical Researcher: wants data, methodology, proof of process
- Desperate Saver: facing imminent separation or divorce, high urgency
- Hopeful Builder: stable situation, wants growth and a stronger marriage
- Skeptical Evaluator: doubts effectiveness, needs guarantees and testimonials
- Consensus Seeker: will not decide without the spouse's agreement

PSYCHOLOGICAL PROFILE (prior analysis):
%s

EMOTIONAL JOURNEY (prior analysis):
%s

TRANSCRIPT:
%s

Respond with ONLY this JSON object:
{
  "primary_archetype": "exact archetype name",
  "secondary_archetype": "exact archetype name",
  "confidence_score": 0.0-1.0,
  "archetype_evidence": { "supporting_quotes": [], "behavioral_indicators": [] },
  "pre_call_validation": { "recommended_questions": [], "archetype_accuracy_prediction": 1-10 }
}`, priorJSON(c, PsychProfile), priorJSON(c, EmotionalJourney), c.Transcript)
}

func talkTrackPrompt(c Context) string {
	return fmt.Sprintf(`You are building talk-track improvements for a marriage coaching sales rep based on this call.

FRAMEWORK SCORES (prior analysis):
%s

COACHING ANALYSIS (prior analysis):
%s

TRANSCRIPT:
%s

Respond with ONLY this JSON object:
{
  "talk_track_analysis": {
    "opening_improvements": { "current_opening_effectiveness": 1-10, "improved_opening_script": "...", "hook_recommendations": [] },
    "discovery_talk_track": { "strong_questions_asked": [], "missing_critical_questions": [] },
    "objection_handling_scripts": {
      "price_objection_improvements": { "common_price_objections": [], "improved_responses": [] },
      "spouse_objection_handling": { "wife_resistance_concerns": [], "improved_responses": [] }
    },
    "closing_improvements": { "recommended_closing_scripts": [] }
  },
  "script_drilling_priorities": {
    "top_3_scripts_to_master": ["script 1", "script 2", "script 3"],
    "daily_practice_recommendations": "..."
  },
  "role_play_scenarios": ["scenario 1", "scenario 2", "scenario 3"]
}`, priorJSON(c, SalesFramework), priorJSON(c, CoachingAnalysis), c.Transcript)
}

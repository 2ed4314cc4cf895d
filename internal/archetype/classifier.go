package archetype

import (
	"sort"
	"strings"
)

// The five prospect archetypes. Classification normally comes from the
// model; this package is the deterministic fallback that keeps the pipeline
// terminating with some signal when the model path fails.
const (
	AnalyticalResearcher = "Analytical Researcher"
	DesperateSaver       = "Desperate Saver"
	HopefulBuilder       = "Hopeful Builder"
	SkepticalEvaluator   = "Skeptical Evaluator"
	ConsensusSeeker      = "Consensus Seeker"
)

// FallbackConfidence is deliberately conservative: keyword hits are a coarse
// signal, not a calibrated estimate.
const FallbackConfidence = 0.4

// defaultArchetype is assigned on an all-zero keyword tie.
const defaultArchetype = HopefulBuilder

var triggers = map[string][]string{
	AnalyticalResearcher: {
		"success rate", "statistics", "data", "research", "methodology",
		"how does it work", "evidence", "studies", "numbers",
	},
	DesperateSaver: {
		"divorce", "separated", "last chance", "desperate", "moving out",
		"papers", "can't lose", "running out of time", "final straw",
	},
	HopefulBuilder: {
		"grow together", "get better", "improve", "our future", "build",
		"stronger", "hope", "work on us", "next chapter",
	},
	SkepticalEvaluator: {
		"scam", "guarantee", "proof", "refund", "testimonial",
		"too good to be true", "tried before", "didn't work", "skeptical",
	},
	ConsensusSeeker: {
		"my wife thinks", "ask my wife", "talk to her first", "her opinion",
		"both of us", "we decide together", "she would need", "run it by",
	},
}

// Result is a fallback classification.
type Result struct {
	Primary    string
	Secondary  string
	Confidence float64
	Scores     map[string]int
}

// Classify scans the lower-cased transcript for each archetype's trigger
// phrases and picks the highest hit count. Never fails.
func Classify(text string) Result {
	lower := strings.ToLower(text)

	scores := make(map[string]int, len(triggers))
	for name, phrases := range triggers {
		for _, phrase := range phrases {
			scores[name] += strings.Count(lower, phrase)
		}
	}

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	// Sort by score descending, name ascending for a deterministic order.
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})

	primary := names[0]
	secondary := names[1]
	if scores[primary] == 0 {
		primary = defaultArchetype
		secondary = DesperateSaver
	}

	return Result{
		Primary:    primary,
		Secondary:  secondary,
		Confidence: FallbackConfidence,
		Scores:     scores,
	}
}

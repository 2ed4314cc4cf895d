package archetype

import "strings"

// Phase is one leg of a prospect's emotional arc through a call.
type Phase struct {
	Phase     string  `json:"phase"`
	State     string  `json:"emotional_state"`
	Intensity float64 `json:"intensity"`
	Indicator string  `json:"indicator"`
}

var emotionCues = []struct {
	state     string
	intensity float64
	words     []string
}{
	{"desperate", 9, []string{"desperate", "last chance", "begging", "can't lose"}},
	{"angry", 7, []string{"angry", "furious", "fed up", "sick of"}},
	{"anxious", 6, []string{"worried", "anxious", "scared", "afraid"}},
	{"skeptical", 5, []string{"skeptical", "doubt", "not sure this works", "scam"}},
	{"resigned", 4, []string{"given up", "whatever", "doesn't matter anymore", "too late"}},
	{"hopeful", 6, []string{"hope", "excited", "looking forward", "better"}},
	{"motivated", 7, []string{"ready to", "let's do it", "sign me up", "committed"}},
}

// Journey builds a coarse emotional arc from keyword cues, one phase per
// third of the call. Segments with no cue read as neutral, so the result is
// never empty regardless of input.
func Journey(text string) []Phase {
	segments := splitThirds(text)
	labels := []string{"opening", "middle", "closing"}

	phases := make([]Phase, 0, len(segments))
	for i, seg := range segments {
		state, intensity, indicator := dominantEmotion(seg)
		phases = append(phases, Phase{
			Phase:     labels[i],
			State:     state,
			Intensity: intensity,
			Indicator: indicator,
		})
	}
	return phases
}

func splitThirds(text string) []string {
	words := strings.Fields(text)
	if len(words) < 3 {
		return []string{text, "", ""}
	}
	third := len(words) / 3
	return []string{
		strings.Join(words[:third], " "),
		strings.Join(words[third:2*third], " "),
		strings.Join(words[2*third:], " "),
	}
}

func dominantEmotion(segment string) (state string, intensity float64, indicator string) {
	lower := strings.ToLower(segment)

	best := -1
	state, intensity, indicator = "neutral", 5, ""
	for _, cue := range emotionCues {
		hits := 0
		first := ""
		for _, w := range cue.words {
			if n := strings.Count(lower, w); n > 0 {
				hits += n
				if first == "" {
					first = w
				}
			}
		}
		if hits > best && hits > 0 {
			best = hits
			state, intensity, indicator = cue.state, cue.intensity, first
		}
	}
	return state, intensity, indicator
}

package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/MikeSquared-Agency/caliper/internal/anthropic"
	"github.com/MikeSquared-Agency/caliper/internal/config"
	"github.com/MikeSquared-Agency/caliper/internal/stage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCompleter routes each stage to a canned response or error.
type fakeCompleter struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func (f *fakeCompleter) Complete(_ context.Context, _ string, _ []anthropic.Message, _ int, stageName string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, stageName)
	f.mu.Unlock()

	if err, ok := f.failures[stageName]; ok {
		return "", err
	}
	if resp, ok := f.responses[stageName]; ok {
		return resp, nil
	}
	return "", errors.New("no canned response")
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var longTranscript = strings.Repeat("Rep: Tell me what changed at home recently. Prospect: She moved out. ", 10)

// goodResponses satisfies every stage's required-field contract.
func goodResponses() map[string]string {
	scores := `{`
	for i, cat := range stage.FrameworkCategories {
		if i > 0 {
			scores += ","
		}
		scores += `"` + cat + `": {"score": 7, "analysis": "fine"}`
	}
	scores += `}`

	return map[string]string{
		stage.OutcomeDetection: `{"call_outcome": "won", "package_discussed": "Marriage Intensive"}`,
		stage.Discovery:        `{"discovery_completion_percentage": 83, "discovery_depth_score": 8}`,
		stage.SalesFramework:   `{"framework_scores": ` + scores + `, "total_score": 49, "overall_grade": "B"}`,
		stage.PsychProfile: `{"big_five_personality": {"openness": {"score": 70}},
			"decision_making_style": {"primary_style": "analytical"},
			"emotional_state": {"primary_emotion": "anxious"}}`,
		stage.CoachingAnalysis: `{"marriage_situation_assessment": {"urgency_level": 8, "emotional_state": "desperate"}}`,
		stage.EmotionalJourney: `{"emotional_journey_phases": [{"phase": "opening", "emotional_state": "anxious", "intensity": 6}]}`,
		stage.ArchetypeAnalysis: `{"primary_archetype": "Desperate Saver", "secondary_archetype": "Hopeful Builder",
			"confidence_score": 0.85}`,
		stage.TalkTrack: `{"talk_track_analysis": {"opening_improvements": {}}, "script_drilling_priorities": {}}`,
	}
}

func newTestPipeline(c Completer) *Pipeline {
	return New(c, config.DefaultCatalog(), discardLogger())
}

func TestAnalyze_AllStagesPresent(t *testing.T) {
	fake := &fakeCompleter{responses: goodResponses()}
	report, err := newTestPipeline(fake).Analyze(context.Background(), Input{Content: longTranscript})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Status != "success" {
		t.Errorf("status = %q", report.Status)
	}
	if len(report.Stages) != 8 {
		t.Fatalf("expected 8 stage results, got %d", len(report.Stages))
	}
	for _, s := range stage.All() {
		res, ok := report.Stages[s.Name]
		if !ok {
			t.Errorf("stage %q missing from report", s.Name)
			continue
		}
		if res.Fallback {
			t.Errorf("stage %q unexpectedly fell back", s.Name)
		}
	}
	if report.SuccessProbability < 0.10 || report.SuccessProbability > 0.95 {
		t.Errorf("probability %v outside clamp range", report.SuccessProbability)
	}
	if report.CoachingUrgency.Level == "" {
		t.Error("urgency tier not assigned")
	}
	if report.ID == "" {
		t.Error("report ID not assigned")
	}
	if report.WordCount == 0 {
		t.Error("word count not derived")
	}
}

func TestAnalyze_AllStagesFallBackOnTotalOutage(t *testing.T) {
	fake := &fakeCompleter{} // every stage errors
	report, err := newTestPipeline(fake).Analyze(context.Background(), Input{Content: longTranscript})
	if err != nil {
		t.Fatalf("total upstream outage must still produce a report, got %v", err)
	}
	if report.Status != "success" {
		t.Errorf("status = %q, want success even when degraded", report.Status)
	}
	if len(report.Stages) != 8 {
		t.Fatalf("expected 8 stage results, got %d", len(report.Stages))
	}
	for name, res := range report.Stages {
		if !res.Fallback {
			t.Errorf("stage %q should be marked fallback", name)
		}
		if len(res.Payload) == 0 {
			t.Errorf("stage %q fallback payload is empty", name)
		}
	}
}

func TestAnalyze_SingleStageFallbackIsolated(t *testing.T) {
	fake := &fakeCompleter{
		responses: goodResponses(),
		failures:  map[string]error{stage.SalesFramework: errors.New("upstream down")},
	}
	report, err := newTestPipeline(fake).Analyze(context.Background(), Input{Content: longTranscript})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := report.Stages[stage.SalesFramework]
	if !res.Fallback {
		t.Fatal("framework stage should be marked fallback")
	}
	want := stage.All()[2].Fallback(stage.Context{Transcript: longTranscript})
	if !reflect.DeepEqual(res.Payload, want) {
		t.Errorf("fallback payload diverges from static shape:\ngot  %v\nwant %v", res.Payload, want)
	}
	for name, other := range report.Stages {
		if name != stage.SalesFramework && other.Fallback {
			t.Errorf("stage %q should be unaffected", name)
		}
	}
}

func TestAnalyze_MalformedResponseFallsBack(t *testing.T) {
	responses := goodResponses()
	responses[stage.ArchetypeAnalysis] = "I am unable to classify this prospect."
	fake := &fakeCompleter{responses: responses}

	report, err := newTestPipeline(fake).Analyze(context.Background(), Input{Content: longTranscript})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := report.Stages[stage.ArchetypeAnalysis]
	if !res.Fallback {
		t.Fatal("archetype stage should fall back on malformed output")
	}
	// The archetype fallback is the deterministic classifier, not a static
	// default, so it still carries a primary archetype.
	if res.Payload["primary_archetype"] == "" {
		t.Error("classifier fallback should still name an archetype")
	}
	if res.Payload["confidence_score"] != 0.4 {
		t.Errorf("classifier fallback confidence = %v", res.Payload["confidence_score"])
	}
}

func TestAnalyze_TooShortRejectedBeforeUpstream(t *testing.T) {
	fake := &fakeCompleter{responses: goodResponses()}
	short := strings.Repeat("x", 99)

	_, err := newTestPipeline(fake).Analyze(context.Background(), Input{Content: short})
	if !errors.Is(err, ErrTranscriptTooShort) {
		t.Fatalf("expected ErrTranscriptTooShort, got %v", err)
	}
	if fake.callCount() != 0 {
		t.Errorf("no upstream call should be attempted, saw %d", fake.callCount())
	}
}

func TestAnalyze_PaddedShortInputRejected(t *testing.T) {
	fake := &fakeCompleter{responses: goodResponses()}
	padded := "  " + strings.Repeat("y", 99) + "  \n"
	if _, err := newTestPipeline(fake).Analyze(context.Background(), Input{Content: padded}); !errors.Is(err, ErrTranscriptTooShort) {
		t.Fatalf("whitespace must not count toward the minimum, got %v", err)
	}
}

func TestAnalyze_DeterministicScore(t *testing.T) {
	fake := &fakeCompleter{responses: goodResponses()}
	p := newTestPipeline(fake)

	first, err := p.Analyze(context.Background(), Input{Content: longTranscript})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := p.Analyze(context.Background(), Input{Content: longTranscript})
		if err != nil {
			t.Fatal(err)
		}
		if again.SuccessProbability != first.SuccessProbability {
			t.Fatalf("run %d: probability %v != %v", i, again.SuccessProbability, first.SuccessProbability)
		}
		if again.CoachingUrgency.Level != first.CoachingUrgency.Level {
			t.Fatalf("run %d: urgency diverged", i)
		}
	}
}

func TestAnalyze_DependentStageSeesPriorOutput(t *testing.T) {
	var sawDiscovery atomic.Bool
	responses := goodResponses()
	fake := &checkingCompleter{
		fakeCompleter: fakeCompleter{responses: responses},
		onCall: func(stageName string, messages []anthropic.Message) {
			if stageName == stage.SalesFramework &&
				strings.Contains(messages[0].Content, "discovery_completion_percentage") {
				sawDiscovery.Store(true)
			}
		},
	}

	if _, err := newTestPipeline(fake).Analyze(context.Background(), Input{Content: longTranscript}); err != nil {
		t.Fatal(err)
	}
	if !sawDiscovery.Load() {
		t.Error("framework prompt should embed the resolved discovery payload")
	}
}

type checkingCompleter struct {
	fakeCompleter
	onCall func(stageName string, messages []anthropic.Message)
}

func (c *checkingCompleter) Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int, stageName string) (string, error) {
	c.onCall(stageName, messages)
	return c.fakeCompleter.Complete(ctx, system, messages, maxTokens, stageName)
}

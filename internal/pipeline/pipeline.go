// Package pipeline orchestrates the staged analysis of one sales-call
// transcript: fan-out of independent stages, dependency-ordered execution of
// the rest, per-stage fallback isolation and final report assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/caliper/internal/anthropic"
	"github.com/MikeSquared-Agency/caliper/internal/config"
	"github.com/MikeSquared-Agency/caliper/internal/extract"
	"github.com/MikeSquared-Agency/caliper/internal/scoring"
	"github.com/MikeSquared-Agency/caliper/internal/stage"
	"github.com/MikeSquared-Agency/caliper/internal/transcript"
)

// MinTranscriptChars is the precondition floor: anything shorter after
// trimming cannot support a meaningful analysis and is rejected before any
// upstream call.
const MinTranscriptChars = 100

// ErrTranscriptTooShort rejects input below MinTranscriptChars.
var ErrTranscriptTooShort = fmt.Errorf("transcript content must be at least %d characters", MinTranscriptChars)

const systemPrompt = "You are an expert marriage coaching sales analyst. " +
	"You respond with a single well-formed JSON object and nothing else."

// Completer is the single seam to the upstream model.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int, stage string) (string, error)
}

// Input is one transcript submitted for analysis.
type Input struct {
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`

	ClientName string `json:"client_name,omitempty"`
	RepName    string `json:"rep_name,omitempty"`
	MeetingID  string `json:"meeting_id,omitempty"`
	CallDate   string `json:"call_date,omitempty"`
}

// StageResult pairs a stage payload with its provenance.
type StageResult struct {
	Payload  extract.Payload `json:"payload"`
	Fallback bool            `json:"fallback"`
}

// Report is the terminal aggregate of one analysis invocation.
type Report struct {
	ID                 string                 `json:"report_id"`
	Filename           string                 `json:"filename,omitempty"`
	ClientName         string                 `json:"client_name,omitempty"`
	RepName            string                 `json:"rep_name,omitempty"`
	MeetingID          string                 `json:"meeting_id,omitempty"`
	CallDate           string                 `json:"call_date,omitempty"`
	AnalysisTimestamp  time.Time              `json:"analysis_timestamp"`
	Status             string                 `json:"status"`
	WordCount          int                    `json:"word_count"`
	WasTimestamped     bool                   `json:"was_timestamped"`
	Stages             map[string]StageResult `json:"stages"`
	SuccessProbability float64                `json:"success_probability"`
	CoachingUrgency    scoring.Tier           `json:"coaching_urgency"`
}

// Pipeline runs the full stage graph for one transcript at a time. Safe for
// concurrent use across invocations; no state is shared between runs.
type Pipeline struct {
	completer Completer
	catalog   []config.Package
	scorer    scoring.Config
	stages    []stage.Stage
	logger    *slog.Logger
}

func New(completer Completer, catalog []config.Package, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		completer: completer,
		catalog:   catalog,
		scorer:    scoring.DefaultConfig(),
		stages:    stage.All(),
		logger:    logger,
	}
}

// SetScorer overrides the scoring constants.
func (p *Pipeline) SetScorer(cfg scoring.Config) { p.scorer = cfg }

// Analyze runs every stage against the input and assembles the report. After
// the precondition checks pass, it always returns a success-status report;
// stage failures degrade content, never abort.
func (p *Pipeline) Analyze(ctx context.Context, in Input) (*Report, error) {
	trimmed := strings.TrimSpace(in.Content)
	if len(trimmed) < MinTranscriptChars {
		return nil, ErrTranscriptTooShort
	}

	text, wasTimestamped := transcript.Normalize(trimmed)

	results := p.runStages(ctx, text)

	report := &Report{
		ID:                uuid.NewString(),
		Filename:          in.Filename,
		ClientName:        in.ClientName,
		RepName:           in.RepName,
		MeetingID:         in.MeetingID,
		CallDate:          in.CallDate,
		AnalysisTimestamp: time.Now().UTC(),
		Status:            "success",
		WordCount:         len(strings.Fields(text)),
		WasTimestamped:    wasTimestamped,
		Stages:            results,
	}

	report.SuccessProbability = p.scorer.SuccessProbability(scoreInputs(results))
	report.CoachingUrgency = p.scorer.Urgency(report.SuccessProbability)

	return report, nil
}

// runStages executes the graph: stages whose dependencies are all resolved
// run concurrently; each completion may unblock further stages. Every stage
// resolves exactly once, as model output or fallback.
func (p *Pipeline) runStages(ctx context.Context, text string) map[string]StageResult {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]StageResult, len(p.stages))
	)

	pending := make([]stage.Stage, len(p.stages))
	copy(pending, p.stages)

	var schedule func()
	schedule = func() {
		mu.Lock()
		defer mu.Unlock()

		remaining := pending[:0]
		for _, s := range pending {
			if ready(s, results) {
				wg.Add(1)
				go func(s stage.Stage) {
					defer wg.Done()
					res := p.runStage(ctx, s, text, snapshot(&mu, results, s.DependsOn))
					mu.Lock()
					results[s.Name] = res
					mu.Unlock()
					schedule()
				}(s)
			} else {
				remaining = append(remaining, s)
			}
		}
		pending = remaining
	}

	schedule()
	wg.Wait()
	return results
}

func ready(s stage.Stage, resolved map[string]StageResult) bool {
	for _, dep := range s.DependsOn {
		if _, ok := resolved[dep]; !ok {
			return false
		}
	}
	return true
}

// snapshot copies the dependency payloads a stage is allowed to see. Taken
// under the lock so a later stage never observes a torn result.
func snapshot(mu *sync.Mutex, results map[string]StageResult, deps []string) map[string]extract.Payload {
	mu.Lock()
	defer mu.Unlock()

	prior := make(map[string]extract.Payload, len(deps))
	for _, dep := range deps {
		if r, ok := results[dep]; ok {
			prior[dep] = r.Payload
		}
	}
	return prior
}

func (p *Pipeline) runStage(ctx context.Context, s stage.Stage, text string, prior map[string]extract.Payload) StageResult {
	sc := stage.Context{Transcript: text, Catalog: p.catalog, Prior: prior}

	raw, err := p.completer.Complete(ctx, systemPrompt, []anthropic.Message{
		{Role: "user", Content: s.Prompt(sc)},
	}, s.MaxTokens, s.Name)
	if err != nil {
		p.logger.Warn("stage falling back after upstream failure",
			"stage", s.Name, "error", err)
		return StageResult{Payload: s.Fallback(sc), Fallback: true}
	}

	payload, err := extract.Parse(raw, s.Required)
	if err != nil {
		if errors.Is(err, extract.ErrMalformedResponse) {
			p.logger.Warn("stage falling back after extraction failure",
				"stage", s.Name, "error", err, "raw", raw)
		} else {
			p.logger.Warn("stage falling back", "stage", s.Name, "error", err)
		}
		return StageResult{Payload: s.Fallback(sc), Fallback: true}
	}

	return StageResult{Payload: payload}
}

// scoreInputs pulls the scorer's fields out of the resolved stages,
// defaulting mid-range where a field is absent so the arithmetic never
// raises.
func scoreInputs(results map[string]StageResult) scoring.Inputs {
	framework := results[stage.SalesFramework].Payload
	coaching := results[stage.CoachingAnalysis].Payload
	arch := results[stage.ArchetypeAnalysis].Payload

	scores := make([]float64, 0, len(stage.ScoredCategories))
	for _, cat := range stage.ScoredCategories {
		scores = append(scores, extract.Number(framework, "framework_scores."+cat+".score", 5))
	}

	return scoring.Inputs{
		CategoryScores:      scores,
		UrgencyLevel:        extract.Number(coaching, "marriage_situation_assessment.urgency_level", 5),
		EmotionalState:      extract.String(coaching, "marriage_situation_assessment.emotional_state", "confused"),
		Archetype:           extract.String(arch, "primary_archetype", "Mixed Profile"),
		ArchetypeConfidence: extract.Number(arch, "confidence_score", 0.5),
	}
}

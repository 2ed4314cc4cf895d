// Package events publishes analysis lifecycle signals to NATS so downstream
// coaching tooling can react without polling the store.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MikeSquared-Agency/caliper/internal/extract"
	"github.com/MikeSquared-Agency/caliper/internal/pipeline"
	"github.com/MikeSquared-Agency/caliper/internal/stage"
)

// SubjectAnalysisCompleted carries one AnalysisCompletedEvent per finished
// transcript.
const SubjectAnalysisCompleted = "coach.caliper.analysis.completed"

// AnalysisCompletedEvent is the summary emitted after each analysis. The
// full report stays in the store; the bus gets the routing fields only.
type AnalysisCompletedEvent struct {
	ReportID           string  `json:"report_id"`
	Filename           string  `json:"filename,omitempty"`
	ClientName         string  `json:"client_name,omitempty"`
	CallOutcome        string  `json:"call_outcome"`
	PrimaryArchetype   string  `json:"primary_archetype"`
	SuccessProbability float64 `json:"success_probability"`
	CoachingUrgency    string  `json:"coaching_urgency"`
	FallbackStages     int     `json:"fallback_stages"`
	AnalyzedAt         string  `json:"analyzed_at"`
}

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

// AnalysisCompleted publishes the completion event for one report.
func (c *Client) AnalysisCompleted(_ context.Context, report *pipeline.Report) error {
	ev := buildEvent(report)
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := c.conn.Publish(SubjectAnalysisCompleted, payload); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectAnalysisCompleted, err)
	}
	c.logger.Info("analysis event published", "report_id", report.ID, "urgency", ev.CoachingUrgency)
	return nil
}

func buildEvent(report *pipeline.Report) AnalysisCompletedEvent {
	fallbacks := 0
	for _, res := range report.Stages {
		if res.Fallback {
			fallbacks++
		}
	}

	return AnalysisCompletedEvent{
		ReportID:           report.ID,
		Filename:           report.Filename,
		ClientName:         report.ClientName,
		CallOutcome:        extract.String(report.Stages[stage.OutcomeDetection].Payload, "call_outcome", "undetermined"),
		PrimaryArchetype:   extract.String(report.Stages[stage.ArchetypeAnalysis].Payload, "primary_archetype", "Mixed Profile"),
		SuccessProbability: report.SuccessProbability,
		CoachingUrgency:    report.CoachingUrgency.Level,
		FallbackStages:     fallbacks,
		AnalyzedAt:         report.AnalysisTimestamp.Format(time.RFC3339),
	}
}

// Register announces the service on the bus at startup.
func (c *Client) Register(port int) error {
	payload, err := json.Marshal(map[string]any{
		"service":   "caliper",
		"port":      port,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}
	return c.conn.Publish("coach.caliper.registered", payload)
}

func (c *Client) Close() {
	c.conn.Close()
}

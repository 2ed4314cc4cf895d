// Package notify posts urgent-call alerts to Slack so a coach can act on a
// hot prospect before the follow-up window closes.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/caliper/internal/extract"
	"github.com/MikeSquared-Agency/caliper/internal/pipeline"
	"github.com/MikeSquared-Agency/caliper/internal/stage"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// SetAPIURL points the poster at a test server.
func (p *Poster) SetAPIURL(url string) {
	p.apiURL = url
}

// UrgentAnalysis posts an alert for a report classified as urgent.
func (p *Poster) UrgentAnalysis(ctx context.Context, report *pipeline.Report) error {
	text := formatUrgentMessage(report)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted urgent alert to slack", "ts", slackResp.TS, "report_id", report.ID)
	return nil
}

func formatUrgentMessage(report *pipeline.Report) string {
	outcome := extract.String(report.Stages[stage.OutcomeDetection].Payload, "call_outcome", "undetermined")
	arch := extract.String(report.Stages[stage.ArchetypeAnalysis].Payload, "primary_archetype", "Mixed Profile")

	var sb strings.Builder
	sb.WriteString("*Urgent coaching follow-up*\n")
	if report.ClientName != "" {
		fmt.Fprintf(&sb, "Client: %s\n", report.ClientName)
	}
	if report.Filename != "" {
		fmt.Fprintf(&sb, "Transcript: %s\n", report.Filename)
	}
	fmt.Fprintf(&sb, "Outcome: %s | Archetype: %s\n", outcome, arch)
	fmt.Fprintf(&sb, "Close probability: %.0f%%\n", report.SuccessProbability*100)
	if len(report.CoachingUrgency.Actions) > 0 {
		sb.WriteString("Next actions:\n")
		for _, a := range report.CoachingUrgency.Actions {
			fmt.Fprintf(&sb, "• %s\n", a)
		}
	}
	return sb.String()
}

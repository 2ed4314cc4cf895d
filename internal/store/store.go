// Package store persists completed analyses to Postgres: one row per
// transcript filename, holding denormalized summary columns for querying
// plus the full report as JSONB.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/caliper/internal/extract"
	"github.com/MikeSquared-Agency/caliper/internal/pipeline"
	"github.com/MikeSquared-Agency/caliper/internal/stage"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the analyses table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL UNIQUE,
			client_name TEXT,
			rep_name TEXT,
			call_outcome TEXT,
			primary_archetype TEXT,
			success_probability DOUBLE PRECISION,
			coaching_urgency TEXT,
			word_count INTEGER,
			fallback_stages INTEGER,
			analyzed_at TIMESTAMPTZ NOT NULL,
			report JSONB NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create analyses table: %w", err)
	}
	return nil
}

// Row is one persisted analysis summary plus its full report.
type Row struct {
	ID                 uuid.UUID
	Filename           string
	ClientName         string
	RepName            string
	CallOutcome        string
	PrimaryArchetype   string
	SuccessProbability float64
	CoachingUrgency    string
	WordCount          int
	FallbackStages     int
	AnalyzedAt         time.Time
	Report             json.RawMessage
}

// UpsertAnalysis writes one completed report keyed by filename; re-analyzing
// the same file replaces the previous row.
func (s *Store) UpsertAnalysis(ctx context.Context, report *pipeline.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	outcome := extract.String(report.Stages[stage.OutcomeDetection].Payload, "call_outcome", "undetermined")
	arch := extract.String(report.Stages[stage.ArchetypeAnalysis].Payload, "primary_archetype", "Mixed Profile")
	fallbacks := 0
	for _, res := range report.Stages {
		if res.Fallback {
			fallbacks++
		}
	}

	id, err := uuid.Parse(report.ID)
	if err != nil {
		id = uuid.New()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO analyses (id, filename, client_name, rep_name, call_outcome, primary_archetype,
			success_probability, coaching_urgency, word_count, fallback_stages, analyzed_at, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (filename) DO UPDATE SET
			id = EXCLUDED.id,
			client_name = EXCLUDED.client_name,
			rep_name = EXCLUDED.rep_name,
			call_outcome = EXCLUDED.call_outcome,
			primary_archetype = EXCLUDED.primary_archetype,
			success_probability = EXCLUDED.success_probability,
			coaching_urgency = EXCLUDED.coaching_urgency,
			word_count = EXCLUDED.word_count,
			fallback_stages = EXCLUDED.fallback_stages,
			analyzed_at = EXCLUDED.analyzed_at,
			report = EXCLUDED.report`,
		id, report.Filename, report.ClientName, report.RepName,
		outcome, arch, report.SuccessProbability, report.CoachingUrgency.Level,
		report.WordCount, fallbacks, report.AnalysisTimestamp, raw,
	)
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	return nil
}

// GetAnalysis fetches one analysis by filename.
func (s *Store) GetAnalysis(ctx context.Context, filename string) (*Row, error) {
	var r Row
	err := s.pool.QueryRow(ctx, `
		SELECT id, filename, client_name, rep_name, call_outcome, primary_archetype,
			success_probability, coaching_urgency, word_count, fallback_stages, analyzed_at, report
		FROM analyses WHERE filename = $1`, filename,
	).Scan(&r.ID, &r.Filename, &r.ClientName, &r.RepName, &r.CallOutcome, &r.PrimaryArchetype,
		&r.SuccessProbability, &r.CoachingUrgency, &r.WordCount, &r.FallbackStages, &r.AnalyzedAt, &r.Report)
	if err != nil {
		return nil, fmt.Errorf("get analysis %q: %w", filename, err)
	}
	return &r, nil
}

// ListAnalyses returns every persisted analysis, most recent first.
func (s *Store) ListAnalyses(ctx context.Context) ([]Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, client_name, rep_name, call_outcome, primary_archetype,
			success_probability, coaching_urgency, word_count, fallback_stages, analyzed_at, report
		FROM analyses ORDER BY analyzed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Filename, &r.ClientName, &r.RepName, &r.CallOutcome,
			&r.PrimaryArchetype, &r.SuccessProbability, &r.CoachingUrgency, &r.WordCount,
			&r.FallbackStages, &r.AnalyzedAt, &r.Report); err != nil {
			return nil, fmt.Errorf("scan analysis row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analyses: %w", err)
	}
	return out, nil
}

// CountByUrgency returns the number of stored analyses per urgency tier.
func (s *Store) CountByUrgency(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT coaching_urgency, count(*) FROM analyses GROUP BY coaching_urgency`)
	if err != nil {
		return nil, fmt.Errorf("count by urgency: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var tier string
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("scan urgency count: %w", err)
		}
		out[tier] = n
	}
	return out, rows.Err()
}

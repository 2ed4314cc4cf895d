// Package batch analyzes a directory of transcript files through the full
// pipeline, persisting one row per file and exporting the accumulated
// results at the end.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/caliper/internal/export"
	"github.com/MikeSquared-Agency/caliper/internal/pipeline"
	"github.com/MikeSquared-Agency/caliper/internal/store"
)

// Config holds the batch command configuration.
type Config struct {
	Dir       string
	BatchSize int
	// Pause between transcript groups. A throttle for the upstream rate
	// limit, not a correctness requirement.
	Pause     time.Duration
	ExportDir string
}

// Runner drives the batch analysis.
type Runner struct {
	cfg      Config
	pipeline *pipeline.Pipeline
	store    *store.Store
	logger   *slog.Logger
}

func NewRunner(cfg Config, p *pipeline.Pipeline, s *store.Store, logger *slog.Logger) *Runner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Runner{cfg: cfg, pipeline: p, store: s, logger: logger}
}

// Summary reports what a batch run did.
type Summary struct {
	Processed int
	Failed    int
	Exported  []string
}

// Run analyzes every transcript file in the configured directory in bounded
// groups, then exports the accumulated store.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	files, err := r.discoverFiles()
	if err != nil {
		return nil, fmt.Errorf("discover transcripts: %w", err)
	}
	r.logger.Info("transcripts discovered", "dir", r.cfg.Dir, "count", len(files))

	summary := &Summary{}
	for start := 0; start < len(files); start += r.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		end := start + r.cfg.BatchSize
		if end > len(files) {
			end = len(files)
		}
		group := files[start:end]
		r.logger.Info("processing group", "from", start, "size", len(group))

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, path := range group {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				err := r.processFile(ctx, path)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					summary.Failed++
					r.logger.Error("transcript failed", "file", path, "error", err)
					return
				}
				summary.Processed++
			}(path)
		}
		wg.Wait()

		if end < len(files) && r.cfg.Pause > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(r.cfg.Pause):
			}
		}
	}

	if r.store != nil {
		rows, err := r.store.ListAnalyses(ctx)
		if err != nil {
			return summary, fmt.Errorf("list analyses for export: %w", err)
		}
		paths, err := export.New(r.cfg.ExportDir).All(rows)
		if err != nil {
			return summary, fmt.Errorf("export results: %w", err)
		}
		summary.Exported = paths
		r.logger.Info("results exported", "artifacts", len(paths))
	}

	return summary, nil
}

// discoverFiles lists analyzable transcripts in sorted order.
func (r *Runner) discoverFiles() ([]string, error) {
	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".vtt":
			files = append(files, filepath.Join(r.cfg.Dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (r *Runner) processFile(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	report, err := r.pipeline.Analyze(ctx, pipeline.Input{
		Content:  string(content),
		Filename: filepath.Base(path),
	})
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	r.logger.Info("transcript analyzed",
		"file", filepath.Base(path),
		"probability", report.SuccessProbability,
		"urgency", report.CoachingUrgency.Level,
	)

	if r.store != nil {
		if err := r.store.UpsertAnalysis(ctx, report); err != nil {
			return fmt.Errorf("persist analysis: %w", err)
		}
	}
	return nil
}

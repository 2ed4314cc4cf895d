// Package export flattens stored analyses into shareable artifacts: CSV and
// JSON for spreadsheets and downstream tooling, a Markdown executive summary
// with aggregate statistics, and a formatted XLSX workbook.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/caliper/internal/store"
)

type Exporter struct {
	dir string
}

func New(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// All writes every artifact and returns the written paths.
func (e *Exporter) All(rows []store.Row) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var paths []string
	for _, w := range []struct {
		name  string
		write func([]store.Row, string) error
	}{
		{"analysis_results.csv", e.writeCSV},
		{"analysis_results.json", e.writeJSON},
		{"analysis_summary.md", e.writeMarkdown},
		{"analysis_results.xlsx", e.writeXLSX},
	} {
		path := filepath.Join(e.dir, w.name)
		if err := w.write(rows, path); err != nil {
			return paths, fmt.Errorf("export %s: %w", w.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

var csvHeader = []string{
	"filename", "client_name", "rep_name", "call_outcome", "primary_archetype",
	"success_probability", "coaching_urgency", "word_count", "fallback_stages", "analyzed_at",
}

func rowCells(r store.Row) []string {
	return []string{
		r.Filename, r.ClientName, r.RepName, r.CallOutcome, r.PrimaryArchetype,
		strconv.FormatFloat(r.SuccessProbability, 'f', 3, 64),
		r.CoachingUrgency,
		strconv.Itoa(r.WordCount),
		strconv.Itoa(r.FallbackStages),
		r.AnalyzedAt.Format("2006-01-02 15:04:05"),
	}
}

func (e *Exporter) writeCSV(rows []store.Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(rowCells(r)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (e *Exporter) writeJSON(rows []store.Row, path string) error {
	type entry struct {
		Filename           string          `json:"filename"`
		ClientName         string          `json:"client_name,omitempty"`
		RepName            string          `json:"rep_name,omitempty"`
		CallOutcome        string          `json:"call_outcome"`
		PrimaryArchetype   string          `json:"primary_archetype"`
		SuccessProbability float64         `json:"success_probability"`
		CoachingUrgency    string          `json:"coaching_urgency"`
		WordCount          int             `json:"word_count"`
		FallbackStages     int             `json:"fallback_stages"`
		AnalyzedAt         string          `json:"analyzed_at"`
		Report             json.RawMessage `json:"report"`
	}

	entries := make([]entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, entry{
			Filename:           r.Filename,
			ClientName:         r.ClientName,
			RepName:            r.RepName,
			CallOutcome:        r.CallOutcome,
			PrimaryArchetype:   r.PrimaryArchetype,
			SuccessProbability: r.SuccessProbability,
			CoachingUrgency:    r.CoachingUrgency,
			WordCount:          r.WordCount,
			FallbackStages:     r.FallbackStages,
			AnalyzedAt:         r.AnalyzedAt.Format("2006-01-02T15:04:05Z07:00"),
			Report:             r.Report,
		})
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func (e *Exporter) writeMarkdown(rows []store.Row, path string) error {
	var sb strings.Builder
	sb.WriteString("# Sales Call Analysis Summary\n\n")
	fmt.Fprintf(&sb, "Analyzed calls: **%d**\n\n", len(rows))

	if len(rows) > 0 {
		var totalProb float64
		archetypes := map[string]int{}
		urgency := map[string]int{}
		outcomes := map[string]int{}
		for _, r := range rows {
			totalProb += r.SuccessProbability
			archetypes[r.PrimaryArchetype]++
			urgency[r.CoachingUrgency]++
			outcomes[r.CallOutcome]++
		}
		fmt.Fprintf(&sb, "Average success probability: **%.1f%%**\n\n", totalProb/float64(len(rows))*100)

		sb.WriteString("## Call Outcomes\n\n")
		writeCounts(&sb, outcomes)

		sb.WriteString("## Archetype Distribution\n\n")
		writeCounts(&sb, archetypes)

		sb.WriteString("## Coaching Urgency\n\n")
		writeCounts(&sb, urgency)

		ranked := make([]store.Row, len(rows))
		copy(ranked, rows)
		sort.Slice(ranked, func(i, j int) bool {
			return ranked[i].SuccessProbability > ranked[j].SuccessProbability
		})

		n := len(ranked)
		top := n
		if top > 3 {
			top = 3
		}
		sb.WriteString("## Top Performers\n\n")
		for _, r := range ranked[:top] {
			fmt.Fprintf(&sb, "- %s: %.1f%% (%s)\n", r.Filename, r.SuccessProbability*100, r.CoachingUrgency)
		}
		sb.WriteString("\n## Needs Attention\n\n")
		for _, r := range ranked[n-top:] {
			fmt.Fprintf(&sb, "- %s: %.1f%% (%s)\n", r.Filename, r.SuccessProbability*100, r.CoachingUrgency)
		}
	}

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

func writeCounts(sb *strings.Builder, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := k
		if label == "" {
			label = "(unknown)"
		}
		fmt.Fprintf(sb, "- %s: %d\n", label, counts[k])
	}
	sb.WriteString("\n")
}

func (e *Exporter) writeXLSX(rows []store.Row, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Analyses"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	for col, h := range csvHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for i, r := range rows {
		for col, v := range rowCells(r) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return f.SaveAs(path)
}

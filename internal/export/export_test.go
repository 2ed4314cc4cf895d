package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/caliper/internal/store"
)

func sampleRows() []store.Row {
	at := time.Date(2026, 8, 12, 10, 30, 0, 0, time.UTC)
	return []store.Row{
		{
			Filename:           "call_smith.txt",
			ClientName:         "John Smith",
			CallOutcome:        "won",
			PrimaryArchetype:   "Desperate Saver",
			SuccessProbability: 0.81,
			CoachingUrgency:    "urgent",
			WordCount:          4200,
			AnalyzedAt:         at,
			Report:             json.RawMessage(`{"status":"success"}`),
		},
		{
			Filename:           "call_jones.txt",
			CallOutcome:        "lost",
			PrimaryArchetype:   "Skeptical Evaluator",
			SuccessProbability: 0.32,
			CoachingUrgency:    "low",
			WordCount:          3100,
			AnalyzedAt:         at,
			Report:             json.RawMessage(`{"status":"success"}`),
		},
		{
			Filename:           "call_lee.txt",
			CallOutcome:        "undetermined",
			PrimaryArchetype:   "Hopeful Builder",
			SuccessProbability: 0.65,
			CoachingUrgency:    "standard",
			WordCount:          3800,
			AnalyzedAt:         at,
			Report:             json.RawMessage(`{"status":"success"}`),
		},
	}
}

func TestAll_WritesEveryArtifact(t *testing.T) {
	dir := t.TempDir()
	paths, err := New(dir).All(sampleRows())
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("expected 4 artifacts, got %d", len(paths))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact %s not written: %v", p, err)
		}
	}
}

func TestCSV_HeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir).All(sampleRows()); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "analysis_results.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header + 3 rows, got %d records", len(records))
	}
	if records[0][0] != "filename" || records[0][5] != "success_probability" {
		t.Errorf("unexpected header: %v", records[0])
	}
	if records[1][0] != "call_smith.txt" || records[1][5] != "0.810" {
		t.Errorf("unexpected first row: %v", records[1])
	}
}

func TestJSON_CarriesFullReport(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir).All(sampleRows()); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "analysis_results.json"))
	if err != nil {
		t.Fatal(err)
	}
	var entries []map[string]any
	if err := json.Unmarshal(b, &entries); err != nil {
		t.Fatalf("invalid JSON artifact: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	report, ok := entries[0]["report"].(map[string]any)
	if !ok || report["status"] != "success" {
		t.Errorf("full report not embedded: %v", entries[0]["report"])
	}
}

func TestMarkdown_AggregateStatistics(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir).All(sampleRows()); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "analysis_summary.md"))
	if err != nil {
		t.Fatal(err)
	}
	md := string(b)

	// (0.81+0.32+0.65)/3 = 0.5933…
	for _, want := range []string{
		"Analyzed calls: **3**",
		"Average success probability: **59.3%**",
		"Desperate Saver: 1",
		"won: 1",
		"urgent: 1",
		"call_smith.txt: 81.0%",
		"call_jones.txt: 32.0%",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("summary missing %q\n%s", want, md)
		}
	}
}

func TestMarkdown_EmptyStore(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir).All(nil); err != nil {
		t.Fatalf("empty export should not fail: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "analysis_summary.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "Analyzed calls: **0**") {
		t.Errorf("empty summary malformed:\n%s", b)
	}
}

func TestXLSX_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(dir).All(sampleRows()); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, "analysis_results.xlsx"))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Analyses")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[1][0] != "call_smith.txt" {
		t.Errorf("unexpected first data row: %v", rows[1])
	}
}

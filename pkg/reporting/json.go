package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/backtest"
)

// ComparisonReport is the JSON document of a comparison run
type ComparisonReport struct {
	GeneratedAt time.Time       `json:"generated_at"`
	RankBy      string          `json:"rank_by"`
	Runs        []ComparisonRow `json:"runs"`
}

// ComparisonRow is one ranked run; Error is set for failed runs
type ComparisonRow struct {
	RunID    string                      `json:"run_id"`
	Rank     int                         `json:"rank"`
	Name     string                      `json:"name"`
	Strategy string                      `json:"strategy"`
	Report   *backtest.PerformanceReport `json:"report,omitempty"`
	Error    string                      `json:"error,omitempty"`
	Duration string                      `json:"duration"`
}

// NewComparisonReport converts ranked runs into their JSON document
func NewComparisonReport(runs []backtest.RunResult, rankBy string) ComparisonReport {
	doc := ComparisonReport{
		GeneratedAt: time.Now().UTC(),
		RankBy:      rankBy,
		Runs:        make([]ComparisonRow, 0, len(runs)),
	}
	for _, run := range runs {
		row := ComparisonRow{
			RunID:    run.RunID,
			Rank:     run.Rank,
			Name:     run.Name,
			Strategy: run.Strategy,
			Duration: run.Duration.String(),
		}
		if run.Failed() {
			row.Error = run.Err.Error()
		} else {
			rep := run.Report
			row.Report = &rep
		}
		doc.Runs = append(doc.Runs, row)
	}
	return doc
}

// marshalIndent marshals v with two-space indentation
func marshalIndent(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// PrintJSON writes v as indented JSON to w
func PrintJSON(w io.Writer, v interface{}) error {
	data, err := marshalIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// WriteReportJSON writes v as indented JSON to path
func (r *DefaultReporter) WriteReportJSON(v interface{}, path string) error {
	if err := r.paths.EnsureDirectoryExists(path); err != nil {
		return err
	}

	data, err := marshalIndent(v)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

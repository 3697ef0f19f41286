// Package metrics exports the numbers of a collection run to monitoring
// systems.
package metrics

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/output"
)

// RequestMetrics is one request run under one testcase.
type RequestMetrics struct {
	Path           string            `json:"path"`
	Name           string            `json:"name"`
	Testcase       string            `json:"testcase"`
	Method         string            `json:"method,omitempty"`
	URL            string            `json:"url,omitempty"`
	StatusCode     int               `json:"status_code"`
	DurationMs     float64           `json:"duration_ms"`
	Status         assertions.Status `json:"status"`
	AssertionCount int               `json:"assertion_count"`
	FailedCount    int               `json:"failed_count"`
}

// Aggregate is the run-wide view.
type Aggregate struct {
	TotalRequests int64                        `json:"total_requests"`
	SuccessCount  int64                        `json:"success_count"`
	FailureCount  int64                        `json:"failure_count"`
	SkippedCount  int64                        `json:"skipped_count"`
	MinDurationMs float64                      `json:"min_duration_ms"`
	MaxDurationMs float64                      `json:"max_duration_ms"`
	AvgDurationMs float64                      `json:"avg_duration_ms"`
	P50DurationMs float64                      `json:"p50_duration_ms"`
	P95DurationMs float64                      `json:"p95_duration_ms"`
	P99DurationMs float64                      `json:"p99_duration_ms"`
	StatusCodes   map[int]int64                `json:"status_codes"`
	ByRequest     map[string]*RequestAggregate `json:"by_request"`
}

// RequestAggregate holds the numbers of one request name across testcases.
type RequestAggregate struct {
	Name          string  `json:"name"`
	TotalRequests int64   `json:"total_requests"`
	FailureCount  int64   `json:"failure_count"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	P50DurationMs float64 `json:"p50_duration_ms"`
	P95DurationMs float64 `json:"p95_duration_ms"`
}

// Run is what exporters receive.
type Run struct {
	Workspace   string           `json:"workspace"`
	Collection  string           `json:"collection"`
	Environment string           `json:"environment,omitempty"`
	Timestamp   time.Time        `json:"timestamp"`
	Duration    time.Duration    `json:"duration"`
	Aggregate   Aggregate        `json:"summary"`
	Requests    []RequestMetrics `json:"requests"`
}

// Exporter sends a run somewhere.
type Exporter interface {
	Export(ctx context.Context, run *Run) error
}

// Formats lists the names accepted by New.
var Formats = []string{"json", "prometheus"}

// New returns a file exporter writing format to w.
func New(format string, w io.Writer) (Exporter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONExporter(WithJSONWriter(w)), nil
	case "prometheus", "prom":
		return NewPrometheusExporter(WithPrometheusWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown metrics format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// FromReport flattens a report. Percentiles come from the report summary.
func FromReport(r *output.Report) *Run {
	s := r.Summary
	run := &Run{
		Workspace:   r.Workspace,
		Collection:  r.Collection,
		Environment: r.Environment,
		Timestamp:   s.Begin,
		Duration:    s.Duration,
		Aggregate: Aggregate{
			MinDurationMs: ms(s.Min),
			MaxDurationMs: ms(s.Max),
			AvgDurationMs: ms(s.Mean),
			P50DurationMs: ms(s.P50),
			P95DurationMs: ms(s.P95),
			P99DurationMs: ms(s.P99),
			StatusCodes:   make(map[int]int64),
			ByRequest:     make(map[string]*RequestAggregate),
		},
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}

	for _, row := range output.Rows(r.Tree) {
		m := RequestMetrics{
			Path:       row.ClassName + "/" + row.FullName(),
			Name:       row.Name,
			Testcase:   row.Testcase,
			Method:     row.Method,
			URL:        row.URL,
			StatusCode: row.StatusCode,
			DurationMs: float64(row.ElapsedMs),
			Status:     row.Status,
		}
		for _, t := range row.Tests {
			for _, a := range t.Results {
				m.AssertionCount++
				if a.Status == assertions.StatusFail {
					m.FailedCount++
				}
			}
		}
		run.Requests = append(run.Requests, m)

		agg := &run.Aggregate
		agg.TotalRequests++
		switch {
		case row.Error != "" || row.Status == assertions.StatusFail:
			agg.FailureCount++
		case row.Status == assertions.StatusSkip:
			agg.SkippedCount++
		default:
			agg.SuccessCount++
		}
		if row.StatusCode > 0 {
			agg.StatusCodes[row.StatusCode]++
		}
	}

	for _, rs := range s.Requests {
		run.Aggregate.ByRequest[rs.Name] = &RequestAggregate{
			Name:          rs.Name,
			TotalRequests: rs.Total,
			FailureCount:  rs.Failed,
			AvgDurationMs: ms(rs.Mean),
			P50DurationMs: ms(rs.P50),
			P95DurationMs: ms(rs.P95),
		}
	}
	return run
}

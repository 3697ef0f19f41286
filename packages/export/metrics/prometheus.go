package metrics

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// PrometheusExporter writes the Prometheus text exposition format, suitable
// for the node_exporter textfile collector or a pushgateway.
type PrometheusExporter struct {
	writer io.Writer
}

// PrometheusOption is a functional option for PrometheusExporter
type PrometheusOption func(*PrometheusExporter)

// WithPrometheusWriter sets the output writer for Prometheus metrics
func WithPrometheusWriter(w io.Writer) PrometheusOption {
	return func(p *PrometheusExporter) {
		p.writer = w
	}
}

func NewPrometheusExporter(opts ...PrometheusOption) *PrometheusExporter {
	p := &PrometheusExporter{writer: io.Discard}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PrometheusExporter) Export(_ context.Context, run *Run) error {
	var b strings.Builder
	writeMetrics(&b, run)
	_, err := io.WriteString(p.writer, b.String())
	return err
}

func writeMetrics(w io.Writer, run *Run) {
	agg := run.Aggregate
	base := fmt.Sprintf(`workspace="%s",collection="%s"`, sanitizeLabel(run.Workspace), sanitizeLabel(run.Collection))

	counter := func(name, help string, value int64) {
		fmt.Fprintf(w, "# HELP hitcase_%s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE hitcase_%s counter\n", name)
		fmt.Fprintf(w, "hitcase_%s{%s} %d\n\n", name, base, value)
	}
	counter("requests_total", "Total number of requests run", agg.TotalRequests)
	counter("requests_success_total", "Requests that passed", agg.SuccessCount)
	counter("requests_failed_total", "Requests that failed or errored", agg.FailureCount)
	counter("requests_skipped_total", "Requests skipped by a script", agg.SkippedCount)

	fmt.Fprintf(w, "# HELP hitcase_request_duration_ms Request duration in milliseconds\n")
	fmt.Fprintf(w, "# TYPE hitcase_request_duration_ms gauge\n")
	for _, q := range []struct {
		label string
		value float64
	}{
		{"min", agg.MinDurationMs},
		{"max", agg.MaxDurationMs},
		{"avg", agg.AvgDurationMs},
		{"0.50", agg.P50DurationMs},
		{"0.95", agg.P95DurationMs},
		{"0.99", agg.P99DurationMs},
	} {
		fmt.Fprintf(w, "hitcase_request_duration_ms{%s,quantile=\"%s\"} %.2f\n", base, q.label, q.value)
	}
	fmt.Fprintln(w)

	if len(agg.StatusCodes) > 0 {
		fmt.Fprintf(w, "# HELP hitcase_requests_by_status_total Requests by HTTP status code\n")
		fmt.Fprintf(w, "# TYPE hitcase_requests_by_status_total counter\n")
		codes := make([]int, 0, len(agg.StatusCodes))
		for code := range agg.StatusCodes {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Fprintf(w, "hitcase_requests_by_status_total{%s,status=\"%d\"} %d\n", base, code, agg.StatusCodes[code])
		}
		fmt.Fprintln(w)
	}

	if len(agg.ByRequest) > 0 {
		names := make([]string, 0, len(agg.ByRequest))
		for name := range agg.ByRequest {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "# HELP hitcase_request_runs_total Runs per request across testcases\n")
		fmt.Fprintf(w, "# TYPE hitcase_request_runs_total counter\n")
		for _, name := range names {
			fmt.Fprintf(w, "hitcase_request_runs_total{%s,request=\"%s\"} %d\n", base, sanitizeLabel(name), agg.ByRequest[name].TotalRequests)
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "# HELP hitcase_request_duration_avg_ms Average duration per request\n")
		fmt.Fprintf(w, "# TYPE hitcase_request_duration_avg_ms gauge\n")
		for _, name := range names {
			fmt.Fprintf(w, "hitcase_request_duration_avg_ms{%s,request=\"%s\"} %.2f\n", base, sanitizeLabel(name), agg.ByRequest[name].AvgDurationMs)
		}
	}
}

// sanitizeLabel escapes a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

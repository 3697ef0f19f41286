package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// DataDogExporter posts the run to the DataDog series API.
type DataDogExporter struct {
	apiKey   string
	site     string // e.g., "datadoghq.com", "datadoghq.eu"
	endpoint string
	tags     []string
	prefix   string
	client   *http.Client
}

// DataDogOption is a functional option for DataDogExporter
type DataDogOption func(*DataDogExporter)

// WithDataDogSite sets the DataDog site (e.g., "datadoghq.com", "datadoghq.eu")
func WithDataDogSite(site string) DataDogOption {
	return func(d *DataDogExporter) {
		if site != "" {
			d.site = site
		}
	}
}

// WithDataDogEndpoint overrides the series URL derived from the site
func WithDataDogEndpoint(url string) DataDogOption {
	return func(d *DataDogExporter) {
		d.endpoint = url
	}
}

// WithDataDogTags sets additional tags for all metrics
func WithDataDogTags(tags []string) DataDogOption {
	return func(d *DataDogExporter) {
		d.tags = tags
	}
}

// WithDataDogPrefix sets a prefix for metric names
func WithDataDogPrefix(prefix string) DataDogOption {
	return func(d *DataDogExporter) {
		d.prefix = prefix
	}
}

func NewDataDogExporter(apiKey string, opts ...DataDogOption) *DataDogExporter {
	d := &DataDogExporter{
		apiKey: apiKey,
		site:   "datadoghq.com",
		prefix: "hitcase",
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type datadogMetric struct {
	Metric string   `json:"metric"`
	Type   string   `json:"type"`
	Points [][]any  `json:"points"`
	Tags   []string `json:"tags,omitempty"`
}

type datadogPayload struct {
	Series []datadogMetric `json:"series"`
}

func (d *DataDogExporter) Export(ctx context.Context, run *Run) error {
	if d.apiKey == "" {
		return errors.New("DataDog API key not configured")
	}
	return d.send(ctx, d.series(run))
}

func (d *DataDogExporter) series(run *Run) []datadogMetric {
	now := float64(run.Timestamp.Unix())
	agg := run.Aggregate
	tags := append([]string{"workspace:" + run.Workspace, "collection:" + run.Collection}, d.tags...)

	metric := func(name, kind string, value float64, extra ...string) datadogMetric {
		return datadogMetric{
			Metric: d.prefix + "." + name,
			Type:   kind,
			Points: [][]any{{now, value}},
			Tags:   append(append([]string(nil), extra...), tags...),
		}
	}

	series := []datadogMetric{
		metric("requests.total", "count", float64(agg.TotalRequests)),
		metric("requests.success", "count", float64(agg.SuccessCount)),
		metric("requests.failed", "count", float64(agg.FailureCount)),
		metric("requests.skipped", "count", float64(agg.SkippedCount)),
		metric("duration.avg", "gauge", agg.AvgDurationMs),
		metric("duration.min", "gauge", agg.MinDurationMs),
		metric("duration.max", "gauge", agg.MaxDurationMs),
		metric("duration.p50", "gauge", agg.P50DurationMs),
		metric("duration.p95", "gauge", agg.P95DurationMs),
		metric("duration.p99", "gauge", agg.P99DurationMs),
	}

	codes := make([]int, 0, len(agg.StatusCodes))
	for code := range agg.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		series = append(series, metric("requests.by_status", "count", float64(agg.StatusCodes[code]), fmt.Sprintf("status:%d", code)))
	}

	names := make([]string, 0, len(agg.ByRequest))
	for name := range agg.ByRequest {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ra := agg.ByRequest[name]
		series = append(series,
			metric("request.runs", "count", float64(ra.TotalRequests), "request:"+name),
			metric("request.duration.avg", "gauge", ra.AvgDurationMs, "request:"+name),
		)
	}
	return series
}

func (d *DataDogExporter) send(ctx context.Context, series []datadogMetric) error {
	data, err := json.Marshal(datadogPayload{Series: series})
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	url := d.endpoint
	if url == "" {
		url = fmt.Sprintf("https://api.%s/api/v1/series", d.site)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("DD-API-KEY", d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("DataDog API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// JSONExporter writes the run as one JSON document.
type JSONExporter struct {
	writer   io.Writer
	filePath string
	pretty   bool
}

// JSONOption is a functional option for JSONExporter
type JSONOption func(*JSONExporter)

// WithJSONWriter sets the output writer for JSON metrics
func WithJSONWriter(w io.Writer) JSONOption {
	return func(j *JSONExporter) {
		j.writer = w
	}
}

// WithJSONFile sets the output file for JSON metrics
func WithJSONFile(path string) JSONOption {
	return func(j *JSONExporter) {
		j.filePath = path
	}
}

// WithJSONPretty toggles indentation
func WithJSONPretty(pretty bool) JSONOption {
	return func(j *JSONExporter) {
		j.pretty = pretty
	}
}

func NewJSONExporter(opts ...JSONOption) *JSONExporter {
	j := &JSONExporter{pretty: true}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// JSONMetricsOutput is the document layout.
type JSONMetricsOutput struct {
	Metadata JSONMetadata     `json:"metadata"`
	Summary  Aggregate        `json:"summary"`
	Requests []RequestMetrics `json:"requests"`
}

type JSONMetadata struct {
	GeneratedAt string `json:"generated_at"`
	StartTime   string `json:"start_time"`
	Duration    string `json:"duration"`
	Workspace   string `json:"workspace"`
	Collection  string `json:"collection"`
	Environment string `json:"environment,omitempty"`
	Version     string `json:"version"`
}

func (j *JSONExporter) Export(_ context.Context, run *Run) error {
	doc := JSONMetricsOutput{
		Metadata: JSONMetadata{
			GeneratedAt: time.Now().Format(time.RFC3339),
			StartTime:   run.Timestamp.Format(time.RFC3339),
			Duration:    run.Duration.String(),
			Workspace:   run.Workspace,
			Collection:  run.Collection,
			Environment: run.Environment,
			Version:     "1.0",
		},
		Summary:  run.Aggregate,
		Requests: run.Requests,
	}
	if doc.Requests == nil {
		doc.Requests = []RequestMetrics{}
	}

	var (
		data []byte
		err  error
	)
	if j.pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	data = append(data, '\n')

	if j.filePath != "" {
		if err := os.WriteFile(j.filePath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write metrics file: %w", err)
		}
	}
	if j.writer != nil {
		if _, err := j.writer.Write(data); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

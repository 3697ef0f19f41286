package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/stats"
)

// JSONOutput is the document written by JSONFormatter.
type JSONOutput struct {
	Workspace   string              `json:"workspace,omitempty"`
	Collection  string              `json:"collection"`
	Environment string              `json:"environment,omitempty"`
	Status      string              `json:"status"`
	Summary     stats.Summary       `json:"summary"`
	Tree        runner.ResultFolder `json:"tree"`
	Time        string              `json:"time"`
}

type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) Format(r *Report) error {
	out := JSONOutput{
		Workspace:   r.Workspace,
		Collection:  r.Collection,
		Environment: r.Environment,
		Status:      string(r.Tree.Status),
		Summary:     r.Summary,
		Tree:        r.Tree,
		Time:        time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/stats"
)

// Report is everything a formatter needs about one collection run.
type Report struct {
	Workspace   string
	Collection  string
	Environment string
	Tree        runner.ResultFolder
	Summary     stats.Summary
}

// Formatter writes a report in one format.
type Formatter interface {
	Format(r *Report) error
}

// Formats lists the names accepted by New.
var Formats = []string{"yaml", "console", "json", "junit", "tap", "html", "xlsx"}

// New returns the formatter named format writing to w.
func New(format string, w io.Writer, verbose, noColor bool) (Formatter, error) {
	switch strings.ToLower(format) {
	case "", "yaml":
		return NewYAMLFormatter(YAMLWithWriter(w)), nil
	case "console":
		return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor)), nil
	case "json":
		return NewJSONFormatter(JSONWithWriter(w)), nil
	case "junit":
		return NewJUnitFormatter(JUnitWithWriter(w)), nil
	case "tap":
		return NewTAPFormatter(TAPWithWriter(w)), nil
	case "html":
		return NewHTMLFormatter(HTMLWithWriter(w)), nil
	case "xlsx":
		return NewXLSXFormatter(XLSXWithWriter(w)), nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// Row is one request run flattened out of the result tree.
type Row struct {
	ClassName  string
	Name       string
	Testcase   string
	Status     assertions.Status
	Method     string
	URL        string
	StatusCode int
	ElapsedMs  int64
	Tests      []assertions.TestInfo
	Error      string
	Logs       []string
}

// FullName is "request:testcase".
func (r Row) FullName() string {
	return r.Name + ":" + r.Testcase
}

// Failures are the failed assertion messages plus the run error, if any.
func (r Row) Failures() []string {
	var out []string
	for _, t := range r.Tests {
		for _, a := range t.Results {
			if a.Status == assertions.StatusFail {
				out = append(out, t.Name+": "+a.Message)
			}
		}
	}
	if r.Error != "" {
		out = append(out, r.Error)
	}
	return out
}

// Rows flattens tree depth first.
func Rows(tree runner.ResultFolder) []Row {
	var rows []Row
	tree.Walk(func(trail []string, rr runner.ResultRequest) {
		row := Row{
			ClassName: strings.Join(trail, "/"),
			Name:      rr.Name,
			Testcase:  rr.Testcase,
			Status:    rr.Status,
		}
		switch {
		case rr.Result != nil:
			fillRequest(&row, rr.Result)
		case rr.Error != nil:
			row.Error = rr.Error.Error
			if rr.Error.Request != nil {
				row.Method = rr.Error.Request.Method
				row.URL = rr.Error.Request.URL()
			}
			if rr.Error.Response != nil {
				row.StatusCode = rr.Error.Response.Status
				row.ElapsedMs = rr.Error.Response.ElapsedMs
			}
			for _, l := range rr.Error.Logs {
				row.Logs = append(row.Logs, l.Show())
			}
		}
		rows = append(rows, row)
	})
	return rows
}

func fillRequest(row *Row, res *runner.RunResult) {
	if res.Request != nil {
		row.Method = res.Request.Method
		row.URL = res.Request.URL()
	}
	if res.Response != nil {
		row.StatusCode = res.Response.Status
		row.ElapsedMs = res.Response.ElapsedMs
	}
	if res.TestResult != nil {
		row.Tests = res.TestResult.Tests
	}
	for _, l := range res.Logs {
		row.Logs = append(row.Logs, l.Show())
	}
}

package output

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
)

// HTMLReport is the data behind the HTML page.
type HTMLReport struct {
	TestName   string           `json:"testName"`
	TestPass   int64            `json:"testPass"`
	TestFail   int64            `json:"testFail"`
	TestSkip   int64            `json:"testSkip"`
	TestAll    int64            `json:"testAll"`
	BeginTime  string           `json:"beginTime"`
	TotalTime  string           `json:"totalTime"`
	Status     string           `json:"status"`
	TestResult []HTMLTestResult `json:"testResult"`
}

// HTMLTestResult is one request run.
type HTMLTestResult struct {
	ClassName   string   `json:"className"`
	MethodName  string   `json:"methodName"`
	Description string   `json:"description"`
	SpendTime   string   `json:"spendTime"`
	Status      string   `json:"status"`
	StatusClass string   `json:"-"`
	Failures    []string `json:"-"`
	Log         []string `json:"log"`
}

type HTMLFormatter struct {
	writer io.Writer
}

type HTMLOption func(*HTMLFormatter)

func NewHTMLFormatter(opts ...HTMLOption) *HTMLFormatter {
	f := &HTMLFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func HTMLWithWriter(w io.Writer) HTMLOption {
	return func(f *HTMLFormatter) {
		f.writer = w
	}
}

// NewHTMLReport builds the page data for r.
func NewHTMLReport(r *Report) HTMLReport {
	s := r.Summary
	out := HTMLReport{
		TestName:  r.Collection,
		TestPass:  s.Passed,
		TestFail:  s.Failed + s.Errors,
		TestSkip:  s.Skipped,
		TestAll:   s.Total,
		BeginTime: s.Begin.Format("2006-01-02 15:04:05"),
		TotalTime: fmt.Sprintf("%dms", s.Duration.Milliseconds()),
		Status:    string(r.Tree.Status),
	}
	for _, row := range Rows(r.Tree) {
		desc := strings.TrimSpace(row.Method + " " + row.URL)
		if row.StatusCode > 0 {
			desc += fmt.Sprintf(" → %d", row.StatusCode)
		}
		out.TestResult = append(out.TestResult, HTMLTestResult{
			ClassName:   row.ClassName,
			MethodName:  row.FullName(),
			Description: desc,
			SpendTime:   fmt.Sprintf("%dms", row.ElapsedMs),
			Status:      string(row.Status),
			StatusClass: statusClass(row.Status),
			Failures:    row.Failures(),
			Log:         row.Logs,
		})
	}
	return out
}

func statusClass(s assertions.Status) string {
	switch s {
	case assertions.StatusPass, assertions.StatusNone:
		return "passed"
	case assertions.StatusFail:
		return "failed"
	case assertions.StatusSkip:
		return "skipped"
	}
	return "pending"
}

var reportTemplate = template.Must(template.New("report").Parse(htmlTemplate))

func (f *HTMLFormatter) Format(r *Report) error {
	if err := reportTemplate.Execute(f.writer, NewHTMLReport(r)); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.TestName}} - hitcase report</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 2rem; color: #222; }
h1 { margin-bottom: 0.25rem; }
.summary { display: flex; gap: 1.5rem; margin: 1rem 0 2rem; }
.summary div { padding: 0.75rem 1rem; border-radius: 6px; background: #f4f4f4; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.5rem; border-bottom: 1px solid #e5e5e5; vertical-align: top; }
.passed { color: #1a7f37; }
.failed { color: #cf222e; }
.skipped { color: #9a6700; }
.pending { color: #6e7781; }
pre { margin: 0.25rem 0 0; font-size: 0.8rem; white-space: pre-wrap; color: #555; }
details summary { cursor: pointer; }
</style>
</head>
<body>
<h1>{{.TestName}}</h1>
<div>Started {{.BeginTime}}, took {{.TotalTime}}, status <strong>{{.Status}}</strong></div>
<div class="summary">
  <div>All <strong>{{.TestAll}}</strong></div>
  <div class="passed">Pass <strong>{{.TestPass}}</strong></div>
  <div class="failed">Fail <strong>{{.TestFail}}</strong></div>
  <div class="skipped">Skip <strong>{{.TestSkip}}</strong></div>
</div>
<table>
<thead><tr><th>Folder</th><th>Request</th><th>Description</th><th>Time</th><th>Status</th></tr></thead>
<tbody>
{{range .TestResult}}<tr>
<td>{{.ClassName}}</td>
<td>{{.MethodName}}</td>
<td>{{.Description}}{{range .Failures}}<div class="failed">{{.}}</div>{{end}}
{{if .Log}}<details><summary>log</summary><pre>{{range .Log}}{{.}}
{{end}}</pre></details>{{end}}</td>
<td>{{.SpendTime}}</td>
<td class="{{.StatusClass}}">{{.Status}}</td>
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`

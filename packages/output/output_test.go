package output

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	"github.com/abdul-hamid-achik/hitcase/packages/http"
)

func sampleReport() *Report {
	passed := &assertions.TestResult{
		Status: assertions.StatusPass,
		Tests: []assertions.TestInfo{{
			Name:    "status",
			Status:  assertions.StatusPass,
			Results: []assertions.AssertResult{{Status: assertions.StatusPass, Message: `Expect equal actual is "200"`}},
		}},
	}
	failed := &assertions.TestResult{
		Status: assertions.StatusFail,
		Tests: []assertions.TestInfo{{
			Name:    "body",
			Status:  assertions.StatusFail,
			Results: []assertions.AssertResult{{Status: assertions.StatusFail, Message: `Expect is "1" but actual is "2"`}},
		}},
	}

	tree := runner.ResultFolder{
		Name:   "Suite",
		Status: assertions.StatusFail,
		Cases: []runner.ResultCase{{
			Name:   "Default",
			Status: assertions.StatusFail,
			Folders: []runner.ResultFolder{{
				Name:   "users",
				Status: assertions.StatusSkip,
				Cases: []runner.ResultCase{{
					Name:     "admin",
					Status:   assertions.StatusSkip,
					Requests: []runner.ResultRequest{{Name: "Get", Testcase: "Default", Status: assertions.StatusSkip, Result: &runner.RunResult{TestResult: &assertions.TestResult{Status: assertions.StatusSkip}}}},
				}},
			}},
			Requests: []runner.ResultRequest{
				{
					Name: "Ping", Testcase: "Default", Status: assertions.StatusPass,
					Result: &runner.RunResult{
						Request:    http.NewRequest("GET", "http://localhost/ping"),
						Response:   &http.Response{Status: 200, ElapsedMs: 12},
						TestResult: passed,
					},
				},
				{
					Name: "Post", Testcase: "Default", Status: assertions.StatusFail,
					Result: &runner.RunResult{
						Request:    http.NewRequest("POST", "http://localhost/post"),
						Response:   &http.Response{Status: 201, ElapsedMs: 30},
						TestResult: failed,
					},
				},
				{
					Name: "Broken", Testcase: "Default", Status: assertions.StatusFail,
					Error: &runner.RunError{RequestName: "Broken", Error: "script error: boom"},
				},
			},
		}},
	}

	begin := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &Report{
		Workspace:   "ws",
		Collection:  "Suite",
		Environment: "dev",
		Tree:        tree,
		Summary:     runner.Summarize(tree, begin, begin.Add(250*time.Millisecond)),
	}
}

func TestRows(t *testing.T) {
	rows := Rows(sampleReport().Tree)
	require.Len(t, rows, 4)

	assert.Equal(t, "Suite:Default/users:admin", rows[0].ClassName)
	assert.Equal(t, "Get:Default", rows[0].FullName())

	assert.Equal(t, "Suite:Default", rows[1].ClassName)
	assert.Equal(t, "GET", rows[1].Method)
	assert.Equal(t, "http://localhost/ping", rows[1].URL)
	assert.Equal(t, 200, rows[1].StatusCode)
	assert.Empty(t, rows[1].Failures())

	assert.Equal(t, []string{`body: Expect is "1" but actual is "2"`}, rows[2].Failures())
	assert.Equal(t, []string{"script error: boom"}, rows[3].Failures())
}

func TestNew(t *testing.T) {
	for _, name := range Formats {
		f, err := New(name, &bytes.Buffer{}, false, true)
		require.NoError(t, err, name)
		assert.NotNil(t, f)
	}
	_, err := New("pdf", &bytes.Buffer{}, false, true)
	assert.ErrorContains(t, err, "unknown output format")
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter(YAMLWithWriter(&buf)).Format(sampleReport()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Suite", decoded["name"])
	assert.Equal(t, "FAIL", decoded["status"])
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))
	require.NoError(t, f.Format(sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "Suite (dev)")
	assert.Contains(t, out, "✓ Ping:Default (200 12ms)")
	assert.Contains(t, out, `→ Expect is "1" but actual is "2"`)
	assert.Contains(t, out, "x Broken:Default (script error: boom)")
	assert.Contains(t, out, "1 passed, 2 failed, 1 skipped, 4 total")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(JSONWithWriter(&buf)).Format(sampleReport()))

	var out struct {
		Collection string         `json:"collection"`
		Status     string         `json:"status"`
		Summary    map[string]any `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "Suite", out.Collection)
	assert.Equal(t, "FAIL", out.Status)
	assert.Equal(t, float64(4), out.Summary["testAll"])
	assert.Equal(t, float64(1), out.Summary["testPass"])
}

func TestJUnitFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJUnitFormatter(JUnitWithWriter(&buf)).Format(sampleReport()))

	var suites JUnitTestSuites
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &suites))
	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)
	assert.Equal(t, 1, suites.Skipped)
	require.Len(t, suites.TestSuites, 2)
	assert.Equal(t, "Suite:Default/users:admin", suites.TestSuites[0].Name)
	assert.Equal(t, 3, suites.TestSuites[1].Tests)
}

func TestTAPFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTAPFormatter(TAPWithWriter(&buf)).Format(sampleReport()))

	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "TAP version 13", lines[0])
	assert.Equal(t, "1..4", lines[1])
	assert.Equal(t, "ok 1 - Suite:Default/users:admin/Get:Default # SKIP", lines[2])
	assert.Equal(t, "ok 2 - Suite:Default/Ping:Default", lines[3])
	assert.Equal(t, "not ok 3 - Suite:Default/Post:Default", lines[4])
	assert.Contains(t, buf.String(), "severity: error")
}

func TestHTMLFormatter(t *testing.T) {
	report := sampleReport()
	data := NewHTMLReport(report)
	assert.Equal(t, int64(4), data.TestAll)
	assert.Equal(t, int64(2), data.TestFail)
	assert.Equal(t, "2026-01-02 03:04:05", data.BeginTime)
	assert.Equal(t, "250ms", data.TotalTime)
	require.Len(t, data.TestResult, 4)
	assert.Equal(t, "GET http://localhost/ping → 200", data.TestResult[1].Description)

	var buf bytes.Buffer
	require.NoError(t, NewHTMLFormatter(HTMLWithWriter(&buf)).Format(report))
	assert.Contains(t, buf.String(), "<title>Suite - hitcase report</title>")
	assert.Contains(t, buf.String(), `Expect is &#34;1&#34; but actual is &#34;2&#34;`)
}

func TestXLSXFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXFormatter(XLSXWithWriter(&buf)).Format(sampleReport()))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{resultSheet, summarySheet}, book.GetSheetList())
	header, err := book.GetCellValue(resultSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Folder", header)
	name, err := book.GetCellValue(resultSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Ping", name)
	total, err := book.GetCellValue(summarySheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "4", total)
}

package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/core/runner"
	hchttp "github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/output"
)

func sampleReport() *output.Report {
	failed := &assertions.TestResult{
		Status: assertions.StatusFail,
		Tests: []assertions.TestInfo{{
			Name:   "body",
			Status: assertions.StatusFail,
			Results: []assertions.AssertResult{
				{Status: assertions.StatusPass, Message: "ok"},
				{Status: assertions.StatusFail, Message: "bad"},
			},
		}},
	}
	tree := runner.ResultFolder{
		Name:   "Suite",
		Status: assertions.StatusFail,
		Cases: []runner.ResultCase{{
			Name:   "Default",
			Status: assertions.StatusFail,
			Requests: []runner.ResultRequest{
				{
					Name: "Ping", Testcase: "Default", Status: assertions.StatusPass,
					Result: &runner.RunResult{
						Request:    hchttp.NewRequest("GET", "http://localhost/ping"),
						Response:   &hchttp.Response{Status: 200, ElapsedMs: 12},
						TestResult: &assertions.TestResult{Status: assertions.StatusPass},
					},
				},
				{
					Name: "Post", Testcase: "Default", Status: assertions.StatusFail,
					Result: &runner.RunResult{
						Request:    hchttp.NewRequest("POST", "http://localhost/post"),
						Response:   &hchttp.Response{Status: 201, ElapsedMs: 30},
						TestResult: failed,
					},
				},
				{
					Name: "Skipped", Testcase: "Default", Status: assertions.StatusSkip,
					Result: &runner.RunResult{TestResult: &assertions.TestResult{Status: assertions.StatusSkip}},
				},
				{
					Name: "Broken", Testcase: "Default", Status: assertions.StatusFail,
					Error: &runner.RunError{RequestName: "Broken", Error: "boom"},
				},
			},
		}},
	}
	begin := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &output.Report{
		Workspace:  "ws",
		Collection: "Suite",
		Tree:       tree,
		Summary:    runner.Summarize(tree, begin, begin.Add(time.Second)),
	}
}

func TestFromReport(t *testing.T) {
	run := FromReport(sampleReport())

	assert.Equal(t, "ws", run.Workspace)
	assert.Equal(t, time.Second, run.Duration)
	agg := run.Aggregate
	assert.Equal(t, int64(4), agg.TotalRequests)
	assert.Equal(t, int64(1), agg.SuccessCount)
	assert.Equal(t, int64(2), agg.FailureCount)
	assert.Equal(t, int64(1), agg.SkippedCount)
	assert.Equal(t, map[int]int64{200: 1, 201: 1}, agg.StatusCodes)
	assert.Greater(t, agg.MaxDurationMs, agg.MinDurationMs)
	assert.Greater(t, agg.P50DurationMs, 0.0)
	assert.Len(t, agg.ByRequest, 4)
	assert.Equal(t, int64(1), agg.ByRequest["Post"].FailureCount)

	require.Len(t, run.Requests, 4)
	post := run.Requests[1]
	assert.Equal(t, "Suite:Default/Post:Default", post.Path)
	assert.Equal(t, "POST", post.Method)
	assert.Equal(t, 2, post.AssertionCount)
	assert.Equal(t, 1, post.FailedCount)
	assert.Equal(t, 30.0, post.DurationMs)
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "metrics.json")
	exp := NewJSONExporter(WithJSONWriter(&buf), WithJSONFile(file))
	require.NoError(t, exp.Export(context.Background(), FromReport(sampleReport())))

	var doc JSONMetricsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Suite", doc.Metadata.Collection)
	assert.Equal(t, int64(4), doc.Summary.TotalRequests)
	assert.Len(t, doc.Requests, 4)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(data))
}

func TestPrometheusExporter(t *testing.T) {
	var buf bytes.Buffer
	exp, err := New("prometheus", &buf)
	require.NoError(t, err)
	require.NoError(t, exp.Export(context.Background(), FromReport(sampleReport())))

	text := buf.String()
	assert.Contains(t, text, "# TYPE hitcase_requests_total counter\n")
	assert.Contains(t, text, `hitcase_requests_total{workspace="ws",collection="Suite"} 4`)
	assert.Contains(t, text, `hitcase_requests_failed_total{workspace="ws",collection="Suite"} 2`)
	assert.Contains(t, text, `hitcase_requests_by_status_total{workspace="ws",collection="Suite",status="201"} 1`)
	assert.Contains(t, text, `hitcase_request_runs_total{workspace="ws",collection="Suite",request="Ping"} 1`)
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New("csv", &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown metrics format")
}

func TestSanitizeLabel(t *testing.T) {
	assert.Equal(t, `a\"b\\c\n`, sanitizeLabel("a\"b\\c\n"))
}

func TestDataDogExporter(t *testing.T) {
	var (
		key     string
		payload datadogPayload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("DD-API-KEY")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	exp := NewDataDogExporter("secret", WithDataDogEndpoint(server.URL), WithDataDogTags([]string{"env:ci"}))
	require.NoError(t, exp.Export(context.Background(), FromReport(sampleReport())))

	assert.Equal(t, "secret", key)
	require.NotEmpty(t, payload.Series)
	first := payload.Series[0]
	assert.Equal(t, "hitcase.requests.total", first.Metric)
	assert.Equal(t, []string{"workspace:ws", "collection:Suite", "env:ci"}, first.Tags)
	assert.Equal(t, 4.0, first.Points[0][1])
}

func TestDataDogExporter_Errors(t *testing.T) {
	err := NewDataDogExporter("").Export(context.Background(), FromReport(sampleReport()))
	assert.ErrorContains(t, err, "API key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer server.Close()
	err = NewDataDogExporter("k", WithDataDogEndpoint(server.URL)).Export(context.Background(), FromReport(sampleReport()))
	assert.ErrorContains(t, err, "status 403: denied")
}

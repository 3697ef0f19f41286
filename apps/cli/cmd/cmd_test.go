package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/core/config"
	"github.com/abdul-hamid-achik/hitcase/packages/db"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/missing" {
			w.WriteHeader(nethttp.StatusNotFound)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func writeSuite(t *testing.T, baseURL string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "shop")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, collection.CollectionsDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HOST="+strings.TrimPrefix(baseURL, "http://")+"\n"), 0o644))
	suite := `name: Suite
test_script: |
  hitcase.test("status is 200", () => {
    assert(200, response.status);
  });
folders:
  - name: users
    testcases:
      admin: {}
      guest: {}
    requests:
      - name: List
        url: "http://{{HOST}}/users"
requests:
  - name: Ping
    url: "http://{{HOST}}/ping"
`
	broken := `name: Broken
requests:
  - name: Missing
    url: "http://{{HOST}}/missing"
    test_script: |
      hitcase.test("status is 200", () => {
        assert(200, response.status);
      });
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, collection.CollectionsDir, "suite.yaml"), []byte(suite), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, collection.CollectionsDir, "broken.yaml"), []byte(broken), 0o644))
	return dir
}

func options(dir, name string) runOptions {
	return runOptions{
		workspace:  dir,
		collection: name,
		config:     config.DefaultConfig(),
		noColor:    true,
	}
}

func TestRunAndReport_Success(t *testing.T) {
	dir := writeSuite(t, newAPI(t).URL)

	var out bytes.Buffer
	err := runAndReport(context.Background(), &out, options(dir, "Suite"))
	require.NoError(t, err)

	text := out.String()
	assert.True(t, strings.HasSuffix(text, "Test Success\n"), text)
	assert.Contains(t, text, "name: Suite")
	assert.Contains(t, text, "status: PASS")
	assert.Contains(t, text, "name: admin")
}

func TestRunAndReport_Failure(t *testing.T) {
	dir := writeSuite(t, newAPI(t).URL)

	var out bytes.Buffer
	err := runAndReport(context.Background(), &out, options(dir, "Broken"))
	require.Error(t, err)
	assert.Equal(t, ExitTestFailure, exitCode(err))
	assert.True(t, strings.HasSuffix(out.String(), "Test Error\n"))
	assert.Contains(t, out.String(), "status: FAIL")
}

func TestRunAndReport_MissingCollection(t *testing.T) {
	dir := writeSuite(t, newAPI(t).URL)

	var out bytes.Buffer
	err := runAndReport(context.Background(), &out, options(dir, "Nope"))
	assert.Equal(t, ExitTestFailure, exitCode(err))
	assert.Equal(t, "collection is not exist\n", out.String())
}

func TestRunAndReport_MissingWorkspace(t *testing.T) {
	err := runAndReport(context.Background(), io.Discard, options(filepath.Join(t.TempDir(), "none"), "Suite"))
	assert.Equal(t, ExitTestFailure, exitCode(err))
	assert.ErrorIs(t, err, collection.ErrWorkspaceNotFound)
}

func TestRunAndReport_OutputFileAndQuiet(t *testing.T) {
	dir := writeSuite(t, newAPI(t).URL)
	opts := options(dir, "Suite")
	opts.quiet = true
	opts.config.Output = "junit"
	opts.config.OutputFile = filepath.Join(t.TempDir(), "report.xml")

	var out bytes.Buffer
	require.NoError(t, runAndReport(context.Background(), &out, opts))
	assert.Equal(t, "Test Success\n", out.String())

	data, err := os.ReadFile(opts.config.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<testsuites")
}

func TestRunOnce_SingleRequest(t *testing.T) {
	dir := writeSuite(t, newAPI(t).URL)
	opts := options(dir, "Suite")
	opts.request = "users/List"

	report, err := runOnce(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, "users", report.Tree.Name)
	assert.Equal(t, assertions.StatusPass, report.Tree.Status)
	require.Len(t, report.Tree.Cases, 1)
	assert.Equal(t, "admin", report.Tree.Cases[0].Name)
	assert.Equal(t, 1, report.Tree.TotalCount())
	assert.Equal(t, int64(1), report.Summary.Total)

	opts.request = "users/Nope"
	_, err = runOnce(context.Background(), opts)
	assert.Equal(t, ExitTestFailure, exitCode(err))
}

func TestFindRecord(t *testing.T) {
	dir := writeSuite(t, "http://localhost")
	ws, err := collection.Load(dir)
	require.NoError(t, err)
	_, root, err := ws.Collection("Suite")
	require.NoError(t, err)

	target, err := findRecord(ws, root, "Ping")
	require.NoError(t, err)
	assert.Equal(t, "Suite", target.folder.Path)
	assert.Equal(t, []string{"Suite:Default"}, target.parent.Path())

	target, err = findRecord(ws, root, "/users/List")
	require.NoError(t, err)
	assert.Equal(t, "Suite/users", target.folder.Path)
	assert.Equal(t, []string{"Suite:Default", "users:admin"}, target.parent.Path())

	_, err = findRecord(ws, root, "nowhere/List")
	assert.Error(t, err)
}

func TestResolveWorkspace(t *testing.T) {
	dir := writeSuite(t, "http://localhost")
	assert.Equal(t, dir, resolveWorkspace(dir, "ignored"))
	assert.Equal(t, filepath.Join("workspaces", "shop"), resolveWorkspace("shop", "workspaces"))
}

func TestOpenWorkspace_Environment(t *testing.T) {
	dir := writeSuite(t, "http://localhost")
	_, err := openWorkspace(dir, config.DefaultConfig(), "prod", "")
	assert.Equal(t, ExitTestFailure, exitCode(err))

	_, err = openWorkspace(dir, config.DefaultConfig(), "", filepath.Join(dir, "missing.env"))
	assert.ErrorContains(t, err, "env file")
	assert.Equal(t, ExitTestFailure, exitCode(err))

	extra := filepath.Join(t.TempDir(), "extra.env")
	require.NoError(t, os.WriteFile(extra, []byte("HOST=override:8080\n"), 0o644))
	ws, err := openWorkspace(dir, config.DefaultConfig(), "", extra)
	require.NoError(t, err)
	assert.Equal(t, "override:8080", ws.BuildEnvs("Suite")["HOST"].Value)

	t.Setenv("HITCASE_VAR_HOST", "system:9090")
	ws, err = openWorkspace(dir, config.DefaultConfig(), "", extra)
	require.NoError(t, err)
	assert.Equal(t, "system:9090", ws.BuildEnvs("Suite")["HOST"].Value)
}

func TestOpenWorkspace_ParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, collection.CollectionsDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, collection.CollectionsDir, "bad.yaml"), []byte("name: [\n"), 0o644))

	_, err := openWorkspace(dir, config.DefaultConfig(), "", "")
	assert.Equal(t, ExitTestFailure, exitCode(err))
	assert.Equal(t, ExitParseError, exitCode(validateCommand(validateCmd, []string{dir})))
}

func TestAfterRun_HistoryAndNotify(t *testing.T) {
	var posts atomic.Int32
	hook := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		posts.Add(1)
		w.WriteHeader(nethttp.StatusOK)
	}))
	defer hook.Close()

	dir := writeSuite(t, newAPI(t).URL)
	opts := options(dir, "Broken")
	conn := "sqlite://" + filepath.Join(t.TempDir(), "history.db")
	opts.config.History = conn
	opts.config.Notify = &config.Notify{Slack: hook.URL, On: "failure"}

	err := runAndReport(context.Background(), io.Discard, opts)
	assert.Equal(t, ExitTestFailure, exitCode(err))
	assert.Equal(t, int32(1), posts.Load())

	client, err := db.NewClient(conn)
	require.NoError(t, err)
	defer client.Close()
	runs, err := client.ListRuns(context.Background(), "shop", "Broken", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "FAIL", runs[0].Status)
	assert.Equal(t, int64(1), runs[0].Total)
	assert.Contains(t, runs[0].Report, "Missing")
}

func TestAfterRun_Metrics(t *testing.T) {
	dir := writeSuite(t, newAPI(t).URL)
	opts := options(dir, "Suite")
	file := filepath.Join(t.TempDir(), "metrics.prom")
	opts.config.Metrics = &config.Metrics{Format: "prometheus", File: file}

	require.NoError(t, runAndReport(context.Background(), io.Discard, opts))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hitcase_requests_total{workspace="shop",collection="Suite"} 3`)
	assert.Contains(t, string(data), `hitcase_requests_by_status_total{workspace="shop",collection="Suite",status="200"} 3`)
}

func TestNewNotifyManager(t *testing.T) {
	m, err := newNotifyManager(nil)
	assert.NoError(t, err)
	assert.Nil(t, m)

	m, err = newNotifyManager(&config.Notify{Slack: "https://a", Teams: "https://b"})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	_, err = newNotifyManager(&config.Notify{Slack: "https://a", On: "weekly"})
	assert.Error(t, err)
}

func TestNewRunSummary(t *testing.T) {
	dir := writeSuite(t, newAPI(t).URL)
	report, err := runOnce(context.Background(), options(dir, "Broken"))
	require.NoError(t, err)

	s := newRunSummary(report)
	assert.Equal(t, "Broken", s.Collection)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.Failed)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, "Broken:Default/Missing:Default", s.Failures[0].Path)
	assert.NotEmpty(t, s.Failures[0].Messages)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitTestFailure, exitCode(errors.New("boom")))
	assert.Equal(t, ExitUsageError, exitCode(fmt.Errorf("wrapped: %w", withExitCode(ExitUsageError, errors.New("bad")))))
	assert.Equal(t, "exit status 3", withExitCode(ExitConfigError, nil).Error())

	err := usageArgs(cobra.ExactArgs(2))(&cobra.Command{}, []string{"one"})
	assert.Equal(t, ExitUsageError, exitCode(err))
}

func TestRunFailure(t *testing.T) {
	assert.NoError(t, runFailure(nil))
	assert.Equal(t, ExitUsageError, exitCode(runFailure(withExitCode(ExitUsageError, errors.New("bad flag")))))
	assert.Equal(t, ExitTestFailure, exitCode(runFailure(withExitCode(ExitConfigError, errors.New("bad config")))))
	assert.Equal(t, ExitTestFailure, exitCode(runFailure(errors.New("boom"))))

	assert.False(t, aborted(nil))
	assert.False(t, aborted(withExitCode(ExitTestFailure, nil)))
	assert.True(t, aborted(withExitCode(ExitTestFailure, errors.New("parse"))))
	assert.True(t, aborted(errors.New("boom")))
}

func TestRunCommand_ExitCodes(t *testing.T) {
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		waitForFlag = ""
	})
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)

	rootCmd.SetArgs([]string{"run", filepath.Join(t.TempDir(), "none"), "Suite"})
	assert.Equal(t, ExitTestFailure, exitCode(rootCmd.Execute()))

	rootCmd.SetArgs([]string{"run", "--wait-for", "http://127.0.0.1:1/health", "--wait-for-timeout", "1s", writeSuite(t, "http://localhost"), "Suite"})
	assert.Equal(t, ExitTestFailure, exitCode(rootCmd.Execute()))

	rootCmd.SetArgs([]string{"run", "only-one-arg"})
	assert.Equal(t, ExitUsageError, exitCode(rootCmd.Execute()))
}

func TestPrintFolder(t *testing.T) {
	dir := writeSuite(t, "http://localhost")
	ws, err := collection.Load(dir)
	require.NoError(t, err)
	_, root, err := ws.Collection("Suite")
	require.NoError(t, err)

	var out bytes.Buffer
	printFolder(&out, root, 0)
	assert.Equal(t, `Suite/ [Default]
  users/ [admin, guest]
    - List GET http://{{HOST}}/users [Default]
  - Ping GET http://{{HOST}}/ping [Default]
`, out.String())
}

func TestIsWorkspaceFile(t *testing.T) {
	assert.True(t, isWorkspaceFile("collections/suite.yaml"))
	assert.True(t, isWorkspaceFile("workspace.YML"))
	assert.True(t, isWorkspaceFile("/tmp/ws/.env"))
	assert.False(t, isWorkspaceFile("notes.txt"))
}

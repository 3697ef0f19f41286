package runner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
	"github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/logging"
	"github.com/abdul-hamid-achik/hitcase/packages/script"
	"github.com/abdul-hamid-achik/hitcase/packages/snapshot"
)

const (
	// MaxConcurrency caps how many jobs run at once
	MaxConcurrency = 20

	scopeSystem = "System"
	scopeFetch  = "Fetch"
)

type Runner struct {
	client *http.Client
	host   *script.Host
	config *Config
}

type Config struct {
	Timeout        time.Duration
	FollowRedirect bool
	ValidateSSL    bool
	Proxy          string
	DefaultHeaders map[string]string
	RateLimit      float64
	Concurrency    int
	BaseDir        string

	// UpdateSnapshots rewrites snapshots instead of failing on a mismatch
	UpdateSnapshots bool
}

func NewRunner(cfg *Config) *Runner {
	if cfg == nil {
		cfg = &Config{FollowRedirect: true, ValidateSSL: true}
	}
	if cfg.Concurrency <= 0 || cfg.Concurrency > MaxConcurrency {
		cfg.Concurrency = MaxConcurrency
	}

	clientOpts := []http.ClientOption{
		http.WithFollowRedirects(cfg.FollowRedirect),
		http.WithValidateSSL(cfg.ValidateSSL),
		http.WithBaseDir(cfg.BaseDir),
		http.WithRateLimit(cfg.RateLimit, 1),
	}
	if cfg.Timeout > 0 {
		clientOpts = append(clientOpts, http.WithTimeout(cfg.Timeout))
	}
	if cfg.Proxy != "" {
		clientOpts = append(clientOpts, http.WithProxy(cfg.Proxy))
	}
	for k, v := range cfg.DefaultHeaders {
		clientOpts = append(clientOpts, http.WithDefaultHeader(k, v))
	}

	client := http.NewClient(clientOpts...)
	return &Runner{
		client: client,
		host: script.NewHost(
			script.WithClient(client),
			script.WithBaseDir(cfg.BaseDir),
			script.WithSnapshots(snapshot.NewManager(filepath.Join(cfg.BaseDir, snapshot.Dir), cfg.UpdateSnapshots)),
		),
		config: cfg,
	}
}

// RunInfo is one job: a request under one testcase, with the scripts that
// wrap it.
type RunInfo struct {
	Shared            *script.SharedMap
	CollectionPath    string
	RequestName       string
	Request           *http.Request
	Envs              env.Envs
	PreRequestScripts []collection.ScriptScope
	TestScripts       []collection.ScriptScope
	Testcase          collection.Testcase
}

// Outcome is either a *RunResult or a *RunError.
type Outcome interface {
	Status() assertions.Status
	Key() string
	Name() string
}

type RunResult struct {
	Request        *http.Request          `yaml:"request" json:"request"`
	Response       *http.Response         `yaml:"response,omitempty" json:"response,omitempty"`
	TestResult     *assertions.TestResult `yaml:"test_result" json:"test_result"`
	CollectionPath string                 `yaml:"collection_path" json:"collection_path"`
	RequestName    string                 `yaml:"request_name" json:"request_name"`
	Testcase       collection.Testcase    `yaml:"testcase" json:"testcase"`
	Logs           []script.Log           `yaml:"logs,omitempty" json:"logs,omitempty"`
}

func (r *RunResult) Status() assertions.Status {
	if r.TestResult == nil {
		return assertions.StatusNone
	}
	return r.TestResult.Status
}

func (r *RunResult) Key() string  { return pathKey(r.Testcase.Path()) }
func (r *RunResult) Name() string { return r.RequestName }

type RunError struct {
	Request        *http.Request       `yaml:"request" json:"request"`
	Response       *http.Response      `yaml:"response,omitempty" json:"response,omitempty"`
	CollectionPath string              `yaml:"collection_path" json:"collection_path"`
	RequestName    string              `yaml:"request_name" json:"request_name"`
	Testcase       collection.Testcase `yaml:"testcase" json:"testcase"`
	Error          string              `yaml:"error" json:"error"`
	Logs           []script.Log        `yaml:"logs,omitempty" json:"logs,omitempty"`

	err error
}

func (e *RunError) Status() assertions.Status { return assertions.StatusFail }
func (e *RunError) Key() string               { return pathKey(e.Testcase.Path()) }
func (e *RunError) Name() string              { return e.RequestName }

// Unwrap returns the underlying error.
func (e *RunError) Unwrap() error { return e.err }

func pathKey(path []string) string {
	return strings.Join(path, "/")
}

func toYAML(v any) string {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err.Error()
	}
	return string(data)
}

func (r *Runner) newError(info RunInfo, req *http.Request, resp *http.Response, logs []script.Log, err error) *RunError {
	logging.Debug("runner", "%s failed: %v", pathKey(info.Testcase.Path()), err)
	return &RunError{
		Request:        req,
		Response:       resp,
		CollectionPath: info.CollectionPath,
		RequestName:    info.RequestName,
		Testcase:       info.Testcase,
		Error:          err.Error(),
		Logs:           logs,
		err:            err,
	}
}

// SendWithScript runs pre-request scripts, sends the request and runs test
// scripts. Script, build and transport failures come back as *RunError;
// hitcase.skip() in either phase yields a skipped *RunResult.
func (r *Runner) SendWithScript(ctx context.Context, info RunInfo) Outcome {
	if info.Request == nil {
		info.Request = &http.Request{}
	}
	req := info.Request.Clone()
	req.ClearLocked()
	c := script.NewContext(req, info.Envs.Clone(), info.Testcase, info.Shared)
	c.Logger.Info(scopeSystem, "Testcase: \n"+toYAML(info.Testcase))
	c.Logger.Info(scopeSystem, "Envs: \n"+toYAML(c.Envs))

	pre := c
	if len(info.PreRequestScripts) > 0 {
		c.Logger.Info(scopeSystem, "Run pre-request-scripts")
		var err error
		pre, err = r.host.Run(ctx, info.PreRequestScripts, c)
		if err != nil {
			if errors.Is(err, script.ErrSkip) {
				result := assertions.NewTestResult()
				result.MarkSkipped()
				return &RunResult{
					Request:        info.Request,
					TestResult:     result,
					CollectionPath: info.CollectionPath,
					RequestName:    info.RequestName,
					Testcase:       info.Testcase,
					Logs:           pre.Logger.Logs,
				}
			}
			return r.newError(info, info.Request, nil, pre.Logger.Logs, err)
		}
	}

	logger := pre.Logger.Clone()
	logger.Info(scopeSystem, "Envs: \n"+toYAML(pre.Envs))
	built := http.Build(pre.Request, pre.Envs)
	logger.Info(scopeFetch, "start fetch request: \n"+toYAML(built))

	sent, resp, err := r.client.Send(ctx, built)
	if err != nil {
		logger.Error(scopeFetch, err.Error())
		return r.newError(info, sent, nil, logger.Logs, err)
	}
	logger.Info(scopeFetch, "get response")

	testCtx := pre.Clone()
	testCtx.Response = script.ResponseFrom(resp)
	testCtx.Logger = script.NewLogger()

	testResult := testCtx.TestResult
	if len(info.TestScripts) > 0 {
		logger.Info(scopeSystem, "Run Test-script")
		out, err := r.host.Run(ctx, info.TestScripts, testCtx)
		logger.Logs = append(logger.Logs, out.Logger.Logs...)
		testResult = out.TestResult
		if err != nil {
			if !errors.Is(err, script.ErrSkip) {
				return r.newError(info, sent, resp, logger.Logs, err)
			}
			testResult.MarkSkipped()
		}
	}

	return &RunResult{
		Request:        sent,
		Response:       resp,
		TestResult:     testResult,
		CollectionPath: info.CollectionPath,
		RequestName:    info.RequestName,
		Testcase:       info.Testcase,
		Logs:           logger.Logs,
	}
}

// Client exposes the HTTP client shared by every job.
func (r *Runner) Client() *http.Client {
	return r.client
}

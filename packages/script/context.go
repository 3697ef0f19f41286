package script

import (
	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/collection"
	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
	"github.com/abdul-hamid-achik/hitcase/packages/http"
)

// Header is a name/value pair as scripts see it.
type Header struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Response is the projection of an HTTP response exposed to scripts.
type Response struct {
	Status    int      `json:"status" yaml:"status"`
	Headers   []Header `json:"headers" yaml:"headers"`
	Text      string   `json:"text" yaml:"text"`
	ElapsedMs int64    `json:"elapsed_ms" yaml:"elapsed_ms"`
}

// ResponseFrom projects resp. A nil response gives the zero projection.
func ResponseFrom(resp *http.Response) Response {
	if resp == nil {
		return Response{}
	}
	out := Response{Status: resp.Status, Text: resp.Body, ElapsedMs: resp.ElapsedMs}
	for _, h := range resp.Headers {
		out.Headers = append(out.Headers, Header{Name: h.Key, Value: h.Value})
	}
	return out
}

func (r Response) headerMap() map[string]string {
	out := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		if _, ok := out[h.Name]; !ok {
			out[h.Name] = h.Value
		}
	}
	return out
}

// Context is the state threaded through one request pipeline.
type Context struct {
	ScopeName  string
	Request    *http.Request
	Response   Response
	Envs       env.Envs
	Testcase   collection.Testcase
	Shared     *SharedMap
	Logger     *Logger
	TestResult *assertions.TestResult
}

// NewContext fills nil fields with empty values.
func NewContext(req *http.Request, envs env.Envs, tc collection.Testcase, shared *SharedMap) Context {
	if req == nil {
		req = &http.Request{}
	}
	if envs == nil {
		envs = env.Envs{}
	}
	if shared == nil {
		shared = NewSharedMap()
	}
	return Context{
		Request:    req,
		Envs:       envs,
		Testcase:   tc,
		Shared:     shared,
		Logger:     NewLogger(),
		TestResult: assertions.NewTestResult(),
	}
}

// Clone copies everything except Shared, which stays the same store.
func (c Context) Clone() Context {
	out := c
	out.Request = c.Request.Clone()
	if out.Request == nil {
		out.Request = &http.Request{}
	}
	out.Envs = c.Envs.Clone()
	out.Testcase = c.Testcase.Clone()
	out.Logger = c.Logger.Clone()
	out.TestResult = c.TestResult.Clone()
	out.Response.Headers = append([]Header(nil), c.Response.Headers...)
	return out
}

// Merge takes the fields a script may change from step. The response is
// never merged back.
func (c *Context) Merge(step Context) {
	c.Envs = step.Envs
	c.Request = step.Request
	c.Logger = step.Logger
	c.Shared = step.Shared
	c.TestResult = step.TestResult
}

package script

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/abdul-hamid-achik/hitcase/packages/assertions"
	"github.com/abdul-hamid-achik/hitcase/packages/capture"
	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
	"github.com/abdul-hamid-achik/hitcase/packages/http"
	"github.com/abdul-hamid-achik/hitcase/packages/snapshot"
)

//go:embed runtime.js
var runtimeJS string

// Host runs scripts. Each Execute call gets a fresh goja runtime, so a Host
// may be shared across goroutines.
type Host struct {
	client    *http.Client
	baseDir   string
	snapshots *snapshot.Manager
}

type HostOption func(*Host)

// WithClient sets the client used by fetch().
func WithClient(c *http.Client) HostOption {
	return func(h *Host) {
		h.client = c
	}
}

// WithBaseDir resolves relative schema files used by hitcase.expect.
func WithBaseDir(dir string) HostOption {
	return func(h *Host) {
		h.baseDir = dir
	}
}

// WithSnapshots backs hitcase.snapshot().
func WithSnapshots(m *snapshot.Manager) HostOption {
	return func(h *Host) {
		h.snapshots = m
	}
}

func NewHost(opts ...HostOption) *Host {
	h := &Host{}
	for _, opt := range opts {
		opt(h)
	}
	if h.client == nil {
		h.client = http.NewClient()
	}
	return h
}

// Compile reports syntax errors without running the script.
func Compile(source string) error {
	_, err := goja.Compile("script.js", wrap(source), false)
	return err
}

func wrap(source string) string {
	return "(async () => {\n" + source + "\n})()"
}

// binding holds the state one script invocation mutates.
type binding struct {
	ctx  context.Context
	host *Host
	vm   *goja.Runtime
	c    *Context
}

// Execute runs source against c and returns the context as the script left
// it. A script that calls hitcase.skip() returns ErrSkip.
func (h *Host) Execute(ctx context.Context, source string, c Context) (Context, error) {
	if strings.TrimSpace(source) == "" {
		return c, nil
	}
	if c.Logger == nil {
		c.Logger = NewLogger()
	}
	if c.TestResult == nil {
		c.TestResult = assertions.NewTestResult()
	}
	if c.Shared == nil {
		c.Shared = NewSharedMap()
	}
	if c.Envs == nil {
		c.Envs = env.Envs{}
	}
	if c.Request == nil {
		c.Request = &http.Request{}
	}

	vm := goja.New()
	b := &binding{ctx: ctx, host: h, vm: vm, c: &c}
	if err := vm.Set("__host", b.object()); err != nil {
		return c, err
	}
	if _, err := vm.RunString(runtimeJS); err != nil {
		return c, fmt.Errorf("load runtime: %w", err)
	}
	if _, err := vm.RunString("delete globalThis.__host;"); err != nil {
		return c, err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			vm.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	value, err := vm.RunString(wrap(source))
	if err != nil {
		return c, b.scriptError(err)
	}

	promise, ok := value.Export().(*goja.Promise)
	if !ok {
		return c, nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return c, nil
	case goja.PromiseStateRejected:
		return c, b.rejection(promise.Result())
	default:
		return c, errors.New("script did not finish")
	}
}

func (b *binding) scriptError(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if cause := thrownError(exc.Value()); errors.Is(cause, ErrSkip) {
			return ErrSkip
		}
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
	}
	return fmt.Errorf("script error: %w", err)
}

func (b *binding) rejection(reason goja.Value) error {
	if err := thrownError(reason); err != nil {
		return err
	}
	if reason == nil {
		return errors.New("script rejected")
	}
	return errors.New(reason.String())
}

// thrownError returns the Go error carried by a value raised through throw,
// or nil when the script threw something else.
func thrownError(v goja.Value) error {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	inner := obj.Get("value")
	if inner == nil {
		return nil
	}
	err, _ := inner.Export().(error)
	return err
}

// throw raises err inside the running script.
func (b *binding) throw(err error) {
	panic(b.vm.NewGoError(err))
}

func (b *binding) scope() string {
	return b.c.ScopeName
}

func argString(call goja.FunctionCall, i int) string {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

func (b *binding) object() *goja.Object {
	obj := b.vm.NewObject()
	fns := map[string]func(goja.FunctionCall) goja.Value{
		"log":        b.log,
		"sleep":      b.sleep,
		"fetch":      b.fetch,
		"equal":      b.equal,
		"append":     b.append,
		"testcase":   b.testcase,
		"getEnv":     b.getEnv,
		"setEnv":     b.setEnv,
		"addHeader":  b.addHeader,
		"addParam":   b.addParam,
		"setShared":  b.setShared,
		"getShared":  b.getShared,
		"waitShared": b.waitShared,
		"response":   b.response,
		"open":       b.open,
		"close":      b.close,
		"skip":       b.skip,
		"expect":     b.expect,
		"capture":    b.capture,
		"snapshot":   b.snapshot,
	}
	for name, fn := range fns {
		_ = obj.Set(name, fn)
	}
	return obj
}

func (b *binding) log(call goja.FunctionCall) goja.Value {
	msg := argString(call, 1)
	switch Level(argString(call, 0)) {
	case LevelWarn:
		b.c.Logger.Warn(b.scope(), msg)
	case LevelError:
		b.c.Logger.Error(b.scope(), msg)
	default:
		b.c.Logger.Info(b.scope(), msg)
	}
	return goja.Undefined()
}

func (b *binding) sleep(call goja.FunctionCall) goja.Value {
	ms := call.Argument(0).ToInteger()
	if ms <= 0 {
		return goja.Undefined()
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-b.ctx.Done():
		b.throw(b.ctx.Err())
	case <-timer.C:
	}
	return goja.Undefined()
}

type fetchRequest struct {
	Method  string   `json:"method"`
	URL     string   `json:"url"`
	Headers []Header `json:"headers"`
	Body    string   `json:"body"`
}

func (b *binding) fetch(call goja.FunctionCall) goja.Value {
	var req fetchRequest
	if err := json.Unmarshal([]byte(argString(call, 0)), &req); err != nil {
		b.throw(fmt.Errorf("fetch: %w", err))
	}
	fr := http.FetchRequest{Method: req.Method, URL: req.URL, Body: req.Body}
	for _, h := range req.Headers {
		fr.Headers = append(fr.Headers, http.Header{Key: h.Name, Value: h.Value})
	}

	resp, err := b.host.client.Fetch(b.ctx, fr)
	if err != nil {
		b.throw(fmt.Errorf("fetch %s: %w", req.URL, err))
	}
	out := Response{Status: resp.Status, Text: resp.Text}
	for _, h := range resp.Headers {
		out.Headers = append(out.Headers, Header{Name: h.Key, Value: h.Value})
	}
	return b.jsonValue(out)
}

func (b *binding) jsonValue(v any) goja.Value {
	data, err := json.Marshal(v)
	if err != nil {
		b.throw(err)
	}
	return b.vm.ToValue(string(data))
}

func decodeJSON(s string) any {
	if s == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}

func (b *binding) equal(call goja.FunctionCall) goja.Value {
	return b.vm.ToValue(assertions.Equal(decodeJSON(argString(call, 0)), decodeJSON(argString(call, 1))))
}

func (b *binding) append(call goja.FunctionCall) goja.Value {
	b.c.TestResult.Append(call.Argument(0).ToBoolean(), argString(call, 1))
	return goja.Undefined()
}

func (b *binding) testcase(call goja.FunctionCall) goja.Value {
	return b.vm.ToValue(b.c.Testcase.JSON())
}

func (b *binding) getEnv(call goja.FunctionCall) goja.Value {
	key := argString(call, 0)
	v, ok := b.c.Envs.Lookup(key)
	if !ok {
		b.c.Logger.Error(b.scope(), fmt.Sprintf("get env `%s` failed", key))
		return b.vm.ToValue("")
	}
	return b.vm.ToValue(v)
}

func (b *binding) setEnv(call goja.FunctionCall) goja.Value {
	key, value := argString(call, 0), argString(call, 1)
	b.c.Envs.Set(key, value, env.ScopeScript)
	b.c.Logger.Info(b.scope(), fmt.Sprintf("set env: `%s` as `%s`", key, value))
	return goja.Undefined()
}

func (b *binding) addHeader(call goja.FunctionCall) goja.Value {
	key, value := argString(call, 0), argString(call, 1)
	b.c.Request.AddHeader(key, value)
	b.c.Logger.Info(b.scope(), fmt.Sprintf("add header: `%s` as `%s`", key, value))
	return goja.Undefined()
}

func (b *binding) addParam(call goja.FunctionCall) goja.Value {
	key, value := argString(call, 0), argString(call, 1)
	b.c.Request.AddParam(key, value)
	b.c.Logger.Info(b.scope(), fmt.Sprintf("add params: `%s` as `%s`", key, value))
	return goja.Undefined()
}

func (b *binding) setShared(call goja.FunctionCall) goja.Value {
	key, value := argString(call, 0), argString(call, 1)
	b.c.Shared.Set(key, value)
	b.c.Logger.Info(b.scope(), fmt.Sprintf("set shared: `%s` as `%s`", key, value))
	return goja.Undefined()
}

func (b *binding) getShared(call goja.FunctionCall) goja.Value {
	key := argString(call, 0)
	v, ok := b.c.Shared.Get(key)
	if !ok {
		b.c.Logger.Error(b.scope(), fmt.Sprintf("get shared `%s` failed", key))
		return b.vm.ToValue(`""`)
	}
	b.c.Logger.Info(b.scope(), fmt.Sprintf("get shared: `%s` as `%s`", key, v))
	return b.vm.ToValue(v)
}

func (b *binding) waitShared(call goja.FunctionCall) goja.Value {
	key := argString(call, 0)
	v, err := b.c.Shared.Wait(b.ctx, key)
	if err != nil {
		b.c.Logger.Error(b.scope(), fmt.Sprintf("get shared `%s` failed", key))
		b.throw(err)
	}
	b.c.Logger.Info(b.scope(), fmt.Sprintf("get shared: `%s` as `%s`", key, v))
	return b.vm.ToValue(v)
}

func (b *binding) response(call goja.FunctionCall) goja.Value {
	return b.jsonValue(b.c.Response)
}

func (b *binding) open(call goja.FunctionCall) goja.Value {
	b.c.TestResult.Open(argString(call, 0))
	return goja.Undefined()
}

func (b *binding) close(call goja.FunctionCall) goja.Value {
	b.c.TestResult.Close()
	return goja.Undefined()
}

func (b *binding) skip(call goja.FunctionCall) goja.Value {
	b.throw(ErrSkip)
	return goja.Undefined()
}

func (b *binding) expect(call goja.FunctionCall) goja.Value {
	path, opName := argString(call, 0), argString(call, 1)
	op, err := assertions.ParseOperator(opName)
	if err != nil {
		b.throw(err)
	}

	resp := b.c.Response
	evaluator := assertions.NewEvaluator(assertions.Target{
		Status:     resp.Status,
		Headers:    resp.headerMap(),
		Body:       []byte(resp.Text),
		DurationMs: resp.ElapsedMs,
	}, assertions.WithBaseDir(b.host.baseDir))

	result := evaluator.Evaluate(path, op, decodeJSON(argString(call, 2)))
	b.c.TestResult.Append(result.Passed, result.Message)
	return b.vm.ToValue(result.Passed)
}

func (b *binding) capture(call goja.FunctionCall) goja.Value {
	name, path := argString(call, 0), argString(call, 1)
	resp := b.c.Response
	extractor := capture.NewExtractor(resp.Status, resp.headerMap(), []byte(resp.Text), resp.ElapsedMs)

	value, ok := extractor.ExtractString(path)
	if !ok {
		b.c.Logger.Warn(b.scope(), fmt.Sprintf("capture `%s` from `%s` found nothing", name, path))
		return goja.Undefined()
	}
	b.c.Envs.Set(name, value, env.ScopeScript)
	b.c.Logger.Info(b.scope(), fmt.Sprintf("set env: `%s` as `%s`", name, value))
	return b.vm.ToValue(value)
}

// snapshot compares a value, or the response body when none is given,
// with the stored snapshot for this testcase path.
func (b *binding) snapshot(call goja.FunctionCall) goja.Value {
	if b.host.snapshots == nil {
		b.c.TestResult.Append(false, "snapshots are not enabled")
		return b.vm.ToValue(false)
	}

	name, raw := argString(call, 0), argString(call, 1)
	var actual any
	if raw == "" {
		actual = decodeJSON(b.c.Response.Text)
	} else {
		actual = decodeJSON(raw)
	}

	path := b.c.Testcase.Path()
	collection := ""
	if len(path) > 0 {
		collection, _, _ = strings.Cut(path[0], ":")
	}
	result := b.host.snapshots.Compare(collection, snapshot.Key(path, name), actual)
	if result.IsNew || result.Updated {
		b.c.Logger.Info(b.scope(), result.Message)
	}
	b.c.TestResult.Append(result.Passed, result.Message)
	return b.vm.ToValue(result.Passed)
}

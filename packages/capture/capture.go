package capture

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Extractor reads values out of one response.
type Extractor struct {
	status     int
	headers    map[string]string
	body       []byte
	durationMs int64
	bodyJSON   gjson.Result
	isJSON     bool
}

func NewExtractor(status int, headers map[string]string, body []byte, durationMs int64) *Extractor {
	e := &Extractor{
		status:     status,
		headers:    headers,
		body:       body,
		durationMs: durationMs,
	}
	if len(strings.TrimSpace(string(body))) > 0 && gjson.ValidBytes(body) {
		e.bodyJSON = gjson.ParseBytes(body)
		e.isJSON = true
	}
	return e
}

// Extract resolves a source expression: status, duration, header <name>,
// body, or a gjson path into the JSON body (optionally prefixed with body.).
func (e *Extractor) Extract(source string) (any, bool) {
	source = strings.TrimSpace(source)
	switch {
	case source == "status":
		return e.status, true
	case source == "duration":
		return e.durationMs, true
	case strings.HasPrefix(source, "header "):
		return e.extractFromHeader(strings.TrimSpace(strings.TrimPrefix(source, "header ")))
	case source == "body":
		return e.extractFromBody("")
	default:
		return e.extractFromBody(strings.TrimPrefix(source, "body."))
	}
}

// ExtractString is Extract rendered as text: strings as-is, everything else
// as JSON.
func (e *Extractor) ExtractString(source string) (string, bool) {
	v, ok := e.Extract(source)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case int, int64:
		return fmt.Sprint(s), true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.isJSON {
		if path == "" {
			return string(e.body), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	for k, v := range e.headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// ExtractAll resolves every name → source pair that is present.
func (e *Extractor) ExtractAll(sources map[string]string) map[string]string {
	results := make(map[string]string)
	for name, source := range sources {
		if value, ok := e.ExtractString(source); ok {
			results[name] = value
		}
	}
	return results
}

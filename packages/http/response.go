package http

import (
	"encoding/json"
	"strings"
)

type Response struct {
	Status     int      `yaml:"status" json:"status"`
	StatusText string   `yaml:"status_text" json:"status_text"`
	Headers    []Header `yaml:"headers" json:"headers"`
	Body       string   `yaml:"body" json:"body"`
	ElapsedMs  int64    `yaml:"elapsed_ms" json:"elapsed_ms"`
}

func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal([]byte(r.Body), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Header returns the first header named key (case-insensitive).
func (r *Response) Header(key string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value
		}
	}
	return ""
}

// HeaderMap flattens headers; repeated names keep the first value.
func (r *Response) HeaderMap() map[string]string {
	out := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		if _, ok := out[h.Key]; !ok {
			out[h.Key] = h.Value
		}
	}
	return out
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

func (r *Response) IsJSON() bool {
	return strings.Contains(r.ContentType(), "application/json")
}

func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

func (r *Response) IsServerError() bool {
	return r.Status >= 500
}

package http

import (
	"net/url"
	"strings"
)

// LockWith marks entries added by something other than the user. Locked
// entries are dropped by ClearLocked.
type LockWith string

const (
	LockNone   LockWith = ""
	LockScript LockWith = "Script"
	LockAuto   LockWith = "Auto"
)

const (
	descScript  = "build with script"
	descAutoGen = "auto gen"
)

type Header struct {
	Key      string   `yaml:"key" json:"key"`
	Value    string   `yaml:"value" json:"value"`
	Desc     string   `yaml:"desc,omitempty" json:"desc,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	LockWith LockWith `yaml:"lock_with,omitempty" json:"lock_with,omitempty"`
}

type QueryParam struct {
	Key      string   `yaml:"key" json:"key"`
	Value    string   `yaml:"value" json:"value"`
	Desc     string   `yaml:"desc,omitempty" json:"desc,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	LockWith LockWith `yaml:"lock_with,omitempty" json:"lock_with,omitempty"`
}

type PathVariable struct {
	Key   string `yaml:"key" json:"key"`
	Value string `yaml:"value" json:"value"`
	Desc  string `yaml:"desc,omitempty" json:"desc,omitempty"`
}

type FieldType string

const (
	FieldText FieldType = "text"
	FieldFile FieldType = "file"
)

// FormField is a urlencoded or multipart field. For FieldFile, Value is a
// local file path.
type FormField struct {
	Key      string    `yaml:"key" json:"key"`
	Value    string    `yaml:"value" json:"value"`
	Type     FieldType `yaml:"type,omitempty" json:"type,omitempty"`
	Desc     string    `yaml:"desc,omitempty" json:"desc,omitempty"`
	Disabled bool      `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	LockWith LockWith  `yaml:"lock_with,omitempty" json:"lock_with,omitempty"`
}

type BodyType string

const (
	BodyNone       BodyType = "none"
	BodyFormData   BodyType = "form-data"
	BodyURLEncoded BodyType = "x-www-form-urlencoded"
	BodyRaw        BodyType = "raw"
	BodyBinary     BodyType = "binary"
)

type RawType string

const (
	RawText       RawType = "text"
	RawJSON       RawType = "json"
	RawHTML       RawType = "html"
	RawXML        RawType = "xml"
	RawJavaScript RawType = "javascript"
)

// ContentType returns the MIME type sent for a raw body.
func (t RawType) ContentType() string {
	switch t {
	case RawJSON:
		return "application/json"
	case RawHTML:
		return "text/html"
	case RawXML:
		return "application/xml"
	case RawJavaScript:
		return "application/javascript"
	default:
		return "text/plain"
	}
}

type Body struct {
	Type       BodyType    `yaml:"type,omitempty" json:"type,omitempty"`
	RawType    RawType     `yaml:"raw_type,omitempty" json:"raw_type,omitempty"`
	Raw        string      `yaml:"raw,omitempty" json:"raw,omitempty"`
	FormData   []FormField `yaml:"form_data,omitempty" json:"form_data,omitempty"`
	URLEncoded []FormField `yaml:"urlencoded,omitempty" json:"urlencoded,omitempty"`
	File       string      `yaml:"file,omitempty" json:"file,omitempty"`
}

// Request is a request template. Values may contain {{name}} tokens until
// the request has gone through Build.
type Request struct {
	Method        string         `yaml:"method" json:"method"`
	Schema        string         `yaml:"schema" json:"schema"`
	BaseURL       string         `yaml:"base_url" json:"base_url"`
	PathVariables []PathVariable `yaml:"path_variables,omitempty" json:"path_variables,omitempty"`
	Params        []QueryParam   `yaml:"params,omitempty" json:"params,omitempty"`
	Headers       []Header       `yaml:"headers,omitempty" json:"headers,omitempty"`
	Body          Body           `yaml:"body" json:"body"`
	Auth          Auth           `yaml:"auth" json:"auth"`
}

// NewRequest parses rawURL into schema, base URL and query params.
func NewRequest(method, rawURL string) *Request {
	r := &Request{Method: strings.ToUpper(method), Body: Body{Type: BodyNone}}
	r.ParseURL(rawURL)
	return r
}

// ParseURL splits rawURL into schema, base URL and query params. Path
// segments starting with ':' become path variables.
func (r *Request) ParseURL(rawURL string) {
	r.Schema = "http"
	rest := rawURL
	if schema, after, ok := strings.Cut(rawURL, "://"); ok {
		r.Schema = strings.ToLower(schema)
		rest = after
	}

	base, query, hasQuery := strings.Cut(rest, "?")
	r.BaseURL = base
	if hasQuery {
		r.Params = nil
		for _, pair := range strings.Split(query, "&") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok || k == "" {
				continue
			}
			r.Params = append(r.Params, QueryParam{Key: k, Value: v})
		}
	}

	keys := r.PathVariableKeys()
	existing := make(map[string]PathVariable, len(r.PathVariables))
	for _, p := range r.PathVariables {
		existing[p.Key] = p
	}
	r.PathVariables = nil
	for _, k := range keys {
		pv, ok := existing[k]
		if !ok {
			pv = PathVariable{Key: k}
		}
		r.PathVariables = append(r.PathVariables, pv)
	}
}

// PathVariableKeys lists the :name segments of the base URL.
func (r *Request) PathVariableKeys() []string {
	var keys []string
	for _, part := range strings.Split(r.BaseURL, "/") {
		if strings.HasPrefix(part, ":") && len(part) > 1 {
			keys = append(keys, part[1:])
		}
	}
	return keys
}

// URLWithSchema is schema://base_url without query params.
func (r *Request) URLWithSchema() string {
	schema := r.Schema
	if schema == "" {
		schema = "http"
	}
	return strings.ToLower(schema) + "://" + r.BaseURL
}

// URL is the full URL including enabled query params in declaration order.
func (r *Request) URL() string {
	var params []string
	for _, q := range r.Params {
		if q.Disabled {
			continue
		}
		params = append(params, url.QueryEscape(q.Key)+"="+url.QueryEscape(q.Value))
	}
	if len(params) == 0 {
		return r.URLWithSchema()
	}
	return r.URLWithSchema() + "?" + strings.Join(params, "&")
}

// HeaderValue returns the first enabled header named key (case-insensitive).
func (r *Request) HeaderValue(key string) (string, bool) {
	for _, h := range r.Headers {
		if !h.Disabled && strings.EqualFold(h.Key, key) {
			return h.Value, true
		}
	}
	return "", false
}

// AddHeader appends a script-locked header.
func (r *Request) AddHeader(key, value string) {
	r.Headers = append(r.Headers, Header{Key: key, Value: value, Desc: descScript, LockWith: LockScript})
}

// AddParam appends a script-locked query param.
func (r *Request) AddParam(key, value string) {
	r.Params = append(r.Params, QueryParam{Key: key, Value: value, Desc: descScript, LockWith: LockScript})
}

// ClearLocked drops every entry added by scripts or generated automatically.
func (r *Request) ClearLocked() {
	headers := r.Headers[:0]
	for _, h := range r.Headers {
		if h.LockWith == LockNone {
			headers = append(headers, h)
		}
	}
	r.Headers = headers

	params := r.Params[:0]
	for _, q := range r.Params {
		if q.LockWith == LockNone {
			params = append(params, q)
		}
	}
	r.Params = params

	r.Body.FormData = unlockedFields(r.Body.FormData)
	r.Body.URLEncoded = unlockedFields(r.Body.URLEncoded)
}

func unlockedFields(fields []FormField) []FormField {
	out := fields[:0]
	for _, f := range fields {
		if f.LockWith == LockNone {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.PathVariables = append([]PathVariable(nil), r.PathVariables...)
	out.Params = append([]QueryParam(nil), r.Params...)
	out.Headers = append([]Header(nil), r.Headers...)
	out.Body.FormData = append([]FormField(nil), r.Body.FormData...)
	out.Body.URLEncoded = append([]FormField(nil), r.Body.URLEncoded...)
	return &out
}

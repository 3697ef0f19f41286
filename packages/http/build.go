package http

import (
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
)

// Build materializes a template against envs. Disabled entries are dropped,
// the Authorization header is generated from the resolved auth and every
// {{name}} token is substituted. The template is not modified.
func Build(template *Request, envs env.Envs) *Request {
	r := template.Clone()
	sub := envs.Substitute

	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = "GET"
	}
	r.Schema = sub(r.Schema)

	pathValues := make(map[string]string, len(r.PathVariables))
	for i := range r.PathVariables {
		r.PathVariables[i].Value = sub(r.PathVariables[i].Value)
		pathValues[r.PathVariables[i].Key] = r.PathVariables[i].Value
	}
	parts := strings.Split(sub(r.BaseURL), "/")
	for i, part := range parts {
		if key, ok := strings.CutPrefix(part, ":"); ok && key != "" {
			parts[i] = pathValues[key]
		}
	}
	r.BaseURL = strings.Join(parts, "/")

	params := make([]QueryParam, 0, len(r.Params))
	for _, q := range r.Params {
		if q.Disabled {
			continue
		}
		q.Key, q.Value = sub(q.Key), sub(q.Value)
		params = append(params, q)
	}
	r.Params = params

	r.Auth = Auth{
		Type:         r.Auth.Type,
		Token:        sub(r.Auth.Token),
		Username:     sub(r.Auth.Username),
		Password:     sub(r.Auth.Password),
		GrantType:    sub(r.Auth.GrantType),
		TokenURL:     sub(r.Auth.TokenURL),
		ClientID:     sub(r.Auth.ClientID),
		ClientSecret: sub(r.Auth.ClientSecret),
		Scope:        sub(r.Auth.Scope),
	}
	applyAuth(r, r.Auth)

	headers := make([]Header, 0, len(r.Headers))
	for _, h := range r.Headers {
		if h.Disabled {
			continue
		}
		h.Key, h.Value = sub(h.Key), sub(h.Value)
		headers = append(headers, h)
	}
	r.Headers = headers

	r.Body.Raw = sub(r.Body.Raw)
	r.Body.File = sub(r.Body.File)
	r.Body.FormData = buildFields(r.Body.FormData, sub)
	r.Body.URLEncoded = buildFields(r.Body.URLEncoded, sub)
	if r.Body.Type == "" {
		r.Body.Type = BodyNone
	}

	return r
}

func buildFields(fields []FormField, sub func(string) string) []FormField {
	if len(fields) == 0 {
		return nil
	}
	out := make([]FormField, 0, len(fields))
	for _, f := range fields {
		if f.Disabled {
			continue
		}
		f.Key, f.Value = sub(f.Key), sub(f.Value)
		out = append(out, f)
	}
	return out
}

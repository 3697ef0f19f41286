package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitcase/packages/core/env"
)

func TestNewRequest_ParsesURL(t *testing.T) {
	r := NewRequest("get", "https://api.example.com/users/:id/posts/:post?page=2&sort=asc")

	assert.Equal(t, "GET", r.Method)
	assert.Equal(t, "https", r.Schema)
	assert.Equal(t, "api.example.com/users/:id/posts/:post", r.BaseURL)
	assert.Equal(t, []string{"id", "post"}, r.PathVariableKeys())
	require.Len(t, r.PathVariables, 2)
	require.Len(t, r.Params, 2)
	assert.Equal(t, QueryParam{Key: "page", Value: "2"}, r.Params[0])

	noSchema := NewRequest("GET", "localhost:8080/ping")
	assert.Equal(t, "http://localhost:8080/ping", noSchema.URL())
}

func TestBuild_Substitutes(t *testing.T) {
	envs := env.Envs{
		"host":  env.String("example.com", "Dev"),
		"id":    env.String("42", "Dev"),
		"token": env.String("secret", "Dev"),
		"name":  env.String("alice", "Dev"),
	}

	tmpl := NewRequest("post", "https://{{host}}/users/:id")
	tmpl.PathVariables[0].Value = "{{id}}"
	tmpl.Params = []QueryParam{
		{Key: "q", Value: "{{name}}"},
		{Key: "off", Value: "x", Disabled: true},
	}
	tmpl.Headers = []Header{
		{Key: "X-User", Value: "{{name}}"},
		{Key: "X-Off", Value: "1", Disabled: true},
	}
	tmpl.Body = Body{Type: BodyRaw, RawType: RawJSON, Raw: `{"name":"{{name}}","missing":"{{nope}}"}`}
	tmpl.Auth = Auth{Type: AuthBearer, Token: "{{token}}"}

	built := Build(tmpl, envs)

	assert.Equal(t, "https://example.com/users/42?q=alice", built.URL())
	assert.Equal(t, `{"name":"alice","missing":"{UNKNOWN}"}`, built.Body.Raw)

	require.Len(t, built.Headers, 2)
	assert.Equal(t, "alice", built.Headers[0].Value)
	assert.Equal(t, Header{Key: "Authorization", Value: "Bearer secret", Desc: "auto gen", LockWith: LockAuto}, built.Headers[1])

	// template untouched
	assert.Equal(t, "{{id}}", tmpl.PathVariables[0].Value)
	assert.Len(t, tmpl.Headers, 2)
}

func TestBuild_MissingPathVariableIsEmpty(t *testing.T) {
	tmpl := NewRequest("GET", "http://host/a/:missing/b")
	tmpl.PathVariables = nil

	built := Build(tmpl, env.Envs{})
	assert.Equal(t, "http://host/a//b", built.URL())
}

func TestBuild_FormFields(t *testing.T) {
	tmpl := NewRequest("POST", "http://host")
	tmpl.Body = Body{Type: BodyURLEncoded, URLEncoded: []FormField{
		{Key: "{{k}}", Value: "{{v}}"},
		{Key: "drop", Value: "me", Disabled: true},
	}}

	built := Build(tmpl, env.Envs{"k": env.String("user", "Dev"), "v": env.String("bob", "Dev")})
	assert.Equal(t, []FormField{{Key: "user", Value: "bob"}}, built.Body.URLEncoded)
}

func TestAuth_Resolve(t *testing.T) {
	basic := Auth{Type: AuthBasic, Username: "u", Password: "p"}
	bearer := Auth{Type: AuthBearer, Token: "t"}

	assert.Equal(t, bearer, bearer.Resolve(basic))
	assert.Equal(t, basic, Auth{Type: AuthInherit}.Resolve(Auth{}, basic, bearer))
	assert.Equal(t, AuthNone, Auth{}.Resolve(Auth{Type: AuthInherit}).Type)

	v, ok := basic.HeaderValue()
	require.True(t, ok)
	assert.Equal(t, "Basic dTpw", v)

	_, ok = Auth{Type: AuthNone}.HeaderValue()
	assert.False(t, ok)
	_, ok = Auth{Type: AuthOAuth2, TokenURL: "https://idp/token"}.HeaderValue()
	assert.False(t, ok)
}

func TestBuild_OAuth2Fields(t *testing.T) {
	tmpl := NewRequest("GET", "https://api.example.com/me")
	tmpl.Auth = Auth{Type: AuthOAuth2, TokenURL: "{{idp}}/token", ClientID: "{{cid}}", Scope: "read"}
	envs := env.Envs{}
	envs.Set("idp", "https://idp.example.com", env.ScopeGlobal)
	envs.Set("cid", "app", env.ScopeGlobal)

	built := Build(tmpl, envs)
	assert.Equal(t, "https://idp.example.com/token", built.Auth.TokenURL)
	assert.Equal(t, "app", built.Auth.ClientID)
	_, ok := built.HeaderValue("Authorization")
	assert.False(t, ok)
}

func TestRequest_ScriptEntries(t *testing.T) {
	r := NewRequest("GET", "http://host")
	r.Headers = []Header{{Key: "Accept", Value: "*/*"}}
	r.AddHeader("X-Trace", "1")
	r.AddParam("debug", "true")

	assert.Equal(t, "http://host?debug=true", r.URL())
	assert.Equal(t, "build with script", r.Headers[1].Desc)
	assert.Equal(t, LockScript, r.Params[0].LockWith)

	r.ClearLocked()
	assert.Len(t, r.Headers, 1)
	assert.Empty(t, r.Params)
}

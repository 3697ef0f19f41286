package http

import (
	"encoding/base64"
	"strings"

	"github.com/abdul-hamid-achik/hitcase/packages/auth/oauth2"
)

type AuthType string

const (
	AuthInherit AuthType = "inherit"
	AuthNone    AuthType = "none"
	AuthBearer  AuthType = "bearer"
	AuthBasic   AuthType = "basic"
	// AuthOAuth2 fetches a token from TokenURL when the request is sent.
	AuthOAuth2 AuthType = "oauth2"
)

// Auth describes how the Authorization header is generated. An empty Type
// behaves like AuthInherit.
type Auth struct {
	Type     AuthType `yaml:"type,omitempty" json:"type,omitempty"`
	Token    string   `yaml:"token,omitempty" json:"token,omitempty"`
	Username string   `yaml:"username,omitempty" json:"username,omitempty"`
	Password string   `yaml:"password,omitempty" json:"password,omitempty"`

	// oauth2 only
	GrantType    string `yaml:"grant_type,omitempty" json:"grant_type,omitempty"`
	TokenURL     string `yaml:"token_url,omitempty" json:"token_url,omitempty"`
	ClientID     string `yaml:"client_id,omitempty" json:"client_id,omitempty"`
	ClientSecret string `yaml:"client_secret,omitempty" json:"client_secret,omitempty"`
	Scope        string `yaml:"scope,omitempty" json:"scope,omitempty"`
}

func (a Auth) inherits() bool {
	return a.Type == "" || a.Type == AuthInherit
}

// Resolve follows inheritance through ancestors, nearest first. A chain that
// inherits all the way up resolves to AuthNone.
func (a Auth) Resolve(ancestors ...Auth) Auth {
	if !a.inherits() {
		return a
	}
	for _, p := range ancestors {
		if !p.inherits() {
			return p
		}
	}
	return Auth{Type: AuthNone}
}

func (a Auth) isOAuth2() bool {
	return strings.EqualFold(string(a.Type), string(AuthOAuth2))
}

func (a Auth) oauth2Config() oauth2.Config {
	return oauth2.Config{
		GrantType:    oauth2.GrantType(a.GrantType),
		TokenURL:     a.TokenURL,
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		Scope:        a.Scope,
		Username:     a.Username,
		Password:     a.Password,
	}
}

// HeaderValue renders the Authorization header value. It reports false for
// auth types that produce no static header, oauth2 included.
func (a Auth) HeaderValue() (string, bool) {
	switch AuthType(strings.ToLower(string(a.Type))) {
	case AuthBearer:
		return "Bearer " + a.Token, true
	case AuthBasic:
		raw := a.Username + ":" + a.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw)), true
	default:
		return "", false
	}
}

// applyAuth replaces any generated Authorization header with one rendered
// from auth. User-supplied Authorization headers are left in place.
func applyAuth(r *Request, auth Auth) {
	v, _ := auth.HeaderValue()
	setAuthHeader(r, v)
}

// setAuthHeader replaces the generated Authorization header; "" removes it.
func setAuthHeader(r *Request, value string) {
	headers := r.Headers[:0]
	for _, h := range r.Headers {
		if h.LockWith == LockAuto && strings.EqualFold(h.Key, "Authorization") {
			continue
		}
		headers = append(headers, h)
	}
	r.Headers = headers

	if value != "" {
		r.Headers = append(r.Headers, Header{
			Key:      "Authorization",
			Value:    value,
			Desc:     descAutoGen,
			LockWith: LockAuto,
		})
	}
}

package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(t *testing.T, c *Client, r *Request) (*Request, *Response) {
	t.Helper()
	sent, resp, err := c.Send(context.Background(), r)
	require.NoError(t, err)
	return sent, resp
}

func TestClient_SendGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/test", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	client := NewClient()
	sent, resp := send(t, client, NewRequest("get", server.URL+"/test?page=1"))

	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "OK", resp.StatusText)
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Contains(t, resp.Body, "hello")
	assert.True(t, resp.IsJSON())

	host, ok := sent.HeaderValue("Host")
	require.True(t, ok)
	assert.Equal(t, server.Listener.Addr().String(), host)
	for _, h := range sent.Headers {
		assert.Equal(t, LockAuto, h.LockWith)
		assert.Equal(t, "auto gen", h.Desc)
	}
}

func TestClient_SendRawJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"name": "test"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 123}`))
	}))
	defer server.Close()

	req := NewRequest("POST", server.URL)
	req.Body = Body{Type: BodyRaw, RawType: RawJSON, Raw: `{"name": "test"}`}

	sent, resp := send(t, NewClient(), req)
	assert.Equal(t, 201, resp.Status)

	ct, ok := sent.HeaderValue("Content-Type")
	require.True(t, ok)
	assert.Equal(t, "application/json", ct)
	cl, ok := sent.HeaderValue("Content-Length")
	require.True(t, ok)
	assert.Equal(t, "16", cl)
}

func TestClient_UserContentTypeWins(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.api+json", r.Header.Get("Content-Type"))
	}))
	defer server.Close()

	req := NewRequest("POST", server.URL)
	req.Headers = []Header{{Key: "content-type", Value: "application/vnd.api+json"}}
	req.Body = Body{Type: BodyRaw, RawType: RawJSON, Raw: `{}`}

	sent, _ := send(t, NewClient(), req)
	count := 0
	for _, h := range sent.Headers {
		if h.Key == "content-type" || h.Key == "Content-Type" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestClient_SendURLEncoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "a b", r.PostForm.Get("q"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
	}))
	defer server.Close()

	req := NewRequest("POST", server.URL)
	req.Body = Body{Type: BodyURLEncoded, URLEncoded: []FormField{{Key: "q", Value: "a b"}}}
	send(t, NewClient(), req)
}

func TestClient_SendMultipart(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "upload.txt"), []byte("file body"), 0644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "value", r.FormValue("field"))
		f, hdr, err := r.FormFile("doc")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "upload.txt", hdr.Filename)
		assert.Equal(t, "file body", string(data))
	}))
	defer server.Close()

	req := NewRequest("POST", server.URL)
	req.Body = Body{Type: BodyFormData, FormData: []FormField{
		{Key: "field", Value: "value", Type: FieldText},
		{Key: "doc", Value: "upload.txt", Type: FieldFile},
	}}
	send(t, NewClient(WithBaseDir(dir)), req)
}

func TestClient_SendBinary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{1, 2, 3}, 0644))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{1, 2, 3}, body)
	}))
	defer server.Close()

	req := NewRequest("PUT", server.URL)
	req.Body = Body{Type: BodyBinary, File: "blob.bin"}
	send(t, NewClient(WithBaseDir(dir)), req)
}

func TestClient_SendErrors(t *testing.T) {
	client := NewClient()

	_, _, err := client.Send(context.Background(), NewRequest("GET", "ftp://example.com"))
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, _, err = client.Send(context.Background(), NewRequest("BAD METHOD", "http://example.com"))
	assert.ErrorIs(t, err, ErrInvalidMethod)

	req := NewRequest("POST", "http://example.com")
	req.Body = Body{Type: BodyBinary, File: filepath.Join(t.TempDir(), "missing.bin")}
	_, _, err = client.Send(context.Background(), req)
	assert.Error(t, err)
}

func TestClient_CookieJar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			return
		}
		c, err := r.Cookie("session")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(c.Value))
	}))
	defer server.Close()

	client := NewClient()
	send(t, client, NewRequest("GET", server.URL+"/login"))
	_, resp := send(t, client, NewRequest("GET", server.URL+"/me"))
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "abc", resp.Body)

	fetched, err := client.Fetch(context.Background(), FetchRequest{URL: server.URL + "/me"})
	require.NoError(t, err)
	assert.Equal(t, 401, fetched.Status)
}

func TestClient_OAuth2(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		_ = r.ParseForm()
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL+"/api")
	req.Auth = Auth{Type: AuthOAuth2, TokenURL: server.URL + "/token", ClientID: "id", ClientSecret: "secret"}

	for range 2 {
		sent, resp := send(t, client, req)
		assert.Equal(t, 200, resp.Status)
		v, ok := sent.HeaderValue("Authorization")
		require.True(t, ok)
		assert.Equal(t, "Bearer abc", v)
	}
	assert.Equal(t, int32(1), tokenCalls.Load())

	req.Auth.TokenURL = "http://127.0.0.1:1/token"
	_, _, err := client.Send(context.Background(), req)
	assert.ErrorContains(t, err, "oauth2:")
}

func TestClient_OAuth2RejectedTokenIsRefetched(t *testing.T) {
	var tokenCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		n := tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"t%d","expires_in":3600}`, n)
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient()
	req := NewRequest("GET", server.URL+"/api")
	req.Auth = Auth{Type: AuthOAuth2, TokenURL: server.URL + "/token", ClientID: "id"}

	_, resp := send(t, client, req)
	assert.Equal(t, 401, resp.Status)
	_, resp = send(t, client, req)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, int32(2), tokenCalls.Load())
}

func TestClient_WithTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(WithTimeout(50 * time.Millisecond))
	_, _, err := client.Send(context.Background(), NewRequest("GET", server.URL))

	assert.Error(t, err)
}

func TestClient_WithDefaultHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Token"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	client := NewClient(WithDefaultHeader("X-Token", "test-token"))
	_, resp := send(t, client, NewRequest("GET", server.URL))
	assert.Equal(t, 200, resp.Status)
}

func TestClient_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, "/final", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, resp := send(t, NewClient(), NewRequest("GET", server.URL+"/redirect"))
	assert.Equal(t, 200, resp.Status)

	_, resp = send(t, NewClient(WithFollowRedirects(false)), NewRequest("GET", server.URL+"/redirect"))
	assert.Equal(t, 302, resp.Status)
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "yes", r.Header.Get("X-From-Script"))
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Echo", "1")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	resp, err := NewClient().Fetch(context.Background(), FetchRequest{
		Method:  "post",
		URL:     server.URL,
		Headers: []Header{{Key: "X-From-Script", Value: "yes"}},
		Body:    `{"a":1}`,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, `{"a":1}`, resp.Text)

	found := false
	for _, h := range resp.Headers {
		if h.Key == "X-Echo" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid http", "http://example.com", false},
		{"valid https with path", "https://example.com/api/users?page=1", false},
		{"localhost with port", "http://localhost:8080", false},
		{"ftp scheme", "ftp://example.com/file", true},
		{"javascript scheme", "javascript:alert(1)", true},
		{"missing host", "http:///path", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResponse_Helpers(t *testing.T) {
	resp := &Response{
		Status: 204,
		Headers: []Header{
			{Key: "Set-Cookie", Value: "a=1"},
			{Key: "Set-Cookie", Value: "b=2"},
		},
	}
	assert.True(t, resp.IsSuccess())
	assert.False(t, resp.IsServerError())
	assert.Equal(t, "a=1", resp.Header("set-cookie"))
	assert.Equal(t, map[string]string{"Set-Cookie": "a=1"}, resp.HeaderMap())
}

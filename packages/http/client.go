package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitcase/packages/auth/oauth2"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 60 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
	// DefaultUserAgent is sent when a request carries no User-Agent header
	DefaultUserAgent = "hitcase"
)

var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidMethod = errors.New("invalid method")
)

// Client sends built requests. Cookies set by responses are kept in a jar
// shared by every request sent through the same client.
type Client struct {
	httpClient     *http.Client
	fetchClient    *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	baseDir        string
	limiter        *rate.Limiter
	defaultHeaders map[string]string
	tokens         *oauth2.Source
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
	}

	for _, opt := range opts {
		opt(c)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	if !c.validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	// publicsuffix keeps cookies from being set across registrable domains.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	c.httpClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
		Jar:           jar,
	}
	c.fetchClient = &http.Client{
		Transport:     transport,
		Timeout:       c.timeout,
		CheckRedirect: redirectPolicy,
	}
	c.tokens = oauth2.NewSource(c.fetchClient)

	return c
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithBaseDir resolves relative body file paths against dir
func WithBaseDir(dir string) ClientOption {
	return func(c *Client) {
		c.baseDir = dir
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// Send performs a built request. The returned request is req plus the
// headers the transport added, marked as auto generated.
func (c *Client) Send(ctx context.Context, req *Request) (*Request, *Response, error) {
	sent := req.Clone()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return sent, nil, err
		}
	}

	rawURL := sent.URL()
	if err := ValidateURL(rawURL); err != nil {
		return sent, nil, err
	}

	if sent.Auth.isOAuth2() {
		token, err := c.tokens.Token(ctx, sent.Auth.oauth2Config())
		if err != nil {
			return sent, nil, fmt.Errorf("oauth2: %w", err)
		}
		setAuthHeader(sent, token.HeaderValue())
	}

	body, contentType, err := c.buildBody(sent.Body)
	if err != nil {
		return sent, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, sent.Method, rawURL, body)
	if err != nil {
		if strings.Contains(err.Error(), "method") {
			return sent, nil, fmt.Errorf("%w: %q", ErrInvalidMethod, sent.Method)
		}
		return sent, nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for _, h := range sent.Headers {
		httpReq.Header.Add(h.Key, h.Value)
	}

	if contentType != "" {
		if _, ok := sent.HeaderValue("Content-Type"); !ok {
			httpReq.Header.Set("Content-Type", contentType)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", DefaultUserAgent)
	}

	sent.Headers = appendAutoHeaders(sent.Headers, httpReq)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return sent, nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return sent, nil, err
	}
	elapsed := time.Since(start)

	if httpResp.StatusCode == http.StatusUnauthorized && sent.Auth.isOAuth2() {
		c.tokens.Invalidate(sent.Auth.oauth2Config())
	}

	return sent, &Response{
		Status:     httpResp.StatusCode,
		StatusText: http.StatusText(httpResp.StatusCode),
		Headers:    headerList(httpResp.Header),
		Body:       string(respBody),
		ElapsedMs:  elapsed.Milliseconds(),
	}, nil
}

func appendAutoHeaders(headers []Header, httpReq *http.Request) []Header {
	has := func(key string) bool {
		for _, h := range headers {
			if strings.EqualFold(h.Key, key) {
				return true
			}
		}
		return false
	}
	add := func(key, value string) {
		if value == "" || has(key) {
			return
		}
		headers = append(headers, Header{Key: key, Value: value, Desc: descAutoGen, LockWith: LockAuto})
	}

	for _, key := range sortedKeys(httpReq.Header) {
		add(key, httpReq.Header.Get(key))
	}
	if httpReq.ContentLength > 0 {
		add("Content-Length", strconv.FormatInt(httpReq.ContentLength, 10))
	}
	add("Host", httpReq.URL.Host)
	return headers
}

func (c *Client) buildBody(b Body) (io.Reader, string, error) {
	switch b.Type {
	case BodyRaw:
		return strings.NewReader(b.Raw), b.RawType.ContentType(), nil
	case BodyURLEncoded:
		values := neturl.Values{}
		for _, f := range b.URLEncoded {
			values.Add(f.Key, f.Value)
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	case BodyFormData:
		buf, ct, err := BuildMultipartBody(b.FormData, c.baseDir)
		if err != nil {
			return nil, "", err
		}
		return buf, ct, nil
	case BodyBinary:
		path := c.resolvePath(b.File)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("read body file: %w", err)
		}
		ct := mime.TypeByExtension(filepath.Ext(path))
		if ct == "" {
			ct = "application/octet-stream"
		}
		return bytes.NewReader(data), ct, nil
	default:
		return nil, "", nil
	}
}

func (c *Client) resolvePath(path string) string {
	if !filepath.IsAbs(path) && c.baseDir != "" {
		return filepath.Join(c.baseDir, path)
	}
	return path
}

// FetchRequest is an ad-hoc request issued from a script.
type FetchRequest struct {
	Method  string
	URL     string
	Headers []Header
	Body    string
}

type FetchResponse struct {
	Status  int
	Headers []Header
	Text    string
}

// Fetch sends an independent request. It does not share the cookie jar.
func (c *Client) Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = "GET"
	}

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMethod, err)
	}
	for _, h := range req.Headers {
		httpReq.Header.Add(h.Key, h.Value)
	}

	httpResp, err := c.fetchClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	text, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return &FetchResponse{
		Status:  httpResp.StatusCode,
		Headers: headerList(httpResp.Header),
		Text:    string(text),
	}, nil
}

func headerList(h http.Header) []Header {
	var out []Header
	for _, k := range sortedKeys(h) {
		for _, v := range h[k] {
			out = append(out, Header{Key: k, Value: v})
		}
	}
	return out
}

func sortedKeys(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q (only http and https are allowed)", ErrInvalidURL, u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}

	return nil
}

// BuildMultipartBody creates a multipart form data body. File fields are read
// from local paths, resolved against baseDir when relative.
func BuildMultipartBody(fields []FormField, baseDir string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, field := range fields {
		if field.Type == FieldFile {
			filePath := field.Value
			if !filepath.IsAbs(filePath) && baseDir != "" {
				filePath = filepath.Join(baseDir, filePath)
			}

			file, err := os.Open(filePath)
			if err != nil {
				return nil, "", err
			}

			part, err := writer.CreateFormFile(field.Key, filepath.Base(filePath))
			if err != nil {
				file.Close()
				return nil, "", err
			}

			_, err = io.Copy(part, file)
			file.Close()
			if err != nil {
				return nil, "", err
			}
		} else {
			if err := writer.WriteField(field.Key, field.Value); err != nil {
				return nil, "", err
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body, writer.FormDataContentType(), nil
}

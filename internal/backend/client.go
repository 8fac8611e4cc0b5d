// Package backend executes one-shot HTTP exchanges against the REST, storage
// and auth endpoints of the backend.
package backend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
	"golang.org/x/time/rate"
)

const (
	defaultReadTimeout   = 10 * time.Second
	defaultWriteTimeout  = 15 * time.Second
	defaultUploadTimeout = 60 * time.Second

	// maxErrorBody caps how much of a failed response is kept for diagnostics
	maxErrorBody = 64 << 10
)

// Class selects the timeout applied to a request.
type Class int

const (
	ClassAuto   Class = iota // GET/HEAD are reads, everything else a write
	ClassRead                // Small reads
	ClassWrite               // JSON writes
	ClassUpload              // Large binary uploads
)

// Timeouts per request class. Zero values fall back to defaults.
type Timeouts struct {
	Read   time.Duration
	Write  time.Duration
	Upload time.Duration
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	AnonKey  string
	Timeouts Timeouts

	// RequestsPerSecond enables a client-side limiter when > 0
	RequestsPerSecond float64
	Burst             int

	// HTTPClient overrides the transport, mostly for tests
	HTTPClient *http.Client
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	timeouts   Timeouts
	limiter    *rate.Limiter
}

// NewClient creates a backend client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	timeouts := opts.Timeouts
	if timeouts.Read <= 0 {
		timeouts.Read = defaultReadTimeout
	}
	if timeouts.Write <= 0 {
		timeouts.Write = defaultWriteTimeout
	}
	if timeouts.Upload <= 0 {
		timeouts.Upload = defaultUploadTimeout
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		anonKey:    opts.AnonKey,
		timeouts:   timeouts,
		limiter:    limiter,
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one exchange.
type Request struct {
	Method string
	Path   string // e.g. "/rest/v1/books"
	Query  url.Values

	// Token is sent as "Authorization: Bearer <token>" when not empty
	Token string

	// JSON is marshalled as the body when not nil; otherwise Body is streamed as is
	JSON        any
	Body        io.Reader
	ContentType string

	Prefer  string
	IfMatch string
	Class   Class
}

// Response is a successful (2xx) answer with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into out. An empty body leaves out untouched.
func (r *Response) Decode(out any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// Do performs the request. Non-2xx statuses return *StatusError and transport
// failures *NetworkError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeoutFor(req))
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: errors.Wrap(err, "rate limit wait")}
		}
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	logger.FromContext(ctx).Debug("backend request", logger.Data{
		"method":      req.Method,
		"path":        req.Path,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: req.Method, Path: req.Path, Err: errors.Wrap(err, "read response")}
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// DoJSON performs the request and decodes a successful body into out (if not nil).
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	body := req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		payload, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, errors.Wrap(err, "encode request body")
		}
		body = bytes.NewReader(payload)
		if contentType == "" {
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Prefer != "" {
		httpReq.Header.Set("Prefer", req.Prefer)
	}
	if req.IfMatch != "" {
		httpReq.Header.Set("If-Match", req.IfMatch)
	}

	return httpReq, nil
}

func (c *Client) timeoutFor(req Request) time.Duration {
	class := req.Class
	if class == ClassAuto {
		class = ClassWrite
		if req.Method == http.MethodGet || req.Method == http.MethodHead {
			class = ClassRead
		}
	}

	switch class {
	case ClassRead:
		return c.timeouts.Read
	case ClassUpload:
		return c.timeouts.Upload
	default:
		return c.timeouts.Write
	}
}

// Package api is the REST client for the TRICYS backend: one configured
// request pipeline plus thin per-resource wrappers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tricys-client/internal/metrics"
	"tricys-client/internal/pkg/logger"
	"tricys-client/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "APIClient"

// Request describes one backend call. Route is a path template such as
// "/project/{id}/parameters"; each {...} placeholder is filled from Params
// in order.
type Request struct {
	Method string
	Route  string
	Params []string
	Query  url.Values

	JSON interface{}
	Form url.Values
	File *FileUpload
}

// FileUpload is sent as the single "file" part of a multipart body.
type FileUpload struct {
	FileName string
	Reader   io.Reader
}

// Blob is a binary response (exports, task file downloads).
type Blob struct {
	ContentType string
	FileName    string
	Data        []byte
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     store.KeyValueStore
	logger     logger.ILogger
	metrics    *metrics.Collector
	tracer     trace.Tracer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, tokens store.KeyValueStore, log logger.ILogger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		logger:     log,
		tracer:     otel.Tracer("tricys-client/api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	// Auth header, request id, tracing and metrics live in the transport so
	// requests built outside Do (the OAuth2 token exchange) get them too.
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *c.httpClient
	hc.Transport = &pipeline{client: c, next: base}
	c.httpClient = &hc
	return c
}

// HTTPClient is the instrumented client every call goes through.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL joins a relative path onto the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL + path
}

// Do sends req and decodes a JSON response into out (which may be nil).
// Non-2xx responses and transport failures come back as *Error; bodies that
// don't decode, or that fail a Validate() method on out, wrap ErrShapeMismatch.
func (c *Client) Do(ctx context.Context, req Request, out interface{}) error {
	resp, path, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(&Error{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(&Error{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Body: body, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)})
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(fmt.Errorf("%w: %s %s: %v", ErrShapeMismatch, req.Method, path, err))
	}
	if v, ok := out.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return c.fail(fmt.Errorf("%w: %s %s: %v", ErrShapeMismatch, req.Method, path, err))
		}
	}
	return nil
}

// DoBlob sends req and returns the raw response body.
func (c *Client) DoBlob(ctx context.Context, req Request) (*Blob, error) {
	resp, path, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(&Error{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Err: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.fail(&Error{Method: req.Method, Path: path, StatusCode: resp.StatusCode, Body: data, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)})
	}

	blob := &Blob{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		blob.FileName = params["filename"]
	}
	return blob, nil
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, string, error) {
	path, err := expandRoute(req.Route, req.Params)
	if err != nil {
		return nil, "", err
	}
	target := c.URL(path)
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, path, fmt.Errorf("encode %s %s: %w", req.Method, path, err)
	}

	httpReq, err := http.NewRequestWithContext(withRoute(ctx, req.Route), req.Method, target, body)
	if err != nil {
		return nil, path, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, path, c.fail(&Error{Method: req.Method, Path: path, Err: err})
	}
	return resp, path, nil
}

func (c *Client) fail(err error) error {
	c.logger.Error(module, "API Error", map[string]interface{}{"error": err.Error()})
	return err
}

func encodeBody(req Request) (io.Reader, string, error) {
	switch {
	case req.File != nil:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("file", req.File.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, req.File.Reader); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	case req.Form != nil:
		return strings.NewReader(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
	return nil, "", nil
}

func expandRoute(route string, params []string) (string, error) {
	var b strings.Builder
	rest := route
	i := 0
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("route %q: unterminated placeholder", route)
		}
		if i >= len(params) {
			return "", fmt.Errorf("route %q: missing parameter %d", route, i)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(params[i]))
		i++
		rest = rest[open+end+1:]
	}
	if i != len(params) {
		return "", fmt.Errorf("route %q: %d parameters for %d placeholders", route, len(params), i)
	}
	return b.String(), nil
}

type routeKey struct{}

func withRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFrom(req *http.Request) string {
	if r, ok := req.Context().Value(routeKey{}).(string); ok && r != "" {
		return r
	}
	return req.URL.Path
}

// pipeline is the request interceptor: bearer token from storage, a request
// id, one span and one metrics observation per call.
type pipeline struct {
	client *Client
	next   http.RoundTripper
}

func (p *pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	c := p.client
	route := routeFrom(req)

	ctx, span := c.tracer.Start(req.Context(), req.Method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	out := req.Clone(ctx)
	if token := store.Lookup(ctx, c.tokens, store.KeyAuthToken); token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	out.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := p.next.RoundTrip(out)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.metrics.ObserveRequest(req.Method, route, status, time.Since(start))

	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if status >= 400 {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	return resp, err
}

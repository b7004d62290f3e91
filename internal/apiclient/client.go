// Package apiclient talks to the vulnerability-report REST backend. Every
// call goes through Do, which applies the base URL and prefix, encodes
// bodies, normalises failures into *RequestError and records metrics and
// traces.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hakim/vulntriage/internal/jsonutil"
	"github.com/hakim/vulntriage/internal/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// maxResponseBytes caps how much of a JSON response is buffered.
const maxResponseBytes = 32 << 20

// Observer receives one observation per round trip.
type Observer interface {
	ObserveAPICall(endpoint, method string, status int, elapsed time.Duration)
}

// Options configures a Client
type Options struct {
	BaseURL   string
	Prefix    string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = unlimited
	Burst     int
	UserAgent string

	HTTPClient *http.Client
	Logger     *logrus.Logger
	Observer   Observer
	Tracer     trace.Tracer
}

// Client is safe for concurrent use.
type Client struct {
	base      string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	log       *logrus.Logger
	observer  Observer
	tracer    trace.Tracer
}

// RequestConfig is the optional per-call configuration.
// Body may be nil, []byte, string, io.Reader, *Multipart, or any value
// that is encoded as JSON.
type RequestConfig struct {
	Method  string
	Headers map[string]string
	Body    any
}

// New builds a Client from opts.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "vulntriage"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer()
	}

	return &Client{
		base:      joinURLPath(strings.TrimRight(opts.BaseURL, "/"), opts.Prefix),
		userAgent: opts.UserAgent,
		http:      httpClient,
		limiter:   limiter,
		log:       logger,
		observer:  opts.Observer,
		tracer:    tracer,
	}
}

// BaseURL returns the resolved base URL including the API prefix.
func (c *Client) BaseURL() string {
	return c.base
}

// URL resolves endpoint against the base URL. Absolute http(s) endpoints
// are returned unchanged.
func (c *Client) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return joinURLPath(c.base, endpoint)
}

// Do sends a request and decodes the JSON response into out (which may be
// nil). Non-2xx responses and bodies that are not JSON yield *RequestError.
func (c *Client) Do(ctx context.Context, endpoint string, rc *RequestConfig, out any) error {
	resp, err := c.send(ctx, endpoint, rc)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.requestError(resp.Request.Method, endpoint, resp.StatusCode, FallbackMessage, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(body)
		if msg == "" {
			msg = FallbackMessage
		}
		return c.requestError(resp.Request.Method, endpoint, resp.StatusCode, msg, nil)
	}

	if !jsonutil.Valid(body) {
		return c.requestError(resp.Request.Method, endpoint, resp.StatusCode, FallbackMessage, ErrMalformedResponse)
	}

	if out == nil {
		return nil
	}
	if err := jsonutil.Unmarshal(body, out); err != nil {
		return c.requestError(resp.Request.Method, endpoint, resp.StatusCode, FallbackMessage,
			fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	return nil
}

// send performs the round trip and returns the raw response. The caller
// owns the body.
func (c *Client) send(ctx context.Context, endpoint string, rc *RequestConfig) (*http.Response, error) {
	if rc == nil {
		rc = &RequestConfig{}
	}
	method := rc.Method
	if method == "" {
		method = http.MethodGet
	}

	body, contentType, err := encodeBody(rc.Body)
	if err != nil {
		return nil, &RequestError{Method: method, Endpoint: endpoint, Message: FallbackMessage, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &RequestError{Method: method, Endpoint: endpoint, Message: FallbackMessage, Err: err}
	}

	route := routeLabel(endpoint)
	ctx, span := c.tracer.Start(ctx, method+" "+route, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, c.URL(endpoint), body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &RequestError{Method: method, Endpoint: endpoint, Message: FallbackMessage, Err: err}
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range rc.Headers {
		req.Header.Set(k, v)
	}

	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", req.URL.String()),
		attribute.String("vulntriage.request_id", requestID),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer.ObserveAPICall(route, method, status, elapsed)
	}

	entry := c.log.WithFields(logrus.Fields{
		"endpoint":   route,
		"method":     method,
		"status":     status,
		"duration":   elapsed.String(),
		"request_id": requestID,
	})

	if err != nil {
		entry.WithError(err).Warn("api request failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &RequestError{Method: method, Endpoint: endpoint, Message: FallbackMessage, Err: err}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= 400 {
		span.SetStatus(codes.Error, http.StatusText(status))
		entry.Warn("api request returned error status")
	} else {
		entry.Debug("api request")
	}

	return resp, nil
}

func (c *Client) requestError(method, endpoint string, status int, msg string, err error) *RequestError {
	return &RequestError{Method: method, Endpoint: endpoint, Status: status, Message: msg, Err: err}
}

// encodeBody turns a RequestConfig body into a reader and content type.
// Multipart bodies keep their own boundary header and are never re-encoded.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *Multipart:
		return b.Body, b.ContentType, nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	case io.Reader:
		return b, "", nil
	default:
		data, err := jsonutil.Marshal(b)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request body: %w", err)
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func joinURLPath(basePath, path string) string {
	base := strings.TrimRight(basePath, "/")
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return base
	}
	return base + "/" + trimmed
}

var numericSegment = regexp.MustCompile(`/\d+(/|$|\?)`)

// routeLabel strips the query and replaces numeric path segments with {id}
// to keep metric and span names low-cardinality.
func routeLabel(endpoint string) string {
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		endpoint = endpoint[:i]
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	for numericSegment.MatchString(endpoint) {
		endpoint = numericSegment.ReplaceAllString(endpoint, "/{id}$1")
	}
	return endpoint
}

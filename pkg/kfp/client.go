// Package kfp is a client for the Kubeflow Pipelines REST API (v1beta1).
package kfp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	ocodes "go.opentelemetry.io/otel/codes"
	otrace "go.opentelemetry.io/otel/trace"

	"github.com/nais/kfp-deploy/pkg/metrics"
)

const (
	apiPrefix        = "apis/v1beta1"
	defaultUserAgent = "kfp-deploy"
	defaultTimeout   = 2 * time.Minute

	RequestIDHeader = "X-Request-ID"
)

var ErrMissingEndpoint = errors.New("pipelines service address is required")

// Config is configuration for the API Client
type Config struct {
	// Base address of the pipelines service, e.g. http://localhost:8080 or
	// https://example.com/pipeline. A missing scheme defaults to http.
	Endpoint string

	// Bearer token sent with every request. Empty disables authentication.
	Token string

	// User agent used when communicating with the pipelines service.
	UserAgent string

	// Sent as X-Request-ID to correlate requests of one invocation.
	RequestID string

	// Timeout for each HTTP request. Zero selects a default.
	Timeout time.Duration

	// The http client used, leave nil for the default
	HTTPClient *http.Client
}

// A Client manages communication with the pipelines service.
type Client struct {
	conf   Config
	client *http.Client
}

func NewClient(conf Config) (*Client, error) {
	endpoint, err := normalizeEndpoint(conf.Endpoint)
	if err != nil {
		return nil, err
	}
	conf.Endpoint = endpoint

	if conf.UserAgent == "" {
		conf.UserAgent = defaultUserAgent
	}

	if conf.Timeout == 0 {
		conf.Timeout = defaultTimeout
	}

	client := conf.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: conf.Timeout,
		}
	}

	return &Client{
		conf:   conf,
		client: client,
	}, nil
}

// Config returns the internal configuration for the Client
func (c *Client) Config() Config {
	return c.conf
}

func normalizeEndpoint(endpoint string) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", ErrMissingEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse pipelines service address: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("pipelines service address %q has no host", endpoint)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func (c *Client) newRequest(ctx context.Context, method, urlStr string, body io.Reader) (*http.Request, error) {
	u := joinURLPath(c.conf.Endpoint, urlStr)

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.conf.UserAgent)
	req.Header.Set("Accept", "application/json")

	if c.conf.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.conf.Token)
	}

	if c.conf.RequestID != "" {
		req.Header.Set(RequestIDHeader, c.conf.RequestID)
	}

	return req, nil
}

// doRequest sends an API request and JSON decodes the response body into v,
// or returns an *ErrorResponse if the service answered with a non-2xx status.
func (c *Client) doRequest(req *http.Request, operation string, v any) (err error) {
	ctx, span := otel.Tracer(tracerName).Start(req.Context(), operation,
		otrace.WithSpanKind(otrace.SpanKindClient),
		otrace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
		),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.APIRequest(operation, start, err)
		if err != nil {
			span.SetStatus(ocodes.Error, err.Error())
			span.RecordError(err)
		}
	}()

	log.Debugf("%s %s", req.Method, req.URL)

	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	defer io.Copy(io.Discard, resp.Body)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if err := checkResponse(resp); err != nil {
		return err
	}

	if v == nil {
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}

	return nil
}

// ErrorResponse is returned when the pipelines service rejects a request.
// The service's own error text is kept verbatim.
type ErrorResponse struct {
	Response *http.Response `json:"-"`
	Code     int            `json:"code"`
	Message  string         `json:"message"`
	ErrorMsg string         `json:"error"`
	Body     string         `json:"-"`
}

func (r *ErrorResponse) Error() string {
	s := fmt.Sprintf("%v %v: %s",
		r.Response.Request.Method, r.Response.Request.URL,
		r.Response.Status)

	switch {
	case r.Message != "":
		s = fmt.Sprintf("%s: %s", s, r.Message)
	case r.ErrorMsg != "":
		s = fmt.Sprintf("%s: %s", s, r.ErrorMsg)
	case r.Body != "":
		s = fmt.Sprintf("%s: %s", s, r.Body)
	}

	return s
}

func IsErrHavingStatus(err error, code int) bool {
	var apierr *ErrorResponse
	return errors.As(err, &apierr) && apierr.Response.StatusCode == code
}

func checkResponse(r *http.Response) error {
	if c := r.StatusCode; 200 <= c && c <= 299 {
		return nil
	}

	errorResponse := &ErrorResponse{Response: r}
	data, err := io.ReadAll(r.Body)
	if err == nil && len(data) > 0 {
		if json.Unmarshal(data, errorResponse) != nil {
			errorResponse.Body = strings.TrimSpace(string(data))
		}
	}

	return errorResponse
}

// addOptions adds the parameters in opt as URL query parameters to s. opt must
// be a struct whose fields may contain "url" tags.
func addOptions(s string, opt any) (string, error) {
	v := reflect.ValueOf(opt)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return s, nil
	}

	u, err := url.Parse(s)
	if err != nil {
		return s, err
	}

	qs, err := query.Values(opt)
	if err != nil {
		return s, err
	}

	u.RawQuery = qs.Encode()
	return u.String(), nil
}

func joinURLPath(endpoint string, path string) string {
	return strings.TrimRight(endpoint, "/") + "/" + strings.TrimLeft(path, "/")
}

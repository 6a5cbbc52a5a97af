// Package servicedesk talks to the ticketing REST API: it creates requests
// and lists the requests created within a time window.
package servicedesk

import (
	"context"
	"crypto/tls"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcncl/deskview/internal/errors"
	"github.com/mcncl/deskview/internal/models"
	"github.com/mcncl/deskview/internal/parser"
	"github.com/rs/zerolog"
)

const (
	// AuthHeader carries the static API token.
	AuthHeader = "authtoken"
	// TechnicianKeyParam carries the technician key as a query parameter.
	TechnicianKeyParam = "TECHNICIAN_KEY"
	// InputDataField holds the JSON document for both create and list calls.
	InputDataField = "input_data"
)

// ClientConfig holds configuration for a Client.
type ClientConfig struct {
	URL           string
	AuthToken     string
	TechnicianKey string
	VerifySSL     bool
	Timeout       time.Duration
}

// Client issues one call per operation. There is no retry.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a client. A zero Timeout falls back to 30 seconds.
func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		log: log,
	}
}

// Response is what came back from the API. Value is set when the response
// declared a JSON content type and its body parsed.
type Response struct {
	StatusCode  int
	Body        string
	ContentType string
	Value       models.Value
	Parsed      bool
}

// IsJSON reports whether the response declared a JSON content type
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.Contains(r.ContentType, "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// Decode returns the JSON value of the body. A body that does not parse
// yields a decode error carrying the raw text.
func (r *Response) Decode() (models.Value, error) {
	if r.Parsed {
		return r.Value, nil
	}
	value, err := parser.ParseString(r.Body)
	if err != nil {
		message := "response body is not valid JSON"
		if !r.IsJSON() && r.ContentType != "" {
			message = fmt.Sprintf("response is not JSON (content type %s)", r.ContentType)
		}
		return models.Null(), errors.NewDecodeError(message, r.Body, err)
	}
	return value, nil
}

// Create submits a new request. The payload travels form-encoded in the
// input_data field.
func (c *Client) Create(ctx context.Context, input CreateInput) (*Response, error) {
	payload, err := json.Marshal(input.Payload())
	if err != nil {
		return nil, errors.NewInputError("failed to encode request payload", err)
	}

	params := url.Values{}
	if c.config.TechnicianKey != "" {
		params.Set(TechnicianKeyParam, c.config.TechnicianKey)
	}
	form := url.Values{}
	form.Set(InputDataField, string(payload))

	return c.do(ctx, http.MethodPost, params, strings.NewReader(form.Encode()))
}

// List fetches the requests created within window. The technician key is
// only sent when includeTechnicianKey is set, since some deployments reject it.
func (c *Client) List(ctx context.Context, window Window, includeTechnicianKey bool) (*Response, error) {
	payload, err := json.Marshal(ListPayload(window))
	if err != nil {
		return nil, errors.NewInputError("failed to encode list criteria", err)
	}

	params := url.Values{}
	params.Set(InputDataField, string(payload))
	if includeTechnicianKey && c.config.TechnicianKey != "" {
		params.Set(TechnicianKeyParam, c.config.TechnicianKey)
	}

	return c.do(ctx, http.MethodGet, params, nil)
}

func (c *Client) do(ctx context.Context, method string, params url.Values, body io.Reader) (*Response, error) {
	if strings.TrimSpace(c.config.URL) == "" {
		return nil, errors.NewConfigError("API endpoint is not set", errors.ErrMissingURL)
	}
	endpoint, err := url.Parse(c.config.URL)
	if err != nil {
		return nil, errors.NewConfigError(fmt.Sprintf("invalid API endpoint %q", c.config.URL), err)
	}
	query := endpoint.Query()
	for key, values := range params {
		for _, v := range values {
			query.Add(key, v)
		}
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, errors.NewConfigError("failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.AuthToken != "" {
		req.Header.Set(AuthHeader, c.config.AuthToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	// The query holds the technician key, so only the bare endpoint is logged.
	target := endpoint.Scheme + "://" + endpoint.Host + endpoint.Path
	c.log.Debug().Str("method", method).Str("url", target).Msg("sending request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if stderrors.As(err, &urlErr) {
			urlErr.URL = target
		}
		c.log.Debug().Err(err).Str("method", method).Str("url", target).Msg("request failed")
		return nil, errors.NewTransportError(fmt.Sprintf("%s %s failed", method, target), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportError(fmt.Sprintf("failed to read response from %s", target), err)
	}

	out := &Response{
		StatusCode:  resp.StatusCode,
		Body:        string(data),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if out.IsJSON() {
		if value, err := parser.ParseString(out.Body); err == nil {
			out.Value = value
			out.Parsed = true
		}
	}

	c.log.Info().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("response received")

	return out, nil
}

// Package backend binds the remote storefront REST API. Every response uses
// the `{success, message, data?}` envelope; a success=false response is a
// recoverable, user-facing error, not a protocol fault.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// RemoteError is a success=false envelope: the backend rejected the request
// with a message meant for user display.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// ClientConfig configures the backend Client.
type ClientConfig struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string
	// Timeout bounds each request. Zero means 30 seconds.
	Timeout time.Duration
	// HTTPClient overrides the default instrumented client, used in tests.
	HTTPClient *http.Client
}

// Client calls the remote cart, coupon, and payment endpoints.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a Client with an otel-instrumented transport.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		http:    hc,
		baseURL: cfg.BaseURL,
	}
}

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool
	Message string
	Data    jx.Raw
}

// decodeEnvelope parses the `{success, message, data?}` wrapper. A body that
// does not parse as the envelope is a protocol fault, not a user error.
func decodeEnvelope(body []byte) (envelope, error) {
	var e envelope
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "success":
			v, err := d.Bool()
			if err != nil {
				return errors.Wrap(err, "success")
			}
			e.Success = v
		case "message":
			v, err := d.Str()
			if err != nil {
				return errors.Wrap(err, "message")
			}
			e.Message = v
		case "data":
			raw, err := d.Raw()
			if err != nil {
				return errors.Wrap(err, "data")
			}
			e.Data = raw
		default:
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return envelope{}, errors.Wrap(err, "malformed response envelope")
	}
	return e, nil
}

// do issues one request and decodes the envelope. When out is non-nil the
// envelope's data payload is unmarshaled into it. Transport failures and 5xx
// responses come back as generic wrapped errors; success=false comes back as
// a *RemoteError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read %s %s response", method, path)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		zctx.From(ctx).Warn("Backend server error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return errors.Errorf("%s %s: server error (status %d)", method, path, resp.StatusCode)
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if !env.Success {
		return &RemoteError{Message: env.Message}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrapf(err, "decode %s %s payload", method, path)
		}
	}
	return nil
}

// Package rest is the shared HTTP layer for the REST-based providers
// (Backblaze B2, Dropbox, Google Drive, OneDrive, Supabase Storage,
// UploadThing). Control-plane calls (auth, folder resolution, listings)
// go through a retrying client; byte-bearing transfers go through the
// shared pooled client in a single shot so bytes are never re-sent
// behind the progress counter's back.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/mediasink/mediasink/internal/constants"
	httpx "github.com/mediasink/mediasink/internal/http"
	"github.com/mediasink/mediasink/internal/logging"
	"github.com/mediasink/mediasink/internal/ratelimit"
)

// retryLogger bridges retryablehttp's LeveledLogger onto zerolog.
// Retry chatter stays at debug; only genuine trouble surfaces.
type retryLogger struct {
	log zerolog.Logger
}

// scrubFields masks credential material in retryablehttp's log fields.
// URLs get per-parameter treatment so signed query strings stay
// readable minus the secret itself.
func scrubFields(keysAndValues []interface{}) []interface{} {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		value := fmt.Sprint(keysAndValues[i+1])
		keysAndValues[i+1] = logging.Redact(key, logging.RedactURL(value))
	}
	return keysAndValues
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(scrubFields(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(scrubFields(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(scrubFields(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(scrubFields(keysAndValues)).Msg(msg)
}

// Client issues authenticated provider API calls.
type Client struct {
	retrying *nethttp.Client // control-plane calls, automatic retries
	raw      *nethttp.Client // byte-bearing calls, single shot
	limiter  *ratelimit.RateLimiter
	log      zerolog.Logger
}

// New builds a Client on the shared transport. limiter may be nil; when
// set, every call waits for a token first so a batch cannot trip the
// provider's quota.
func New(log zerolog.Logger, limiter *ratelimit.RateLimiter) *Client {
	base := httpx.GetClient()

	rc := retryablehttp.NewClient()
	rc.HTTPClient = base
	rc.RetryMax = constants.RESTRetryMax
	rc.RetryWaitMin = constants.RESTRetryWaitMin
	rc.RetryWaitMax = constants.RESTRetryWaitMax
	rc.Logger = &retryLogger{log: log}

	return &Client{
		retrying: rc.StandardClient(),
		raw:      base,
		limiter:  limiter,
		log:      log,
	}
}

// APIError is a non-2xx response from a provider API. The body is kept
// (truncated) because providers put the actionable message there.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

const maxErrorBody = 2048

func newAPIError(resp *nethttp.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter cancelled: %w", err)
	}
	return nil
}

// DoJSON performs a control-plane call with retries. body is marshaled
// as JSON when non-nil; the response is decoded into out when non-nil.
// Non-2xx responses come back as *APIError.
func (c *Client) DoJSON(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.retrying.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("url", logging.RedactURL(url)).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(started)).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// DoData performs a byte-bearing call (upload bodies, form posts) in a
// single shot on the pooled client. contentType and contentLength are
// applied when non-zero; the JSON response is decoded into out when
// non-nil. Non-2xx responses come back as *APIError.
func (c *Client) DoData(ctx context.Context, method, url string, headers map[string]string, body io.Reader, contentLength int64, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentLength > 0 {
		req.ContentLength = contentLength
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.raw.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Stream opens a byte-bearing response (downloads). The caller owns the
// returned response and must close its Body. Non-2xx responses are
// drained, closed and returned as *APIError.
func (c *Client) Stream(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*nethttp.Response, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.raw.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(resp)
		resp.Body.Close()
		return nil, apiErr
	}
	return resp, nil
}

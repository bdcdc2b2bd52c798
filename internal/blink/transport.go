package blink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport constants.
const (
	// defaultHTTPTimeout bounds a single request made by the default executor.
	defaultHTTPTimeout = 10 * time.Second

	// maxResponseSize caps the response body read from the server (4MB).
	maxResponseSize = 4 << 20
)

// Executor performs HTTP requests on behalf of a Session.
//
// Implementations must be safe for concurrent use; Session does not
// serialise access to its executor.
type Executor interface {
	// Get issues a GET and decodes the JSON response into out (which may be nil).
	// It fails on a non-success HTTP status.
	Get(ctx context.Context, url string, headers map[string]string, out any) error

	// Post issues a POST. A non-nil body is JSON-encoded; a nil body sends no
	// payload. The JSON response is decoded into out (which may be nil).
	// It fails on a non-success HTTP status.
	Post(ctx context.Context, url string, headers map[string]string, body, out any) error
}

// HTTPExecutor is the default Executor, built on net/http.
type HTTPExecutor struct {
	client *http.Client
}

// NewHTTPExecutor creates an executor using the given HTTP client.
// If client is nil, a dedicated client with a 10 second timeout is created.
func NewHTTPExecutor(client *http.Client) *HTTPExecutor {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPExecutor{client: client}
}

// Get implements Executor.
func (x *HTTPExecutor) Get(ctx context.Context, url string, headers map[string]string, out any) error {
	return x.do(ctx, http.MethodGet, url, headers, nil, out)
}

// Post implements Executor.
func (x *HTTPExecutor) Post(ctx context.Context, url string, headers map[string]string, body, out any) error {
	return x.do(ctx, http.MethodPost, url, headers, body, out)
}

func (x *HTTPExecutor) do(ctx context.Context, method, url string, headers map[string]string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindTransport, Err: fmt.Errorf("encoding request body: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &Error{Kind: KindTransport, Err: fmt.Errorf("building request: %w", err)}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindTransport, StatusCode: resp.StatusCode, Err: statusError(resp, data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindMalformedResponse, Err: err}
	}
	return nil
}

// statusError describes a non-success response, including the server's
// error message when the body carries one.
func statusError(resp *http.Response, data []byte) error {
	var body ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		return fmt.Errorf("%s: %s (code %d)", resp.Status, body.Message, body.Code)
	}
	return errors.New(resp.Status)
}

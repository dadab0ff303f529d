// Package transport delivers encoded payloads to the device side. A transport
// performs a single attempt; retries and acknowledgements belong to the host.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-devicecfg/pkg/payload"
)

// ErrUnavailable marks delivery failures so callers can tell them apart from
// validation problems.
var ErrUnavailable = errors.New("transport: delivery failed")

// maxRejectionBody caps how much of a 4xx response body is read.
const maxRejectionBody = 64 << 10

// RejectedError is a 4xx response whose body named the offending values as
// {"errors": {"<path>": ["message", ...]}}. Paths are whatever the receiver
// uses (message keys, JSON pointers, dotted paths). It matches ErrUnavailable.
type RejectedError struct {
	Status int
	Errors map[string][]string
}

func (e *RejectedError) Error() string {
	paths := slices.Sorted(maps.Keys(e.Errors))
	return fmt.Sprintf("transport: rejected with status %d: %s", e.Status, strings.Join(paths, ", "))
}

func (e *RejectedError) Unwrap() error {
	return ErrUnavailable
}

// Transport sends one payload.
type Transport interface {
	Send(ctx context.Context, p payload.Payload) error
}

// Func adapts a plain function to Transport.
type Func func(ctx context.Context, p payload.Payload) error

func (f Func) Send(ctx context.Context, p payload.Payload) error {
	return f(ctx, p)
}

// Writer writes each payload as one JSON line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a transport writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (t *Writer) Send(ctx context.Context, p payload.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := p.MarshalJSON()
	if err != nil {
		return fmt.Errorf("transport: encode: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// HTTP posts each payload as JSON to an endpoint. Any non-2xx status fails;
// a 4xx response listing per-value errors fails with *RejectedError.
type HTTP struct {
	endpoint string
	client   *http.Client
	header   http.Header
}

// HTTPOption customises an HTTP transport.
type HTTPOption func(*HTTP)

// WithClient injects the HTTP client.
func WithClient(client *http.Client) HTTPOption {
	return func(t *HTTP) {
		if client != nil {
			t.client = client
		}
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) HTTPOption {
	return func(t *HTTP) {
		t.header.Add(key, value)
	}
}

// NewHTTP returns a transport posting to endpoint.
func NewHTTP(endpoint string, opts ...HTTPOption) *HTTP {
	t := &HTTP{endpoint: endpoint, client: http.DefaultClient, header: http.Header{}}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *HTTP) Send(ctx context.Context, p payload.Payload) error {
	data, err := p.MarshalJSON()
	if err != nil {
		return fmt.Errorf("transport: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}
	req.Header = t.header.Clone()
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		if fields := decodeRejection(io.LimitReader(resp.Body, maxRejectionBody)); len(fields) > 0 {
			return &RejectedError{Status: resp.StatusCode, Errors: fields}
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s responded %s", ErrUnavailable, t.endpoint, resp.Status)
	}
	return nil
}

// decodeRejection reads {"errors": {...}} where each entry is a message or
// a list of messages. Anything else yields nil.
func decodeRejection(r io.Reader) map[string][]string {
	var body struct {
		Errors map[string]any `json:"errors"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil
	}
	fields := make(map[string][]string, len(body.Errors))
	for path, raw := range body.Errors {
		switch v := raw.(type) {
		case string:
			fields[path] = append(fields[path], v)
		case []any:
			for _, item := range v {
				if msg, ok := item.(string); ok {
					fields[path] = append(fields[path], msg)
				}
			}
		}
	}
	return fields
}

// ReturnURL hands the payload back the way companion configuration pages
// do: the JSON is URL-escaped and appended to a return prefix, and the
// resulting location is passed to Deliver (typically a redirect).
type ReturnURL struct {
	Prefix  string
	Deliver func(ctx context.Context, location string) error
}

// Location builds the return location for p.
func (t ReturnURL) Location(p payload.Payload) (string, error) {
	data, err := p.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("transport: encode: %w", err)
	}
	return t.Prefix + url.PathEscape(string(data)), nil
}

func (t ReturnURL) Send(ctx context.Context, p payload.Payload) error {
	location, err := t.Location(p)
	if err != nil {
		return err
	}
	if t.Deliver == nil {
		return fmt.Errorf("%w: no return handler", ErrUnavailable)
	}
	if err := t.Deliver(ctx, location); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

var (
	_ Transport = Func(nil)
	_ Transport = (*Writer)(nil)
	_ Transport = (*HTTP)(nil)
	_ Transport = ReturnURL{}
)

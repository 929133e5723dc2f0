// Package http implements the device transport over an HTTP bridge.
//
// Network-attached panels expose two endpoints: GET {base}/identity
// returns the binary identity payload, and GET {base}/blob serves the
// settings blob honoring Range requests. Each chunk read becomes one
// bounded range request, so the bridge never has to move the whole blob
// at once.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strings"
	"sync"

	"github.com/tactum/devcfg"
	"github.com/tactum/devcfg/internal/wire"
)

// Transport implements [devcfg.Transport] against a device HTTP bridge.
type Transport struct {
	baseURL string
	client  *nethttp.Client
	headers nethttp.Header
	logger  *slog.Logger

	closeCtx  context.Context
	closeFn   context.CancelFunc
	closeOnce sync.Once
}

// Interface compliance.
var _ devcfg.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*Transport)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(t *Transport) {
		t.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(t *Transport) {
		if headers == nil {
			return
		}
		t.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(t *Transport) {
		if t.headers == nil {
			t.headers = make(nethttp.Header)
		}
		t.headers.Set(key, value)
	}
}

// WithLogger sets a logger for request-level debug events.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// New creates a Transport for the bridge at baseURL.
func New(baseURL string, opts ...Option) *Transport {
	t := &Transport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		t.client = nethttp.DefaultClient
	}
	t.closeCtx, t.closeFn = context.WithCancel(context.Background())
	return t
}

func (t *Transport) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1 << 10)}))
	}
	return t.logger
}

// Info implements [devcfg.Transport].
func (t *Transport) Info(ctx context.Context) (devcfg.DeviceIdentity, error) {
	body, err := t.get(ctx, t.baseURL+"/identity", "", nethttp.StatusOK)
	if err != nil {
		return devcfg.DeviceIdentity{}, err
	}
	id, err := wire.ParseIdentity(body)
	if err != nil {
		return devcfg.DeviceIdentity{}, err
	}
	t.log().Debug("device identity",
		"schema", id.SchemaID,
		"blob_size", id.BlobSize,
		"max_chunk", id.MaxChunk,
	)
	return id, nil
}

// ReadChunk implements [devcfg.Transport]. Each chunk is one HTTP range
// request; a 416 from the bridge maps to [devcfg.ErrOutOfRange].
func (t *Transport) ReadChunk(ctx context.Context, offset, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, fmt.Errorf("http: zero-length read at %d: %w", offset, devcfg.ErrOutOfRange)
	}
	end := uint64(offset) + uint64(length) - 1
	rng := fmt.Sprintf("bytes=%d-%d", offset, end)

	body, err := t.get(ctx, t.baseURL+"/blob", rng, nethttp.StatusPartialContent)
	if err != nil {
		return nil, fmt.Errorf("http: read chunk [%d, %d): %w", offset, end+1, err)
	}
	return body, nil
}

// Close implements [devcfg.Transport]. Idempotent; in-flight requests
// are canceled and fail with [devcfg.ErrDisconnected].
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.closeFn()
		t.client.CloseIdleConnections()
	})
	return nil
}

func (t *Transport) isClosed() bool {
	return t.closeCtx.Err() != nil
}

// get performs one request and maps failures onto the transport error
// taxonomy.
func (t *Transport) get(ctx context.Context, url, rangeHeader string, wantStatus int) ([]byte, error) {
	if t.isClosed() {
		return nil, fmt.Errorf("http: transport closed: %w", devcfg.ErrDisconnected)
	}

	// Tie the request lifetime to Close so teardown cancels in-flight
	// reads instead of letting them hang.
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(t.closeCtx, cancel)
	defer stop()

	req, err := nethttp.NewRequestWithContext(reqCtx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range t.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, t.mapRequestError(ctx, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case wantStatus:
		// ok
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return nil, devcfg.ErrOutOfRange
	case nethttp.StatusOK:
		// Asked for a range, got the whole blob: the bridge does not
		// support range requests and cannot serve this protocol.
		return nil, fmt.Errorf("http: bridge ignored range request: %w", devcfg.ErrFormatMismatch)
	default:
		return nil, fmt.Errorf("http: %s: %w", resp.Status, devcfg.ErrFormatMismatch)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, t.mapRequestError(ctx, err)
	}
	return body, nil
}

// mapRequestError classifies request failures: deadline expiry is
// [devcfg.ErrTimeout]; cancellation from Close and network failures are
// [devcfg.ErrDisconnected]; the caller's own cancellation passes through.
func (t *Transport) mapRequestError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("http: %v: %w", err, devcfg.ErrTimeout)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("http: %v: %w", err, devcfg.ErrDisconnected)
	}
}

// Package serial implements the device transport over a serial line.
//
// The protocol is a minimal half-duplex exchange: the host frames one
// request, the device answers with one framed response. INFO returns the
// device identity; READ returns a bounded chunk of the settings blob.
// See frame.go for the byte layout.
package serial

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	goserial "github.com/goburrow/serial"

	"github.com/tactum/devcfg"
	"github.com/tactum/devcfg/internal/wire"
)

// maxChunkPerFrame is the largest chunk a READ response frame can carry,
// bounded by the 16-bit response length field.
const maxChunkPerFrame = 0xFFFF

// Transport drives the framed settings protocol over a serial port. It
// implements [devcfg.Transport].
//
// The line is half-duplex: one request/response exchange is in flight at
// a time, enforced internally. Blocking reads are bounded by the port's
// read timeout; the context is honored between I/O steps and via Close.
type Transport struct {
	port   io.ReadWriteCloser
	logger *slog.Logger

	mu sync.Mutex // serializes exchanges on the line

	closeOnce sync.Once
	closeErr  error

	stateMu sync.Mutex
	closed  bool
}

// Interface compliance.
var _ devcfg.Transport = (*Transport)(nil)

// Option configures a Transport.
type Option func(*config)

type config struct {
	baudRate int
	timeout  time.Duration
	logger   *slog.Logger
}

// WithBaudRate sets the line speed for Open. Defaults to 115200.
func WithBaudRate(baud int) Option {
	return func(c *config) {
		c.baudRate = baud
	}
}

// WithTimeout sets the read deadline for one response. Defaults to 2s.
// Expiry surfaces as [devcfg.ErrTimeout].
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithLogger sets a logger for exchange-level debug events.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Open connects to the device on the named serial port (e.g.
// "/dev/ttyUSB0").
func Open(address string, opts ...Option) (*Transport, error) {
	cfg := config{
		baudRate: 115200,
		timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	port, err := goserial.Open(&goserial.Config{
		Address:  address,
		BaudRate: cfg.baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  cfg.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", address, err)
	}
	return New(port, opts...), nil
}

// New wraps an already-open port. Any stream satisfying
// io.ReadWriteCloser works, which is how tests drive the protocol
// without hardware.
func New(port io.ReadWriteCloser, opts ...Option) *Transport {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Transport{
		port:   port,
		logger: cfg.logger,
	}
}

func (t *Transport) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1 << 10)}))
	}
	return t.logger
}

// Info implements [devcfg.Transport].
func (t *Transport) Info(ctx context.Context) (devcfg.DeviceIdentity, error) {
	payload, err := t.exchange(ctx, cmdInfo, nil)
	if err != nil {
		return devcfg.DeviceIdentity{}, err
	}
	id, err := wire.ParseIdentity(payload)
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

// ReadChunk implements [devcfg.Transport].
func (t *Transport) ReadChunk(ctx context.Context, offset, length uint32) ([]byte, error) {
	if length == 0 || length > maxChunkPerFrame {
		return nil, fmt.Errorf("serial: chunk length %d outside frame bounds [1, %d]: %w",
			length, maxChunkPerFrame, devcfg.ErrOutOfRange)
	}

	req := make([]byte, 0, readPayloadLen)
	req = binary.LittleEndian.AppendUint32(req, offset)
	req = binary.LittleEndian.AppendUint16(req, uint16(length))

	payload, err := t.exchange(ctx, cmdRead, req)
	if err != nil {
		return nil, fmt.Errorf("serial: read chunk [%d, %d): %w", offset, uint64(offset)+uint64(length), err)
	}
	return payload, nil
}

// Close implements [devcfg.Transport]. Idempotent; an exchange blocked
// on the port fails with [devcfg.ErrDisconnected] once the port closes
// underneath it.
func (t *Transport) Close() error {
	t.closeOnce.Do(func() {
		t.stateMu.Lock()
		t.closed = true
		t.stateMu.Unlock()
		t.closeErr = t.port.Close()
	})
	return t.closeErr
}

func (t *Transport) isClosed() bool {
	t.stateMu.Lock()
	defer t.stateMu.Unlock()
	return t.closed
}

// exchange performs one request/response round trip and maps status
// codes and I/O failures onto the transport error taxonomy.
func (t *Transport) exchange(ctx context.Context, cmd byte, reqPayload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.isClosed() {
		return nil, fmt.Errorf("serial: transport closed: %w", devcfg.ErrDisconnected)
	}

	frame, err := appendRequest(nil, cmd, reqPayload)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.port.Write(frame); err != nil {
		return nil, t.mapIOError(err)
	}
	status, payload, err := readResponse(t.port)
	if err != nil {
		if errors.Is(err, errBadSync) || errors.Is(err, errBadCRC) {
			// Garbled framing: the peer is not speaking this protocol.
			return nil, fmt.Errorf("%v: %w", err, devcfg.ErrFormatMismatch)
		}
		return nil, t.mapIOError(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch status {
	case statusOK:
		return payload, nil
	case statusOutOfRange:
		return nil, devcfg.ErrOutOfRange
	case statusUnsupported:
		return nil, fmt.Errorf("serial: device rejected command %#02x: %w", cmd, devcfg.ErrFormatMismatch)
	default:
		return nil, fmt.Errorf("serial: unknown status %#02x: %w", status, devcfg.ErrFormatMismatch)
	}
}

// mapIOError classifies port failures: deadline expiry is [devcfg.ErrTimeout],
// everything else means the link is gone.
func (t *Transport) mapIOError(err error) error {
	if errors.Is(err, goserial.ErrTimeout) {
		return fmt.Errorf("serial: %v: %w", err, devcfg.ErrTimeout)
	}
	return fmt.Errorf("serial: %v: %w", err, devcfg.ErrDisconnected)
}

// Package mock provides an in-memory reference device for testing and
// development without hardware.
//
// The device produces a byte-exact, self-consistent settings blob:
// current magic and version constants, a true header length, generation
// 1, active profile 0, cleared flags, and a correctly computed trailer.
// Its chunk reads enforce the same bounds contract as a real link.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/tactum/devcfg"
)

// DefaultMaxChunk is the chunk limit the device advertises unless
// overridden, small enough that a default blob takes several reads.
const DefaultMaxChunk = 64

// Device is a deterministic simulated control-panel device implementing
// [devcfg.Transport].
type Device struct {
	schema   devcfg.Schema
	maxChunk uint32

	mu            sync.Mutex
	closed        bool
	raw           []byte
	rawOverride   bool
	generation    uint32
	activeProfile uint8
	flags         uint8
	payload       []byte
}

// Interface compliance.
var _ devcfg.Transport = (*Device)(nil)

// Option configures a Device.
type Option func(*Device)

// WithSchema makes the device emit blobs in a specific format revision
// instead of [devcfg.DefaultSchema].
func WithSchema(s devcfg.Schema) Option {
	return func(d *Device) {
		d.schema = s
	}
}

// WithPayload sets the opaque configuration payload. The device copies
// the slice.
func WithPayload(p []byte) Option {
	return func(d *Device) {
		d.payload = append([]byte(nil), p...)
	}
}

// WithPayloadSize sets a deterministic payload of n pattern bytes,
// convenient for sizing blobs in tests.
func WithPayloadSize(n int) Option {
	return func(d *Device) {
		p := make([]byte, n)
		for i := range p {
			p[i] = byte(i)
		}
		d.payload = p
	}
}

// WithMaxChunk sets the largest read the device will honor in one call.
func WithMaxChunk(n uint32) Option {
	return func(d *Device) {
		d.maxChunk = n
	}
}

// WithGeneration sets the initial settings commit counter.
func WithGeneration(gen uint32) Option {
	return func(d *Device) {
		d.generation = gen
	}
}

// WithActiveProfile sets the live configuration profile index.
func WithActiveProfile(p uint8) Option {
	return func(d *Device) {
		d.activeProfile = p
	}
}

// WithFlags sets the device-reported status bitfield.
func WithFlags(f uint8) Option {
	return func(d *Device) {
		d.flags = f
	}
}

// WithBlob makes the device serve an arbitrary raw image instead of a
// well-formed one. Fault injection for validator tests; the device
// copies the slice and stops maintaining it on Commit.
func WithBlob(raw []byte) Option {
	return func(d *Device) {
		d.raw = append([]byte(nil), raw...)
		d.rawOverride = true
	}
}

// NewDevice creates a reference device. Without options it holds a
// deterministic pattern payload at generation 1, profile 0, flags 0.
func NewDevice(opts ...Option) *Device {
	d := &Device{
		schema:     devcfg.DefaultSchema(),
		maxChunk:   DefaultMaxChunk,
		generation: 1,
	}
	WithPayloadSize(108)(d)
	for _, opt := range opts {
		opt(d)
	}
	if !d.rawOverride {
		d.rebuild()
	}
	return d
}

// rebuild regenerates the blob image from the current fields.
// Callers hold d.mu or have exclusive ownership during construction.
func (d *Device) rebuild() {
	d.raw = d.schema.BuildBlob(d.generation, d.activeProfile, d.flags, d.payload)
}

// Info implements [devcfg.Transport].
func (d *Device) Info(ctx context.Context) (devcfg.DeviceIdentity, error) {
	if err := ctx.Err(); err != nil {
		return devcfg.DeviceIdentity{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return devcfg.DeviceIdentity{}, fmt.Errorf("mock device: %w", devcfg.ErrDisconnected)
	}
	return devcfg.DeviceIdentity{
		SchemaID:      d.schema.ID,
		SettingsMajor: d.schema.VersionMajor,
		SettingsMinor: d.schema.VersionMinor,
		BlobSize:      uint32(len(d.raw)),
		MaxChunk:      d.maxChunk,
	}, nil
}

// ReadChunk implements [devcfg.Transport]. Bounds are enforced exactly:
// a request reaching past the blob end fails with
// [devcfg.ErrOutOfRange] rather than returning a short slice.
func (d *Device) ReadChunk(ctx context.Context, offset, length uint32) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, fmt.Errorf("mock device: %w", devcfg.ErrDisconnected)
	}
	if length == 0 {
		return nil, fmt.Errorf("mock device: zero-length read at %d: %w", offset, devcfg.ErrOutOfRange)
	}
	if uint64(offset)+uint64(length) > uint64(len(d.raw)) {
		return nil, fmt.Errorf("mock device: read [%d, %d) beyond blob size %d: %w",
			offset, uint64(offset)+uint64(length), len(d.raw), devcfg.ErrOutOfRange)
	}
	chunk := make([]byte, length)
	copy(chunk, d.raw[offset:offset+length])
	return chunk, nil
}

// Close implements [devcfg.Transport]. Idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Commit replaces the payload and bumps the generation counter, modeling
// a device-side settings commit. Useful for exercising staleness
// detection between assembly passes.
func (d *Device) Commit(payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("mock device: %w", devcfg.ErrDisconnected)
	}
	d.payload = append([]byte(nil), payload...)
	d.generation++
	d.rawOverride = false
	d.rebuild()
	return nil
}

// Blob returns a copy of the full settings blob image, for byte-exact
// round-trip assertions.
func (d *Device) Blob() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.raw...)
}

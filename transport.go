package devcfg

import "context"

// DeviceIdentity describes a connected device. It is obtained once per
// connection, before any chunked read, and does not change for the
// connection's lifetime.
type DeviceIdentity struct {
	// SchemaID names the settings format family the device speaks.
	SchemaID string

	// SettingsMajor and SettingsMinor are the format version of the
	// blob currently stored on the device.
	SettingsMajor uint8
	SettingsMinor uint8

	// BlobSize is the total settings blob length in bytes.
	BlobSize uint32

	// MaxChunk is the largest read the link will honor in one call.
	MaxChunk uint32
}

// Transport is the capability a physical link must provide: identity
// metadata plus bounded random-access reads of the settings blob. Serial,
// HTTP-bridged, and in-memory mock links all satisfy this same contract,
// so the assembler is link-agnostic.
//
// A Transport is not required to support concurrent outstanding reads;
// links of this class are half-duplex in practice. Callers own a
// transport exclusively for the duration of one assembly pass (see
// [Session]).
type Transport interface {
	// Info returns the device identity. It may fail with
	// [ErrDisconnected], or with [ErrFormatMismatch] when the device
	// speaks an unrecognized protocol.
	Info(ctx context.Context) (DeviceIdentity, error)

	// ReadChunk returns exactly length bytes of the blob starting at
	// offset. It fails with [ErrOutOfRange] if offset+length exceeds the
	// blob size, [ErrDisconnected] if the link drops mid-read, and
	// [ErrTimeout] if no response arrives within the link's deadline.
	// It must not mutate device state.
	ReadChunk(ctx context.Context, offset, length uint32) ([]byte, error)

	// Close releases the connection. It is idempotent: closing an
	// already-closed transport is a no-op. Closing while a read is
	// outstanding causes that read to fail with [ErrDisconnected].
	Close() error
}

package devcfg

import "errors"

// Transport-level errors. These surface unchanged from a Transport
// through the assembler to the caller.
var (
	// ErrDisconnected is returned when the link to the device is lost,
	// including reads issued on or racing with a closed transport.
	ErrDisconnected = errors.New("devcfg: disconnected")

	// ErrTimeout is returned when the device does not respond within the
	// link's deadline.
	ErrTimeout = errors.New("devcfg: timeout")

	// ErrOutOfRange is returned when a chunk read would extend past the
	// end of the blob. This is always a caller bug, never expected in
	// normal operation.
	ErrOutOfRange = errors.New("devcfg: read out of range")

	// ErrShortRead is returned when a link hands back fewer bytes than
	// requested. Returned lengths must be verified before the data is
	// trusted; a short chunk is a link defect, not a partial success.
	ErrShortRead = errors.New("devcfg: short chunk read")
)

// Format-level errors. These are raised only after a complete transfer,
// never mid-transfer.
var (
	// ErrFormatMismatch is returned when the blob's magic or major
	// version is unrecognized: device firmware and control panel are
	// incompatible. This is a hard compatibility break, not a warning.
	ErrFormatMismatch = errors.New("devcfg: settings format mismatch")

	// ErrCorrupt is returned when the trailer checksum does not match
	// the assembled blob, indicating transfer or storage corruption.
	ErrCorrupt = errors.New("devcfg: settings blob corrupt")
)

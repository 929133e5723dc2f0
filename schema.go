package devcfg

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Header field offsets within the blob. These are part of the wire format
// shared with device firmware; do not change.
const (
	offMagic         = 0
	offVersionMajor  = 4
	offVersionMinor  = 5
	offHeaderSize    = 6
	offGeneration    = 8
	offActiveProfile = 12
	offFlags         = 13

	// headerFixedSize is the span of the fields above. A device may
	// declare a larger header_size; consumers skip the trailing bytes.
	headerFixedSize = 14
)

// TrailerSize is the width of the checksum trailer closing every blob.
const TrailerSize = 4

// MinBlobSize is the smallest valid blob: the fixed header followed
// immediately by the trailer, with an empty payload.
const MinBlobSize = headerFixedSize + TrailerSize

// Current format version constants. The major version changes on breaking
// layout changes; minor changes are additive and tolerated by consumers.
const (
	VersionMajor = 1
	VersionMinor = 2
)

// SchemaID identifies the settings format family in device identity
// metadata.
const SchemaID = "tactum.devcfg/v1"

// Schema describes one revision of the settings blob format: signature,
// version constants, and the header length this revision writes. It is an
// immutable value passed to assemblers and transports, so a format
// revision is a single point of change.
//
// All multi-byte fields in the blob are little-endian. The trailer is a
// CRC32 (IEEE polynomial) of every byte preceding it, stored
// little-endian in the final [TrailerSize] bytes.
type Schema struct {
	// ID is matched against DeviceIdentity.SchemaID before any transfer.
	ID string

	// Magic is the fixed signature opening every blob.
	Magic [4]byte

	// VersionMajor and VersionMinor are the format version this schema
	// expects. Major must match exactly; minor differences are tolerated.
	VersionMajor uint8
	VersionMinor uint8

	// HeaderSize is the header length this schema writes. Must be at
	// least the fixed field span; the remainder is reserved growth room
	// that consumers of older revisions skip.
	HeaderSize uint16
}

// DefaultSchema returns the current settings blob format revision.
func DefaultSchema() Schema {
	return Schema{
		ID:           SchemaID,
		Magic:        [4]byte{'D', 'C', 'F', 'G'},
		VersionMajor: VersionMajor,
		VersionMinor: VersionMinor,
		HeaderSize:   16,
	}
}

// Checksum computes the trailer value over data, which must exclude the
// trailer itself.
func (s Schema) Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// PayloadRange returns the half-open byte range [start, end) of the
// opaque payload for a blob with the given header size and total size.
func (s Schema) PayloadRange(headerSize uint16, blobSize uint32) (start, end uint32, err error) {
	if blobSize < MinBlobSize {
		return 0, 0, fmt.Errorf("blob size %d below minimum %d: %w", blobSize, MinBlobSize, ErrFormatMismatch)
	}
	if uint32(headerSize) > blobSize-TrailerSize {
		return 0, 0, fmt.Errorf("header size %d exceeds blob size %d: %w", headerSize, blobSize, ErrFormatMismatch)
	}
	return uint32(headerSize), blobSize - TrailerSize, nil
}

// TrailerRange returns the half-open byte range [start, end) of the
// checksum trailer for a blob of the given total size.
func (s Schema) TrailerRange(blobSize uint32) (start, end uint32, err error) {
	if blobSize < MinBlobSize {
		return 0, 0, fmt.Errorf("blob size %d below minimum %d: %w", blobSize, MinBlobSize, ErrFormatMismatch)
	}
	return blobSize - TrailerSize, blobSize, nil
}

// BuildBlob constructs a complete blob image: header with the given
// fields, the payload, and a computed trailer. The mock reference device
// and tests share this single encoding path.
func (s Schema) BuildBlob(generation uint32, activeProfile, flags uint8, payload []byte) []byte {
	raw := make([]byte, int(s.HeaderSize)+len(payload)+TrailerSize)
	copy(raw[offMagic:], s.Magic[:])
	raw[offVersionMajor] = s.VersionMajor
	raw[offVersionMinor] = s.VersionMinor
	binary.LittleEndian.PutUint16(raw[offHeaderSize:], s.HeaderSize)
	binary.LittleEndian.PutUint32(raw[offGeneration:], generation)
	raw[offActiveProfile] = activeProfile
	raw[offFlags] = flags
	copy(raw[s.HeaderSize:], payload)

	body := raw[:len(raw)-TrailerSize]
	binary.LittleEndian.PutUint32(raw[len(raw)-TrailerSize:], s.Checksum(body))
	return raw
}

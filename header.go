package devcfg

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Header is the parsed fixed-size prefix of a settings blob.
type Header struct {
	// VersionMajor and VersionMinor are the format version the device
	// wrote the blob with.
	VersionMajor uint8
	VersionMinor uint8

	// Size is the device's declared header length. It may exceed the
	// fixed field span when the device runs a newer minor revision;
	// the payload begins at this offset regardless.
	Size uint16

	// Generation counts device-side settings commits. A change between
	// two reads means the blob was modified underneath the reader.
	Generation uint32

	// ActiveProfile selects the configuration profile currently live.
	ActiveProfile uint8

	// Flags is the device-reported status bitfield.
	Flags uint8
}

// parseHeader validates the blob prefix against the schema and extracts
// the header fields. Checked in order: length, magic, major version,
// header size bounds. The trailer is not touched here; checksum
// verification happens only once the whole blob is present.
func parseHeader(s Schema, raw []byte) (Header, error) {
	if len(raw) < MinBlobSize {
		return Header{}, fmt.Errorf("blob length %d below minimum %d: %w", len(raw), MinBlobSize, ErrFormatMismatch)
	}
	if !bytes.Equal(raw[offMagic:offMagic+len(s.Magic)], s.Magic[:]) {
		return Header{}, fmt.Errorf("magic %q: %w", raw[offMagic:offMagic+len(s.Magic)], ErrFormatMismatch)
	}

	h := Header{
		VersionMajor:  raw[offVersionMajor],
		VersionMinor:  raw[offVersionMinor],
		Size:          binary.LittleEndian.Uint16(raw[offHeaderSize:]),
		Generation:    binary.LittleEndian.Uint32(raw[offGeneration:]),
		ActiveProfile: raw[offActiveProfile],
		Flags:         raw[offFlags],
	}

	// Breaking changes bump the major version; minor differences are
	// additive and tolerated.
	if h.VersionMajor != s.VersionMajor {
		return Header{}, fmt.Errorf("major version %d, want %d: %w", h.VersionMajor, s.VersionMajor, ErrFormatMismatch)
	}
	if h.Size < headerFixedSize {
		return Header{}, fmt.Errorf("header size %d below fixed span %d: %w", h.Size, headerFixedSize, ErrFormatMismatch)
	}
	if int(h.Size) > len(raw)-TrailerSize {
		return Header{}, fmt.Errorf("header size %d exceeds blob length %d: %w", h.Size, len(raw), ErrFormatMismatch)
	}
	return h, nil
}

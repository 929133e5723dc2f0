package devcfg

import (
	"encoding/binary"
	"fmt"
)

// Settings is a validated settings blob together with its parsed header.
// It is immutable: each assembly pass constructs a fresh value and the
// accessors return copies or read-only views of internal state.
type Settings struct {
	schema Schema
	header Header
	raw    []byte
}

// ParseSettings validates raw as a complete settings blob against the
// schema. Magic and major version are checked before anything else
// ([ErrFormatMismatch]); the trailer checksum is verified last
// ([ErrCorrupt]). On success the returned Settings owns raw.
func ParseSettings(s Schema, raw []byte) (*Settings, error) {
	h, err := parseHeader(s, raw)
	if err != nil {
		return nil, err
	}

	trailer := binary.LittleEndian.Uint32(raw[len(raw)-TrailerSize:])
	if sum := s.Checksum(raw[:len(raw)-TrailerSize]); sum != trailer {
		return nil, fmt.Errorf("checksum %#08x, trailer %#08x: %w", sum, trailer, ErrCorrupt)
	}

	return &Settings{schema: s, header: h, raw: raw}, nil
}

// Header returns the parsed header fields.
func (st *Settings) Header() Header { return st.header }

// Generation returns the device's settings commit counter at the time
// the blob was read.
func (st *Settings) Generation() uint32 { return st.header.Generation }

// ActiveProfile returns the index of the configuration profile that was
// live when the blob was read.
func (st *Settings) ActiveProfile() uint8 { return st.header.ActiveProfile }

// Flags returns the device-reported status bitfield.
func (st *Settings) Flags() uint8 { return st.header.Flags }

// Payload returns the opaque schema-defined configuration data between
// the header and the trailer. The returned slice aliases the blob; do
// not modify it.
func (st *Settings) Payload() []byte {
	return st.raw[st.header.Size : len(st.raw)-TrailerSize]
}

// Raw returns the complete validated blob image, header and trailer
// included. The returned slice aliases internal state; do not modify it.
func (st *Settings) Raw() []byte { return st.raw }

// Size returns the total blob length in bytes.
func (st *Settings) Size() uint32 { return uint32(len(st.raw)) }

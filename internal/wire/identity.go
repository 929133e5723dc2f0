// Package wire encodes device identity metadata for link protocols.
// The serial frame protocol and the HTTP bridge share this codec so a
// device firmware emits one identity layout regardless of link.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/tactum/devcfg"
)

// Identity payload layout:
//
//	0      schema id length (n)
//	1..n   schema id bytes
//	n+1    settings major
//	n+2    settings minor
//	n+3..  blob size (uint32 LE)
//	n+7..  max chunk (uint32 LE)
const identityFixedLen = 1 + 2 + 4 + 4

// AppendIdentity appends the encoded identity to dst.
func AppendIdentity(dst []byte, id devcfg.DeviceIdentity) ([]byte, error) {
	if len(id.SchemaID) > 255 {
		return nil, fmt.Errorf("wire: schema id length %d exceeds 255", len(id.SchemaID))
	}
	dst = append(dst, byte(len(id.SchemaID)))
	dst = append(dst, id.SchemaID...)
	dst = append(dst, id.SettingsMajor, id.SettingsMinor)
	dst = binary.LittleEndian.AppendUint32(dst, id.BlobSize)
	dst = binary.LittleEndian.AppendUint32(dst, id.MaxChunk)
	return dst, nil
}

// ParseIdentity decodes an identity payload. A malformed payload means
// the peer speaks a different protocol, so failures wrap
// [devcfg.ErrFormatMismatch].
func ParseIdentity(p []byte) (devcfg.DeviceIdentity, error) {
	if len(p) < identityFixedLen {
		return devcfg.DeviceIdentity{}, fmt.Errorf("wire: identity payload %d bytes, want at least %d: %w",
			len(p), identityFixedLen, devcfg.ErrFormatMismatch)
	}
	n := int(p[0])
	if len(p) != identityFixedLen+n {
		return devcfg.DeviceIdentity{}, fmt.Errorf("wire: identity payload %d bytes, want %d: %w",
			len(p), identityFixedLen+n, devcfg.ErrFormatMismatch)
	}
	rest := p[1+n:]
	return devcfg.DeviceIdentity{
		SchemaID:      string(p[1 : 1+n]),
		SettingsMajor: rest[0],
		SettingsMinor: rest[1],
		BlobSize:      binary.LittleEndian.Uint32(rest[2:]),
		MaxChunk:      binary.LittleEndian.Uint32(rest[6:]),
	}, nil
}

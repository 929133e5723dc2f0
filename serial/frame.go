package serial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Wire framing for the half-duplex settings protocol. Part of the wire
// format shared with device firmware; do not change.
//
// Request:  sync(1) cmd(1)    plen(1, uint8)  payload crc32(4, LE)
// Response: sync(1) status(1) plen(2, LE)     payload crc32(4, LE)
//
// The CRC32 (IEEE polynomial) covers everything after the sync byte and
// before the checksum itself.
const (
	frameSync = 0x7E

	cmdInfo = 0x01
	cmdRead = 0x02

	statusOK          = 0x00
	statusOutOfRange  = 0x01
	statusUnsupported = 0x02
)

// readPayloadLen is the payload of a READ request: blob offset plus
// requested chunk length.
const readPayloadLen = 4 + 2

var (
	errBadSync = errors.New("serial: bad sync byte")
	errBadCRC  = errors.New("serial: frame checksum mismatch")
)

// appendRequest appends a framed request to dst.
func appendRequest(dst []byte, cmd byte, payload []byte) ([]byte, error) {
	if len(payload) > 0xFF {
		return nil, fmt.Errorf("serial: request payload %d bytes exceeds frame limit", len(payload))
	}
	start := len(dst)
	dst = append(dst, frameSync, cmd, byte(len(payload)))
	dst = append(dst, payload...)
	crc := crc32.ChecksumIEEE(dst[start+1:])
	return binary.LittleEndian.AppendUint32(dst, crc), nil
}

// readResponse reads one framed response from r. Protocol violations
// (bad sync, bad checksum) surface as errBadSync/errBadCRC; I/O failures
// pass through for the caller to classify.
func readResponse(r io.Reader) (status byte, payload []byte, err error) {
	var head [4]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return 0, nil, err
	}
	if head[0] != frameSync {
		return 0, nil, fmt.Errorf("%w: %#02x", errBadSync, head[0])
	}
	status = head[1]
	plen := binary.LittleEndian.Uint16(head[2:])

	rest := make([]byte, int(plen)+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return 0, nil, err
	}
	payload = rest[:plen]

	want := binary.LittleEndian.Uint32(rest[plen:])
	sum := crc32.ChecksumIEEE(head[1:])
	sum = crc32.Update(sum, crc32.IEEETable, payload)
	if sum != want {
		return 0, nil, fmt.Errorf("%w: computed %#08x, frame %#08x", errBadCRC, sum, want)
	}
	return status, payload, nil
}

// appendResponse appends a framed response to dst. Used by device-side
// emulation in tests; firmware implements the same layout.
func appendResponse(dst []byte, status byte, payload []byte) ([]byte, error) {
	if len(payload) > 0xFFFF {
		return nil, fmt.Errorf("serial: response payload %d bytes exceeds frame limit", len(payload))
	}
	start := len(dst)
	dst = append(dst, frameSync, status)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	dst = append(dst, payload...)
	crc := crc32.ChecksumIEEE(dst[start+1:])
	return binary.LittleEndian.AppendUint32(dst, crc), nil
}

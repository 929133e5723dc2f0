package serial

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendRequestLayout(t *testing.T) {
	t.Parallel()

	payload := []byte{0x10, 0x00, 0x00, 0x00, 0x40, 0x00}
	frame, err := appendRequest(nil, cmdRead, payload)
	require.NoError(t, err)

	require.Len(t, frame, 3+len(payload)+4)
	assert.Equal(t, byte(frameSync), frame[0])
	assert.Equal(t, byte(cmdRead), frame[1])
	assert.Equal(t, byte(len(payload)), frame[2])
	assert.Equal(t, payload, frame[3:3+len(payload)])

	crc := crc32.ChecksumIEEE(frame[1 : 3+len(payload)])
	assert.Equal(t, crc, binary.LittleEndian.Uint32(frame[3+len(payload):]))
}

func TestAppendRequestPayloadTooLarge(t *testing.T) {
	t.Parallel()

	_, err := appendRequest(nil, cmdRead, make([]byte, 256))
	require.Error(t, err)
}

func TestResponseRoundTrip(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0xA5}, 300)
	frame, err := appendResponse(nil, statusOK, payload)
	require.NoError(t, err)

	status, got, err := readResponse(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, byte(statusOK), status)
	assert.Equal(t, payload, got)
}

func TestResponseEmptyPayload(t *testing.T) {
	t.Parallel()

	frame, err := appendResponse(nil, statusOutOfRange, nil)
	require.NoError(t, err)

	status, got, err := readResponse(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, byte(statusOutOfRange), status)
	assert.Empty(t, got)
}

func TestReadResponseBadSync(t *testing.T) {
	t.Parallel()

	frame, err := appendResponse(nil, statusOK, []byte("ok"))
	require.NoError(t, err)
	frame[0] = 0x00

	_, _, err = readResponse(bytes.NewReader(frame))
	require.ErrorIs(t, err, errBadSync)
}

func TestReadResponseBadCRC(t *testing.T) {
	t.Parallel()

	frame, err := appendResponse(nil, statusOK, []byte("settings"))
	require.NoError(t, err)
	frame[5] ^= 0xFF // payload byte

	_, _, err = readResponse(bytes.NewReader(frame))
	require.ErrorIs(t, err, errBadCRC)
}

func TestReadResponseTruncated(t *testing.T) {
	t.Parallel()

	frame, err := appendResponse(nil, statusOK, []byte("settings"))
	require.NoError(t, err)

	for _, cut := range []int{1, 3, len(frame) - 2} {
		_, _, err := readResponse(bytes.NewReader(frame[:cut]))
		require.Error(t, err, "cut at %d", cut)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	}
}

package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tactum/devcfg"
)

func TestInfoMatchesSchemaConstants(t *testing.T) {
	t.Parallel()

	d := NewDevice()
	defer d.Close()

	id, err := d.Info(context.Background())
	require.NoError(t, err)

	s := devcfg.DefaultSchema()
	assert.Equal(t, s.ID, id.SchemaID)
	assert.Equal(t, s.VersionMajor, id.SettingsMajor)
	assert.Equal(t, s.VersionMinor, id.SettingsMinor)
	assert.Equal(t, uint32(len(d.Blob())), id.BlobSize)
	assert.Equal(t, uint32(DefaultMaxChunk), id.MaxChunk)
}

func TestReadChunkExactSlices(t *testing.T) {
	t.Parallel()

	d := NewDevice(WithPayloadSize(200))
	t.Cleanup(func() { d.Close() })

	blob := d.Blob()
	size := uint32(len(blob))

	tests := []struct {
		name   string
		offset uint32
		length uint32
	}{
		{"first byte", 0, 1},
		{"whole blob", 0, size},
		{"header", 0, 16},
		{"mid payload", 50, 75},
		{"trailer", size - devcfg.TrailerSize, devcfg.TrailerSize},
		{"last byte", size - 1, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chunk, err := d.ReadChunk(context.Background(), tt.offset, tt.length)
			require.NoError(t, err)
			require.Len(t, chunk, int(tt.length))
			assert.Equal(t, blob[tt.offset:tt.offset+tt.length], chunk)
		})
	}
}

func TestReadChunkOutOfRange(t *testing.T) {
	t.Parallel()

	d := NewDevice(WithPayloadSize(100))
	t.Cleanup(func() { d.Close() })

	size := uint32(len(d.Blob()))

	tests := []struct {
		name   string
		offset uint32
		length uint32
	}{
		{"one past end", 0, size + 1},
		{"offset at end", size, 1},
		{"offset beyond end", size + 10, 1},
		{"straddles end", size - 4, 5},
		{"zero length", 0, 0},
		{"offset overflow", math.MaxUint32, math.MaxUint32},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := d.ReadChunk(context.Background(), tt.offset, tt.length)
			require.ErrorIs(t, err, devcfg.ErrOutOfRange)
		})
	}
}

func TestAssembleRoundTrip(t *testing.T) {
	t.Parallel()

	// blobSize > 512 with maxChunk 256 exercises multi-chunk assembly.
	d := NewDevice(WithPayloadSize(700), WithMaxChunk(256))
	defer d.Close()

	first, err := devcfg.Assemble(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, d.Blob(), first.Raw(), "assembled blob must match the device image byte for byte")

	// Repeated assembly from an unchanged device is idempotent.
	second, err := devcfg.Assemble(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, first.Raw(), second.Raw())

	// And identical to assembly through one whole-blob read.
	whole := NewDevice(WithPayloadSize(700), WithMaxChunk(uint32(len(d.Blob()))))
	defer whole.Close()
	single, err := devcfg.Assemble(context.Background(), whole)
	require.NoError(t, err)
	assert.Equal(t, single.Raw(), first.Raw())
}

func TestAssembleDefaults(t *testing.T) {
	t.Parallel()

	d := NewDevice()
	defer d.Close()

	settings, err := devcfg.Assemble(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), settings.Generation())
	assert.Equal(t, uint8(0), settings.ActiveProfile())
	assert.Equal(t, uint8(0), settings.Flags())
	assert.NotErrorIs(t, err, devcfg.ErrFormatMismatch)
}

func TestDeviceOptions(t *testing.T) {
	t.Parallel()

	payload := []byte("profile zero is boring")
	d := NewDevice(
		WithPayload(payload),
		WithGeneration(41),
		WithActiveProfile(3),
		WithFlags(0x11),
		WithMaxChunk(8),
	)
	defer d.Close()

	settings, err := devcfg.Assemble(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, payload, settings.Payload())
	assert.Equal(t, uint32(41), settings.Generation())
	assert.Equal(t, uint8(3), settings.ActiveProfile())
	assert.Equal(t, uint8(0x11), settings.Flags())
}

func TestCommitBumpsGeneration(t *testing.T) {
	t.Parallel()

	d := NewDevice()
	defer d.Close()

	before, err := devcfg.Assemble(context.Background(), d)
	require.NoError(t, err)

	require.NoError(t, d.Commit([]byte("rewired inputs")))

	after, err := devcfg.Assemble(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, before.Generation()+1, after.Generation())
	assert.Equal(t, []byte("rewired inputs"), after.Payload())
}

func TestWithBlobFaultInjection(t *testing.T) {
	t.Parallel()

	s := devcfg.DefaultSchema()
	raw := s.BuildBlob(1, 0, 0, make([]byte, 40))
	raw[30] ^= 0x01 // corrupt a payload byte, keep the trailer

	d := NewDevice(WithBlob(raw))
	defer d.Close()

	_, err := devcfg.Assemble(context.Background(), d)
	require.ErrorIs(t, err, devcfg.ErrCorrupt)
}

func TestCloseIsTerminal(t *testing.T) {
	t.Parallel()

	d := NewDevice()
	require.NoError(t, d.Close())
	require.NoError(t, d.Close(), "close must be idempotent")

	_, err := d.Info(context.Background())
	require.ErrorIs(t, err, devcfg.ErrDisconnected)

	_, err = d.ReadChunk(context.Background(), 0, 1)
	require.ErrorIs(t, err, devcfg.ErrDisconnected)

	require.ErrorIs(t, d.Commit(nil), devcfg.ErrDisconnected)
}

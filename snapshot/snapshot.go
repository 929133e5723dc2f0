// Package snapshot persists assembled settings blobs on the host.
//
// A snapshot file holds the raw blob zstd-compressed, preceded by a
// small header recording the blob's content digest. Load verifies the
// digest and then revalidates the blob through the normal parsing path,
// so a snapshot can never reintroduce an invalid blob.
package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/opencontainers/go-digest"

	"github.com/tactum/devcfg"
)

// Snapshot file layout (multi-byte fields little-endian):
//
//	0-3   magic "DCSN"
//	4     format version (1)
//	5     digest string length (n)
//	6-9   raw blob size
//	10..  digest string bytes
//	...   zstd frame of the raw blob
const (
	fileVersion    = 1
	fixedHeadLen   = 10
	maxSnapshotRaw = 1 << 24 // settings blobs are small; refuse anything absurd
)

var fileMagic = [4]byte{'D', 'C', 'S', 'N'}

// ErrBadSnapshot is returned when a file is not a snapshot or its header
// is malformed.
var ErrBadSnapshot = errors.New("snapshot: not a settings snapshot")

// Option configures a Load.
type Option func(*loadConfig)

type loadConfig struct {
	schema devcfg.Schema
}

// WithSchema validates the loaded blob against a specific format
// revision instead of [devcfg.DefaultSchema].
func WithSchema(s devcfg.Schema) Option {
	return func(cfg *loadConfig) {
		cfg.schema = s
	}
}

// Save writes the settings blob to path.
func Save(path string, settings *devcfg.Settings) error {
	raw := settings.Raw()
	dgst := digest.FromBytes(raw)

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	defer enc.Close()

	ds := dgst.String()
	if len(ds) > 0xFF {
		return fmt.Errorf("snapshot: digest string %d bytes exceeds header limit", len(ds))
	}

	out := make([]byte, 0, fixedHeadLen+len(ds)+len(raw)/2)
	out = append(out, fileMagic[:]...)
	out = append(out, fileVersion, byte(len(ds)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(raw)))
	out = append(out, ds...)
	out = enc.EncodeAll(raw, out)

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot, verifies the recorded digest, and revalidates
// the blob. Digest or checksum mismatches surface as
// [devcfg.ErrCorrupt]; unrecognized files as [ErrBadSnapshot].
func Load(path string, opts ...Option) (*devcfg.Settings, error) {
	cfg := loadConfig{schema: devcfg.DefaultSchema()}
	for _, opt := range opts {
		opt(&cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	if len(data) < fixedHeadLen || [4]byte(data[:4]) != fileMagic {
		return nil, fmt.Errorf("%w: %s", ErrBadSnapshot, path)
	}
	if v := data[4]; v != fileVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, v)
	}
	digestLen := int(data[5])
	rawSize := binary.LittleEndian.Uint32(data[6:])
	if rawSize > maxSnapshotRaw {
		return nil, fmt.Errorf("%w: recorded blob size %d too large", ErrBadSnapshot, rawSize)
	}
	if len(data) < fixedHeadLen+digestLen {
		return nil, fmt.Errorf("%w: truncated header", ErrBadSnapshot)
	}

	recorded, err := digest.Parse(string(data[fixedHeadLen : fixedHeadLen+digestLen]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data[fixedHeadLen+digestLen:], make([]byte, 0, rawSize))
	if err != nil {
		return nil, fmt.Errorf("snapshot: decompress: %v: %w", err, devcfg.ErrCorrupt)
	}
	if uint32(len(raw)) != rawSize {
		return nil, fmt.Errorf("snapshot: blob %d bytes, recorded %d: %w", len(raw), rawSize, devcfg.ErrCorrupt)
	}
	if computed := recorded.Algorithm().FromBytes(raw); computed != recorded {
		return nil, fmt.Errorf("snapshot: digest %s, recorded %s: %w", computed, recorded, devcfg.ErrCorrupt)
	}

	return devcfg.ParseSettings(cfg.schema, raw)
}

package devcfg

import (
	"context"
	"fmt"
)

// Assemble reconstructs the device's settings blob through sequential
// chunked reads and validates it.
//
// The pass asks the transport for its identity, then reads chunks
// strictly in increasing offset order, never requesting more than the
// device's advertised maximum per call. Chunk order matters: later bytes
// are only meaningful once earlier header fields are in hand, so
// assembly never reorders or parallelizes reads.
//
// Any read failure aborts the whole pass; no partial blob is ever
// returned. Assemble does not retry: the device may have committed new
// settings between attempts (a changed generation), in which case the
// blob must be re-read from offset 0, and only the caller can decide
// that. Format errors ([ErrFormatMismatch], [ErrCorrupt]) are raised
// only after the full transfer.
func Assemble(ctx context.Context, t Transport, opts ...AssembleOption) (*Settings, error) {
	cfg := assembleConfig{schema: DefaultSchema()}
	for _, opt := range opts {
		opt(&cfg)
	}

	id, err := t.Info(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkIdentity(cfg.schema, id); err != nil {
		return nil, err
	}

	maxChunk := id.MaxChunk
	if cfg.maxChunk > 0 && cfg.maxChunk < maxChunk {
		maxChunk = cfg.maxChunk
	}

	log := cfg.log()
	log.Debug("assembling settings blob",
		"schema", id.SchemaID,
		"blob_size", id.BlobSize,
		"max_chunk", maxChunk,
	)

	raw := make([]byte, 0, id.BlobSize)
	for offset := uint32(0); offset < id.BlobSize; {
		length := min(maxChunk, id.BlobSize-offset)

		chunk, err := t.ReadChunk(ctx, offset, length)
		if err != nil {
			return nil, err
		}
		if uint32(len(chunk)) != length {
			return nil, fmt.Errorf("chunk at %d: got %d bytes, want %d: %w", offset, len(chunk), length, ErrShortRead)
		}

		raw = append(raw, chunk...)
		offset += length
		log.Debug("chunk received", "offset", offset, "length", length)
	}

	settings, err := ParseSettings(cfg.schema, raw)
	if err != nil {
		return nil, err
	}

	log.Debug("settings blob validated",
		"generation", settings.Generation(),
		"active_profile", settings.ActiveProfile(),
	)
	return settings, nil
}

// checkIdentity rejects incompatible devices before any payload bytes
// move. The blob's own magic and major version are still verified after
// assembly; this is the cheap early exit.
func checkIdentity(s Schema, id DeviceIdentity) error {
	if id.SchemaID != s.ID {
		return fmt.Errorf("device schema %q, want %q: %w", id.SchemaID, s.ID, ErrFormatMismatch)
	}
	if id.SettingsMajor != s.VersionMajor {
		return fmt.Errorf("device settings major %d, want %d: %w", id.SettingsMajor, s.VersionMajor, ErrFormatMismatch)
	}
	if id.BlobSize < MinBlobSize {
		return fmt.Errorf("advertised blob size %d below minimum %d: %w", id.BlobSize, MinBlobSize, ErrFormatMismatch)
	}
	if id.MaxChunk == 0 {
		return fmt.Errorf("advertised max chunk is zero: %w", ErrFormatMismatch)
	}
	return nil
}

package devcfg

import (
	"io"
	"log/slog"
)

// AssembleOption configures an Assemble pass.
type AssembleOption func(*assembleConfig)

type assembleConfig struct {
	schema   Schema
	logger   *slog.Logger
	maxChunk uint32
}

// WithSchema validates the blob against a specific format revision
// instead of [DefaultSchema].
func WithSchema(s Schema) AssembleOption {
	return func(cfg *assembleConfig) {
		cfg.schema = s
	}
}

// WithLogger sets a logger for per-chunk progress at debug level.
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) AssembleOption {
	return func(cfg *assembleConfig) {
		cfg.logger = logger
	}
}

// WithMaxChunk caps chunk reads below the device's advertised maximum.
// Values above the device's own limit are ignored; the device limit is
// never exceeded. Zero means no extra cap.
func WithMaxChunk(n uint32) AssembleOption {
	return func(cfg *assembleConfig) {
		cfg.maxChunk = n
	}
}

func (cfg *assembleConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1 << 10)}))
	}
	return cfg.logger
}

package images

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkwellpress/inkwell/internal/media/codec"
)

// Stored describes a cover written to storage.
type Stored struct {
	ID       string
	MIME     string
	BlurHash string
	Size     int
}

// Processor compresses composited covers and stores them.
type Processor struct {
	storage *Storage
	format  codec.Format
	quality float64
	logger  *slog.Logger
}

// NewProcessor creates a Processor that stores covers in format at quality.
func NewProcessor(storage *Storage, format codec.Format, quality float64, logger *slog.Logger) *Processor {
	return &Processor{
		storage: storage,
		format:  format,
		quality: quality,
		logger:  logger,
	}
}

// Process compresses encoded image bytes, stores them and computes their
// placeholder hash. A failed hash is logged and left empty.
func (p *Processor) Process(ctx context.Context, data []byte) (*Stored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compressed, mime, err := codec.Compress(data, p.format, p.quality)
	if err != nil {
		return nil, err
	}

	id, err := p.storage.Put(compressed, mime)
	if err != nil {
		return nil, fmt.Errorf("failed to save cover: %w", err)
	}

	hash, err := BlurHashBytes(compressed)
	if err != nil {
		p.logger.Warn("failed to compute blurhash", "cover_id", shortID(id), "error", err)
		hash = ""
	}

	p.logger.Debug("stored cover",
		"cover_id", shortID(id),
		"mime", mime,
		"original_size", len(data),
		"size", len(compressed),
	)

	return &Stored{ID: id, MIME: mime, BlurHash: hash, Size: len(compressed)}, nil
}

// Storage returns the underlying blob store.
func (p *Processor) Storage() *Storage {
	return p.storage
}

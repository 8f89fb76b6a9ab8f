// Package refine sends cover images back to the generative backend for
// instruction-driven edits, one request at a time.
package refine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/genai"
	"github.com/inkwellpress/inkwell/internal/media/codec"
)

// Pacer admits one edit call at a time. Wait blocks until a call may start
// and Done marks its end; the delay before the next call counts from Done.
type Pacer interface {
	Wait(ctx context.Context) error
	Done()
}

// Result is the outcome of one batch item. Image is nil when the backend
// returned nothing usable or Err is set.
type Result struct {
	Index int
	Image []byte
	Err   error
}

// Refiner wraps an ImageEditor with timeouts and pacing.
type Refiner struct {
	editor  genai.ImageEditor
	pacer   Pacer
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Refiner. timeout bounds each edit call.
func New(editor genai.ImageEditor, pacer Pacer, timeout time.Duration, logger *slog.Logger) *Refiner {
	return &Refiner{editor: editor, pacer: pacer, timeout: timeout, logger: logger}
}

// Refine edits image per instruction with a single request and no retry.
// It returns nil, nil when the backend produced no usable image. The call
// goes through the pacer, so it never overlaps a batch call.
func (r *Refiner) Refine(ctx context.Context, image []byte, instruction string) ([]byte, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return nil, errors.Validation("refinement instruction is required")
	}

	format, ok := codec.Detect(image)
	if !ok {
		return nil, errors.Wrap(errors.New("unrecognised image"), errors.CodeDecode, "image could not be decoded")
	}

	if err := r.pacer.Wait(ctx); err != nil {
		return nil, err
	}
	defer r.pacer.Done()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := r.editor.EditImage(ctx, image, format.MIME(), instruction)
	if err != nil {
		return nil, genai.DomainError(err, "image refinement failed")
	}
	if out == nil || len(out.Data) == 0 {
		r.logger.Info("refinement returned no image", "elapsed", time.Since(start))
		return nil, nil
	}

	r.logger.Debug("refinement complete", "size", len(out.Data), "elapsed", time.Since(start))
	return out.Data, nil
}

// RefineBatch refines images strictly in order. Each call goes through the
// pacer, so no two calls overlap and each starts at least the pacer's
// interval after the previous one finished. Each outcome is reported to fn.
// A rate-limit error or a cancelled context stops the batch and is returned.
func (r *Refiner) RefineBatch(ctx context.Context, images [][]byte, instruction string, fn func(Result)) error {
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := r.Refine(ctx, img, instruction)
		if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
			return ctxErr
		}
		fn(Result{Index: i, Image: out, Err: err})

		if errors.Is(err, errors.ErrRateLimited) {
			r.logger.Warn("batch refinement stopped by rate limit", "index", i, "total", len(images))
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return nil
}

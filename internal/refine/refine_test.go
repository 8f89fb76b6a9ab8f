package refine

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/genai"
	"github.com/inkwellpress/inkwell/internal/ratelimit"
)

type fakeEditor struct {
	mu        sync.Mutex
	calls     []time.Time
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	delay     time.Duration
	respond   func(call int) (*genai.Payload, error)
}

func (f *fakeEditor) EditImage(ctx context.Context, img []byte, mime, instruction string) (*genai.Payload, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxFlight.Load()
		if n <= cur || f.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	call := len(f.calls)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.respond != nil {
		return f.respond(call)
	}
	return &genai.Payload{MIME: mime, Data: append([]byte("edited:"), img[:4]...)}, nil
}

type recordingPacer struct {
	waits int
	dones int
}

func (p *recordingPacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.waits++
	return nil
}

func (p *recordingPacer) Done() {
	p.dones++
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRefine_ReturnsEditedBytes(t *testing.T) {
	editor := &fakeEditor{}
	r := New(editor, &recordingPacer{}, time.Second, discard())

	out, err := r.Refine(context.Background(), pngImage(t), "warmer light")
	require.NoError(t, err)
	assert.Equal(t, []byte("edited:\x89PNG"), out)
}

func TestRefine_NoResult(t *testing.T) {
	editor := &fakeEditor{respond: func(int) (*genai.Payload, error) { return nil, nil }}
	r := New(editor, &recordingPacer{}, time.Second, discard())

	out, err := r.Refine(context.Background(), pngImage(t), "warmer light")
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestRefine_Validation(t *testing.T) {
	r := New(&fakeEditor{}, &recordingPacer{}, time.Second, discard())

	_, err := r.Refine(context.Background(), pngImage(t), "   ")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = r.Refine(context.Background(), []byte("nope"), "warmer")
	assert.True(t, errors.Is(err, errors.ErrDecode))
}

func TestRefine_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", genai.ErrRateLimited, errors.ErrRateLimited},
		{"invalid input", genai.ErrInvalidInput, errors.ErrInvalidInput},
		{"server", genai.ErrServer, errors.ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor := &fakeEditor{respond: func(int) (*genai.Payload, error) { return nil, tt.err }}
			r := New(editor, &recordingPacer{}, time.Second, discard())

			_, err := r.Refine(context.Background(), pngImage(t), "x")
			assert.True(t, errors.Is(err, tt.want))
			assert.ErrorIs(t, err, tt.err, "original cause is kept")
		})
	}
}

func TestRefine_Timeout(t *testing.T) {
	editor := &fakeEditor{respond: func(int) (*genai.Payload, error) { return nil, context.DeadlineExceeded }}
	r := New(editor, &recordingPacer{}, 10*time.Millisecond, discard())

	_, err := r.Refine(context.Background(), pngImage(t), "x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRefineBatch_SequentialExactlyN(t *testing.T) {
	editor := &fakeEditor{delay: 5 * time.Millisecond}
	pacer := &recordingPacer{}
	r := New(editor, pacer, time.Second, discard())
	images := [][]byte{pngImage(t), pngImage(t), pngImage(t), pngImage(t)}

	var results []Result
	err := r.RefineBatch(context.Background(), images, "sharpen", func(res Result) {
		results = append(results, res)
	})
	require.NoError(t, err)

	assert.Len(t, editor.calls, 4)
	assert.Equal(t, 4, pacer.waits)
	assert.Equal(t, 4, pacer.dones)
	assert.Equal(t, int32(1), editor.maxFlight.Load(), "never two calls in flight")
	for i, res := range results {
		assert.Equal(t, i, res.Index)
		assert.NoError(t, res.Err)
		assert.NotNil(t, res.Image)
	}
}

func TestRefineBatch_SpacedByInterval(t *testing.T) {
	const interval = 40 * time.Millisecond
	editor := &fakeEditor{}
	r := New(editor, ratelimit.NewPacer(interval), time.Second, discard())
	images := [][]byte{pngImage(t), pngImage(t), pngImage(t)}

	start := time.Now()
	require.NoError(t, r.RefineBatch(context.Background(), images, "sharpen", func(Result) {}))
	elapsed := time.Since(start)

	require.Len(t, editor.calls, 3)
	assert.Less(t, editor.calls[0].Sub(start), interval/2, "first call is not delayed")
	for i := 1; i < len(editor.calls); i++ {
		gap := editor.calls[i].Sub(editor.calls[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond, "gap %d", i)
	}
	assert.GreaterOrEqual(t, elapsed, 2*interval-10*time.Millisecond, "N-1 delays")
}

func TestRefineBatch_DelayCountsFromPreviousCallEnd(t *testing.T) {
	const (
		interval = 40 * time.Millisecond
		callTime = 60 * time.Millisecond
	)
	editor := &fakeEditor{delay: callTime}
	r := New(editor, ratelimit.NewPacer(interval), time.Second, discard())
	images := [][]byte{pngImage(t), pngImage(t), pngImage(t)}

	require.NoError(t, r.RefineBatch(context.Background(), images, "sharpen", func(Result) {}))

	require.Len(t, editor.calls, 3)
	for i := 1; i < len(editor.calls); i++ {
		prevEnd := editor.calls[i-1].Add(callTime)
		gap := editor.calls[i].Sub(prevEnd)
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond, "idle gap before call %d", i)
	}
	assert.Equal(t, int32(1), editor.maxFlight.Load())
}

func TestRefine_SharesPacerWithBatch(t *testing.T) {
	editor := &fakeEditor{delay: 30 * time.Millisecond}
	r := New(editor, ratelimit.NewPacer(0), time.Second, discard())
	images := [][]byte{pngImage(t), pngImage(t), pngImage(t)}

	done := make(chan error, 1)
	go func() {
		done <- r.RefineBatch(context.Background(), images, "sharpen", func(Result) {})
	}()
	_, err := r.Refine(context.Background(), pngImage(t), "warmer")
	require.NoError(t, err)
	require.NoError(t, <-done)

	assert.Len(t, editor.calls, 4)
	assert.Equal(t, int32(1), editor.maxFlight.Load(), "single refine never overlaps a batch call")
}

func TestRefineBatch_NoResultAndErrorsContinue(t *testing.T) {
	editor := &fakeEditor{respond: func(call int) (*genai.Payload, error) {
		switch call {
		case 1:
			return nil, nil
		case 2:
			return nil, genai.ErrServer
		default:
			return &genai.Payload{Data: []byte("ok")}, nil
		}
	}}
	r := New(editor, &recordingPacer{}, time.Second, discard())

	var results []Result
	err := r.RefineBatch(context.Background(), [][]byte{pngImage(t), pngImage(t), pngImage(t)}, "x", func(res Result) {
		results = append(results, res)
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Nil(t, results[0].Image)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, []byte("ok"), results[2].Image)
}

func TestRefineBatch_RateLimitStops(t *testing.T) {
	editor := &fakeEditor{respond: func(call int) (*genai.Payload, error) {
		if call == 2 {
			return nil, genai.ErrRateLimited
		}
		return &genai.Payload{Data: []byte("ok")}, nil
	}}
	r := New(editor, &recordingPacer{}, time.Second, discard())

	var seen int
	err := r.RefineBatch(context.Background(), [][]byte{pngImage(t), pngImage(t), pngImage(t)}, "x", func(Result) {
		seen++
	})

	assert.True(t, errors.Is(err, errors.ErrRateLimited))
	assert.Equal(t, 2, seen)
	assert.Len(t, editor.calls, 2)
}

func TestRefineBatch_CancelledBeforeStart(t *testing.T) {
	editor := &fakeEditor{}
	r := New(editor, &recordingPacer{}, time.Second, discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.RefineBatch(ctx, [][]byte{pngImage(t)}, "x", func(Result) {})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, editor.calls)
}

package coverset

import (
	"context"
	"log/slog"
	"sync"

	"github.com/inkwellpress/inkwell/internal/errors"
)

// EventType names a cover set change.
type EventType string

// Cover set events.
const (
	EventGenerationStarted EventType = "cover.generation.started"
	EventCandidatesReady   EventType = "cover.candidates.ready"
	EventSelected          EventType = "cover.selected"
	EventArchived          EventType = "cover.archived"
	EventUnarchived        EventType = "cover.unarchived"
	EventReplaced          EventType = "cover.replaced"
	EventPromptRecorded    EventType = "cover.prompt.recorded"
)

// Event is emitted after a change has been persisted.
type Event struct {
	Type EventType `json:"type"`
	Set  CoverSet  `json:"set"`
}

// Persister stores cover sets.
type Persister interface {
	SaveCoverSet(ctx context.Context, set CoverSet) error
}

// Emitter receives committed changes.
type Emitter interface {
	EmitCoverSet(event Event)
}

type request struct {
	ctx   context.Context
	apply func(*CoverSet) (EventType, error)
	reply chan reply
}

type reply struct {
	set CoverSet
	err error
}

// Manager serializes all mutations of one project's cover set on a single
// goroutine. A failed mutation leaves the set unchanged.
type Manager struct {
	state     CoverSet
	persister Persister
	emitter   Emitter
	logger    *slog.Logger

	requests  chan request
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewManager starts a manager owning initial. persister and emitter may be nil.
func NewManager(initial CoverSet, persister Persister, emitter Emitter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Manager{
		state:     initial.Clone(),
		persister: persister,
		emitter:   emitter,
		logger:    logger.With("project_id", initial.ProjectID),
		requests:  make(chan request),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Manager) run() {
	defer close(m.stopped)
	for {
		select {
		case <-m.done:
			return
		case req := <-m.requests:
			set, err := m.handle(req)
			req.reply <- reply{set: set, err: err}
		}
	}
}

func (m *Manager) handle(req request) (CoverSet, error) {
	next := m.state.Clone()
	event, err := req.apply(&next)
	if err != nil {
		return m.state.Clone(), err
	}
	if event == "" {
		return m.state.Clone(), nil
	}

	if m.persister != nil {
		if err := m.persister.SaveCoverSet(req.ctx, next); err != nil {
			m.logger.Error("failed to persist cover set", "event", event, "error", err)
			return m.state.Clone(), errors.Wrap(err, errors.CodeInternal, "failed to save covers")
		}
	}
	m.state = next

	m.logger.Debug("cover set changed", "event", event, "generation", next.Generation,
		"candidates", len(next.Candidates), "archived", len(next.Archived))
	if m.emitter != nil {
		m.emitter.EmitCoverSet(Event{Type: event, Set: next.Clone()})
	}
	return next.Clone(), nil
}

func (m *Manager) do(ctx context.Context, apply func(*CoverSet) (EventType, error)) (CoverSet, error) {
	req := request{ctx: ctx, apply: apply, reply: make(chan reply, 1)}
	select {
	case m.requests <- req:
	case <-ctx.Done():
		return CoverSet{}, ctx.Err()
	case <-m.done:
		return CoverSet{}, ErrClosed
	}
	// Once accepted the request always completes.
	r := <-req.reply
	return r.set, r.err
}

// Close stops the manager goroutine. Pending callers get ErrClosed.
func (m *Manager) Close() {
	m.closeOnce.Do(func() { close(m.done) })
	<-m.stopped
}

// Snapshot returns a copy of the current set.
func (m *Manager) Snapshot(ctx context.Context) (CoverSet, error) {
	return m.do(ctx, func(*CoverSet) (EventType, error) { return "", nil })
}

// BeginGeneration clears candidates and selection, records prompt and
// returns a token for CompleteGeneration. Archived covers are kept.
func (m *Manager) BeginGeneration(ctx context.Context, prompt string) (Token, error) {
	set, err := m.do(ctx, func(s *CoverSet) (EventType, error) {
		return s.beginGeneration(prompt), nil
	})
	if err != nil {
		return Token{}, err
	}
	return Token{generation: set.Generation}, nil
}

// CompleteGeneration installs cands and selects the first one. It fails
// with ErrStaleGeneration if another generation began after token was issued.
func (m *Manager) CompleteGeneration(ctx context.Context, token Token, cands []Candidate) (CoverSet, error) {
	return m.do(ctx, func(s *CoverSet) (EventType, error) {
		return s.completeGeneration(token, cands)
	})
}

// Select makes id the selected cover.
func (m *Manager) Select(ctx context.Context, id string) (CoverSet, error) {
	return m.do(ctx, func(s *CoverSet) (EventType, error) {
		return s.selectCover(id)
	})
}

// Save archives the candidate with id. Saving twice is a no-op.
func (m *Manager) Save(ctx context.Context, id string) (CoverSet, error) {
	return m.do(ctx, func(s *CoverSet) (EventType, error) {
		return s.save(id)
	})
}

// Unarchive removes id from the archive.
func (m *Manager) Unarchive(ctx context.Context, id string) (CoverSet, error) {
	return m.do(ctx, func(s *CoverSet) (EventType, error) {
		return s.unarchive(id), nil
	})
}

// ReplaceSelected swaps the selected cover for c if it is still expectedID.
func (m *Manager) ReplaceSelected(ctx context.Context, expectedID string, c Candidate) (CoverSet, error) {
	return m.do(ctx, func(s *CoverSet) (EventType, error) {
		return s.replaceSelected(expectedID, c)
	})
}

// ReplaceAt swaps the candidate at index for c if it is still expectedID.
func (m *Manager) ReplaceAt(ctx context.Context, index int, expectedID string, c Candidate) (CoverSet, error) {
	return m.do(ctx, func(s *CoverSet) (EventType, error) {
		return s.replaceAt(index, expectedID, c)
	})
}

// RecordPrompt appends prompt to the history unless already present.
func (m *Manager) RecordPrompt(ctx context.Context, prompt string) (CoverSet, error) {
	return m.do(ctx, func(s *CoverSet) (EventType, error) {
		return s.recordPrompt(prompt), nil
	})
}

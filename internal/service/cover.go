// Package service implements the cover studio operations on top of the
// compositor, the generative backend and the project store.
package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/inkwellpress/inkwell/internal/compositor"
	"github.com/inkwellpress/inkwell/internal/coverset"
	"github.com/inkwellpress/inkwell/internal/domain"
	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/genai"
	"github.com/inkwellpress/inkwell/internal/media/images"
	"github.com/inkwellpress/inkwell/internal/refine"
	"github.com/inkwellpress/inkwell/internal/sse"
	"github.com/inkwellpress/inkwell/internal/store"
	"github.com/inkwellpress/inkwell/internal/validation"
)

// EventEmitter broadcasts status and job events.
type EventEmitter interface {
	Emit(event sse.Event)
}

// CoverServiceDeps are the collaborators of a CoverService.
type CoverServiceDeps struct {
	Store      *store.Store
	CoverSets  *coverset.Registry
	Images     genai.ImageGenerator
	Text       genai.TextGenerator
	Refiner    *refine.Refiner
	Compositor *compositor.Compositor
	Processor  *images.Processor
	Validator  *validation.Validator
	Events     EventEmitter
	// Variants is the number of candidates requested per generation.
	Variants int
	// Timeout bounds each backend call.
	Timeout time.Duration
	Logger  *slog.Logger
}

// CoverService runs cover operations for projects. Every failure is
// returned as a coded domain error and recorded in the project's Status.
type CoverService struct {
	store      *store.Store
	coverSets  *coverset.Registry
	images     genai.ImageGenerator
	text       genai.TextGenerator
	refiner    *refine.Refiner
	compositor *compositor.Compositor
	processor  *images.Processor
	validator  *validation.Validator
	events     EventEmitter
	variants   int
	timeout    time.Duration
	logger     *slog.Logger

	status *statusTracker

	// Background enhancement jobs
	ctx    context.Context //nolint:containedctx // Lifetime of background jobs
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoverService creates a cover service.
func NewCoverService(deps CoverServiceDeps) *CoverService {
	ctx, cancel := context.WithCancel(context.Background())
	variants := deps.Variants
	if variants <= 0 {
		variants = 1
	}
	return &CoverService{
		store:      deps.Store,
		coverSets:  deps.CoverSets,
		images:     deps.Images,
		text:       deps.Text,
		refiner:    deps.Refiner,
		compositor: deps.Compositor,
		processor:  deps.Processor,
		validator:  deps.Validator,
		events:     deps.Events,
		variants:   variants,
		timeout:    deps.Timeout,
		logger:     deps.Logger,
		status:     newStatusTracker(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Shutdown cancels running enhancement jobs and waits for them to stop.
func (s *CoverService) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GenerateInput requests a new batch of candidates.
type GenerateInput struct {
	// Prompt overrides the project's stored cover prompt.
	Prompt string `json:"prompt,omitempty" validate:"max=4000"`
}

// RefineInput requests an instruction-driven edit.
type RefineInput struct {
	Instruction string `json:"instruction" validate:"notblank,max=2000"`
	// Recompose draws the cover text again over the refined image.
	Recompose bool `json:"recompose,omitempty"`
}

// Generate replaces the project's candidates with a fresh batch composited
// from the image backend's output, and selects the first one. The old
// candidates and selection are cleared before the backend is called;
// archived covers are kept.
func (s *CoverService) Generate(ctx context.Context, projectID string, in GenerateInput) (set coverset.CoverSet, err error) {
	if err := s.validator.Validate(in); err != nil {
		return coverset.CoverSet{}, err
	}
	project, err := s.readyProject(ctx, projectID)
	if err != nil {
		return coverset.CoverSet{}, err
	}

	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		prompt = project.CoverPrompt
	}
	if prompt == "" {
		return coverset.CoverSet{}, errors.Validation("a cover prompt is required")
	}

	if err := s.begin(projectID, OpGenerate); err != nil {
		return coverset.CoverSet{}, err
	}
	defer s.end(projectID, &err)

	mgr, err := s.coverSets.Get(ctx, projectID)
	if err != nil {
		return coverset.CoverSet{}, err
	}
	token, err := mgr.BeginGeneration(ctx, prompt)
	if err != nil {
		return coverset.CoverSet{}, err
	}

	start := time.Now()
	payloads, err := s.generateImages(ctx, prompt)
	if err != nil {
		return coverset.CoverSet{}, err
	}

	cands, err := s.buildCandidates(ctx, payloads, CoverSpecFor(project), prompt)
	if err != nil {
		return coverset.CoverSet{}, err
	}

	set, err = mgr.CompleteGeneration(ctx, token, cands)
	if err != nil {
		return coverset.CoverSet{}, err
	}
	if len(set.Candidates) == 0 {
		return set, errors.NoResult("no covers were generated")
	}

	if project.CoverPrompt != prompt {
		project.CoverPrompt = prompt
		s.saveProject(ctx, project)
	}

	s.logger.Info("covers generated",
		"project_id", projectID,
		"candidates", len(set.Candidates),
		"requested", s.variants,
		"elapsed", time.Since(start),
	)
	return set, nil
}

func (s *CoverService) generateImages(ctx context.Context, prompt string) ([]genai.Payload, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	payloads, err := s.images.GenerateImages(ctx, prompt, s.variants)
	if err != nil {
		return nil, genai.DomainError(err, "cover generation failed")
	}
	return payloads, nil
}

// buildCandidates composites and stores every payload concurrently. The
// result keeps payload order and skips payloads that failed; it is an
// error only when all of them failed.
func (s *CoverService) buildCandidates(ctx context.Context, payloads []genai.Payload, spec compositor.CoverSpec, prompt string) ([]coverset.Candidate, error) {
	results := make([]*coverset.Candidate, len(payloads))
	errs := make([]error, len(payloads))

	var wg sync.WaitGroup
	for i, p := range payloads {
		wg.Go(func() {
			results[i], errs[i] = s.buildCandidate(ctx, p.Data, spec, prompt)
		})
	}
	wg.Wait()

	cands := make([]coverset.Candidate, 0, len(payloads))
	var firstErr error
	for i, c := range results {
		if c != nil {
			cands = append(cands, *c)
			continue
		}
		s.logger.Warn("cover variant failed", "index", i, "error", errs[i])
		if firstErr == nil {
			firstErr = errs[i]
		}
	}
	if len(cands) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return cands, nil
}

func (s *CoverService) buildCandidate(ctx context.Context, base []byte, spec compositor.CoverSpec, prompt string) (*coverset.Candidate, error) {
	png, err := s.compositor.ComposeBytes(ctx, base, spec)
	if err != nil {
		return nil, err
	}
	return s.storeCandidate(ctx, png, prompt)
}

func (s *CoverService) storeCandidate(ctx context.Context, data []byte, prompt string) (*coverset.Candidate, error) {
	stored, err := s.processor.Process(ctx, data)
	if err != nil {
		var domainErr *errors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to store cover")
	}
	return &coverset.Candidate{
		ID:        stored.ID,
		MIME:      stored.MIME,
		BlurHash:  stored.BlurHash,
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Select makes coverID the project's cover.
func (s *CoverService) Select(ctx context.Context, projectID, coverID string) (coverset.CoverSet, error) {
	mgr, err := s.manager(ctx, projectID)
	if err != nil {
		return coverset.CoverSet{}, err
	}
	return mgr.Select(ctx, coverID)
}

// Save archives a candidate. Saving an archived cover again is a no-op.
func (s *CoverService) Save(ctx context.Context, projectID, coverID string) (coverset.CoverSet, error) {
	mgr, err := s.manager(ctx, projectID)
	if err != nil {
		return coverset.CoverSet{}, err
	}
	return mgr.Save(ctx, coverID)
}

// Unarchive removes a cover from the archive.
func (s *CoverService) Unarchive(ctx context.Context, projectID, coverID string) (coverset.CoverSet, error) {
	mgr, err := s.manager(ctx, projectID)
	if err != nil {
		return coverset.CoverSet{}, err
	}
	return mgr.Unarchive(ctx, coverID)
}

// Covers returns the project's cover set.
func (s *CoverService) Covers(ctx context.Context, projectID string) (coverset.CoverSet, error) {
	mgr, err := s.manager(ctx, projectID)
	if err != nil {
		return coverset.CoverSet{}, err
	}
	return mgr.Snapshot(ctx)
}

// Refine edits the selected cover and replaces it in place. A backend that
// returns nothing yields NO_RESULT and leaves the cover set unchanged.
func (s *CoverService) Refine(ctx context.Context, projectID string, in RefineInput) (set coverset.CoverSet, err error) {
	if err := s.validator.Validate(in); err != nil {
		return coverset.CoverSet{}, err
	}
	mgr, err := s.manager(ctx, projectID)
	if err != nil {
		return coverset.CoverSet{}, err
	}

	if err := s.begin(projectID, OpRefine); err != nil {
		return coverset.CoverSet{}, err
	}
	defer s.end(projectID, &err)

	snap, err := mgr.Snapshot(ctx)
	if err != nil {
		return coverset.CoverSet{}, err
	}
	selected, ok := snap.SelectedCandidate()
	if !ok {
		return coverset.CoverSet{}, errors.Validation("select a cover before refining it")
	}

	data, _, err := s.processor.Storage().Get(selected.ID)
	if err != nil {
		return coverset.CoverSet{}, err
	}

	out, err := s.refiner.Refine(ctx, data, in.Instruction)
	if err != nil {
		return coverset.CoverSet{}, err
	}
	if out == nil {
		return coverset.CoverSet{}, errors.NoResult("the refinement returned no image")
	}

	cand, err := s.storeRefined(ctx, projectID, out, in.Recompose, selected.Prompt)
	if err != nil {
		return coverset.CoverSet{}, err
	}

	set, err = mgr.ReplaceSelected(ctx, selected.ID, *cand)
	if err != nil {
		return coverset.CoverSet{}, err
	}

	s.logger.Info("cover refined", "project_id", projectID, "replaced", shortID(selected.ID), "with", shortID(cand.ID))
	return set, nil
}

func (s *CoverService) storeRefined(ctx context.Context, projectID string, data []byte, recompose bool, prompt string) (*coverset.Candidate, error) {
	if recompose {
		project, err := s.project(ctx, projectID)
		if err != nil {
			return nil, err
		}
		data, err = s.compositor.ComposeBytes(ctx, data, CoverSpecFor(project))
		if err != nil {
			return nil, err
		}
	}
	return s.storeCandidate(ctx, data, prompt)
}

// Status returns the busy flag and last outcome of a project.
func (s *CoverService) Status(projectID string) Status {
	return s.status.get(projectID)
}

// begin marks a project busy or fails with BUSY.
func (s *CoverService) begin(projectID, op string) error {
	if !s.status.begin(projectID, op) {
		return errors.ErrBusy
	}
	s.events.Emit(sse.NewStatusEvent(projectID, sse.StatusEventData{Busy: true, Operation: op}))
	return nil
}

// end clears the busy flag. It runs deferred so every exit path resets it.
func (s *CoverService) end(projectID string, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	st := s.status.end(projectID, err)
	if err != nil {
		s.logger.Warn("cover operation failed",
			"project_id", projectID,
			"operation", st.Operation,
			"code", st.Code,
			"error", err,
		)
	}
	s.events.Emit(sse.NewStatusEvent(projectID, sse.StatusEventData{
		Busy:      false,
		Operation: st.Operation,
		Message:   st.Message,
	}))
}

func (s *CoverService) manager(ctx context.Context, projectID string) (*coverset.Manager, error) {
	if _, err := s.project(ctx, projectID); err != nil {
		return nil, err
	}
	return s.coverSets.Get(ctx, projectID)
}

// CoverSpecFor derives the compositor input from a project.
func CoverSpecFor(p *domain.Project) compositor.CoverSpec {
	return compositor.CoverSpec{
		Title:              p.Title,
		Subtitle:           p.Subtitle,
		Author:             p.Author,
		Tagline:            p.Tagline,
		TitleFontSizePt:    p.Typography.TitleFontSizePt,
		SubtitleFontSizePt: p.Typography.SubtitleFontSizePt,
		AuthorFontSizePt:   p.Typography.AuthorFontSizePt,
		AuthorAlign:        p.Typography.AuthorAlign,
		BonusCount:         p.Badge.Count,
		BonusStickerShape:  p.Badge.Shape,
		BonusLabel:         p.Badge.Label,
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

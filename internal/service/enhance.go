package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/inkwellpress/inkwell/internal/coverset"
	"github.com/inkwellpress/inkwell/internal/domain"
	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/refine"
	"github.com/inkwellpress/inkwell/internal/sse"
	"github.com/inkwellpress/inkwell/internal/store"
)

// EnhanceAll starts a background job that refines every candidate of the
// project with the same instruction, one backend call at a time. Each
// refined cover replaces its original in place. Progress is reported as
// job events; the project stays busy until the job ends.
func (s *CoverService) EnhanceAll(ctx context.Context, projectID string, in RefineInput) (*domain.EnhanceJob, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	mgr, err := s.manager(ctx, projectID)
	if err != nil {
		return nil, err
	}
	snap, err := mgr.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(snap.Candidates) == 0 {
		return nil, errors.Validation("generate covers before enhancing them")
	}

	if err := s.begin(projectID, OpEnhance); err != nil {
		return nil, err
	}

	job := &domain.EnhanceJob{
		ID:          uuid.NewString(),
		ProjectID:   projectID,
		Instruction: in.Instruction,
		Status:      domain.JobStatusPending,
		Total:       len(snap.Candidates),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Jobs.Create(ctx, job.ID, job); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			err = errors.ErrBusy
		} else {
			err = errors.Wrap(err, errors.CodeInternal, "failed to start enhancement")
		}
		s.end(projectID, &err)
		return nil, err
	}
	s.events.Emit(sse.NewJobEvent(job))

	started := *job
	s.wg.Go(func() {
		s.runEnhance(job, mgr, snap.Candidates, in)
	})

	s.logger.Info("enhancement started", "project_id", projectID, "job_id", job.ID, "total", job.Total)
	return &started, nil
}

// GetJob returns an enhancement job of a project.
func (s *CoverService) GetJob(ctx context.Context, projectID, jobID string) (*domain.EnhanceJob, error) {
	job, err := s.store.Jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFoundf("job %s not found", jobID)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to load job")
	}
	if job.ProjectID != projectID {
		return nil, errors.NotFoundf("job %s not found", jobID)
	}
	return job, nil
}

// RecoverJobs fails jobs left active by a previous process so their
// projects accept new jobs.
func (s *CoverService) RecoverJobs(ctx context.Context) error {
	var stale []*domain.EnhanceJob
	for job, err := range s.store.Jobs.List(ctx) {
		if err != nil {
			return err
		}
		if job.Active() {
			stale = append(stale, job)
		}
	}
	for _, job := range stale {
		job.MarkFailed("the server restarted before the job finished")
		if err := s.store.Jobs.Update(ctx, job.ID, job); err != nil {
			return err
		}
		s.logger.Info("recovered interrupted job", "job_id", job.ID, "project_id", job.ProjectID)
	}
	return nil
}

func (s *CoverService) runEnhance(job *domain.EnhanceJob, mgr *coverset.Manager, cands []coverset.Candidate, in RefineInput) {
	ctx := s.ctx
	var runErr error
	defer s.end(job.ProjectID, &runErr)

	job.MarkRunning()
	s.saveJob(job)

	// Positions and IDs of the covers actually sent, for the in-place
	// replacement of each result.
	var (
		positions []int
		ids       []string
		batch     [][]byte
	)
	for i, c := range cands {
		data, _, err := s.processor.Storage().Get(c.ID)
		if err != nil {
			s.logger.Warn("enhance: cover unreadable", "job_id", job.ID, "cover_id", shortID(c.ID), "error", err)
			job.Failed++
			continue
		}
		positions = append(positions, i)
		ids = append(ids, c.ID)
		batch = append(batch, data)
	}
	if job.Failed > 0 {
		s.saveJob(job)
	}

	err := s.refiner.RefineBatch(ctx, batch, in.Instruction, func(r refine.Result) {
		if err := s.applyEnhanced(ctx, job, mgr, positions[r.Index], ids[r.Index], cands[positions[r.Index]].Prompt, r, in.Recompose); err != nil {
			s.logger.Warn("enhance: cover failed", "job_id", job.ID, "index", positions[r.Index], "error", err)
			job.Failed++
		} else {
			job.Completed++
		}
		s.saveJob(job)
	})

	switch {
	case errors.Is(err, context.Canceled):
		job.MarkCancelled()
	case err != nil:
		job.MarkFailed(errors.UserMessage(err))
		runErr = err
	case job.Completed == 0:
		runErr = errors.NoResult("no covers could be enhanced")
		job.MarkFailed(errors.UserMessage(runErr))
	default:
		job.MarkCompleted()
	}
	s.saveJob(job)

	s.logger.Info("enhancement finished",
		"job_id", job.ID,
		"project_id", job.ProjectID,
		"status", job.Status,
		"completed", job.Completed,
		"failed", job.Failed,
	)
}

func (s *CoverService) applyEnhanced(ctx context.Context, job *domain.EnhanceJob, mgr *coverset.Manager, index int, expectedID, prompt string, r refine.Result, recompose bool) error {
	if r.Err != nil {
		return r.Err
	}
	if r.Image == nil {
		return errors.NoResult("the refinement returned no image")
	}
	cand, err := s.storeRefined(ctx, job.ProjectID, r.Image, recompose, prompt)
	if err != nil {
		return err
	}
	_, err = mgr.ReplaceAt(ctx, index, expectedID, *cand)
	return err
}

// saveJob persists and broadcasts job progress. It outlives cancellation so
// a cancelled job is still recorded as such.
func (s *CoverService) saveJob(job *domain.EnhanceJob) {
	ctx := context.WithoutCancel(s.ctx)
	if err := s.store.Jobs.Update(ctx, job.ID, job); err != nil {
		s.logger.Error("failed to save job", "job_id", job.ID, "error", err)
	}
	s.events.Emit(sse.NewJobEvent(job))
}

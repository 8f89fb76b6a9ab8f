package api

import (
	"context"
	"mime"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/inkwellpress/inkwell/internal/coverset"
	"github.com/inkwellpress/inkwell/internal/domain"
	"github.com/inkwellpress/inkwell/internal/http/response"
	"github.com/inkwellpress/inkwell/internal/service"
)

func (s *Server) registerCoverRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCovers",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects/{id}/covers",
		Summary:     "Get cover set",
		Tags:        []string{"Covers"},
	}, s.handleGetCovers)

	huma.Register(s.api, huma.Operation{
		OperationID: "generateCovers",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/{id}/covers/generate",
		Summary:     "Generate covers",
		Description: "Replaces the candidates with a fresh batch and selects the first; archived covers are kept",
		Tags:        []string{"Covers"},
	}, s.handleGenerateCovers)

	huma.Register(s.api, huma.Operation{
		OperationID: "selectCover",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/{id}/covers/{coverID}/select",
		Summary:     "Select cover",
		Tags:        []string{"Covers"},
	}, s.handleSelectCover)

	huma.Register(s.api, huma.Operation{
		OperationID: "archiveCover",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/{id}/covers/{coverID}/archive",
		Summary:     "Save cover",
		Description: "Adds a candidate to the saved covers; saving twice is a no-op",
		Tags:        []string{"Covers"},
	}, s.handleArchiveCover)

	huma.Register(s.api, huma.Operation{
		OperationID: "unarchiveCover",
		Method:      http.MethodDelete,
		Path:        "/api/v1/projects/{id}/covers/{coverID}/archive",
		Summary:     "Unsave cover",
		Tags:        []string{"Covers"},
	}, s.handleUnarchiveCover)

	huma.Register(s.api, huma.Operation{
		OperationID: "refineCover",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/{id}/covers/refine",
		Summary:     "Refine selected cover",
		Description: "Edits the selected cover per instruction and replaces it in place",
		Tags:        []string{"Covers"},
	}, s.handleRefineCover)

	huma.Register(s.api, huma.Operation{
		OperationID:   "enhanceCovers",
		Method:        http.MethodPost,
		Path:          "/api/v1/projects/{id}/covers/enhance",
		Summary:       "Enhance all covers",
		Description:   "Starts a background job refining every candidate; progress is streamed as events",
		Tags:          []string{"Covers"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleEnhanceCovers)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEnhanceJob",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects/{id}/jobs/{jobID}",
		Summary:     "Get enhancement job",
		Tags:        []string{"Covers"},
	}, s.handleGetJob)
}

// === DTOs ===

// CoverPathInput identifies a cover of a project.
type CoverPathInput struct {
	ID      string `path:"id" doc:"Project ID"`
	CoverID string `path:"coverID" doc:"Cover ID"`
}

// GenerateCoversInput wraps the generate request for Huma.
type GenerateCoversInput struct {
	ID   string                `path:"id" doc:"Project ID"`
	Body service.GenerateInput `required:"false"`
}

// RefineCoverInput wraps refine and enhance requests for Huma.
type RefineCoverInput struct {
	ID   string `path:"id" doc:"Project ID"`
	Body service.RefineInput
}

// JobPathInput identifies an enhancement job.
type JobPathInput struct {
	ID    string `path:"id" doc:"Project ID"`
	JobID string `path:"jobID" doc:"Job ID"`
}

// CoverSetOutput wraps a cover set for Huma.
type CoverSetOutput struct {
	Body coverset.CoverSet
}

// JobOutput wraps an enhancement job for Huma.
type JobOutput struct {
	Body *domain.EnhanceJob
}

// === Handlers ===

func (s *Server) handleGetCovers(ctx context.Context, input *ProjectPathInput) (*CoverSetOutput, error) {
	return coverSetOutput(s.services.Covers.Covers(ctx, input.ID))
}

func (s *Server) handleGenerateCovers(ctx context.Context, input *GenerateCoversInput) (*CoverSetOutput, error) {
	return coverSetOutput(s.services.Covers.Generate(ctx, input.ID, input.Body))
}

func (s *Server) handleSelectCover(ctx context.Context, input *CoverPathInput) (*CoverSetOutput, error) {
	return coverSetOutput(s.services.Covers.Select(ctx, input.ID, input.CoverID))
}

func (s *Server) handleArchiveCover(ctx context.Context, input *CoverPathInput) (*CoverSetOutput, error) {
	return coverSetOutput(s.services.Covers.Save(ctx, input.ID, input.CoverID))
}

func (s *Server) handleUnarchiveCover(ctx context.Context, input *CoverPathInput) (*CoverSetOutput, error) {
	return coverSetOutput(s.services.Covers.Unarchive(ctx, input.ID, input.CoverID))
}

func (s *Server) handleRefineCover(ctx context.Context, input *RefineCoverInput) (*CoverSetOutput, error) {
	return coverSetOutput(s.services.Covers.Refine(ctx, input.ID, input.Body))
}

func (s *Server) handleEnhanceCovers(ctx context.Context, input *RefineCoverInput) (*JobOutput, error) {
	job, err := s.services.Covers.EnhanceAll(ctx, input.ID, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &JobOutput{Body: job}, nil
}

func (s *Server) handleGetJob(ctx context.Context, input *JobPathInput) (*JobOutput, error) {
	job, err := s.services.Covers.GetJob(ctx, input.ID, input.JobID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &JobOutput{Body: job}, nil
}

func coverSetOutput(set coverset.CoverSet, err error) (*CoverSetOutput, error) {
	if err != nil {
		return nil, toAPIError(err)
	}
	return &CoverSetOutput{Body: set}, nil
}

// handleDownload sends a cover file as an attachment named after the book.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	coverID := chi.URLParam(r, "coverID")

	d, err := s.services.Covers.Download(r.Context(), projectID, coverID)
	if err != nil {
		response.Error(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", d.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	w.Header().Set("Cache-Control", CacheImmutable)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(d.Data); err != nil {
		s.logger.Debug("download interrupted", "cover_id", coverID, "error", err)
	}
}

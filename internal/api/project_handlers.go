package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/inkwellpress/inkwell/internal/domain"
	"github.com/inkwellpress/inkwell/internal/service"
)

func (s *Server) registerProjectRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createProject",
		Method:        http.MethodPost,
		Path:          "/api/v1/projects",
		Summary:       "Create project",
		Description:   "Creates a book project from its metadata",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateProject)

	huma.Register(s.api, huma.Operation{
		OperationID: "listProjects",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects",
		Summary:     "List projects",
		Tags:        []string{"Projects"},
	}, s.handleListProjects)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProject",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects/{id}",
		Summary:     "Get project",
		Description: "Returns a project with its cover set, status and running job",
		Tags:        []string{"Projects"},
	}, s.handleGetProject)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProject",
		Method:      http.MethodPatch,
		Path:        "/api/v1/projects/{id}",
		Summary:     "Update project",
		Description: "Changes book metadata; omitted fields are kept",
		Tags:        []string{"Projects"},
	}, s.handleUpdateProject)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteProject",
		Method:        http.MethodDelete,
		Path:          "/api/v1/projects/{id}",
		Summary:       "Delete project",
		Tags:          []string{"Projects"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteProject)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCoverSpec",
		Method:      http.MethodPut,
		Path:        "/api/v1/projects/{id}/cover-spec",
		Summary:     "Update cover text and badge",
		Description: "Changes typography, tagline and bonus badge used for future covers",
		Tags:        []string{"Projects"},
	}, s.handleUpdateCoverSpec)

	huma.Register(s.api, huma.Operation{
		OperationID: "synthesizeCoverPrompt",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/{id}/cover-prompt",
		Summary:     "Synthesize cover prompt",
		Description: "Writes an image prompt from the book metadata and stores it on the project",
		Tags:        []string{"Projects"},
	}, s.handleSynthesizePrompt)

	huma.Register(s.api, huma.Operation{
		OperationID: "synthesizeTagline",
		Method:      http.MethodPost,
		Path:        "/api/v1/projects/{id}/tagline",
		Summary:     "Synthesize tagline",
		Description: "Writes a one-line tagline from the book metadata and stores it on the project",
		Tags:        []string{"Projects"},
	}, s.handleSynthesizeTagline)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProjectStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects/{id}/status",
		Summary:     "Get project status",
		Description: "Returns the busy flag and the outcome of the last cover operation",
		Tags:        []string{"Projects"},
	}, s.handleGetStatus)
}

// === DTOs ===

// ProjectPathInput identifies a project.
type ProjectPathInput struct {
	ID string `path:"id" doc:"Project ID"`
}

// CreateProjectInput wraps the create project request for Huma.
type CreateProjectInput struct {
	Body service.CreateProjectInput
}

// UpdateProjectInput wraps the update project request for Huma.
type UpdateProjectInput struct {
	ID   string `path:"id" doc:"Project ID"`
	Body service.UpdateProjectInput
}

// UpdateCoverSpecInput wraps the cover spec request for Huma.
type UpdateCoverSpecInput struct {
	ID   string `path:"id" doc:"Project ID"`
	Body service.CoverSpecInput
}

// SynthesizeInput wraps prompt and tagline synthesis requests for Huma.
type SynthesizeInput struct {
	ID   string                  `path:"id" doc:"Project ID"`
	Body service.SynthesizeInput `required:"false"`
}

// ProjectOutput wraps a project for Huma.
type ProjectOutput struct {
	Body *domain.Project
}

// ProjectDetailsOutput wraps a project with its cover state for Huma.
type ProjectDetailsOutput struct {
	Body *service.ProjectDetails
}

// ListProjectsResponse contains all projects.
type ListProjectsResponse struct {
	Projects []*domain.Project `json:"projects" doc:"All projects"`
}

// ListProjectsOutput wraps the project list for Huma.
type ListProjectsOutput struct {
	Body ListProjectsResponse
}

// StatusOutput wraps a project status for Huma.
type StatusOutput struct {
	Body service.Status
}

// === Handlers ===

func (s *Server) handleCreateProject(ctx context.Context, input *CreateProjectInput) (*ProjectOutput, error) {
	p, err := s.services.Covers.CreateProject(ctx, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ProjectOutput{Body: p}, nil
}

func (s *Server) handleListProjects(ctx context.Context, _ *struct{}) (*ListProjectsOutput, error) {
	projects, err := s.services.Covers.ListProjects(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	if projects == nil {
		projects = []*domain.Project{}
	}
	return &ListProjectsOutput{Body: ListProjectsResponse{Projects: projects}}, nil
}

func (s *Server) handleGetProject(ctx context.Context, input *ProjectPathInput) (*ProjectDetailsOutput, error) {
	details, err := s.services.Covers.GetProject(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ProjectDetailsOutput{Body: details}, nil
}

func (s *Server) handleUpdateProject(ctx context.Context, input *UpdateProjectInput) (*ProjectOutput, error) {
	p, err := s.services.Covers.UpdateProject(ctx, input.ID, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ProjectOutput{Body: p}, nil
}

func (s *Server) handleDeleteProject(ctx context.Context, input *ProjectPathInput) (*struct{}, error) {
	if err := s.services.Covers.DeleteProject(ctx, input.ID); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}

func (s *Server) handleUpdateCoverSpec(ctx context.Context, input *UpdateCoverSpecInput) (*ProjectOutput, error) {
	p, err := s.services.Covers.UpdateCoverSpec(ctx, input.ID, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ProjectOutput{Body: p}, nil
}

func (s *Server) handleSynthesizePrompt(ctx context.Context, input *SynthesizeInput) (*ProjectOutput, error) {
	p, err := s.services.Covers.SynthesizePrompt(ctx, input.ID, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ProjectOutput{Body: p}, nil
}

func (s *Server) handleSynthesizeTagline(ctx context.Context, input *SynthesizeInput) (*ProjectOutput, error) {
	p, err := s.services.Covers.SynthesizeTagline(ctx, input.ID, input.Body)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &ProjectOutput{Body: p}, nil
}

func (s *Server) handleGetStatus(ctx context.Context, input *ProjectPathInput) (*StatusOutput, error) {
	if _, err := s.services.Covers.GetProject(ctx, input.ID); err != nil {
		return nil, toAPIError(err)
	}
	return &StatusOutput{Body: s.services.Covers.Status(input.ID)}, nil
}

package service

import (
	"context"
	"strings"

	"github.com/inkwellpress/inkwell/internal/coverset"
	"github.com/inkwellpress/inkwell/internal/domain"
	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/id"
	"github.com/inkwellpress/inkwell/internal/store"
)

// CreateProjectInput holds the book metadata of a new project.
type CreateProjectInput struct {
	Title      string   `json:"title" validate:"notblank,max=300"`
	Subtitle   string   `json:"subtitle,omitempty" validate:"max=300"`
	Author     string   `json:"author,omitempty" validate:"max=200"`
	Categories []string `json:"categories,omitempty" validate:"max=10,dive,notblank,max=100"`
	Topic      string   `json:"topic,omitempty" validate:"max=4000"`
	Keywords   []string `json:"keywords,omitempty" validate:"max=25,dive,notblank,max=100"`
}

// UpdateProjectInput changes book metadata. Nil fields are left alone.
type UpdateProjectInput struct {
	Title      *string   `json:"title,omitempty" validate:"omitempty,notblank,max=300"`
	Subtitle   *string   `json:"subtitle,omitempty" validate:"omitempty,max=300"`
	Author     *string   `json:"author,omitempty" validate:"omitempty,max=200"`
	Categories *[]string `json:"categories,omitempty" validate:"omitempty,max=10,dive,notblank,max=100"`
	Topic      *string   `json:"topic,omitempty" validate:"omitempty,max=4000"`
	Keywords   *[]string `json:"keywords,omitempty" validate:"omitempty,max=25,dive,notblank,max=100"`
}

// CoverSpecInput changes the cover text and badge settings. Nil fields are
// left alone; a zero font size restores the default.
type CoverSpecInput struct {
	Tagline            *string `json:"tagline,omitempty" validate:"omitempty,max=160"`
	TitleFontSizePt    *int    `json:"title_font_size_pt,omitempty" validate:"omitempty,gte=0,lte=200"`
	SubtitleFontSizePt *int    `json:"subtitle_font_size_pt,omitempty" validate:"omitempty,gte=0,lte=200"`
	AuthorFontSizePt   *int    `json:"author_font_size_pt,omitempty" validate:"omitempty,gte=0,lte=200"`
	AuthorAlign        *string `json:"author_align,omitempty" validate:"omitempty,oneof=right center"`
	BonusCount         *int    `json:"bonus_count,omitempty" validate:"omitempty,gte=0,lte=999"`
	BonusStickerShape  *string `json:"bonus_sticker_shape,omitempty" validate:"omitempty,badgeshape"`
	BonusLabel         *string `json:"bonus_label,omitempty" validate:"omitempty,max=24"`
}

// ProjectDetails is a project with its cover state.
type ProjectDetails struct {
	Project   *domain.Project    `json:"project"`
	Covers    coverset.CoverSet  `json:"covers"`
	Status    Status             `json:"status"`
	ActiveJob *domain.EnhanceJob `json:"active_job,omitempty"`
	// Missing lists metadata required before covers can be generated.
	Missing []string `json:"missing,omitempty"`
}

// CreateProject stores a new project.
func (s *CoverService) CreateProject(ctx context.Context, in CreateProjectInput) (*domain.Project, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	projectID, err := id.Generate(id.PrefixProject)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create project")
	}

	p := &domain.Project{
		ID:         projectID,
		Title:      strings.TrimSpace(in.Title),
		Subtitle:   strings.TrimSpace(in.Subtitle),
		Author:     strings.TrimSpace(in.Author),
		Categories: trimAll(in.Categories),
		Topic:      strings.TrimSpace(in.Topic),
		Keywords:   trimAll(in.Keywords),
	}
	p.InitTimestamps()

	if err := s.store.Projects.Create(ctx, p.ID, p); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to create project")
	}

	s.logger.Info("project created", "project_id", p.ID, "title", p.Title)
	return p, nil
}

// GetProject returns a project with its covers, status and running job.
func (s *CoverService) GetProject(ctx context.Context, projectID string) (*ProjectDetails, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	mgr, err := s.coverSets.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	set, err := mgr.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	details := &ProjectDetails{
		Project: p,
		Covers:  set,
		Status:  s.status.get(projectID),
		Missing: p.MissingPrerequisites(),
	}
	if job, err := s.store.ActiveJob(ctx, projectID); err == nil {
		details.ActiveJob = job
	}
	return details, nil
}

// ListProjects returns every project.
func (s *CoverService) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return s.store.ListProjects(ctx)
}

// UpdateProject changes book metadata.
func (s *CoverService) UpdateProject(ctx context.Context, projectID string, in UpdateProjectInput) (*domain.Project, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}

	setString(&p.Title, in.Title)
	setString(&p.Subtitle, in.Subtitle)
	setString(&p.Author, in.Author)
	setString(&p.Topic, in.Topic)
	if in.Categories != nil {
		p.Categories = trimAll(*in.Categories)
	}
	if in.Keywords != nil {
		p.Keywords = trimAll(*in.Keywords)
	}

	if err := s.updateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateCoverSpec changes the text and badge drawn on future covers.
// Existing candidates are not redrawn.
func (s *CoverService) UpdateCoverSpec(ctx context.Context, projectID string, in CoverSpecInput) (*domain.Project, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}

	setString(&p.Tagline, in.Tagline)
	setInt(&p.Typography.TitleFontSizePt, in.TitleFontSizePt)
	setInt(&p.Typography.SubtitleFontSizePt, in.SubtitleFontSizePt)
	setInt(&p.Typography.AuthorFontSizePt, in.AuthorFontSizePt)
	setString(&p.Typography.AuthorAlign, in.AuthorAlign)
	setInt(&p.Badge.Count, in.BonusCount)
	setString(&p.Badge.Shape, in.BonusStickerShape)
	setString(&p.Badge.Label, in.BonusLabel)

	if err := s.validator.Validate(CoverSpecFor(p)); err != nil {
		return nil, err
	}
	if err := s.updateProject(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProject removes a project and its cover state. Stored images are
// content-addressed and may be shared, so they stay on disk.
func (s *CoverService) DeleteProject(ctx context.Context, projectID string) error {
	if _, err := s.project(ctx, projectID); err != nil {
		return err
	}
	if s.status.get(projectID).Busy {
		return errors.ErrBusy
	}

	s.coverSets.Forget(projectID)
	s.status.forget(projectID)
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to delete project")
	}
	return nil
}

func (s *CoverService) project(ctx context.Context, projectID string) (*domain.Project, error) {
	p, err := s.store.Projects.Get(ctx, projectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFoundf("project %s not found", projectID)
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to load project")
	}
	return p, nil
}

// readyProject loads a project and checks the cover prerequisites.
func (s *CoverService) readyProject(ctx context.Context, projectID string) (*domain.Project, error) {
	p, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if missing := p.MissingPrerequisites(); len(missing) > 0 {
		return nil, errors.ValidationWithDetails(
			"fill in "+strings.Join(missing, ", ")+" before creating covers",
			map[string][]string{"missing": missing},
		)
	}
	return p, nil
}

func (s *CoverService) updateProject(ctx context.Context, p *domain.Project) error {
	p.Touch()
	if err := s.store.Projects.Update(ctx, p.ID, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFoundf("project %s not found", p.ID)
		}
		return errors.Wrap(err, errors.CodeInternal, "failed to save project")
	}
	return nil
}

// saveProject persists a side update whose failure must not fail the
// operation that caused it.
func (s *CoverService) saveProject(ctx context.Context, p *domain.Project) {
	if err := s.updateProject(ctx, p); err != nil {
		s.logger.Warn("failed to save project", "project_id", p.ID, "error", err)
	}
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

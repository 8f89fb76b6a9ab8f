package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellpress/inkwell/internal/domain"
	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/genai"
	"github.com/inkwellpress/inkwell/internal/sse"
)

func ptr[T any](v T) *T { return &v }

func TestCreateProject(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	p, err := env.svc.CreateProject(ctx, CreateProjectInput{
		Title:      "  Salt and Iron ",
		Categories: []string{"History"},
		Keywords:   []string{"navy", "  sail "},
	})
	require.NoError(t, err)
	assert.Contains(t, p.ID, "prj-")
	assert.Equal(t, "Salt and Iron", p.Title)
	assert.Equal(t, []string{"navy", "sail"}, p.Keywords)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = env.svc.CreateProject(ctx, CreateProjectInput{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))

	details, err := env.svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"subtitle", "author"}, details.Missing)
	assert.Empty(t, details.Covers.Candidates)
	assert.Nil(t, details.ActiveJob)

	projects, err := env.svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestUpdateProject(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)

	updated, err := env.svc.UpdateProject(ctx, p.ID, UpdateProjectInput{
		Subtitle:   ptr("Second Edition"),
		Categories: ptr([]string{"Mystery", "Thriller"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "Second Edition", updated.Subtitle)
	assert.Equal(t, p.Title, updated.Title)
	assert.Equal(t, []string{"Mystery", "Thriller"}, updated.Categories)

	_, err = env.svc.UpdateProject(ctx, p.ID, UpdateProjectInput{Title: ptr(" ")})
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))

	_, err = env.svc.UpdateProject(ctx, "prj-nope", UpdateProjectInput{})
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
}

func TestUpdateCoverSpec(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)

	updated, err := env.svc.UpdateCoverSpec(ctx, p.ID, CoverSpecInput{
		Tagline:           ptr("Every light goes out."),
		TitleFontSizePt:   ptr(72),
		AuthorAlign:       ptr("center"),
		BonusCount:        ptr(3),
		BonusStickerShape: ptr("burst"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Every light goes out.", updated.Tagline)
	assert.Equal(t, 72, updated.Typography.TitleFontSizePt)
	assert.Equal(t, domain.Badge{Count: 3, Shape: "burst"}, updated.Badge)

	spec := CoverSpecFor(updated)
	assert.Equal(t, "center", spec.AuthorAlign)
	assert.Equal(t, 3, spec.BonusCount)

	tests := []struct {
		name string
		in   CoverSpecInput
	}{
		{"unknown shape", CoverSpecInput{BonusStickerShape: ptr("hexagon")}},
		{"font too small", CoverSpecInput{TitleFontSizePt: ptr(4)}},
		{"bad alignment", CoverSpecInput{AuthorAlign: ptr("left")}},
		{"negative bonus", CoverSpecInput{BonusCount: ptr(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.UpdateCoverSpec(ctx, p.ID, tt.in)
			require.Error(t, err)
			assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
		})
	}

	stored, err := env.svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 72, stored.Project.Typography.TitleFontSizePt)
}

func TestDeleteProject(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)
	env.generate(t, p.ID)

	require.NoError(t, env.svc.DeleteProject(ctx, p.ID))

	_, err := env.svc.GetProject(ctx, p.ID)
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(env.svc.DeleteProject(ctx, p.ID)))
}

func TestSynthesizePrompt(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)

	env.text.text = "**A lone lighthouse** on black cliffs, storm light, teal and amber palette"
	updated, err := env.svc.SynthesizePrompt(ctx, p.ID, SynthesizeInput{Guidance: "moody"})
	require.NoError(t, err)

	assert.Equal(t, "A lone lighthouse on black cliffs, storm light, teal and amber palette", updated.CoverPrompt)
	assert.Contains(t, env.text.last.Prompt, "Title: The Last Lighthouse")
	assert.Contains(t, env.text.last.Prompt, "Guidance: moody")
	assert.Equal(t, promptSystem, env.text.last.System)

	set := env.generate(t, p.ID)
	require.NotEmpty(t, set.Candidates)
}

func TestSynthesizeTagline(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)

	env.text.text = "\n\"Some lights are meant to go out.\"\nAlternative: another line"
	updated, err := env.svc.SynthesizeTagline(ctx, p.ID, SynthesizeInput{})
	require.NoError(t, err)
	assert.Equal(t, "Some lights are meant to go out.", updated.Tagline)
	assert.NotContains(t, env.text.last.Prompt, "Guidance")
}

func TestSynthesize_BackendErrors(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)

	env.text.err = &genai.Error{Op: "text", Status: 200, Err: genai.ErrEmptyResponse}
	_, err := env.svc.SynthesizeTagline(ctx, p.ID, SynthesizeInput{})
	assert.Equal(t, errors.CodeNoResult, errors.CodeOf(err))

	env.text.err = &genai.Error{Op: "text", Status: 429, Err: genai.ErrRateLimited}
	_, err = env.svc.SynthesizePrompt(ctx, p.ID, SynthesizeInput{})
	assert.Equal(t, errors.CodeRateLimited, errors.CodeOf(err))
	assert.Equal(t, errors.MsgRateLimited, env.svc.Status(p.ID).Message)

	env.text.err = nil
	env.text.text = "```"
	_, err = env.svc.SynthesizeTagline(ctx, p.ID, SynthesizeInput{})
	assert.Equal(t, errors.CodeNoResult, errors.CodeOf(err))
}

func waitForJob(t *testing.T, env *testEnv, projectID, jobID string) *domain.EnhanceJob {
	t.Helper()
	var job *domain.EnhanceJob
	require.Eventually(t, func() bool {
		var err error
		job, err = env.svc.GetJob(context.Background(), projectID, jobID)
		return err == nil && !job.Active()
	}, 10*time.Second, 10*time.Millisecond)
	return job
}

func TestEnhanceAll(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)
	before := env.generate(t, p.ID)

	job, err := env.svc.EnhanceAll(ctx, p.ID, RefineInput{Instruction: "add rim light"})
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 2, job.Total)

	done := waitForJob(t, env, p.ID, job.ID)
	assert.Equal(t, domain.JobStatusCompleted, done.Status)
	assert.Equal(t, 2, done.Completed)
	assert.Zero(t, done.Failed)
	assert.Equal(t, 100, done.Progress())

	after, err := env.svc.Covers(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, after.Candidates, 2)
	for i := range after.Candidates {
		assert.NotEqual(t, before.Candidates[i].ID, after.Candidates[i].ID)
	}
	assert.Equal(t, after.Candidates[0].ID, after.Selected)

	require.Eventually(t, func() bool { return !env.svc.Status(p.ID).Busy }, time.Second, 5*time.Millisecond)
	assert.Contains(t, env.events.types(), sse.EventEnhanceCompleted)
}

func TestEnhanceAll_RateLimitStopsJob(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)
	before := env.generate(t, p.ID)

	env.editor.err = &genai.Error{Op: "edit", Status: 429, Err: genai.ErrRateLimited}
	job, err := env.svc.EnhanceAll(ctx, p.ID, RefineInput{Instruction: "add rim light"})
	require.NoError(t, err)

	done := waitForJob(t, env, p.ID, job.ID)
	assert.Equal(t, domain.JobStatusFailed, done.Status)
	assert.Equal(t, 1, done.Failed)
	assert.Zero(t, done.Completed)
	assert.Equal(t, errors.MsgRateLimited, done.Error)

	after, err := env.svc.Covers(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Candidates, after.Candidates)

	require.Eventually(t, func() bool { return !env.svc.Status(p.ID).Busy }, time.Second, 5*time.Millisecond)
	assert.Equal(t, string(errors.CodeRateLimited), env.svc.Status(p.ID).Code)
}

func TestEnhanceAll_OneActiveJobPerProject(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)
	env.generate(t, p.ID)

	stale := &domain.EnhanceJob{
		ID:        "job-stale",
		ProjectID: p.ID,
		Status:    domain.JobStatusRunning,
		Total:     2,
		CreatedAt: time.Now(),
	}
	require.NoError(t, env.store.Jobs.Create(ctx, stale.ID, stale))

	_, err := env.svc.EnhanceAll(ctx, p.ID, RefineInput{Instruction: "warmer"})
	assert.ErrorIs(t, err, errors.ErrBusy)
	assert.False(t, env.svc.Status(p.ID).Busy)

	require.NoError(t, env.svc.RecoverJobs(ctx))
	recovered, err := env.svc.GetJob(ctx, p.ID, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, recovered.Status)

	job, err := env.svc.EnhanceAll(ctx, p.ID, RefineInput{Instruction: "warmer"})
	require.NoError(t, err)
	waitForJob(t, env, p.ID, job.ID)
}

func TestEnhanceAll_RequiresCandidates(t *testing.T) {
	env := setupTestService(t)
	p := env.readyProject(t)

	_, err := env.svc.EnhanceAll(context.Background(), p.ID, RefineInput{Instruction: "warmer"})
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
}

func TestGetJob_OtherProject(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)
	env.generate(t, p.ID)

	job, err := env.svc.EnhanceAll(ctx, p.ID, RefineInput{Instruction: "warmer"})
	require.NoError(t, err)
	waitForJob(t, env, p.ID, job.ID)

	_, err = env.svc.GetJob(ctx, "prj-other", job.ID)
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
}

func TestDownloadFilename(t *testing.T) {
	tests := []struct {
		title string
		n     int
		saved bool
		mime  string
		want  string
	}{
		{"The Last Lighthouse", 1, false, "image/jpeg", "the-last-lighthouse-1.jpg"},
		{"Café Noir", 3, false, "image/webp", "cafe-noir-3.webp"},
		{"Salt & Iron", 2, true, "image/png", "salt-iron-saved-2.png"},
		{"!!!", 1, false, "image/png", "cover-1.png"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadFilename(tt.title, tt.n, tt.saved, tt.mime))
		})
	}
}

func TestDownload(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	p := env.readyProject(t)
	set := env.generate(t, p.ID)

	d, err := env.svc.Download(ctx, p.ID, set.Candidates[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "the-last-lighthouse-2.jpg", d.Filename)
	assert.Equal(t, "image/jpeg", d.MIME)
	assert.NotEmpty(t, d.Data)

	_, err = env.svc.Save(ctx, p.ID, set.Candidates[0].ID)
	require.NoError(t, err)
	env.gen.payloads = []genai.Payload{{MIME: "image/png", Data: solidPNG(t, 200)}}
	env.generate(t, p.ID)

	d, err = env.svc.Download(ctx, p.ID, set.Candidates[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "the-last-lighthouse-saved-1.jpg", d.Filename)

	_, err = env.svc.Download(ctx, p.ID, "missing")
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
}

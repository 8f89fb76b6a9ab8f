package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwellpress/inkwell/internal/compositor"
	"github.com/inkwellpress/inkwell/internal/coverset"
	"github.com/inkwellpress/inkwell/internal/domain"
	"github.com/inkwellpress/inkwell/internal/errors"
	"github.com/inkwellpress/inkwell/internal/genai"
	"github.com/inkwellpress/inkwell/internal/layout"
	"github.com/inkwellpress/inkwell/internal/media/codec"
	"github.com/inkwellpress/inkwell/internal/media/images"
	"github.com/inkwellpress/inkwell/internal/ratelimit"
	"github.com/inkwellpress/inkwell/internal/refine"
	"github.com/inkwellpress/inkwell/internal/service"
	"github.com/inkwellpress/inkwell/internal/sse"
	"github.com/inkwellpress/inkwell/internal/store"
	"github.com/inkwellpress/inkwell/internal/validation"
)

func solidPNG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 40, 60))
	for y := range 60 {
		for x := range 40 {
			img.SetNRGBA(x, y, color.NRGBA{R: shade, G: 80, B: 255 - shade, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fakeBackend speaks the generative backend's JSON protocol.
type fakeBackend struct {
	*httptest.Server
	images     [][]byte
	status     atomic.Int32
	text       atomic.Value
	editShade  atomic.Int32
	editCalled atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		images: [][]byte{solidPNG(t, 20), solidPNG(t, 120)},
	}
	b.text.Store("Every light goes out eventually.")
	b.status.Store(http.StatusOK)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/images:generate", func(w http.ResponseWriter, _ *http.Request) {
		if !b.ok(w) {
			return
		}
		out := make([]map[string]any, len(b.images))
		for i, img := range b.images {
			out[i] = map[string]any{"mimeType": "image/png", "data": img}
		}
		writeJSON(w, map[string]any{"images": out})
	})
	mux.HandleFunc("POST /v1/images:edit", func(w http.ResponseWriter, _ *http.Request) {
		b.editCalled.Add(1)
		if !b.ok(w) {
			return
		}
		shade := uint8(150 + b.editShade.Add(9))
		writeJSON(w, map[string]any{"image": map[string]any{
			"dataUrl": codec.DataURL(solidPNG(t, shade), "image/png"),
		}})
	})
	mux.HandleFunc("POST /v1/text:generate", func(w http.ResponseWriter, _ *http.Request) {
		if !b.ok(w) {
			return
		}
		writeJSON(w, map[string]string{"text": b.text.Load().(string)})
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) ok(w http.ResponseWriter) bool {
	if status := int(b.status.Load()); status != http.StatusOK {
		w.WriteHeader(status)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type testServer struct {
	*Server
	api     humatest.TestAPI
	backend *fakeBackend
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	backend := newFakeBackend(t)

	st, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)

	storage, err := images.NewStorage(t.TempDir())
	require.NoError(t, err)

	fonts, err := layout.NewFaceCache()
	require.NoError(t, err)

	sseManager := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go sseManager.Start(ctx)

	client := genai.New(genai.Config{BaseURL: backend.URL, Timeout: 5 * time.Second}, logger)
	registry := coverset.NewRegistry(st, sseManager, logger)
	covers := service.NewCoverService(service.CoverServiceDeps{
		Store:      st,
		CoverSets:  registry,
		Images:     client,
		Text:       client,
		Refiner:    refine.New(client, ratelimit.NewPacer(0), 0, logger),
		Compositor: compositor.New(fonts, compositor.DefaultLayout(), logger),
		Processor:  images.NewProcessor(storage, codec.JPEG, 0.8, logger),
		Validator:  validation.New(),
		Events:     sseManager,
		Variants:   2,
		Timeout:    5 * time.Second,
		Logger:     logger,
	})

	s := NewServer(st, &Services{Covers: covers, Storage: storage}, sseManager, Options{}, logger)

	t.Cleanup(func() {
		_ = covers.Shutdown(context.Background())
		registry.Close()
		client.Close()
		_ = sseManager.Shutdown(context.Background())
		cancel()
		_ = st.Close()
	})

	return &testServer{
		Server:  s,
		api:     humatest.Wrap(t, s.api),
		backend: backend,
	}
}

func decodeBody[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func (ts *testServer) createProject(t *testing.T) *domain.Project {
	t.Helper()
	resp := ts.api.Post("/api/v1/projects", map[string]any{
		"title":      "The Last Lighthouse",
		"subtitle":   "A Novel",
		"author":     "Mara Quinn",
		"categories": []string{"Fiction"},
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decodeBody[*domain.Project](t, resp)
}

func (ts *testServer) generate(t *testing.T, projectID string) coverset.CoverSet {
	t.Helper()
	resp := ts.api.Post("/api/v1/projects/"+projectID+"/covers/generate", map[string]any{
		"prompt": "storm over a lighthouse",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decodeBody[coverset.CoverSet](t, resp)
}

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	health := decodeBody[HealthResponse](t, resp)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "healthy", health.Components["storage"].Status)
	assert.Equal(t, "no connected clients", health.Components["sse"].Message)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Put("/health")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	assert.Contains(t, resp.Body.String(), "method not allowed")
}

func TestOverallHealth(t *testing.T) {
	assert.Equal(t, "healthy", overallHealth(map[string]ComponentHealth{"a": {Status: "healthy"}}))
	assert.Equal(t, "degraded", overallHealth(map[string]ComponentHealth{
		"a": {Status: "healthy"}, "b": {Status: "degraded"},
	}))
	assert.Equal(t, "unhealthy", overallHealth(map[string]ComponentHealth{
		"a": {Status: "unhealthy"}, "b": {Status: "degraded"},
	}))
}

func TestProjects_CreateGetList(t *testing.T) {
	ts := setupTestServer(t)
	p := ts.createProject(t)

	resp := ts.api.Get("/api/v1/projects/" + p.ID)
	require.Equal(t, http.StatusOK, resp.Code)
	details := decodeBody[service.ProjectDetails](t, resp)
	assert.Equal(t, "The Last Lighthouse", details.Project.Title)
	assert.Empty(t, details.Missing)
	assert.False(t, details.Status.Busy)

	resp = ts.api.Get("/api/v1/projects")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeBody[ListProjectsResponse](t, resp).Projects, 1)

	resp = ts.api.Patch("/api/v1/projects/"+p.ID, map[string]any{"subtitle": "Revised"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Revised", decodeBody[*domain.Project](t, resp).Subtitle)

	resp = ts.api.Delete("/api/v1/projects/" + p.ID)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = ts.api.Get("/api/v1/projects/" + p.ID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestProjects_Errors(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("blank title", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/projects", map[string]any{"title": "   "})
		require.Equal(t, http.StatusBadRequest, resp.Code)

		body := decodeBody[APIError](t, resp)
		assert.Equal(t, string(errors.CodeValidation), body.Code)
		assert.Equal(t, "validation failed", body.Message)
		assert.Contains(t, body.Details, "title")
	})

	t.Run("missing title", func(t *testing.T) {
		resp := ts.api.Post("/api/v1/projects", map[string]any{"author": "Anon"})
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Equal(t, string(errors.CodeValidation), decodeBody[APIError](t, resp).Code)
	})

	t.Run("unknown project", func(t *testing.T) {
		resp := ts.api.Get("/api/v1/projects/prj-missing")
		require.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, string(errors.CodeNotFound), decodeBody[APIError](t, resp).Code)
	})

	t.Run("bad badge shape", func(t *testing.T) {
		p := ts.createProject(t)
		resp := ts.api.Put("/api/v1/projects/"+p.ID+"/cover-spec", map[string]any{
			"bonus_count":         2,
			"bonus_sticker_shape": "hexagon",
		})
		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, decodeBody[APIError](t, resp).Details, "bonus_sticker_shape")
	})
}

func TestCoverWorkflow(t *testing.T) {
	ts := setupTestServer(t)
	p := ts.createProject(t)

	resp := ts.api.Put("/api/v1/projects/"+p.ID+"/cover-spec", map[string]any{
		"tagline":             "Every light goes out.",
		"bonus_count":         2,
		"bonus_sticker_shape": "star",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	set := ts.generate(t, p.ID)
	require.Len(t, set.Candidates, 2)
	assert.Equal(t, set.Candidates[0].ID, set.Selected)
	second := set.Candidates[1].ID

	resp = ts.api.Post("/api/v1/projects/" + p.ID + "/covers/" + second + "/select")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, second, decodeBody[coverset.CoverSet](t, resp).Selected)

	resp = ts.api.Post("/api/v1/projects/" + p.ID + "/covers/" + second + "/archive")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeBody[coverset.CoverSet](t, resp).Archived, 1)

	resp = ts.api.Get("/api/v1/projects/" + p.ID + "/covers/" + second + "/download")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "image/jpeg", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=the-last-lighthouse-2.jpg`, resp.Header().Get("Content-Disposition"))
	assert.NotZero(t, resp.Body.Len())

	resp = ts.api.Post("/api/v1/projects/"+p.ID+"/covers/refine", map[string]any{"instruction": "warmer sky"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	refined := decodeBody[coverset.CoverSet](t, resp)
	assert.NotEqual(t, second, refined.Selected)
	assert.Equal(t, refined.Selected, refined.Candidates[1].ID)
	assert.Equal(t, set.Candidates[0].ID, refined.Candidates[0].ID)

	resp = ts.api.Delete("/api/v1/projects/" + p.ID + "/covers/" + second + "/archive")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decodeBody[coverset.CoverSet](t, resp).Archived)
}

func TestGenerate_BackendRateLimited(t *testing.T) {
	ts := setupTestServer(t)
	p := ts.createProject(t)
	ts.backend.status.Store(http.StatusTooManyRequests)

	resp := ts.api.Post("/api/v1/projects/"+p.ID+"/covers/generate", map[string]any{"prompt": "storm"})
	require.Equal(t, http.StatusTooManyRequests, resp.Code)

	body := decodeBody[APIError](t, resp)
	assert.Equal(t, string(errors.CodeRateLimited), body.Code)
	assert.Equal(t, errors.MsgRateLimited, body.Message)

	resp = ts.api.Get("/api/v1/projects/" + p.ID + "/status")
	require.Equal(t, http.StatusOK, resp.Code)
	st := decodeBody[service.Status](t, resp)
	assert.False(t, st.Busy)
	assert.Equal(t, errors.MsgRateLimited, st.Message)
}

func TestRefine_NothingSelected(t *testing.T) {
	ts := setupTestServer(t)
	p := ts.createProject(t)

	resp := ts.api.Post("/api/v1/projects/"+p.ID+"/covers/refine", map[string]any{"instruction": "warmer"})
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, ts.backend.editCalled.Load())
}

func TestSynthesizeTagline(t *testing.T) {
	ts := setupTestServer(t)
	p := ts.createProject(t)

	resp := ts.api.Post("/api/v1/projects/" + p.ID + "/tagline")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Every light goes out eventually.", decodeBody[*domain.Project](t, resp).Tagline)

	ts.backend.text.Store("A lighthouse in a storm, oil painting")
	resp = ts.api.Post("/api/v1/projects/"+p.ID+"/cover-prompt", map[string]any{"guidance": "painterly"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "A lighthouse in a storm, oil painting", decodeBody[*domain.Project](t, resp).CoverPrompt)
}

func TestEnhanceJob(t *testing.T) {
	ts := setupTestServer(t)
	p := ts.createProject(t)
	ts.generate(t, p.ID)

	resp := ts.api.Post("/api/v1/projects/"+p.ID+"/covers/enhance", map[string]any{"instruction": "add film grain"})
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	job := decodeBody[*domain.EnhanceJob](t, resp)
	assert.Equal(t, 2, job.Total)

	require.Eventually(t, func() bool {
		resp := ts.api.Get("/api/v1/projects/" + p.ID + "/jobs/" + job.ID)
		if resp.Code != http.StatusOK {
			return false
		}
		return decodeBody[*domain.EnhanceJob](t, resp).Status == domain.JobStatusCompleted
	}, 10*time.Second, 20*time.Millisecond)

	assert.Equal(t, int32(2), ts.backend.editCalled.Load())
}

func TestDownload_UnknownCover(t *testing.T) {
	ts := setupTestServer(t)
	p := ts.createProject(t)

	resp := ts.api.Get("/api/v1/projects/" + p.ID + "/covers/nope/download")
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, string(errors.CodeNotFound), decodeBody[APIError](t, resp).Code)
}

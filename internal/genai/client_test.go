package genai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{
		BaseURL:    server.URL + "/",
		APIKey:     "secret",
		ImageModel: "img-model",
		TextModel:  "txt-model",
		Timeout:    2 * time.Second,
	}, slog.New(slog.DiscardHandler))
	client.http = server.Client()
	t.Cleanup(client.Close)
	return client
}

func TestClient_GenerateImages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/images:generate", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "img-model", req.Model)
		assert.Equal(t, "misty forest", req.Prompt)
		assert.Equal(t, 3, req.Count)

		_ = json.NewEncoder(w).Encode(generateResponse{Images: []wireImage{
			{MIMEType: "image/png", Data: []byte("one")},
			{DataURL: "data:image/jpeg;base64,dHdv"},
			{MIMEType: "image/png"},
		}})
	})

	images, err := client.GenerateImages(context.Background(), "misty forest", 3)
	require.NoError(t, err)
	require.Len(t, images, 2, "empty payloads are dropped")
	assert.Equal(t, Payload{MIME: "image/png", Data: []byte("one")}, images[0])
	assert.Equal(t, Payload{MIME: "image/jpeg", Data: []byte("two")}, images[1])
}

func TestClient_EditImage(t *testing.T) {
	t.Run("returns edited image", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var req editRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "/v1/images:edit", r.URL.Path)
			assert.Equal(t, "make it brighter", req.Instruction)
			assert.Equal(t, []byte("pixels"), req.Image.Data)

			_ = json.NewEncoder(w).Encode(editResponse{Image: &wireImage{MIMEType: "image/png", Data: []byte("edited")}})
		})

		got, err := client.EditImage(context.Background(), []byte("pixels"), "image/png", "make it brighter")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []byte("edited"), got.Data)
	})

	t.Run("no image is no result", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"image": null}`))
		})

		got, err := client.EditImage(context.Background(), []byte("pixels"), "image/png", "x")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestClient_GenerateText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "txt-model", req.Model)
		assert.Equal(t, "be brief", req.System)
		_, _ = w.Write([]byte(`{"text": "  A quiet storm.\n"}`))
	})

	text, err := client.GenerateText(context.Background(), TextRequest{System: "be brief", Prompt: "tagline"})
	require.NoError(t, err)
	assert.Equal(t, "A quiet storm.", text)
}

func TestClient_GenerateText_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text": "   "}`))
	})

	_, err := client.GenerateText(context.Background(), TextRequest{Prompt: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"bad request", http.StatusBadRequest, ErrInvalidInput},
		{"unprocessable", http.StatusUnprocessableEntity, ErrInvalidInput},
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"server error", http.StatusInternalServerError, ErrServer},
		{"bad gateway", http.StatusBadGateway, ErrServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			})

			_, err := client.GenerateImages(context.Background(), "p", 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var gerr *Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, tt.status, gerr.Status)
			assert.Equal(t, "generate", gerr.Op)
			assert.Equal(t, int32(1), calls.Load(), "no retries")
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client.cfg.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := client.GenerateText(context.Background(), TextRequest{Prompt: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_MalformedJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"images": [`))
	})

	_, err := client.GenerateImages(context.Background(), "p", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

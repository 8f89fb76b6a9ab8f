package providers

import (
	"github.com/samber/do/v2"

	"github.com/inkwellpress/inkwell/internal/config"
	"github.com/inkwellpress/inkwell/internal/genai"
	"github.com/inkwellpress/inkwell/internal/logger"
)

// GenAIClientHandle wraps the backend client with Shutdownable.
type GenAIClientHandle struct {
	*genai.Client
}

// Shutdown implements do.Shutdownable.
func (h *GenAIClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideGenAIClient provides the generative backend client.
func ProvideGenAIClient(i do.Injector) (*GenAIClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := genai.New(genai.Config{
		BaseURL:    cfg.GenAI.BaseURL,
		APIKey:     cfg.GenAI.APIKey,
		ImageModel: cfg.GenAI.ImageModel,
		TextModel:  cfg.GenAI.TextModel,
		Timeout:    cfg.GenAI.RequestTimeout,
	}, log.Component("genai"))

	log.Info("Generative backend configured",
		"url", cfg.GenAI.BaseURL,
		"image_model", cfg.GenAI.ImageModel,
		"text_model", cfg.GenAI.TextModel,
		"api_key_set", cfg.GenAI.APIKey != "",
	)
	return &GenAIClientHandle{Client: client}, nil
}

package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/inkwellpress/inkwell/internal/compositor"
	"github.com/inkwellpress/inkwell/internal/config"
	"github.com/inkwellpress/inkwell/internal/coverset"
	"github.com/inkwellpress/inkwell/internal/layout"
	"github.com/inkwellpress/inkwell/internal/logger"
	"github.com/inkwellpress/inkwell/internal/media/images"
	"github.com/inkwellpress/inkwell/internal/ratelimit"
	"github.com/inkwellpress/inkwell/internal/refine"
	"github.com/inkwellpress/inkwell/internal/service"
	"github.com/inkwellpress/inkwell/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideCompositor provides the cover compositor with the bundled fonts.
func ProvideCompositor(i do.Injector) (*compositor.Compositor, error) {
	log := do.MustInvoke[*logger.Logger](i)

	fonts, err := layout.NewFaceCache()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	return compositor.New(fonts, compositor.DefaultLayout(), log.Component("compositor")), nil
}

// ProvideRefiner provides the refinement coordinator. Batch calls are
// spaced by the configured interval.
func ProvideRefiner(i do.Injector) (*refine.Refiner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*GenAIClientHandle](i)

	pacer := ratelimit.NewPacer(cfg.Refinement.Interval)
	return refine.New(client.Client, pacer, cfg.GenAI.RequestTimeout, log.Component("refine")), nil
}

// CoverSetRegistryHandle wraps the cover set registry with Shutdownable.
type CoverSetRegistryHandle struct {
	*coverset.Registry
}

// Shutdown implements do.Shutdownable.
func (h *CoverSetRegistryHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideCoverSetRegistry provides the per-project cover set managers.
func ProvideCoverSetRegistry(i do.Injector) (*CoverSetRegistryHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	registry := coverset.NewRegistry(storeHandle.Store, sseHandle.Manager, log.Component("coverset"))
	return &CoverSetRegistryHandle{Registry: registry}, nil
}

// CoverServiceHandle wraps the cover service with Shutdownable.
type CoverServiceHandle struct {
	*service.CoverService
}

// Shutdown implements do.Shutdownable.
func (h *CoverServiceHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.CoverService.Shutdown(ctx)
}

// ProvideCoverService provides the cover service and fails jobs left
// running by a previous process.
func ProvideCoverService(i do.Injector) (*CoverServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	registry := do.MustInvoke[*CoverSetRegistryHandle](i)
	client := do.MustInvoke[*GenAIClientHandle](i)

	svc := service.NewCoverService(service.CoverServiceDeps{
		Store:      storeHandle.Store,
		CoverSets:  registry.Registry,
		Images:     client.Client,
		Text:       client.Client,
		Refiner:    do.MustInvoke[*refine.Refiner](i),
		Compositor: do.MustInvoke[*compositor.Compositor](i),
		Processor:  do.MustInvoke[*images.Processor](i),
		Validator:  do.MustInvoke[*validation.Validator](i),
		Events:     sseHandle.Manager,
		Variants:   cfg.GenAI.Variants,
		Timeout:    cfg.GenAI.RequestTimeout,
		Logger:     log.Component("covers"),
	})

	if err := svc.RecoverJobs(context.Background()); err != nil {
		log.Warn("Failed to recover interrupted jobs", "error", err)
	}

	return &CoverServiceHandle{CoverService: svc}, nil
}

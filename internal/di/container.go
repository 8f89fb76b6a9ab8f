// Package di provides dependency injection configuration for the Inkwell server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/inkwellpress/inkwell/internal/compositor"
	"github.com/inkwellpress/inkwell/internal/config"
	"github.com/inkwellpress/inkwell/internal/di/providers"
	"github.com/inkwellpress/inkwell/internal/logger"
	"github.com/inkwellpress/inkwell/internal/media/images"
	"github.com/inkwellpress/inkwell/internal/refine"
	"github.com/inkwellpress/inkwell/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Persistence and events
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideImageProcessor)

	// Cover pipeline
	do.Provide(injector, providers.ProvideGenAIClient)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideCompositor)
	do.Provide(injector, providers.ProvideRefiner)
	do.Provide(injector, providers.ProvideCoverSetRegistry)
	do.Provide(injector, providers.ProvideCoverService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services. Invoking the HTTP server last starts
// listening once everything it depends on is ready.
func Bootstrap(injector *do.RootScope) error {
	steps := []func() error{
		invoke[*config.Config](injector),
		invoke[*logger.Logger](injector),
		invoke[*providers.SSEManagerHandle](injector),
		invoke[*providers.StoreHandle](injector),
		invoke[*images.Processor](injector),
		invoke[*providers.GenAIClientHandle](injector),
		invoke[*validation.Validator](injector),
		invoke[*compositor.Compositor](injector),
		invoke[*refine.Refiner](injector),
		invoke[*providers.CoverSetRegistryHandle](injector),
		invoke[*providers.CoverServiceHandle](injector),
		invoke[*providers.HTTPServerHandle](injector),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func invoke[T any](injector *do.RootScope) func() error {
	return func() error {
		_, err := do.Invoke[T](injector)
		return err
	}
}

package api

import (
	"github.com/inkwellpress/inkwell/internal/media/images"
	"github.com/inkwellpress/inkwell/internal/service"
)

// Services groups the business services used by the API server.
type Services struct {
	Covers *service.CoverService
	// Storage is the cover blob store, probed by the health check.
	Storage *images.Storage
}

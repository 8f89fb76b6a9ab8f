package providers

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/inkwellpress/inkwell/internal/config"
	"github.com/inkwellpress/inkwell/internal/logger"
	"github.com/inkwellpress/inkwell/internal/media/codec"
	"github.com/inkwellpress/inkwell/internal/media/images"
)

// ProvideImageStorage provides the content-addressed cover blob store.
func ProvideImageStorage(i do.Injector) (*images.Storage, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	covers, err := images.NewStorage(cfg.Storage.DataPath)
	if err != nil {
		return nil, fmt.Errorf("cover storage: %w", err)
	}

	log.Info("Cover storage initialized")
	return covers, nil
}

// ProvideImageProcessor provides the processor that compresses and stores
// finished covers.
func ProvideImageProcessor(i do.Injector) (*images.Processor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storage := do.MustInvoke[*images.Storage](i)
	log := do.MustInvoke[*logger.Logger](i)

	format, err := codec.ParseFormat(cfg.Codec.Format)
	if err != nil {
		return nil, err
	}
	return images.NewProcessor(storage, format, cfg.Codec.Quality, log.Component("images")), nil
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/librisapp/libris-server/internal/config"
	"github.com/librisapp/libris-server/internal/events"
	"github.com/librisapp/libris-server/internal/logger"
	"github.com/librisapp/libris-server/internal/service"
	"github.com/librisapp/libris-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the catalog store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := store.New(cfg.Data.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Data.Path)

	return &StoreHandle{Store: db}, nil
}

// BookAddedBusHandle wraps the book-added event bus with shutdown capability.
type BookAddedBusHandle struct {
	*events.Bus[service.CatalogBook]
}

// Shutdown implements do.Shutdownable.
func (h *BookAddedBusHandle) Shutdown() error {
	h.Bus.Close()
	return nil
}

// ProvideBookAddedBus provides the in-process bus carrying book-added events
// from the catalog service to subscription streams.
func ProvideBookAddedBus(i do.Injector) (*BookAddedBusHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return &BookAddedBusHandle{Bus: events.NewBus[service.CatalogBook](log.Logger)}, nil
}

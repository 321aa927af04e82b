// Package handler exposes the catalog service to the browser editor over
// HTTP. Every JSON response uses the {"success","data","error"} envelope.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/xenking/catalog-editor/internal/catalog"
	"github.com/xenking/catalog-editor/internal/domain/product"
	"github.com/xenking/catalog-editor/internal/revalidate"
)

// Catalog is the mediation layer the handlers delegate to.
type Catalog interface {
	ListProducts(ctx context.Context) catalog.Result[[]product.Product]
	GetProduct(ctx context.Context, rawID string) catalog.Result[product.Product]
	CreateProduct(ctx context.Context, c product.Candidate) catalog.Result[product.Product]
	UpdateProduct(ctx context.Context, rawID string, c product.Candidate) catalog.Result[product.Product]
	DeleteProduct(ctx context.Context, rawID string) catalog.Result[product.Product]
}

// Changes exposes listing invalidation to the editor.
type Changes interface {
	Subscribe(scope string) *revalidate.Subscription
	Generation(scope string) uint64
}

// Compile-time checks.
var (
	_ Catalog = (*catalog.Service)(nil)
	_ Changes = (*revalidate.Broker)(nil)
)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxBodyBytes caps create/update request bodies. Defaults to 64KiB.
	MaxBodyBytes int64
	// Heartbeat is the keep-alive interval of the change stream. Defaults
	// to 15s.
	Heartbeat time.Duration
}

// Handler serves the /api/products routes.
type Handler struct {
	catalog      Catalog
	changes      Changes
	maxBodyBytes int64
	heartbeat    time.Duration
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig, c Catalog, changes Changes) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	return &Handler{
		catalog:      c,
		changes:      changes,
		maxBodyBytes: cfg.MaxBodyBytes,
		heartbeat:    cfg.Heartbeat,
	}
}

// Register mounts the product routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("POST /api/products", h.CreateProduct)
	mux.HandleFunc("POST /api/products/validate", h.ValidateProduct)
	mux.HandleFunc("GET /api/products/changes", h.StreamChanges)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.UpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.DeleteProduct)
}

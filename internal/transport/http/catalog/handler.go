// Package catalog exposes read-only catalog lookups over HTTP.
package catalog

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/Additional-Code/orderpad/internal/catalog"
	"github.com/Additional-Code/orderpad/internal/dto"
	"github.com/Additional-Code/orderpad/internal/presentation/http/response"
	"github.com/Additional-Code/orderpad/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/orderpad/transport/http/catalog")

// Handler exposes catalog endpoints over HTTP.
type Handler struct {
	loader *catalog.Loader
}

// NewHandler constructs a catalog Handler.
func NewHandler(loader *catalog.Loader) *Handler {
	return &Handler{loader: loader}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/catalog")
	g.GET("/customers", h.listCustomers)
	g.GET("/products", h.listProducts)
	g.GET("/products/:barcode", h.getProduct)
	g.GET("/status", h.status)
}

func (h *Handler) listCustomers(c echo.Context) error {
	_, span := httpTracer.Start(c.Request().Context(), "catalog.listCustomers")
	defer span.End()

	customers := h.loader.Customers()
	return response.New(c).
		WithData(dto.NewCustomerResponses(customers)).
		WithMeta("settled", h.loader.Settled(catalog.DomainCustomers)).
		Build()
}

func (h *Handler) listProducts(c echo.Context) error {
	_, span := httpTracer.Start(c.Request().Context(), "catalog.listProducts")
	defer span.End()

	products := h.loader.Products()
	return response.New(c).
		WithData(dto.NewProductResponses(products)).
		WithMeta("settled", h.loader.Settled(catalog.DomainProducts)).
		Build()
}

func (h *Handler) getProduct(c echo.Context) error {
	b := response.New(c)

	_, span := httpTracer.Start(c.Request().Context(), "catalog.getProduct")
	defer span.End()

	barcode := c.Param("barcode")
	product, ok := h.loader.Product(barcode)
	if !ok {
		return b.WithError(errorbank.NotFound("unknown product", errorbank.WithDetail("barcode", barcode))).Build()
	}
	return b.WithData(dto.NewProductResponses([]catalog.Product{product})[0]).Build()
}

func (h *Handler) status(c echo.Context) error {
	_, span := httpTracer.Start(c.Request().Context(), "catalog.status")
	defer span.End()

	return response.New(c).WithData(dto.NewCatalogStatusResponse(h.loader.Status())).Build()
}

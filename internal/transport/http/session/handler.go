// Package session exposes the order editing session endpoints over HTTP.
package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderpad/internal/dto"
	"github.com/Additional-Code/orderpad/internal/lineitem"
	"github.com/Additional-Code/orderpad/internal/presentation/http/response"
	service "github.com/Additional-Code/orderpad/internal/service/order"
	"github.com/Additional-Code/orderpad/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/orderpad/transport/http/session")

// Handler exposes editing session endpoints over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a session Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. The :key segment is the
// order number, or the fixed new-order key for a not-yet-created order.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/sessions/:key")
	g.POST("", h.open)
	g.GET("", h.get)
	g.POST("/items", h.addItem)
	g.PATCH("/items/:item", h.updateItem)
	g.DELETE("/items/:item", h.removeItem)
	g.PUT("/memo", h.setMemo)
	g.POST("/rollback", h.rollback)
	g.POST("/commit", h.commit)
	g.DELETE("", h.discard)

	e.GET("/drafts", h.listDrafts)
}

func (h *Handler) open(c echo.Context) error {
	b := response.New(c)

	key := c.Param("key")
	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.open", trace.WithAttributes(attribute.String("order.key", key)))
	defer span.End()

	view, err := h.svc.Open(ctx, key)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewSessionResponse(view)).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)

	view, err := h.svc.Get(c.Param("key"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewSessionResponse(view)).Build()
}

func (h *Handler) addItem(c echo.Context) error {
	b := response.New(c)

	var payload dto.AddItemRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.addItem", trace.WithAttributes(
		attribute.String("order.key", c.Param("key")),
		attribute.String("item.key", payload.Key),
	))
	defer span.End()

	view, err := h.svc.AddItem(ctx, c.Param("key"), lineitem.LineItem{
		Key:       payload.Key,
		Name:      payload.Name,
		UnitPrice: payload.UnitPrice,
		Quantity:  payload.Quantity,
		Unit:      lineitem.Unit(payload.Unit),
		Memo:      payload.Memo,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewSessionResponse(view)).Build()
}

func (h *Handler) updateItem(c echo.Context) error {
	b := response.New(c)

	var payload dto.UpdateItemRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	patch := lineitem.Patch{
		Name:      payload.Name,
		UnitPrice: payload.UnitPrice,
		Quantity:  payload.Quantity,
		Memo:      payload.Memo,
	}
	if payload.Unit != nil {
		unit := lineitem.Unit(*payload.Unit)
		patch.Unit = &unit
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.updateItem", trace.WithAttributes(
		attribute.String("order.key", c.Param("key")),
		attribute.String("item.key", c.Param("item")),
	))
	defer span.End()

	view, err := h.svc.UpdateItem(ctx, c.Param("key"), c.Param("item"), patch)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewSessionResponse(view)).Build()
}

func (h *Handler) removeItem(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.removeItem", trace.WithAttributes(
		attribute.String("order.key", c.Param("key")),
		attribute.String("item.key", c.Param("item")),
	))
	defer span.End()

	view, err := h.svc.RemoveItem(ctx, c.Param("key"), c.Param("item"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewSessionResponse(view)).Build()
}

func (h *Handler) setMemo(c echo.Context) error {
	b := response.New(c)

	var payload dto.SetMemoRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.setMemo", trace.WithAttributes(attribute.String("order.key", c.Param("key"))))
	defer span.End()

	view, err := h.svc.SetMemo(ctx, c.Param("key"), payload.Memo)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewSessionResponse(view)).Build()
}

func (h *Handler) rollback(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.rollback", trace.WithAttributes(attribute.String("order.key", c.Param("key"))))
	defer span.End()

	view, err := h.svc.Rollback(ctx, c.Param("key"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewSessionResponse(view)).Build()
}

func (h *Handler) commit(c echo.Context) error {
	b := response.New(c)

	var payload dto.CommitRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.commit", trace.WithAttributes(attribute.String("order.key", c.Param("key"))))
	defer span.End()

	if err := h.svc.Commit(ctx, c.Param("key"), service.CommitOptions{
		Number:       payload.Number,
		CustomerCode: payload.CustomerCode,
	}); err != nil {
		return b.WithError(err).Build()
	}
	return b.Build()
}

func (h *Handler) discard(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.discard", trace.WithAttributes(attribute.String("order.key", c.Param("key"))))
	defer span.End()

	if err := h.svc.Discard(ctx, c.Param("key")); err != nil {
		return b.WithError(err).Build()
	}
	return b.Build()
}

func (h *Handler) listDrafts(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "sessions.listDrafts")
	defer span.End()

	keys, err := h.svc.DraftKeys(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(keys).WithMeta("count", len(keys)).Build()
}

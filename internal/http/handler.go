package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"helpdesk/internal/http/middleware"
	"helpdesk/internal/serializer"
	"helpdesk/internal/service"
)

// PingFunc reports whether the backing store can serve requests.
type PingFunc func(ctx context.Context) error

type Handler struct {
	ticketService *service.TicketService
	ping          PingFunc
	log           zerolog.Logger
}

func NewHandler(ticketService *service.TicketService, ping PingFunc, log zerolog.Logger) *Handler {
	return &Handler{
		ticketService: ticketService,
		ping:          ping,
		log:           log,
	}
}

// Register mounts the ticket API. The admin console is mounted only when
// adminMiddleware is non-empty.
func (h *Handler) Register(r *gin.Engine, adminMiddleware ...gin.HandlerFunc) {
	r.GET("/healthz", h.health)
	r.GET("/readyz", h.ready)

	tickets := r.Group("/tickets")
	{
		tickets.GET("/", h.listTickets(service.PublicQuery))
		tickets.POST("/", h.createTicket(serializer.Create))
		tickets.GET("/stats/", h.ticketStats)
		tickets.GET("/:id/", h.getTicket)
		tickets.PUT("/:id/", h.updateTicket)
		tickets.PATCH("/:id/", h.updateTicket)
	}

	if len(adminMiddleware) == 0 {
		return
	}

	admin := r.Group("/admin/tickets", adminMiddleware...)
	{
		admin.GET("/", h.listTickets(service.AdminQuery))
		admin.POST("/", h.createTicket(serializer.Full))
		admin.GET("/:id/", h.getTicket)
		admin.PUT("/:id/", h.updateTicket)
		admin.PATCH("/:id/", h.updateTicket)
	}
}

func (h *Handler) listTickets(opts service.QueryOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		query, err := service.ParseListQuery(c.Request.URL.Query(), opts)
		if err != nil {
			h.handleError(c, err)
			return
		}

		page, err := h.ticketService.List(c.Request.Context(), query)
		if err != nil {
			h.handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, newPageResponse(c, page))
	}
}

func (h *Handler) createTicket(view serializer.View) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := readPayload(c)
		if err != nil {
			h.handleError(c, err)
			return
		}

		ticket, err := h.ticketService.Create(c.Request.Context(), view, payload)
		if err != nil {
			h.handleError(c, err)
			return
		}

		h.log.Debug().Uint64("ticket_id", ticket.ID).Str("view", view.Name()).Msg("ticket created")
		c.JSON(http.StatusCreated, ticket)
	}
}

func (h *Handler) getTicket(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse(msgNotFound))
		return
	}

	ticket, err := h.ticketService.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// updateTicket serves both PUT and PATCH; fields missing from the body keep
// their stored values.
func (h *Handler) updateTicket(c *gin.Context) {
	id, ok := ticketID(c)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse(msgNotFound))
		return
	}

	payload, err := readPayload(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	ticket, err := h.ticketService.Update(c.Request.Context(), id, payload)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) ticketStats(c *gin.Context) {
	stats, err := h.ticketService.Stats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.log.Warn().Err(err).Msg("readiness check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func readPayload(c *gin.Context) (serializer.Payload, error) {
	body, err := c.GetRawData()
	if err != nil {
		return nil, &serializer.MalformedError{Detail: err.Error()}
	}
	return serializer.Decode(body)
}

func ticketID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

const (
	msgNotFound    = "Not found."
	msgInvalidPage = "Invalid page."
	msgInternal    = "internal error"
)

func (h *Handler) handleError(c *gin.Context, err error) {
	var fieldErrs serializer.FieldErrors
	var malformed *serializer.MalformedError
	switch {
	case errors.As(err, &fieldErrs):
		c.JSON(http.StatusBadRequest, fieldErrs)
	case errors.As(err, &malformed):
		c.JSON(http.StatusBadRequest, errorResponse(malformed.Detail))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(msgNotFound))
	case errors.Is(err, service.ErrInvalidPage):
		c.JSON(http.StatusNotFound, errorResponse(msgInvalidPage))
	default:
		h.log.Error().Err(err).Str("request_id", middleware.RequestID(c)).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse(msgInternal))
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"detail": message,
	}
}

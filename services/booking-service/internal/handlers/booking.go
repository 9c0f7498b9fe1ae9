package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/klaus2514/Sportsafari/pkg/logger"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/idempotency"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/middlewares"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/service"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayHeader         = "Idempotent-Replay"
)

type BookingHandler struct {
	responder
	bookings *service.BookingSvc
	views    *service.ViewSvc
	idem     idempotency.Store
}

func NewBookingHandler(bookings *service.BookingSvc, views *service.ViewSvc, idem idempotency.Store, dev bool) *BookingHandler {
	return &BookingHandler{responder: responder{dev: dev}, bookings: bookings, views: views, idem: idem}
}

// POST /v1/grounds/:id/slots/:slotId/book
func (h *BookingHandler) BookSlot(c *gin.Context) {
	h.book(c, c.Param("id"), c.Param("slotId"))
}

// POST /v1/bookings/book
func (h *BookingHandler) Book(c *gin.Context) {
	var in struct {
		GroundID string `json:"groundId" binding:"required"`
		SlotID   string `json:"slotId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	h.book(c, in.GroundID, in.SlotID)
}

func (h *BookingHandler) book(c *gin.Context, groundID, slotID string) {
	ctx := c.Request.Context()
	p := middlewares.Principal(c)

	key := c.GetHeader(IdempotencyKeyHeader)
	if key == "" || h.idem == nil {
		h.doBook(c, p, groundID, slotID, nil)
		return
	}
	// keys are scoped to the caller
	key = p.ID + ":" + key
	entry, reserved, err := h.idem.Reserve(ctx, key)
	if err != nil {
		h.fail(c, domain.StorageFailure("reserve idempotency key", err))
		return
	}
	if !reserved {
		if entry.InFlight() {
			h.fail(c, domain.Conflict("a request with this idempotency key is in progress"))
			return
		}
		v, err := h.views.BookingFor(ctx, p, entry.BookingID)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Header(ReplayHeader, "true")
		h.ok(c, http.StatusOK, gin.H{"booking": v.Booking, "ground": v.Ground})
		return
	}
	h.doBook(c, p, groundID, slotID, func(bookingID string) {
		var err error
		if bookingID == "" {
			err = h.idem.Release(context.WithoutCancel(ctx), key)
		} else {
			err = h.idem.Complete(context.WithoutCancel(ctx), key, bookingID)
		}
		if err != nil {
			logger.FromGin(c).Warn("idempotency key not settled", zap.String("key", key), zap.Error(err))
		}
	})
}

func (h *BookingHandler) doBook(c *gin.Context, p domain.Principal, groundID, slotID string, settle func(bookingID string)) {
	rc, err := h.bookings.Book(c.Request.Context(), p, groundID, slotID)
	if err != nil {
		if settle != nil {
			settle("")
		}
		h.fail(c, err)
		return
	}
	if settle != nil {
		settle(rc.Booking.ID)
	}
	h.ok(c, http.StatusCreated, gin.H{"booking": rc.Booking, "ground": rc.Ground})
}

// GET /v1/bookings/my-bookings
func (h *BookingHandler) Mine(c *gin.Context) {
	out, err := h.views.MyBookings(c.Request.Context(), middlewares.Principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, out)
}

// DELETE /v1/bookings/:id
func (h *BookingHandler) Cancel(c *gin.Context) {
	b, err := h.bookings.Cancel(c.Request.Context(), middlewares.Principal(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, b)
}

// PATCH /v1/bookings/:id/status (owner)
func (h *BookingHandler) SetStatus(c *gin.Context) {
	var in struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	b, err := h.bookings.SetStatus(c.Request.Context(), middlewares.Principal(c), c.Param("id"), domain.BookingStatus(in.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, b)
}

// GET /v1/bookings/owner-bookings (owner)
func (h *BookingHandler) OwnerBookings(c *gin.Context) {
	out, err := h.views.OwnerBookings(c.Request.Context(), middlewares.Principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, out)
}

// GET /v1/bookings/owner-revenue (owner)
func (h *BookingHandler) OwnerRevenue(c *gin.Context) {
	rev, err := h.views.OwnerRevenue(c.Request.Context(), middlewares.Principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, rev)
}

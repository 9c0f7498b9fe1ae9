package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/middlewares"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/service"
)

type GroundHandler struct {
	responder
	grounds *service.GroundSvc
	views   *service.ViewSvc
}

func NewGroundHandler(grounds *service.GroundSvc, views *service.ViewSvc, dev bool) *GroundHandler {
	return &GroundHandler{responder: responder{dev: dev}, grounds: grounds, views: views}
}

type slotBody struct {
	ID       string `json:"id"`
	Date     string `json:"date" binding:"required,ymd"`
	TimeSlot string `json:"timeSlot" binding:"required,timeslot"`
}

type groundBody struct {
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	Location     string           `json:"location"`
	Image        string           `json:"image"`
	PricePerSlot *decimal.Decimal `json:"pricePerSlot"`
	Capacity     *int             `json:"capacity" binding:"omitempty,min=0"`
	Amenities    []string         `json:"amenities"`
	SportType    string           `json:"sportType" binding:"omitempty,sport"`
	Slots        []slotBody       `json:"slots" binding:"omitempty,dive"`
}

type createGroundBody struct {
	groundBody
	Name         string           `json:"name" binding:"required"`
	Location     string           `json:"location" binding:"required"`
	PricePerSlot *decimal.Decimal `json:"pricePerSlot" binding:"required"`
	SportType    string           `json:"sportType" binding:"required,sport"`
}

func (b groundBody) input() service.GroundInput {
	in := service.GroundInput{
		Name:         b.Name,
		Description:  b.Description,
		Location:     b.Location,
		Image:        b.Image,
		PricePerSlot: b.PricePerSlot,
		Capacity:     b.Capacity,
		Amenities:    b.Amenities,
		SportType:    b.SportType,
	}
	if b.Slots != nil {
		in.Slots = make([]domain.SlotInput, 0, len(b.Slots))
		for _, s := range b.Slots {
			in.Slots = append(in.Slots, domain.SlotInput{ID: s.ID, Date: s.Date, TimeSlot: s.TimeSlot})
		}
	}
	return in
}

// GET /v1/grounds?sportType=football
func (h *GroundHandler) Available(c *gin.Context) {
	gs, err := h.views.AvailableGrounds(c.Request.Context(), c.Query("sportType"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gs)
}

// GET /v1/grounds/all
func (h *GroundHandler) Catalog(c *gin.Context) {
	out, err := h.views.Catalog(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, out)
}

// GET /v1/grounds/:id
func (h *GroundHandler) Get(c *gin.Context) {
	g, err := h.views.GroundDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, g)
}

// POST /v1/grounds (owner)
func (h *GroundHandler) Create(c *gin.Context) {
	var in createGroundBody
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	body := in.groundBody
	body.Name, body.Location, body.PricePerSlot, body.SportType = in.Name, in.Location, in.PricePerSlot, in.SportType
	g, err := h.grounds.Create(c.Request.Context(), middlewares.Principal(c), body.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusCreated, g)
}

// GET /v1/grounds/mine (owner)
func (h *GroundHandler) Mine(c *gin.Context) {
	gs, err := h.grounds.OwnerGrounds(c.Request.Context(), middlewares.Principal(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, gs)
}

// PUT /v1/grounds/:id (owner)
func (h *GroundHandler) Update(c *gin.Context) {
	var in groundBody
	if err := c.ShouldBindJSON(&in); err != nil {
		h.badRequest(c, err)
		return
	}
	g, err := h.grounds.Update(c.Request.Context(), middlewares.Principal(c), c.Param("id"), in.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, http.StatusOK, g)
}

// DELETE /v1/grounds/:id (owner)
func (h *GroundHandler) Delete(c *gin.Context) {
	if err := h.grounds.Delete(c.Request.Context(), middlewares.Principal(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "ground deleted"})
}

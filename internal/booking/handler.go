package booking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/c6lbmb/borrowmybike-sub000/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	ScheduledStart time.Time `json:"scheduled_start" binding:"required"`
}

// Create books a bike for a road-test slot and returns the checkout URL for
// the booking fee.
func (h *Handler) Create(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bikeID, err := strconv.Atoi(c.Param("bikeID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bike ID"})
		return
	}

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_start is required (RFC3339)"})
		return
	}

	b, checkoutURL, err := h.service.Create(c.Request.Context(), bikeID, userID, req.ScheduledStart)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"booking": b, "checkout_url": checkoutURL})
}

// Accept is the owner committing to the booking by paying the deposit.
func (h *Handler) Accept(c *gin.Context) {
	userID, bookingID, ok := h.callerAndBooking(c)
	if !ok {
		return
	}

	resp, err := h.service.Accept(c.Request.Context(), bookingID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CheckIn(c *gin.Context) {
	userID, bookingID, ok := h.callerAndBooking(c)
	if !ok {
		return
	}

	b, window, err := h.service.CheckIn(c.Request.Context(), bookingID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"booking": b,
		"window": gin.H{
			"opens":  window.Opens.Format(time.RFC3339),
			"closes": window.Closes.Format(time.RFC3339),
		},
	})
}

func (h *Handler) ConfirmComplete(c *gin.Context) {
	userID, bookingID, ok := h.callerAndBooking(c)
	if !ok {
		return
	}

	b, err := h.service.ConfirmComplete(c.Request.Context(), bookingID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking": b, "completed": b.Completed})
}

func (h *Handler) AgreeForceMajeure(c *gin.Context) {
	userID, bookingID, ok := h.callerAndBooking(c)
	if !ok {
		return
	}

	bothAgreed, err := h.service.AgreeForceMajeure(c.Request.Context(), bookingID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ForceMajeureResponse{BothAgreed: bothAgreed})
}

type depositChoiceRequest struct {
	Choice string `json:"choice" binding:"required"`
}

func (h *Handler) SetDepositChoice(c *gin.Context) {
	userID, bookingID, ok := h.callerAndBooking(c)
	if !ok {
		return
	}

	var req depositChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "choice is required (keep or refund)"})
		return
	}

	if err := h.service.SetDepositChoice(c.Request.Context(), bookingID, userID, req.Choice); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deposit choice updated"})
}

func (h *Handler) Get(c *gin.Context) {
	userID, bookingID, ok := h.callerAndBooking(c)
	if !ok {
		return
	}

	b, err := h.service.GetForUser(c.Request.Context(), bookingID, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bookings, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bookings"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *Handler) callerAndBooking(c *gin.Context) (userID, bookingID int, ok bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, 0, false
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return 0, 0, false
	}

	return userID, bookingID, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var we *WindowError

	switch {
	case errors.As(err, &we):
		resp := gin.H{"error": we.Reason}
		if !we.Opens.IsZero() {
			resp["opens"] = we.Opens.Format(time.RFC3339)
		}
		if !we.Closes.IsZero() {
			resp["closes"] = we.Closes.Format(time.RFC3339)
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, ErrBikeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Bike not found"})
	case errors.Is(err, ErrSlotTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Bike is already booked for this slot"})
	case errors.Is(err, ErrOwnBike):
		c.JSON(http.StatusBadRequest, gin.H{"error": "You cannot book your own bike"})
	case errors.Is(err, ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a party to this booking"})
	case errors.Is(err, ErrPaymentPending):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment is not confirmed yet"})
	case errors.Is(err, ErrTerminal):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking is already cancelled or settled"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

package settlement

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/c6lbmb/borrowmybike-sub000/internal/auth"
	"github.com/c6lbmb/borrowmybike-sub000/internal/booking"
	"github.com/c6lbmb/borrowmybike-sub000/internal/ledger"
)

type Handler struct {
	service  *Service
	bookings booking.Repository
	payments ledger.Repository
}

func NewHandler(service *Service, bookings booking.Repository, payments ledger.Repository) *Handler {
	return &Handler{service: service, bookings: bookings, payments: payments}
}

// Settle triggers settlement of a fully paid booking. Idempotent: repeat
// calls return the original outcome.
func (h *Handler) Settle(c *gin.Context) {
	b, role, ok := h.resolveBooking(c, true)
	if !ok {
		return
	}
	_ = role

	res, err := h.service.Settle(c.Request.Context(), b.ID, actorLabel(c))
	if err != nil {
		h.respondError(c, err, res)
		return
	}

	c.JSON(http.StatusOK, res)
}

// Cancel cancels a booking on behalf of the calling party and performs the
// fault-line money movement.
func (h *Handler) Cancel(c *gin.Context) {
	b, role, ok := h.resolveBooking(c, false)
	if !ok {
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), b.ID, role, actorLabel(c))
	if err != nil {
		var ie *IntegrityError
		if errors.As(err, &ie) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":           "cancellation partially applied, operator attention required",
				"completed_steps": ie.CompletedSteps,
				"outcome":         res,
			})
			return
		}
		h.respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ClaimNoShow lets the checked-in party claim the absent one.
func (h *Handler) ClaimNoShow(c *gin.Context) {
	b, role, ok := h.resolveBooking(c, false)
	if !ok {
		return
	}

	res, err := h.service.ClaimNoShow(c.Request.Context(), b.ID, role, actorLabel(c))
	if err != nil {
		h.respondError(c, err, res)
		return
	}

	c.JSON(http.StatusOK, res)
}

// ListLedger returns the booking's payment rows.
func (h *Handler) ListLedger(c *gin.Context) {
	b, _, ok := h.resolveBooking(c, true)
	if !ok {
		return
	}

	payments, err := h.payments.ListByBooking(c.Request.Context(), b.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ledger"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"booking_id": b.ID, "payments": payments})
}

// ListReviews returns bookings flagged for review. Admin only.
func (h *Handler) ListReviews(c *gin.Context) {
	bookings, err := h.bookings.ListNeedingReview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

type reviewRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// FlagReview lets an admin pre-set a fault flag on a booking. Admin only.
func (h *Handler) FlagReview(c *gin.Context) {
	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	switch req.Reason {
	case booking.ReviewBorrowerFault, booking.ReviewBorrowerNoShow, booking.ReviewOwnerNoShow,
		booking.ReviewUnsafeBike, booking.ReviewInvalidDocuments:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown review reason"})
		return
	}

	ok, err := h.bookings.ClaimReview(c.Request.Context(), bookingID, req.Reason)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to flag booking"})
		return
	}
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "Booking already flagged or terminal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Booking flagged for review"})
}

// resolveBooking loads the booking and works out the caller's role on it.
// Admins may act on any booking when allowAdmin is set.
func (h *Handler) resolveBooking(c *gin.Context, allowAdmin bool) (*booking.Booking, booking.Role, bool) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, "", false
	}

	bookingID, err := strconv.Atoi(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return nil, "", false
	}

	b, err := h.bookings.GetByID(c.Request.Context(), bookingID)
	if err != nil {
		if errors.Is(err, booking.ErrBookingNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return nil, "", false
	}

	role, isParty := b.RoleOf(userID)
	if !isParty {
		userRole, _ := auth.GetUserRole(c)
		if allowAdmin && userRole == auth.RoleAdmin {
			return b, "", true
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a party to this booking"})
		return nil, "", false
	}

	return b, role, true
}

func (h *Handler) respondError(c *gin.Context, err error, partial *Result) {
	var pre *PreconditionError
	var ie *IntegrityError

	switch {
	case errors.As(err, &ie):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":           "settlement partially applied, operator attention required",
			"completed_steps": ie.CompletedSteps,
			"partial":         partial,
		})
	case errors.As(err, &pre):
		c.JSON(http.StatusBadRequest, gin.H{"error": pre.Reason})
	case errors.Is(err, ErrNotFullyPaid), errors.Is(err, ErrBookingCancelled):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	case errors.Is(err, ErrUnclassifiable):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Booking state is unclassifiable, operator attention required"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

func actorLabel(c *gin.Context) string {
	if email, ok := c.Get("user_email"); ok {
		if s, ok := email.(string); ok {
			return s
		}
	}
	return "system"
}

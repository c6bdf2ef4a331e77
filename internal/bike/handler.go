package bike

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/c6lbmb/borrowmybike-sub000/internal/auth"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// Register adds a bike under the calling owner's account.
func (h *Handler) Register(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req RegisterBikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.repo.Create(c.Request.Context(), ownerID, req.Model, req.Plate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register bike"})
		return
	}

	c.JSON(http.StatusCreated, b)
}

// List returns every registered bike available for booking.
func (h *Handler) List(c *gin.Context) {
	bikes, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bikes"})
		return
	}

	c.JSON(http.StatusOK, bikes)
}

// ListMine returns the calling owner's bikes.
func (h *Handler) ListMine(c *gin.Context) {
	ownerID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	bikes, err := h.repo.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bikes"})
		return
	}

	c.JSON(http.StatusOK, bikes)
}

// Get returns one bike by ID.
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("bikeID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bike ID"})
		return
	}

	b, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBikeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bike not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, b)
}

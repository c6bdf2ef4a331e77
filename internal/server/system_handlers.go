package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c6lbmb/borrowmybike-sub000/internal/api"
	"github.com/c6lbmb/borrowmybike-sub000/internal/audit"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// Metrics exposes Prometheus metrics in text format.
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// auditHandler returns the settlement audit trail for one booking.
func auditHandler(log *audit.Log) gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID, err := strconv.Atoi(c.Param("bookingID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid booking ID"})
			return
		}

		entries, err := log.ListByBooking(c.Request.Context(), bookingID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch audit trail"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"booking_id": bookingID, "entries": entries})
	}
}

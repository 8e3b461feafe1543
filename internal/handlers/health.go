package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports the service as up. Downstream health is deliberately not
// probed here; a degraded dependency must not take the whole service out of
// rotation.
func Health(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "OK",
			"service": serviceName,
		})
	}
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatapp/internal/audit"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, sink *audit.Sink, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if sink == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit sink not configured"})
			return
		}
		if err := sink.Record(c.Request.Context(), 0, "AUDIT_TEST", "audit test"); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "audit sink unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

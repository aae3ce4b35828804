package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// corsMiddleware lets the UI and third-party dashboards call the API from any origin.
func (h *Handler) corsMiddleware(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

// countMiddleware counts handled requests per route template.
func (h *Handler) countMiddleware(c *gin.Context) {
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.opts.Metrics.Command("http", c.Request.Method+" "+route)
}

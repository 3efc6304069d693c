package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/reservation-checkout")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.POST("/process", h.Process)
		group.POST("/confirm", h.Confirm)
		group.DELETE("/:id/cancel", h.Cancel)
	}
}

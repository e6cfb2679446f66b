package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIController struct {
	tunnels *TunnelController
}

/**
 * Create new API controller instance
 * @returns {*APIController} New API controller instance
 * @description
 * - Groups the tunnel routes and the metrics endpoint
 */
func NewAPIController() *APIController {
	return &APIController{
		tunnels: NewTunnelController(),
	}
}

/**
 * Register all API routes to Gin engine
 * @param {*gin.Engine} r - Gin router instance
 * @description
 * - Tunnel lifecycle under /api/v1/tunnels
 * - Prometheus metrics at /metrics
 * - Liveness at /healthz
 */
func (a *APIController) RegisterRoutes(r *gin.Engine) {
	r.POST("/api/v1/tunnels", a.tunnels.CreateTunnel)
	r.GET("/api/v1/tunnels", a.tunnels.ListTunnels)
	r.GET("/api/v1/tunnels/:port", a.tunnels.GetTunnel)
	r.GET("/api/v1/tunnels/:port/logs", a.tunnels.GetTunnelLogs)
	r.DELETE("/api/v1/tunnels/:port", a.tunnels.DeleteTunnel)
	r.DELETE("/api/v1/tunnels", a.tunnels.DeleteAllTunnels)
	r.POST("/api/v1/gc", a.tunnels.RunGC)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", a.Healthz)
}

func (a *APIController) Healthz(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

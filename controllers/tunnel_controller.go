package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tunnel-keeper/internal/models"
	"tunnel-keeper/services"
)

// TunnelController handles tunnel-related HTTP requests
type TunnelController struct {
	tunnelService *services.TunnelManager
	reaper        *services.Reaper
}

// NewTunnelController creates a new TunnelController with initialized services
func NewTunnelController() *TunnelController {
	tm := services.GetTunnelManager()
	return &TunnelController{
		tunnelService: tm,
		reaper:        services.NewReaper(tm),
	}
}

// portParam parses the :port path parameter, responding 400 on garbage.
func portParam(c *gin.Context) (int, bool) {
	port, err := strconv.Atoi(c.Param("port"))
	if err != nil || port <= 0 {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Error: "port must be a positive integer",
		})
		return 0, false
	}
	return port, true
}

// toResponse converts a record into the wire payload.
func toResponse(rec *models.TunnelRecord, status, message string) *models.TunnelResponse {
	return &models.TunnelResponse{
		Port:      rec.Port,
		Pid:       rec.Pid,
		Session:   rec.SessionName,
		PublicURL: rec.PublicURL,
		TTL:       rec.RemainingTTL(time.Now()),
		Status:    status,
		Message:   message,
	}
}

/**
 * Create tunnel for local port
 * @description
 * - POST /api/v1/tunnels with {port, protocol?, ttl?}
 * - Idempotent: a live tunnel on the port returns its existing info
 * - 409 with the live set when the concurrency cap is hit
 */
func (tc *TunnelController) CreateTunnel(c *gin.Context) {
	var req models.CreateTunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, &models.ErrorResponse{
			Error: "Invalid request parameters",
		})
		return
	}

	rec, already, err := tc.tunnelService.StartTunnel(req.Port, services.StartOptions{
		Protocol: req.Protocol,
		TTL:      req.TTL,
	})
	if err != nil {
		var limitErr *services.LimitError
		switch {
		case errors.As(err, &limitErr):
			c.JSON(http.StatusConflict, gin.H{
				"error": limitErr.Error(),
				"live":  limitErr.Live,
			})
		case errors.Is(err, models.ErrStartInProgress):
			c.JSON(http.StatusConflict, &models.ErrorResponse{Error: err.Error()})
		case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrInvalidTTL):
			c.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: err.Error()})
		}
		return
	}

	status := "started"
	message := ""
	if already {
		status = "running"
		message = "tunnel already running"
	} else if rec.PublicURL == "" {
		message = "public endpoint not assigned yet"
	}
	c.JSON(http.StatusOK, toResponse(rec, status, message))
}

// GetTunnel reports one tunnel's status, self-healing stale records.
func (tc *TunnelController) GetTunnel(c *gin.Context) {
	port, ok := portParam(c)
	if !ok {
		return
	}
	rec, live, err := tc.tunnelService.Status(port)
	if err != nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{Error: err.Error()})
		return
	}
	if !live {
		c.JSON(http.StatusOK, &models.TunnelResponse{
			Port:    port,
			Status:  string(models.StatusStale),
			Message: "not running (stale record removed)",
		})
		return
	}
	c.JSON(http.StatusOK, toResponse(rec, string(models.StatusRunning), ""))
}

// GetTunnelLogs returns the captured tunnel output verbatim.
func (tc *TunnelController) GetTunnelLogs(c *gin.Context) {
	port, ok := portParam(c)
	if !ok {
		return
	}
	output, err := tc.tunnelService.Logs(port)
	if err != nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{Error: err.Error()})
		return
	}
	c.String(http.StatusOK, output)
}

// ListTunnels returns every live tunnel.
func (tc *TunnelController) ListTunnels(c *gin.Context) {
	live := tc.tunnelService.List()
	responses := make([]*models.TunnelResponse, 0, len(live))
	for _, rec := range live {
		responses = append(responses, toResponse(rec, string(models.StatusRunning), ""))
	}
	c.JSON(http.StatusOK, gin.H{"tunnels": responses})
}

// DeleteTunnel stops one tunnel and removes all its state.
func (tc *TunnelController) DeleteTunnel(c *gin.Context) {
	port, ok := portParam(c)
	if !ok {
		return
	}
	if err := tc.tunnelService.StopTunnel(port); err != nil {
		c.JSON(http.StatusNotFound, &models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stopped", "port": port})
}

// DeleteAllTunnels stops every known tunnel.
func (tc *TunnelController) DeleteAllTunnels(c *gin.Context) {
	stopped := tc.tunnelService.StopAll()
	c.JSON(http.StatusOK, gin.H{"status": "stopped", "count": stopped})
}

// RunGC triggers the reaper and returns its report.
func (tc *TunnelController) RunGC(c *gin.Context) {
	report, err := tc.reaper.Collect()
	if err != nil {
		c.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

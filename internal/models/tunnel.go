package models

import "time"

// RunStatus describes the observed state of a tunnel record.
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusStale   RunStatus = "stale"
)

/**
 * TunnelRecord is the persisted unit of state, keyed by local port.
 * @property {int} port - Local port the tunnel exposes (unique key)
 * @property {int} pid - PID of the spawned tunnel process, immutable once set
 * @property {string} sessionName - Hosting session name, derived from port
 * @property {string} protocol - Local protocol (http/https)
 * @property {string} publicUrl - Externally assigned endpoint, may stay empty
 * @property {time.Time} deadline - Absolute expiry; zero when Forever
 * @property {bool} forever - True when the tunnel never self-expires
 * @property {string} logPath - Captured combined output of the tunnel process
 */
type TunnelRecord struct {
	Port        int       `json:"port"`
	Pid         int       `json:"pid"`
	SessionName string    `json:"sessionName"`
	Protocol    string    `json:"protocol"`
	PublicURL   string    `json:"publicUrl,omitempty"`
	Deadline    time.Time `json:"deadline,omitempty"`
	Forever     bool      `json:"forever"`
	LogPath     string    `json:"logPath"`
}

// RemainingTTL formats the time left until the deadline for display.
// Returns "forever" for non-expiring tunnels and "expired" once past.
func (r *TunnelRecord) RemainingTTL(now time.Time) string {
	if r.Forever {
		return "forever"
	}
	left := r.Deadline.Sub(now)
	if left <= 0 {
		return "expired"
	}
	return left.Round(time.Second).String()
}

// ErrorResponse defines API error response format
type ErrorResponse struct {
	Error string `json:"error"`
}

// TunnelResponse defines tunnel operation success response format
type TunnelResponse struct {
	Port      int    `json:"port"`
	Pid       int    `json:"pid,omitempty"`
	Session   string `json:"session,omitempty"`
	PublicURL string `json:"publicUrl,omitempty"`
	TTL       string `json:"ttl,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
}

// GCReport summarizes one reaper run.
type GCReport struct {
	StaleRecords   []int    `json:"staleRecords"`
	OrphanSessions []string `json:"orphanSessions"`
	RogueProcesses []int    `json:"rogueProcesses"`
}

// Empty reports whether the run found nothing to clean.
func (g *GCReport) Empty() bool {
	return len(g.StaleRecords) == 0 && len(g.OrphanSessions) == 0 && len(g.RogueProcesses) == 0
}

// CreateTunnelRequest is the REST payload for starting a tunnel.
type CreateTunnelRequest struct {
	Port     int    `json:"port" binding:"required"`
	Protocol string `json:"protocol,omitempty"`
	TTL      string `json:"ttl,omitempty"`
}

package services

import (
	"tunnel-keeper/internal/models"
	"tunnel-keeper/internal/session"
	"tunnel-keeper/internal/utils"
)

// ProcessTable abstracts the OS process table so the prober, the manager
// and the reaper can be tested against a fake. The session host and this
// table are the only truly global resources the keeper touches.
type ProcessTable interface {
	// Alive reports process existence; it never delivers a real signal.
	Alive(pid int) bool
	// Matches reports whether the PID's executable has the expected name.
	Matches(pid int, name string) bool
	// Kill terminates the process, refusing PIDs whose name no longer
	// matches (guards against PID reuse).
	Kill(pid int, name string) error
}

type osProcessTable struct{}

func (osProcessTable) Alive(pid int) bool { return utils.IsProcessRunning(pid) }

func (osProcessTable) Matches(pid int, name string) bool {
	return utils.MatchesProcessName(pid, name)
}

func (osProcessTable) Kill(pid int, name string) error {
	return utils.KillProcessGracefully(pid, name)
}

// Prober is the single authority on whether a tunnel record is real. No
// other component re-derives liveness by its own means.
type Prober struct {
	host  session.Host
	procs ProcessTable
}

func NewProber(host session.Host) *Prober {
	return &Prober{host: host, procs: osProcessTable{}}
}

/**
 * IsLive reports whether a record's tunnel actually exists
 * @param {*models.TunnelRecord} rec - Record to probe
 * @returns {bool} true iff both the session and the process are alive
 * @description
 * - The hosting session must exist AND the recorded PID must be signalable
 * - Either check failing makes the record stale
 * - Existence check only; no signal is ever delivered
 */
func (p *Prober) IsLive(rec *models.TunnelRecord) bool {
	if rec == nil || rec.Pid <= 0 {
		return false
	}
	if !p.host.Has(rec.SessionName) {
		return false
	}
	return p.procs.Alive(rec.Pid)
}

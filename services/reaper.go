package services

import (
	"tunnel-keeper/internal/logger"
	"tunnel-keeper/internal/metrics"
	"tunnel-keeper/internal/models"
	"tunnel-keeper/internal/session"
)

// Reaper reconciles drift between the record store and the actual session
// host / process table. Three independent passes, each idempotent and safe
// against concurrent start/stop on unrelated ports.
type Reaper struct {
	tm *TunnelManager
}

func NewReaper(tm *TunnelManager) *Reaper {
	return &Reaper{tm: tm}
}

/**
 * Collect runs all three reclamation passes
 * @returns {(*models.GCReport, error)} What was reclaimed in this run
 * @description
 * - Pass 1: stale records - record whose process or session died
 * - Pass 2: untracked sessions - session matching the naming convention
 *   with no record behind it (crash between session creation and record
 *   persist, or manual tmux use inside our namespace)
 * - Pass 3: rogue processes - tunnel-binary process inside a tracked live
 *   session whose PID is not the recorded one
 * - Never touches a live, tracked session/process with a matching PID
 */
func (r *Reaper) Collect() (*models.GCReport, error) {
	report := &models.GCReport{}
	r.reapStaleRecords(report)
	if err := r.reapOrphanSessions(report); err != nil {
		return report, err
	}
	r.reapRogueProcesses(report)
	return report, nil
}

func (r *Reaper) reapStaleRecords(report *models.GCReport) {
	for _, port := range r.tm.store.ListPorts() {
		rec, ok := r.tm.lookup(port)
		if !ok || r.tm.prober.IsLive(rec) {
			continue
		}
		logger.Infof("GC: removing stale record for port %d (PID: %d)", port, rec.Pid)
		r.tm.removeRecord(rec)
		report.StaleRecords = append(report.StaleRecords, port)
		metrics.GCReclaimed.WithLabelValues("record").Inc()
	}
}

func (r *Reaper) reapOrphanSessions(report *models.GCReport) error {
	names, err := r.tm.host.List(r.tm.cfg.SessionPrefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		port, ok := session.PortFromName(r.tm.cfg.SessionPrefix, name)
		if !ok {
			// Not our naming convention after all, leave it alone.
			continue
		}
		if r.tm.store.HasRecord(port) {
			continue
		}
		logger.Infof("GC: killing untracked session %s", name)
		if err := r.tm.host.Kill(name); err != nil {
			logger.Errorf("GC: failed to kill session %s: %v", name, err)
			continue
		}
		report.OrphanSessions = append(report.OrphanSessions, name)
		metrics.GCReclaimed.WithLabelValues("session").Inc()
	}
	return nil
}

func (r *Reaper) reapRogueProcesses(report *models.GCReport) {
	for _, port := range r.tm.store.ListPorts() {
		rec, ok := r.tm.lookup(port)
		if !ok || !r.tm.prober.IsLive(rec) {
			continue
		}
		pids, err := r.tm.host.Children(rec.SessionName)
		if err != nil {
			continue
		}
		for _, pid := range pids {
			if pid == rec.Pid {
				continue
			}
			if !r.tm.procs.Matches(pid, r.tm.cfg.ProcessName) {
				continue
			}
			logger.Warnf("GC: killing rogue %s process %d in session %s (recorded PID: %d)",
				r.tm.cfg.ProcessName, pid, rec.SessionName, rec.Pid)
			if err := r.tm.procs.Kill(pid, r.tm.cfg.ProcessName); err != nil {
				logger.Errorf("GC: failed to kill process %d: %v", pid, err)
				continue
			}
			report.RogueProcesses = append(report.RogueProcesses, pid)
			metrics.GCReclaimed.WithLabelValues("process").Inc()
		}
	}
}

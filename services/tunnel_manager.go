package services

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"tunnel-keeper/internal/config"
	"tunnel-keeper/internal/env"
	"tunnel-keeper/internal/logger"
	"tunnel-keeper/internal/metrics"
	"tunnel-keeper/internal/models"
	"tunnel-keeper/internal/session"
	"tunnel-keeper/internal/utils"
)

// Polling cadence for the two bounded startup waits. Both waits abandon
// rather than block forever; overall budgets come from config.
const (
	pidPollInterval      = 200 * time.Millisecond
	endpointPollInterval = 500 * time.Millisecond
)

// TunnelArgs is the data rendered into the tunnel command templates.
type TunnelArgs struct {
	Protocol string
	Port     int
}

// StartOptions carries the optional start parameters. Zero values select
// the configured defaults.
type StartOptions struct {
	Protocol string // http (default) or https
	TTL      string // N[h|m|s], forever/none/0, default from config
}

// LimitError is returned when the concurrency cap is hit. It carries the
// current live set so the caller can decide what to stop.
type LimitError struct {
	Limit int
	Live  []*models.TunnelRecord
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%d tunnels already running (limit %d)", len(e.Live), e.Limit)
}

func (e *LimitError) Unwrap() error { return models.ErrTunnelLimit }

// TunnelManager is the lifecycle state machine: it owns every mutation of
// the record store and drives the session host. All in-memory knowledge is
// rebuilt from disk on each operation, so concurrent invocations of the
// binary stay consistent.
type TunnelManager struct {
	store  *RecordStore
	host   session.Host
	procs  ProcessTable
	prober *Prober
	cfg    *config.TunnelConfig
}

var tunnelManager *TunnelManager

/**
 * Get singleton instance of TunnelManager
 * @returns {*TunnelManager} Returns the singleton TunnelManager instance
 * @description
 * - Wires the filesystem record store, the tmux session host and the prober
 * - Sessions run on a dedicated tmux socket named after the session prefix,
 *   keeping keeper sessions apart from the user's own tmux server
 * - Returns existing instance if already initialized
 */
func GetTunnelManager() *TunnelManager {
	if tunnelManager != nil {
		return tunnelManager
	}
	cfg := &config.Config.Tunnel
	host := session.NewTmuxHost(cfg.SessionPrefix)
	tunnelManager = NewTunnelManager(cfg, host, NewRecordStore(env.TunnelsDir()))
	return tunnelManager
}

// NewTunnelManager builds a manager over explicit collaborators. Tests use
// this with a fake session host.
func NewTunnelManager(cfg *config.TunnelConfig, host session.Host, store *RecordStore) *TunnelManager {
	tm := &TunnelManager{
		store: store,
		host:  host,
		procs: osProcessTable{},
		cfg:   cfg,
	}
	tm.prober = &Prober{host: host, procs: tm.procs}
	return tm
}

// setProcessTable swaps the process table, for tests with fake PIDs.
func (tm *TunnelManager) setProcessTable(procs ProcessTable) {
	tm.procs = procs
	tm.prober.procs = procs
}

// sessionName derives the hosting session's name for a port.
func (tm *TunnelManager) sessionName(port int) string {
	return session.Name(tm.cfg.SessionPrefix, port)
}

// lookup rebuilds the record for a port from its on-disk artifacts.
// Returns false when no state artifact exists at all.
func (tm *TunnelManager) lookup(port int) (*models.TunnelRecord, bool) {
	if !tm.store.HasRecord(port) {
		return nil, false
	}
	deadline, forever := tm.store.GetDeadline(port)
	return &models.TunnelRecord{
		Port:        port,
		Pid:         tm.store.GetPid(port),
		SessionName: tm.sessionName(port),
		PublicURL:   tm.store.GetURL(port),
		Deadline:    deadline,
		Forever:     forever,
		LogPath:     tm.store.LogPath(port),
	}, true
}

/**
 * Start a tunnel exposing the given local port
 * @param {int} port - Local port, must be positive
 * @param {StartOptions} opts - Optional protocol and TTL
 * @returns {(*models.TunnelRecord, bool, error)} Record, already-running flag, error
 * @description
 * - Sweeps stale records first so no contradictory state survives
 * - A live tunnel on the port is an idempotent success, no second process
 * - Enforces the concurrency cap; the cap error carries the live set
 * - Spawns the tunnel binary in a fresh session; a finite TTL is enforced
 *   by a timeout(1) wrapper inside the session so expiry works even when
 *   the keeper itself is not running
 * - Waits bounded for the PID, then bounded for the public endpoint; an
 *   endpoint that never shows is a partial success (the tunnel may still
 *   be starting), a process that dies during the wait is a rolled-back
 *   failure
 */
func (tm *TunnelManager) StartTunnel(port int, opts StartOptions) (*models.TunnelRecord, bool, error) {
	if port <= 0 {
		return nil, false, fmt.Errorf("%w: port must be a positive integer", models.ErrInvalidArgument)
	}
	protocol := opts.Protocol
	if protocol == "" {
		protocol = "http"
	}
	if protocol != "http" && protocol != "https" {
		return nil, false, fmt.Errorf("%w: unknown protocol %q", models.ErrInvalidArgument, opts.Protocol)
	}
	ttlExpr := opts.TTL
	if ttlExpr == "" {
		ttlExpr = tm.cfg.DefaultTTL
	}
	ttl, forever, err := utils.ParseTTL(ttlExpr)
	if err != nil {
		return nil, false, err
	}

	tm.Sweep()

	if rec, ok := tm.lookup(port); ok && tm.prober.IsLive(rec) {
		logger.Infof("Tunnel on port %d already running (PID: %d)", port, rec.Pid)
		return rec, true, nil
	}

	if !tm.store.Claim(port) {
		return nil, false, fmt.Errorf("%w: port %d", models.ErrStartInProgress, port)
	}
	defer tm.store.Release(port)

	live := tm.liveRecords()
	if len(live) >= tm.cfg.MaxTunnels {
		metrics.TunnelStarts.WithLabelValues("limit").Inc()
		return nil, false, &LimitError{Limit: tm.cfg.MaxTunnels, Live: live}
	}

	var deadline time.Time
	if !forever {
		deadline = time.Now().Add(ttl)
	}
	name := tm.sessionName(port)
	logPath := tm.store.LogPath(port)
	if err := tm.store.TruncateLog(port); err != nil {
		return nil, false, err
	}

	shellCmd, err := tm.buildShellCommand(port, protocol, ttl, forever, logPath)
	if err != nil {
		return nil, false, err
	}

	// An unnamed leftover session would make creation fail; the sweep only
	// covers sessions with records, so clear the name defensively.
	if tm.host.Has(name) {
		_ = tm.host.Kill(name)
	}
	if err := tm.host.Create(name, shellCmd); err != nil {
		metrics.TunnelStarts.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("%w: %v", models.ErrSessionStart, err)
	}

	pid, err := tm.waitForPid(name)
	if err != nil {
		_ = tm.host.Kill(name)
		tm.store.Delete(port)
		metrics.TunnelStarts.WithLabelValues("error").Inc()
		return nil, false, err
	}

	if err := tm.store.PutPid(port, pid); err != nil {
		tm.rollback(port, name)
		return nil, false, err
	}
	if err := tm.store.PutDeadline(port, deadline, forever); err != nil {
		tm.rollback(port, name)
		return nil, false, err
	}

	rec := &models.TunnelRecord{
		Port:        port,
		Pid:         pid,
		SessionName: name,
		Protocol:    protocol,
		Deadline:    deadline,
		Forever:     forever,
		LogPath:     logPath,
	}

	url, err := tm.waitForEndpoint(pid, logPath)
	if err != nil {
		output, _ := tm.Logs(port)
		tm.rollback(port, name)
		metrics.TunnelStarts.WithLabelValues("error").Inc()
		if strings.TrimSpace(output) != "" {
			return nil, false, fmt.Errorf("%w:\n%s", err, strings.TrimSpace(output))
		}
		return nil, false, err
	}
	if url != "" {
		if err := tm.store.PutURL(port, url); err != nil {
			logger.Errorf("Failed to persist endpoint for port %d: %v", port, err)
		}
		rec.PublicURL = url
	} else {
		logger.Warnf("No public endpoint for port %d after %ds, tunnel may still be starting",
			port, tm.cfg.EndpointWaitSeconds)
	}

	metrics.TunnelStarts.WithLabelValues("ok").Inc()
	metrics.ActiveTunnels.Set(float64(len(live) + 1))
	logger.Infof("Successfully started tunnel on port %d (PID: %d, session: %s, url: %s)",
		port, pid, name, rec.PublicURL)
	return rec, false, nil
}

// buildShellCommand renders the configured tunnel command and wraps it for
// log capture and, for finite TTLs, self-expiry.
func (tm *TunnelManager) buildShellCommand(port int, protocol string, ttl time.Duration, forever bool, logPath string) (string, error) {
	args := TunnelArgs{Protocol: protocol, Port: port}
	command, cmdArgs, err := utils.GetCommandLine(tm.cfg.Command, tm.cfg.Args, args)
	if err != nil {
		logger.Errorf("Tunnel startup settings are incorrect, setting: %+v", tm.cfg)
		return "", err
	}
	line := strings.Join(append([]string{command}, cmdArgs...), " ")
	if !forever {
		// timeout(1) lives inside the session: the TTL fires even when
		// this manager is long gone.
		line = fmt.Sprintf("timeout %d %s", int(ttl.Seconds()), line)
	}
	return fmt.Sprintf("%s >>'%s' 2>&1", line, logPath), nil
}

// waitForPid polls the session for a process matching the tunnel binary.
func (tm *TunnelManager) waitForPid(name string) (int, error) {
	budget := time.Duration(tm.cfg.PidWaitSeconds) * time.Second
	for waited := time.Duration(0); waited < budget; waited += pidPollInterval {
		pids, err := tm.host.Children(name)
		if err == nil {
			for _, pid := range pids {
				if tm.procs.Matches(pid, tm.cfg.ProcessName) {
					return pid, nil
				}
			}
		}
		time.Sleep(pidPollInterval)
	}
	return 0, fmt.Errorf("%w: no %s process in session %s after %s",
		models.ErrSessionStart, tm.cfg.ProcessName, name, budget)
}

// waitForEndpoint polls the captured log for the assigned public URL. A
// timeout is not an error; the process dying during the wait is.
func (tm *TunnelManager) waitForEndpoint(pid int, logPath string) (string, error) {
	pattern := regexp.MustCompile(`https://[A-Za-z0-9-]+\.` + regexp.QuoteMeta(tm.cfg.EndpointSuffix))
	budget := time.Duration(tm.cfg.EndpointWaitSeconds) * time.Second
	for waited := time.Duration(0); waited < budget; waited += endpointPollInterval {
		data, err := os.ReadFile(logPath)
		if err == nil {
			if url := pattern.FindString(string(data)); url != "" {
				return url, nil
			}
		}
		if !tm.procs.Alive(pid) {
			return "", models.ErrProcessExited
		}
		time.Sleep(endpointPollInterval)
	}
	return "", nil
}

// rollback undoes a partially started tunnel: session, record and log.
func (tm *TunnelManager) rollback(port int, name string) {
	if tm.host.Has(name) {
		_ = tm.host.Kill(name)
	}
	tm.store.Delete(port)
}

// Sweep deletes every stale record along with whatever half-dead state it
// still references. Every operation runs this before trusting the store.
func (tm *TunnelManager) Sweep() {
	for _, port := range tm.store.ListPorts() {
		rec, ok := tm.lookup(port)
		if !ok || tm.prober.IsLive(rec) {
			continue
		}
		logger.Infof("Removing stale record for port %d (PID: %d)", port, rec.Pid)
		tm.removeRecord(rec)
	}
}

// removeRecord tears down a record and its runtime state, best effort.
// The process is only signaled when it still matches the tunnel binary's
// identity, so a recycled PID is never killed.
func (tm *TunnelManager) removeRecord(rec *models.TunnelRecord) {
	if rec.Pid > 0 {
		if err := tm.procs.Kill(rec.Pid, tm.cfg.ProcessName); err != nil {
			logger.Errorf("Failed to kill process %d: %v", rec.Pid, err)
		}
	}
	if tm.host.Has(rec.SessionName) {
		if err := tm.host.Kill(rec.SessionName); err != nil {
			logger.Errorf("Failed to kill session %s: %v", rec.SessionName, err)
		}
	}
	tm.store.Delete(rec.Port)
}

// liveRecords returns all currently live records.
func (tm *TunnelManager) liveRecords() []*models.TunnelRecord {
	var live []*models.TunnelRecord
	for _, port := range tm.store.ListPorts() {
		rec, ok := tm.lookup(port)
		if !ok || !tm.prober.IsLive(rec) {
			continue
		}
		live = append(live, rec)
	}
	return live
}

/**
 * Stop the tunnel on a port and delete all its state
 * @param {int} port - Port whose tunnel to stop
 * @returns {error} models.ErrNotFound when neither record nor session exist
 * @description
 * - Works on stale records too; stop is the manual cleanup path
 * - Process and session termination are best effort, deletion is not
 */
func (tm *TunnelManager) StopTunnel(port int) error {
	rec, ok := tm.lookup(port)
	name := tm.sessionName(port)
	if !ok && !tm.host.Has(name) {
		return fmt.Errorf("%w: no tunnel for port %d", models.ErrNotFound, port)
	}
	if ok && rec.Pid > 0 {
		if err := tm.procs.Kill(rec.Pid, tm.cfg.ProcessName); err != nil {
			logger.Errorf("Failed to kill tunnel process %d: %v", rec.Pid, err)
		}
	}
	if tm.host.Has(name) {
		if err := tm.host.Kill(name); err != nil {
			logger.Errorf("Failed to kill session %s: %v", name, err)
		}
	}
	tm.store.Delete(port)
	metrics.ActiveTunnels.Set(float64(len(tm.liveRecords())))
	logger.Infof("Stopped tunnel on port %d", port)
	return nil
}

// StopAll stops every known tunnel and returns how many it touched.
func (tm *TunnelManager) StopAll() int {
	ports := tm.store.ListPorts()
	for _, port := range ports {
		if err := tm.StopTunnel(port); err != nil {
			logger.Errorf("Failed to stop tunnel on port %d: %v", port, err)
		}
	}
	return len(ports)
}

/**
 * Report the state of one tunnel
 * @param {int} port - Port to inspect
 * @returns {(*models.TunnelRecord, bool, error)} Record, liveness, error
 * @description
 * - models.ErrNotFound when no record exists
 * - A stale record is deleted as a side effect and reported with live=false;
 *   staleness is self-healed, never surfaced as an error
 */
func (tm *TunnelManager) Status(port int) (*models.TunnelRecord, bool, error) {
	rec, ok := tm.lookup(port)
	if !ok {
		return nil, false, fmt.Errorf("%w: no tunnel for port %d", models.ErrNotFound, port)
	}
	if !tm.prober.IsLive(rec) {
		tm.removeRecord(rec)
		return rec, false, nil
	}
	return rec, true, nil
}

// List returns every live tunnel, deleting stale records as it goes.
func (tm *TunnelManager) List() []*models.TunnelRecord {
	var live []*models.TunnelRecord
	for _, port := range tm.store.ListPorts() {
		rec, ok := tm.lookup(port)
		if !ok {
			continue
		}
		if !tm.prober.IsLive(rec) {
			tm.removeRecord(rec)
			continue
		}
		live = append(live, rec)
	}
	metrics.ActiveTunnels.Set(float64(len(live)))
	return live
}

// Logs returns the captured output of the port's tunnel process verbatim.
// Liveness does not matter; only the log's existence does.
func (tm *TunnelManager) Logs(port int) (string, error) {
	data, err := os.ReadFile(tm.store.LogPath(port))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: no logs for port %d", models.ErrNotFound, port)
		}
		return "", err
	}
	return string(data), nil
}

package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"tunnel-keeper/internal/models"
)

func TestStartCreatesRecord(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)

	rec, already, err := tm.StartTunnel(9100, StartOptions{})
	if err != nil {
		t.Fatalf("StartTunnel failed: %v", err)
	}
	if already {
		t.Fatal("fresh start reported already running")
	}
	if rec.Pid != 100 {
		t.Errorf("pid = %d, want 100", rec.Pid)
	}
	if rec.SessionName != "cftun-9100" {
		t.Errorf("session = %q, want cftun-9100", rec.SessionName)
	}
	if rec.PublicURL != "https://port9100-demo.trycloudflare.com" {
		t.Errorf("url = %q", rec.PublicURL)
	}
	if rec.Forever {
		t.Error("default TTL should not be forever")
	}
	left := time.Until(rec.Deadline)
	if left < 119*time.Minute || left > 121*time.Minute {
		t.Errorf("deadline %s away, want ~2h", left)
	}
	if !host.Has("cftun-9100") {
		t.Error("session missing after start")
	}
	if !tm.store.HasRecord(9100) {
		t.Error("record missing after start")
	}
	if got := tm.store.GetURL(9100); got != rec.PublicURL {
		t.Errorf("persisted url = %q, want %q", got, rec.PublicURL)
	}
}

func TestStartIdempotentWhileLive(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)

	first := mustStart(t, tm, 9100)

	rec, already, err := tm.StartTunnel(9100, StartOptions{})
	if err != nil {
		t.Fatalf("second StartTunnel failed: %v", err)
	}
	if !already {
		t.Error("second start on live port should report already running")
	}
	if rec.Pid != first {
		t.Errorf("second start pid = %d, want %d", rec.Pid, first)
	}
	if host.createCount != 1 {
		t.Errorf("createCount = %d, a live tunnel must not spawn a second process", host.createCount)
	}
}

func TestStartConcurrencyLimit(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)

	mustStart(t, tm, 9100)
	mustStart(t, tm, 9101)

	_, _, err := tm.StartTunnel(9102, StartOptions{})
	var limitErr *LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want LimitError", err)
	}
	if !errors.Is(err, models.ErrTunnelLimit) {
		t.Error("LimitError should unwrap to ErrTunnelLimit")
	}
	if len(limitErr.Live) != 2 {
		t.Errorf("live set has %d entries, want 2", len(limitErr.Live))
	}
	if host.Has("cftun-9102") {
		t.Error("capped start must not create a session")
	}
	if tm.store.HasRecord(9102) {
		t.Error("capped start must not persist a record")
	}
}

func TestStartInvalidTTL(t *testing.T) {
	tm, host, _ := newTestManager(t)

	_, _, err := tm.StartTunnel(9100, StartOptions{TTL: "banana"})
	if !errors.Is(err, models.ErrInvalidTTL) {
		t.Fatalf("err = %v, want ErrInvalidTTL", err)
	}
	if host.createCount != 0 {
		t.Error("invalid TTL must not reach the session host")
	}
}

func TestStartInvalidArguments(t *testing.T) {
	tm, _, _ := newTestManager(t)

	if _, _, err := tm.StartTunnel(0, StartOptions{}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("port 0: err = %v, want ErrInvalidArgument", err)
	}
	if _, _, err := tm.StartTunnel(9100, StartOptions{Protocol: "gopher"}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("bad protocol: err = %v, want ErrInvalidArgument", err)
	}
}

func TestStartForever(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)

	rec, _, err := tm.StartTunnel(9100, StartOptions{TTL: "forever"})
	if err != nil {
		t.Fatalf("StartTunnel failed: %v", err)
	}
	if !rec.Forever {
		t.Error("forever TTL not reflected in record")
	}
	if cmd := host.sessions["cftun-9100"].command; strings.HasPrefix(cmd, "timeout ") {
		t.Errorf("forever tunnel must not carry a timeout wrapper: %q", cmd)
	}
}

func TestStartFiniteTTLUsesSelfExpiry(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)

	if _, _, err := tm.StartTunnel(9100, StartOptions{TTL: "90s"}); err != nil {
		t.Fatalf("StartTunnel failed: %v", err)
	}
	cmd := host.sessions["cftun-9100"].command
	if !strings.HasPrefix(cmd, "timeout 90 ") {
		t.Errorf("expected timeout 90 wrapper, got %q", cmd)
	}
	if !strings.Contains(cmd, "http://localhost:9100") {
		t.Errorf("command does not target the port: %q", cmd)
	}
}

func TestStartSessionStartFailure(t *testing.T) {
	tm, host, _ := newTestManager(t)
	// No onCreate hook: the session exists but no tunnel process ever shows.

	_, _, err := tm.StartTunnel(9100, StartOptions{})
	if !errors.Is(err, models.ErrSessionStart) {
		t.Fatalf("err = %v, want ErrSessionStart", err)
	}
	if host.Has("cftun-9100") {
		t.Error("failed start must tear the session down")
	}
	if tm.store.HasRecord(9100) {
		t.Error("failed start must not leave a record")
	}
}

func TestStartProcessExitedDuringStartup(t *testing.T) {
	tm, host, procs := newTestManager(t)
	host.onCreate = func(name, command string) {
		// The process registers, then dies before printing an endpoint.
		host.sessions[name].pids = []int{100}
		procs.names[100] = tm.cfg.ProcessName
		procs.alive[100] = false
	}

	_, _, err := tm.StartTunnel(9100, StartOptions{})
	if !errors.Is(err, models.ErrProcessExited) {
		t.Fatalf("err = %v, want ErrProcessExited", err)
	}
	if host.Has("cftun-9100") {
		t.Error("rollback must kill the session")
	}
	if tm.store.HasRecord(9100) {
		t.Error("rollback must delete the record")
	}
	if _, err := tm.Logs(9100); !errors.Is(err, models.ErrNotFound) {
		t.Error("rollback must delete the log")
	}
}

func TestStartEndpointTimeoutIsPartialSuccess(t *testing.T) {
	tm, host, procs := newTestManager(t)
	host.onCreate = func(name, command string) {
		// Healthy process that never prints its endpoint in time.
		host.sessions[name].pids = []int{100}
		procs.add(100, tm.cfg.ProcessName)
	}

	rec, _, err := tm.StartTunnel(9100, StartOptions{})
	if err != nil {
		t.Fatalf("endpoint timeout must not fail the start: %v", err)
	}
	if rec.PublicURL != "" {
		t.Errorf("url = %q, want empty", rec.PublicURL)
	}
	if !tm.store.HasRecord(9100) {
		t.Error("record must survive an endpoint timeout")
	}
}

func TestStatusLive(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)
	pid := mustStart(t, tm, 9100)

	rec, live, err := tm.Status(9100)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !live {
		t.Fatal("running tunnel reported not live")
	}
	if rec.Pid != pid {
		t.Errorf("pid = %d, want %d", rec.Pid, pid)
	}
}

func TestStatusStaleSelfHeals(t *testing.T) {
	tm, _, _ := newTestManager(t)
	// Record on disk, but no session and no process behind it.
	tm.store.PutPid(9100, 4242)
	tm.store.PutDeadline(9100, time.Now().Add(time.Hour), false)

	rec, live, err := tm.Status(9100)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if live {
		t.Fatal("dead tunnel reported live")
	}
	if rec.Port != 9100 {
		t.Errorf("port = %d", rec.Port)
	}
	if tm.store.HasRecord(9100) {
		t.Error("stale record must be deleted by the read")
	}

	if _, _, err := tm.Status(9100); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Status = %v, want ErrNotFound", err)
	}
}

func TestStopRemovesEverything(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)
	pid := mustStart(t, tm, 9100)

	if err := tm.StopTunnel(9100); err != nil {
		t.Fatalf("StopTunnel failed: %v", err)
	}
	if !procs.wasKilled(pid) {
		t.Error("stop must terminate the process")
	}
	if host.Has("cftun-9100") {
		t.Error("stop must kill the session")
	}
	if _, _, err := tm.Status(9100); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Status after stop = %v, want ErrNotFound", err)
	}
	if _, err := tm.Logs(9100); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Logs after stop = %v, want ErrNotFound", err)
	}
}

func TestStopUnknownPort(t *testing.T) {
	tm, _, _ := newTestManager(t)
	if err := tm.StopTunnel(9100); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStopAll(t *testing.T) {
	tm, host, procs := newTestManager(t)

	if stopped := tm.StopAll(); stopped != 0 {
		t.Errorf("StopAll on empty store = %d, want 0", stopped)
	}

	simulateTunnel(tm, host, procs, 100)
	mustStart(t, tm, 9100)
	mustStart(t, tm, 9101)

	if stopped := tm.StopAll(); stopped != 2 {
		t.Errorf("StopAll = %d, want 2", stopped)
	}
	if len(tm.store.ListPorts()) != 0 {
		t.Error("records remain after StopAll")
	}
}

func TestListDropsStaleRecords(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)
	mustStart(t, tm, 9100)

	// A second record with nothing behind it.
	tm.store.PutPid(9200, 4242)
	tm.store.PutDeadline(9200, time.Now().Add(time.Hour), false)

	live := tm.List()
	if len(live) != 1 || live[0].Port != 9100 {
		t.Fatalf("List = %+v, want just port 9100", live)
	}
	if tm.store.HasRecord(9200) {
		t.Error("stale record must be deleted by List")
	}
}

func TestLogsVerbatim(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)
	mustStart(t, tm, 9100)

	output, err := tm.Logs(9100)
	if err != nil {
		t.Fatalf("Logs failed: %v", err)
	}
	if !strings.Contains(output, "port9100-demo.trycloudflare.com") {
		t.Errorf("log output missing endpoint line: %q", output)
	}
}

func TestStartRefusedWhileClaimHeld(t *testing.T) {
	tm, host, procs := newTestManager(t)
	simulateTunnel(tm, host, procs, 100)

	if !tm.store.Claim(9100) {
		t.Fatal("claim refused on empty store")
	}
	_, _, err := tm.StartTunnel(9100, StartOptions{})
	if !errors.Is(err, models.ErrStartInProgress) {
		t.Fatalf("err = %v, want ErrStartInProgress", err)
	}

	tm.store.Release(9100)
	mustStart(t, tm, 9100)
}

package services

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"testing"

	"tunnel-keeper/internal/config"
)

// fakeSession is one in-memory session on the fake host.
type fakeSession struct {
	command string
	pids    []int
}

// fakeHost implements session.Host in memory. The onCreate hook lets a test
// play the part of the spawned tunnel: registering processes and writing
// captured output.
type fakeHost struct {
	sessions    map[string]*fakeSession
	createCount int
	onCreate    func(name, command string)
}

func newFakeHost() *fakeHost {
	return &fakeHost{sessions: map[string]*fakeSession{}}
}

func (h *fakeHost) Create(name, shellCommand string) error {
	if _, ok := h.sessions[name]; ok {
		return fmt.Errorf("duplicate session %s", name)
	}
	h.sessions[name] = &fakeSession{command: shellCommand}
	h.createCount++
	if h.onCreate != nil {
		h.onCreate(name, shellCommand)
	}
	return nil
}

func (h *fakeHost) Kill(name string) error {
	if _, ok := h.sessions[name]; !ok {
		return fmt.Errorf("no session %s", name)
	}
	delete(h.sessions, name)
	return nil
}

func (h *fakeHost) Has(name string) bool {
	_, ok := h.sessions[name]
	return ok
}

func (h *fakeHost) List(prefix string) ([]string, error) {
	var names []string
	for name := range h.sessions {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (h *fakeHost) Children(name string) ([]int, error) {
	sess, ok := h.sessions[name]
	if !ok {
		return nil, nil
	}
	return sess.pids, nil
}

// fakeProcs implements ProcessTable over maps. Matches goes by registered
// name only so a test can model a process that died mid-startup.
type fakeProcs struct {
	alive  map[int]bool
	names  map[int]string
	killed []int
}

func newFakeProcs() *fakeProcs {
	return &fakeProcs{alive: map[int]bool{}, names: map[int]string{}}
}

func (p *fakeProcs) add(pid int, name string) {
	p.alive[pid] = true
	p.names[pid] = name
}

func (p *fakeProcs) Alive(pid int) bool { return p.alive[pid] }

func (p *fakeProcs) Matches(pid int, name string) bool { return p.names[pid] == name }

func (p *fakeProcs) Kill(pid int, name string) error {
	if p.names[pid] != name {
		return nil
	}
	p.killed = append(p.killed, pid)
	p.alive[pid] = false
	return nil
}

func (p *fakeProcs) wasKilled(pid int) bool {
	for _, k := range p.killed {
		if k == pid {
			return true
		}
	}
	return false
}

func testConfig() *config.TunnelConfig {
	return &config.TunnelConfig{
		Command:             "cloudflared",
		Args:                []string{"tunnel", "--no-autoupdate", "--url", "{{.Protocol}}://localhost:{{.Port}}"},
		ProcessName:         "cloudflared",
		EndpointSuffix:      "trycloudflare.com",
		SessionPrefix:       "cftun",
		MaxTunnels:          2,
		DefaultTTL:          "2h",
		PidWaitSeconds:      1,
		EndpointWaitSeconds: 1,
	}
}

// newTestManager wires a manager over a temp store, a fake host and a fake
// process table.
func newTestManager(t *testing.T) (*TunnelManager, *fakeHost, *fakeProcs) {
	t.Helper()
	host := newFakeHost()
	procs := newFakeProcs()
	tm := NewTunnelManager(testConfig(), host, NewRecordStore(t.TempDir()))
	tm.setProcessTable(procs)
	return tm, host, procs
}

// simulateTunnel makes the next session creations behave like a healthy
// tunnel: the process appears immediately and prints its assigned endpoint
// to the captured log. PIDs are handed out sequentially from base.
func simulateTunnel(tm *TunnelManager, host *fakeHost, procs *fakeProcs, base int) {
	next := base
	host.onCreate = func(name, command string) {
		pid := next
		next++
		host.sessions[name].pids = []int{pid}
		procs.add(pid, tm.cfg.ProcessName)
		port := 0
		fmt.Sscanf(name, tm.cfg.SessionPrefix+"-%d", &port)
		url := fmt.Sprintf("https://port%d-demo.%s\n", port, tm.cfg.EndpointSuffix)
		os.WriteFile(tm.store.LogPath(port), []byte(url), 0644)
	}
}

// mustStart starts a tunnel that is expected to come up cleanly.
func mustStart(t *testing.T, tm *TunnelManager, port int) int {
	t.Helper()
	rec, already, err := tm.StartTunnel(port, StartOptions{})
	if err != nil {
		t.Fatalf("StartTunnel(%d) failed: %v", port, err)
	}
	if already {
		t.Fatalf("StartTunnel(%d) reported already running on first start", port)
	}
	return rec.Pid
}

package session

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// commandTimeout bounds every tmux invocation; tmux answering slowly is
// treated the same as tmux being absent.
const commandTimeout = 2 * time.Second

// TmuxHost implements Host on top of a dedicated tmux server. A private
// socket keeps keeper sessions apart from the user's own tmux server.
type TmuxHost struct {
	socket string
}

// NewTmuxHost returns a Host backed by tmux on the given socket name.
func NewTmuxHost(socket string) *TmuxHost {
	return &TmuxHost{socket: socket}
}

// run executes one tmux invocation against the host's socket and returns
// its combined output.
func (h *TmuxHost) run(args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	fullArgs := append([]string{"-L", h.socket}, args...)
	return exec.CommandContext(ctx, "tmux", fullArgs...).CombinedOutput()
}

func (h *TmuxHost) Create(name, shellCommand string) error {
	if out, err := h.run("new-session", "-d", "-s", name, shellCommand); err != nil {
		return fmt.Errorf("tmux new-session %s: %v: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (h *TmuxHost) Kill(name string) error {
	if out, err := h.run("kill-session", "-t", "="+name); err != nil {
		return fmt.Errorf("tmux kill-session %s: %v: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (h *TmuxHost) Has(name string) bool {
	// "=" forces an exact match; without it tmux matches by prefix and
	// cftun-910 would shadow cftun-9100.
	_, err := h.run("has-session", "-t", "="+name)
	return err == nil
}

func (h *TmuxHost) List(prefix string) ([]string, error) {
	output, err := h.run("list-sessions", "-F", "#{session_name}")
	if err != nil {
		// No server running means no sessions, not a failure.
		return nil, nil
	}
	var names []string
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, prefix) {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

/**
 * Children returns the live process tree of the session's pane
 * @param {string} name - Session name
 * @returns {([]int, error)} Pane PID plus its descendants, outermost first
 * @description
 * - Resolves the pane PID via tmux display-message
 * - Walks the process tree below it with gopsutil
 * - The pane process itself is included: when the shell execs the command
 *   directly the pane PID is the command
 * - A session whose pane is gone yields an empty slice, not an error
 */
func (h *TmuxHost) Children(name string) ([]int, error) {
	panePid := h.panePid(name)
	if panePid <= 0 {
		return nil, nil
	}
	return append([]int{panePid}, descendants(panePid)...), nil
}

// panePid returns the PID of the pane's root process, 0 when unavailable.
func (h *TmuxHost) panePid(name string) int {
	output, err := h.run("display-message", "-t", "="+name, "-p", "#{pane_pid}")
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(output)))
	if err != nil {
		return 0
	}
	return pid
}

// descendants walks the process tree below pid, depth first.
func descendants(pid int) []int {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}
	children, err := proc.Children()
	if err != nil {
		return nil
	}
	var pids []int
	for _, child := range children {
		pids = append(pids, int(child.Pid))
		pids = append(pids, descendants(int(child.Pid))...)
	}
	return pids
}

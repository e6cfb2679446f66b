// Package session abstracts the terminal-multiplexer host that gives each
// tunnel process an isolated, inspectable execution context. The production
// implementation shells out to tmux; tests substitute an in-memory fake.
package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Host is the capability surface the lifecycle manager and the reaper need
// from the session host. One session runs one shell command line.
type Host interface {
	// Create starts a detached session running the given shell command.
	Create(name, shellCommand string) error
	// Kill destroys the named session and everything inside it.
	Kill(name string) error
	// Has reports whether the named session currently exists.
	Has(name string) bool
	// List returns the names of existing sessions starting with prefix.
	List(prefix string) ([]string, error)
	// Children returns the live descendant PIDs of the session's command.
	Children(name string) ([]int, error)
}

// Name derives the session name for a port. The mapping is deterministic so
// a record never has to store it and orphan sessions can be traced back.
func Name(prefix string, port int) string {
	return fmt.Sprintf("%s-%d", prefix, port)
}

// PortFromName recovers the port from a session name produced by Name.
// Returns false for names outside the naming convention.
func PortFromName(prefix, name string) (int, bool) {
	rest, found := strings.CutPrefix(name, prefix+"-")
	if !found {
		return 0, false
	}
	port, err := strconv.Atoi(rest)
	if err != nil || port <= 0 {
		return 0, false
	}
	return port, true
}

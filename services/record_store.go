package services

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"tunnel-keeper/internal/logger"
)

// Artifact suffixes. Each port owns up to four files in the store
// directory; every file holds exactly one fact so a concurrent reader can
// never observe a half-written record.
const (
	pidSuffix = ".pid"
	urlSuffix = ".url"
	ttlSuffix = ".ttl"
	logSuffix = ".log"
)

// lockSuffix marks an in-flight start claim, not a state artifact.
const lockSuffix = ".lck"

// foreverMark is the ttl artifact content for non-expiring tunnels.
const foreverMark = "forever"

// RecordStore persists per-port tunnel state as flat files. There is no
// cross-port transactionality; each port's artifacts are owned exclusively
// by whichever operation names that port.
type RecordStore struct {
	dir string
}

// NewRecordStore returns a store rooted at dir. The directory is created
// lazily on first write.
func NewRecordStore(dir string) *RecordStore {
	return &RecordStore{dir: dir}
}

func (s *RecordStore) artifact(port int, suffix string) string {
	return filepath.Join(s.dir, strconv.Itoa(port)+suffix)
}

// LogPath returns the captured-output file for a port. The file belongs to
// the record and is removed with it.
func (s *RecordStore) LogPath(port int) string {
	return s.artifact(port, logSuffix)
}

// HasRecord reports whether any state artifact exists for the port. An
// incomplete record (some artifacts missing) still counts.
func (s *RecordStore) HasRecord(port int) bool {
	for _, suffix := range []string{pidSuffix, urlSuffix, ttlSuffix} {
		if _, err := os.Stat(s.artifact(port, suffix)); err == nil {
			return true
		}
	}
	return false
}

// GetPid returns the recorded process id for the port, 0 when absent or
// unreadable.
func (s *RecordStore) GetPid(port int) int {
	data, err := os.ReadFile(s.artifact(port, pidSuffix))
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// GetURL returns the recorded public endpoint, "" when not yet discovered.
func (s *RecordStore) GetURL(port int) string {
	data, err := os.ReadFile(s.artifact(port, urlSuffix))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// GetDeadline returns the recorded expiry. forever is true for tunnels
// without one; a missing or corrupt artifact reads as forever with a zero
// deadline, which only affects reporting.
func (s *RecordStore) GetDeadline(port int) (time.Time, bool) {
	data, err := os.ReadFile(s.artifact(port, ttlSuffix))
	if err != nil {
		return time.Time{}, true
	}
	text := strings.TrimSpace(string(data))
	if text == foreverMark {
		return time.Time{}, true
	}
	deadline, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, true
	}
	return deadline, false
}

// PutPid records the process id. Written once per record; a new attempt on
// the same port goes through Delete first.
func (s *RecordStore) PutPid(port, pid int) error {
	return s.write(s.artifact(port, pidSuffix), strconv.Itoa(pid))
}

// PutURL records the discovered public endpoint.
func (s *RecordStore) PutURL(port int, url string) error {
	return s.write(s.artifact(port, urlSuffix), url)
}

// PutDeadline records the absolute expiry, or the forever mark.
func (s *RecordStore) PutDeadline(port int, deadline time.Time, forever bool) error {
	if forever {
		return s.write(s.artifact(port, ttlSuffix), foreverMark)
	}
	return s.write(s.artifact(port, ttlSuffix), deadline.Format(time.RFC3339))
}

// TruncateLog creates or empties the port's log file so endpoint discovery
// never matches output from an earlier tunnel on the same port.
func (s *RecordStore) TruncateLog(port int) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return os.WriteFile(s.LogPath(port), nil, 0644)
}

// Delete removes every artifact of the port, log included. Missing files
// are fine; partial records delete cleanly.
func (s *RecordStore) Delete(port int) {
	for _, suffix := range []string{pidSuffix, urlSuffix, ttlSuffix, logSuffix} {
		path := s.artifact(port, suffix)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Errorf("Failed to delete %s: %v", path, err)
		}
	}
}

// ListPorts returns every port with at least one state artifact, sorted.
// The log file alone does not constitute a record.
func (s *RecordStore) ListPorts() []int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil
	}
	seen := make(map[int]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if ext != pidSuffix && ext != urlSuffix && ext != ttlSuffix {
			continue
		}
		port, err := strconv.Atoi(strings.TrimSuffix(name, ext))
		if err != nil || port <= 0 {
			continue
		}
		seen[port] = true
	}
	ports := make([]int, 0, len(seen))
	for port := range seen {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}

// claimTTL bounds how long a crashed invocation can block a port. Start
// itself is bounded well below this.
const claimTTL = time.Minute

// Claim atomically marks a port as being started, closing the
// check-then-act window between two concurrent start invocations on the
// same port. Returns false while another invocation holds the claim.
func (s *RecordStore) Claim(port int) bool {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return false
	}
	path := s.artifact(port, lockSuffix)
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return true
		}
		if !os.IsExist(err) {
			return false
		}
		// A claim this old belongs to a crashed start; break it once.
		info, statErr := os.Stat(path)
		if statErr != nil || time.Since(info.ModTime()) < claimTTL {
			return false
		}
		os.Remove(path)
	}
	return false
}

// Release frees a claim taken with Claim.
func (s *RecordStore) Release(port int) {
	os.Remove(s.artifact(port, lockSuffix))
}

// write lands one fact in one file via write-then-rename so a concurrent
// reader sees either the old fact or the new one, never a torn write.
func (s *RecordStore) write(path, content string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to commit %s: %w", path, err)
	}
	return nil
}

package services

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestRecordStoreRoundTrip(t *testing.T) {
	store := NewRecordStore(t.TempDir())

	if store.HasRecord(9100) {
		t.Fatal("empty store reports a record")
	}

	if err := store.PutPid(9100, 1234); err != nil {
		t.Fatalf("PutPid failed: %v", err)
	}
	deadline := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := store.PutDeadline(9100, deadline, false); err != nil {
		t.Fatalf("PutDeadline failed: %v", err)
	}
	if err := store.PutURL(9100, "https://demo.trycloudflare.com"); err != nil {
		t.Fatalf("PutURL failed: %v", err)
	}

	if got := store.GetPid(9100); got != 1234 {
		t.Errorf("GetPid = %d, want 1234", got)
	}
	if got := store.GetURL(9100); got != "https://demo.trycloudflare.com" {
		t.Errorf("GetURL = %q", got)
	}
	got, forever := store.GetDeadline(9100)
	if forever {
		t.Error("finite deadline read back as forever")
	}
	if !got.Equal(deadline) {
		t.Errorf("GetDeadline = %s, want %s", got, deadline)
	}
}

func TestRecordStoreForeverDeadline(t *testing.T) {
	store := NewRecordStore(t.TempDir())
	if err := store.PutDeadline(9100, time.Time{}, true); err != nil {
		t.Fatalf("PutDeadline failed: %v", err)
	}
	if _, forever := store.GetDeadline(9100); !forever {
		t.Error("forever mark not read back")
	}
}

func TestRecordStorePartialRecord(t *testing.T) {
	store := NewRecordStore(t.TempDir())
	// Only the deadline artifact exists: still a record, just incomplete.
	if err := store.PutDeadline(9100, time.Now(), false); err != nil {
		t.Fatalf("PutDeadline failed: %v", err)
	}
	if !store.HasRecord(9100) {
		t.Error("partial record not reported")
	}
	if got := store.GetPid(9100); got != 0 {
		t.Errorf("missing pid artifact read as %d", got)
	}
	if got := store.GetURL(9100); got != "" {
		t.Errorf("missing url artifact read as %q", got)
	}
}

func TestRecordStoreListPorts(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir)
	store.PutPid(9300, 1)
	store.PutPid(9100, 2)
	store.PutDeadline(9200, time.Now(), true)
	// A log without any state artifact is not a record.
	store.TruncateLog(9900)
	// Leftover temp file from an interrupted write must be ignored.
	os.WriteFile(filepath.Join(dir, "9500.pid.tmp"), []byte("7"), 0644)

	if got, want := store.ListPorts(), []int{9100, 9200, 9300}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListPorts = %v, want %v", got, want)
	}
}

func TestRecordStoreDeleteRemovesAllArtifacts(t *testing.T) {
	store := NewRecordStore(t.TempDir())
	store.PutPid(9100, 1234)
	store.PutDeadline(9100, time.Now(), true)
	store.PutURL(9100, "https://demo.trycloudflare.com")
	store.TruncateLog(9100)

	store.Delete(9100)

	if store.HasRecord(9100) {
		t.Error("record artifacts survive Delete")
	}
	if _, err := os.Stat(store.LogPath(9100)); !os.IsNotExist(err) {
		t.Error("log survives Delete")
	}
	// Deleting again is fine.
	store.Delete(9100)
}

func TestRecordStoreClaim(t *testing.T) {
	dir := t.TempDir()
	store := NewRecordStore(dir)

	if !store.Claim(9100) {
		t.Fatal("first claim refused")
	}
	if store.Claim(9100) {
		t.Error("second claim granted while first is held")
	}
	if !store.Claim(9200) {
		t.Error("claim on a different port refused")
	}

	store.Release(9100)
	if !store.Claim(9100) {
		t.Error("claim refused after release")
	}

	// A claim left behind by a crash is broken once it is old enough.
	stale := filepath.Join(dir, "9300.lck")
	if err := os.WriteFile(stale, nil, 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-2 * claimTTL)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatal(err)
	}
	if !store.Claim(9300) {
		t.Error("expired claim not broken")
	}
}

func TestRecordStoreListPortsIgnoresClaims(t *testing.T) {
	store := NewRecordStore(t.TempDir())
	store.Claim(9100)
	if got := store.ListPorts(); len(got) != 0 {
		t.Errorf("ListPorts = %v, want empty", got)
	}
}

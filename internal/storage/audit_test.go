package storage

import (
	"os"
	"testing"
)

func TestAuditRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "orinoco-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	entries := []string{
		"Thu Feb 20, 2025 at 11:00:00 GMT: alice -> np",
		"Thu Feb 20, 2025 at 12:00:00 GMT: bob -> follow alice",
	}

	if err := SaveAudit(tmpDir, entries); err != nil {
		t.Fatalf("SaveAudit failed: %v", err)
	}

	loaded, err := LoadAudit(tmpDir)
	if err != nil {
		t.Fatalf("LoadAudit failed: %v", err)
	}

	if len(loaded) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(loaded))
	}
	for i := range entries {
		if loaded[i] != entries[i] {
			t.Errorf("Entry %d mismatch: expected %q, got %q", i, entries[i], loaded[i])
		}
	}
}

func TestLoadAuditMissing(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "orinoco-test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmpDir)

	entries, err := LoadAudit(tmpDir)
	if err != nil {
		t.Fatalf("LoadAudit should not fail for a missing file: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %v", entries)
	}
}

func TestAddAuditMaxEntries(t *testing.T) {
	entries := make([]string, 500)
	for i := range entries {
		entries[i] = "entry"
	}

	entries = AddAudit(entries, "new")

	if len(entries) != 500 {
		t.Errorf("Expected 500 entries (max), got %d", len(entries))
	}
	if entries[len(entries)-1] != "new" {
		t.Error("New entry should be last")
	}
}

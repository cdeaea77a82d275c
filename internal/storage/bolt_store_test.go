package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestBoltStoreSavesAndLoadsRecords(t *testing.T) {
	dir := t.TempDir()

	storeRaw, err := openBolt(filepath.Join(dir, "nested", "values.db"), Options{})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	_, found, err := store.Load(1)
	if err != nil || found {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}

	if err := store.Save(1, Record{DataValue: 42}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, found, err := store.Load(1)
	if err != nil || !found {
		t.Fatalf("expected stored record, found=%v err=%v", found, err)
	}
	if rec.DataValue != 42 || rec.ErrorMessage != nil {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.UpdatedAt.IsZero() {
		t.Fatalf("expected UpdatedAt to be stamped")
	}

	msg := "The number must be in the range [0..9999]"
	if err := store.Save(1, Record{DataValue: 12345, ErrorMessage: &msg}); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}
	rec, _, err = store.Load(1)
	if err != nil {
		t.Fatalf("Load after overwrite: %v", err)
	}
	if rec.ErrorMessage == nil || *rec.ErrorMessage != msg {
		t.Fatalf("expected error message %q, got %+v", msg, rec.ErrorMessage)
	}
}

func TestBoltStoreExpiresRecords(t *testing.T) {
	dir := t.TempDir()

	storeRaw, err := openBolt(filepath.Join(dir, "values.db"), Options{TTL: time.Second})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	if err := store.Save(7, Record{DataValue: 7}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Let the one-second TTL lapse.
	time.Sleep(1100 * time.Millisecond)

	_, found, err := store.Load(7)
	if err != nil {
		t.Fatalf("Load after expiry: %v", err)
	}
	if found {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestBoltStoreSweepsExpiredRowsOnSave(t *testing.T) {
	dir := t.TempDir()

	storeRaw, err := openBolt(filepath.Join(dir, "values.db"), Options{TTL: time.Second})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	if err := store.Save(2, Record{DataValue: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	// Fast-forward cleanup cadence so the next Save sweeps.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	if err := store.Save(3, Record{DataValue: 3}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, found, _ := store.Load(2); found {
		t.Fatalf("expected swept row to be gone")
	}
	if _, found, _ := store.Load(3); !found {
		t.Fatalf("expected fresh row to survive the sweep")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Save(1, Record{DataValue: 1}); err != nil {
		t.Fatalf("noop store Save: %v", err)
	}
	if _, found, _ := store.Load(1); found {
		t.Fatalf("noop store should never find rows")
	}
}

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore(" Memory ", "", Options{TTL: -time.Second})
	if err != nil {
		t.Fatalf("NewStore memory: %v", err)
	}
	defer store.Close()

	if err := store.Save(1, Record{DataValue: 9}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, found, err := store.Load(1)
	if err != nil || !found || rec.DataValue != 9 {
		t.Fatalf("unexpected load rec=%+v found=%v err=%v", rec, found, err)
	}
}

func TestNewStoreRejectsBadConfig(t *testing.T) {
	if _, err := NewStore("bbolt", "  ", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}
}

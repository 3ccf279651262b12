package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestManager(t *testing.T, intervalHours, retentionCount int) *Manager {
	t.Helper()
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "memory.db"), []byte("fake-db"), 0o644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}
	backupDir := filepath.Join(t.TempDir(), "backups")
	return NewManager(dataDir, backupDir, intervalHours, retentionCount, zerolog.Nop())
}

func TestCreateIfDueCreatesWhenNoPriorBackup(t *testing.T) {
	m := newTestManager(t, 24, 5)
	path, err := m.TickIfDue(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == "" {
		t.Fatalf("expected a backup to be created")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected archive at %s: %v", path, err)
	}
}

func TestCreateIfDueSkipsWhenRecentBackupExists(t *testing.T) {
	m := newTestManager(t, 24, 5)
	ctx := context.Background()
	if path, err := m.TickIfDue(ctx); err != nil || path == "" {
		t.Fatalf("setup backup failed: path=%q err=%v", path, err)
	}
	path, err := m.TickIfDue(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no backup since interval has not elapsed")
	}
}

func TestCreateIfDueConcurrentCallersCreateExactlyOnce(t *testing.T) {
	m := newTestManager(t, 24*365, 5)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			path, err := m.TickIfDue(ctx)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if path != "" {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Fatalf("expected exactly one concurrent caller to create a backup, got %d", createdCount)
	}
}

func TestCleanupRetainsOnlyNewestBackups(t *testing.T) {
	m := newTestManager(t, 24, 2)

	// Create three backups with distinct, increasing fabricated timestamps
	// by writing archive files directly rather than waiting on wall time.
	times := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		t.Fatalf("mkdir backup dir: %v", err)
	}
	for _, ts := range times {
		name := filenamePrefix + ts.Format(filenameTimeLayout) + ".zip"
		if err := os.WriteFile(filepath.Join(m.backupDir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write fixture backup: %v", err)
		}
	}

	if err := m.cleanupUnlocked(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	entries, err := m.listUnlocked()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 retained backups, got %d", len(entries))
	}
	if !entries[0].CreatedAt.Equal(times[2]) || !entries[1].CreatedAt.Equal(times[1]) {
		t.Fatalf("expected newest two backups retained, got %+v", entries)
	}
}

func TestListIgnoresFilesWithUnparsableNames(t *testing.T) {
	m := newTestManager(t, 24, 5)
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		t.Fatalf("mkdir backup dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(m.backupDir, "not-a-backup.zip"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(m.backupDir, filenamePrefix+"garbage.zip"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	entries, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected unparsable filenames to be skipped, got %+v", entries)
	}
}

func TestInvalidateCacheForcesRescan(t *testing.T) {
	m := newTestManager(t, 24, 5)
	ctx := context.Background()
	if path, err := m.TickIfDue(ctx); err != nil || path == "" {
		t.Fatalf("setup backup failed: path=%q err=%v", path, err)
	}

	m.InvalidateCache()
	m.mu.Lock()
	initialized := m.cacheInitialized
	m.mu.Unlock()
	if initialized {
		t.Fatalf("expected cache to be marked uninitialized after invalidation")
	}

	last, err := m.LastTimestamp(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if last == nil {
		t.Fatalf("expected a backup timestamp to be found on disk")
	}
}

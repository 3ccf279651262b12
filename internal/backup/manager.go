// Package backup implements self-backup (C5): periodic zip snapshots of the
// data directory, with timestamp-in-filename tracking and retention
// pruning. Grounded line-for-line on utils/backup.py — the double-checked
// locking, the filename-parsed (not mtime-based) "last backup" cache, and
// the hold-the-lock-across-check-and-create rule that makes TickIfDue
// safe under concurrent callers.
package backup

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	filenamePrefix     = "memory_backup_"
	filenameTimeLayout = "2006-01-02_15-04-05"
)

// Entry describes one backup archive on disk.
type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SizeMB    float64   `json:"size_mb"`
	CreatedAt time.Time `json:"created"`
}

// Manager owns the backup directory for a single data directory. All state
// (the cached last-backup timestamp) is guarded by mu, matching the
// original's module-level _backup_lock.
type Manager struct {
	dataDir        string
	backupDir      string
	intervalHours  int
	retentionCount int
	logger         zerolog.Logger

	mu                sync.Mutex
	lastBackup        *time.Time
	cacheInitialized  bool

	cron *cron.Cron
}

// NewManager returns a Manager. dataDir is the directory snapshotted into
// each backup archive (the relational database file's directory);
// backupDir is where archives are written.
func NewManager(dataDir, backupDir string, intervalHours, retentionCount int, logger zerolog.Logger) *Manager {
	return &Manager{
		dataDir:        dataDir,
		backupDir:      backupDir,
		intervalHours:  intervalHours,
		retentionCount: retentionCount,
		logger:         logger.With().Str("component", "backup").Logger(),
	}
}

func parseBackupTimestamp(name string) (time.Time, bool) {
	base := strings.TrimSuffix(filepath.Base(name), ".zip")
	ts := strings.TrimPrefix(base, filenamePrefix)
	t, err := time.Parse(filenameTimeLayout, ts)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// LastTimestamp scans the backup directory and returns the most recent
// timestamp parsed from a backup filename, or nil if there are no valid
// backups. It never touches file modification times.
func (m *Manager) LastTimestamp(_ context.Context) (*time.Time, error) {
	entries, err := os.ReadDir(m.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	var latest *time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filenamePrefix) || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		t, ok := parseBackupTimestamp(e.Name())
		if !ok {
			m.logger.Warn().Str("name", e.Name()).Msg("skipping backup with invalid filename")
			continue
		}
		if latest == nil || t.After(*latest) {
			latest = &t
		}
	}
	return latest, nil
}

// shouldCreateUnlocked mirrors _should_create_backup_unlocked: lazily
// initializes the cache on first call, then compares elapsed time against
// the configured interval. Callers must hold mu.
func (m *Manager) shouldCreateUnlocked() (bool, error) {
	if !m.cacheInitialized {
		t, err := m.LastTimestamp(context.Background())
		if err != nil {
			return false, err
		}
		m.lastBackup = t
		m.cacheInitialized = true
	}
	if m.lastBackup == nil {
		return true, nil
	}
	return time.Since(*m.lastBackup) >= time.Duration(m.intervalHours)*time.Hour, nil
}

// createUnlocked mirrors _create_backup_unlocked: archive the data
// directory, prune old backups, and update the cache. Callers must hold mu.
func (m *Manager) createUnlocked() (string, error) {
	if err := os.MkdirAll(m.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	now := time.Now()
	name := filenamePrefix + now.Format(filenameTimeLayout) + ".zip"
	path := filepath.Join(m.backupDir, name)

	m.logger.Info().Str("name", name).Msg("creating backup")
	if err := archiveDir(path, m.dataDir); err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}

	if err := m.cleanupUnlocked(); err != nil {
		m.logger.Error().Err(err).Msg("failed to clean up old backups")
	}

	m.lastBackup = &now
	m.logger.Info().Str("path", path).Msg("backup created successfully")
	return path, nil
}

func archiveDir(destZip, srcDir string) error {
	f, err := os.Create(destZip) //nolint:gosec // destZip is built from a trusted configured path
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	zw := zip.NewWriter(f)
	defer zw.Close() //nolint:errcheck

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(rel)
		if err != nil {
			return err
		}
		src, err := os.Open(path) //nolint:gosec // path comes from walking a trusted configured directory
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck
		_, err = io.Copy(w, src)
		return err
	})
}

// TickIfDue atomically checks whether a backup is due and creates one if
// so, holding the lock across both steps — the fix for the TOCTOU race
// between a separate "should I?" and "do it" call. Returns the empty
// string with a nil error if no backup was due.
func (m *Manager) TickIfDue(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	due, err := m.shouldCreateUnlocked()
	if err != nil {
		return "", err
	}
	if !due {
		return "", nil
	}
	return m.createUnlocked()
}

// Create forces a backup regardless of whether one is due.
func (m *Manager) Create(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createUnlocked()
}

func (m *Manager) cleanupUnlocked() error {
	entries, err := m.listUnlocked()
	if err != nil {
		return err
	}
	if len(entries) <= m.retentionCount {
		return nil
	}
	for _, e := range entries[m.retentionCount:] {
		m.logger.Info().Str("name", e.Name).Msg("deleting old backup")
		if err := os.Remove(e.Path); err != nil {
			m.logger.Error().Err(err).Str("name", e.Name).Msg("failed to delete old backup")
		}
	}
	return nil
}

func (m *Manager) listUnlocked() ([]Entry, error) {
	dirEntries, err := os.ReadDir(m.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasPrefix(de.Name(), filenamePrefix) || !strings.HasSuffix(de.Name(), ".zip") {
			continue
		}
		t, ok := parseBackupTimestamp(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:      de.Name(),
			Path:      filepath.Join(m.backupDir, de.Name()),
			SizeMB:    roundMB(info.Size()),
			CreatedAt: t,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

func roundMB(bytes int64) float64 {
	mb := float64(bytes) / (1024 * 1024)
	return math.Round(mb*100) / 100
}

// List returns every backup, newest first.
func (m *Manager) List(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listUnlocked()
}

// InvalidateCache forces the next TickIfDue call to re-read the backup
// directory instead of trusting the cached timestamp.
func (m *Manager) InvalidateCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBackup = nil
	m.cacheInitialized = false
	m.logger.Info().Msg("backup cache invalidated")
}

// StartScheduler runs TickIfDue on a fixed interval using robfig/cron's
// ConstantDelaySchedule — the same schedule primitive the agent package
// uses for duration-based wake schedules, here driving an idle tick rather
// than an agent wake.
func (m *Manager) StartScheduler(ctx context.Context, scanInterval time.Duration) {
	m.cron = cron.New()
	m.cron.Schedule(cron.ConstantDelaySchedule{Delay: scanInterval}, cron.FuncJob(func() {
		path, err := m.TickIfDue(ctx)
		if err != nil {
			m.logger.Error().Err(err).Msg("backup tick failed")
			return
		}
		if path != "" {
			m.logger.Info().Str("path", path).Msg("scheduled backup created")
		}
	}))
	m.cron.Start()
	m.logger.Info().Dur("scan_interval", scanInterval).Msg("backup scheduler started")
}

// StopScheduler stops the cron scheduler, if one was started.
func (m *Manager) StopScheduler() {
	if m.cron != nil {
		m.cron.Stop()
	}
}

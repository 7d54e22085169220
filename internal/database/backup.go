package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"bigman/internal/config"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// BackupService periodically snapshots the sqlite file into the
// configured storage directory and prunes snapshots past retention.
type BackupService struct {
	dbPath    string
	storage   string
	interval  time.Duration
	retention int
	logger    *zerolog.Logger
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	interval := 24 * time.Hour
	if cfg.Schedule != "" {
		if d, err := time.ParseDuration(cfg.Schedule); err == nil {
			interval = d
		} else {
			logger.Warn().Err(err).Str("schedule", cfg.Schedule).Msg("bad backup schedule, using 24h")
		}
	}
	return &BackupService{
		dbPath:    dbPath,
		storage:   cfg.StoragePath,
		interval:  interval,
		retention: cfg.RetentionDays,
		logger:    logger,
	}
}

// Start backs up immediately, then on every tick until ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	s.logger.Info().Dur("interval", s.interval).Str("storage", s.storage).Msg("backup service started")

	if err := s.Snapshot(); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.prune()
		}
	}
}

// Snapshot writes a consistent copy of the database file. VACUUM INTO
// is safe against concurrent writers; a plain file copy is only a last
// resort when it fails.
func (s *BackupService) Snapshot() error {
	if err := os.MkdirAll(s.storage, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	target := filepath.Join(s.storage, fmt.Sprintf("backup_%s.db", time.Now().Format("20060102_150405")))

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(fmt.Sprintf("VACUUM INTO '%s'", target)); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, copying file instead")
		return copyFile(s.dbPath, target)
	}

	s.logger.Info().Str("path", target).Msg("backup written")
	return nil
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destination.Close()

	_, err = io.Copy(destination, source)
	return err
}

func (s *BackupService) prune() {
	if s.retention <= 0 {
		return
	}

	entries, err := os.ReadDir(s.storage)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.retention)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", entry.Name()).Msg("removing expired backup")
			os.Remove(filepath.Join(s.storage, entry.Name()))
		}
	}
}

package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/config"
)

// BackupService snapshots the SQLite file on an interval and prunes old
// snapshots. A plain file copy is a consistent backup here: the database
// runs with a single writer and no WAL sidecar files.
type BackupService struct {
	dbPath string
	cfg    config.BackupConfig
	logger zerolog.Logger
}

// NewBackupService creates the snapshot job for the given database file.
func NewBackupService(dbPath string, cfg config.BackupConfig, logger zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath: dbPath,
		cfg:    cfg,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Start runs the snapshot loop until ctx is cancelled. It takes one
// snapshot immediately, then one per configured interval.
func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("database backups disabled")
		return
	}

	interval := time.Duration(s.cfg.IntervalHours) * time.Hour
	s.logger.Info().
		Dur("interval", interval).
		Str("storage_path", s.cfg.StoragePath).
		Msg("backup service started")

	if err := s.Snapshot(); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Snapshot(); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.pruneOldSnapshots()
		}
	}
}

// Snapshot copies the database file into the backup directory under a
// timestamped name.
func (s *BackupService) Snapshot() error {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("courtside_%s.db", time.Now().UTC().Format("20060102_150405"))
	dst := filepath.Join(s.cfg.StoragePath, name)

	source, err := os.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("open database file: %w", err)
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("copy database: %w", err)
	}

	s.logger.Info().Str("path", dst).Msg("backup written")
	return nil
}

func (s *BackupService) pruneOldSnapshots() {
	if s.cfg.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("pruning old backup")
			_ = os.Remove(filepath.Join(s.cfg.StoragePath, file.Name()))
		}
	}
}

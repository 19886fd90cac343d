package common

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// RunsDirName is the directory under the storage root that holds per-run directories.
const RunsDirName = "runs"

// RetentionSweeper periodically deletes expired run directories.
type RetentionSweeper struct {
	root      string
	maxAge    time.Duration
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
	scheduler gocron.Scheduler
}

// NewRetentionSweeper creates a sweeper over <storageRoot>/runs.
func NewRetentionSweeper(storageRoot string, cfg RetentionConfig, logger *slog.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		root:     filepath.Join(storageRoot, RunsDirName),
		maxAge:   cfg.MaxAge.Std(),
		interval: cfg.Interval.Std(),
		now:      time.Now,
		logger:   LoggerOrDefault(logger),
	}
}

// Start schedules the sweep every interval, running once immediately.
func (s *RetentionSweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.sweepAndLog),
		gocron.WithName("retention-sweep"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to create retention job: %w", err)
	}

	s.scheduler = sched
	sched.Start()
	s.logger.Info("Retention sweeper started",
		slog.String("root", s.root),
		slog.Duration("max_age", s.maxAge),
		slog.Duration("interval", s.interval))
	return nil
}

// Stop shuts the scheduler down.
func (s *RetentionSweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

func (s *RetentionSweeper) sweepAndLog() {
	deleted, err := s.Sweep()
	if err != nil {
		s.logger.Warn("Retention sweep failed", Error(err))
		return
	}
	s.logger.Info("Retention sweep complete", slog.Int("deleted", len(deleted)))
}

// Sweep deletes run directories whose modification time is older than maxAge and
// returns the deleted paths. A missing runs directory is not an error.
func (s *RetentionSweeper) Sweep() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cutoff := s.now().Add(-s.maxAge)
	var deleted []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.logger.Warn("Could not delete run directory", slog.String("path", path), Error(err))
			continue
		}
		deleted = append(deleted, path)
	}
	return deleted, nil
}

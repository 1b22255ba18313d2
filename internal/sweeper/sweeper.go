// Package sweeper removes aged chart artifacts from the output directory on a
// cron schedule.
package sweeper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sweeper deletes chart PNGs older than the retention window.
type Sweeper struct {
	Cron   *cron.Cron
	Dir    string
	MaxAge time.Duration
}

// New creates a Sweeper for the given directory and retention in days.
func New(dir string, maxAgeDays int) *Sweeper {
	return &Sweeper{
		Cron:   cron.New(cron.WithSeconds()),
		Dir:    dir,
		MaxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
	}
}

// Register schedules the sweep.
func (s *Sweeper) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.Sweep(time.Now()) }); err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Sweeper) Start() {
	s.Cron.Start()
	log.Info().Str("dir", s.Dir).Dur("max_age", s.MaxAge).Msg("retention sweeper started")
}

// Stop stops the cron scheduler gracefully.
func (s *Sweeper) Stop() {
	s.Cron.Stop()
	log.Info().Msg("retention sweeper stopped")
}

// Sweep removes PNG files whose modification time predates now minus the
// retention window. Subdirectories are left alone.
func (s *Sweeper) Sweep(now time.Time) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		log.Error().Err(err).Str("dir", s.Dir).Msg("sweep: read directory")
		return
	}

	cutoff := now.Add(-s.MaxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.Dir, e.Name())
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("sweep: remove")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Str("dir", s.Dir).Msg("swept aged charts")
	}
}

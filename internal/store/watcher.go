package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// sentinelState tracks the last-observed mtime of the update/reload
// sentinel files, per §4.7 "A file named update or reload controls
// mutation ... The file's mtime change is the edge trigger."
type sentinelState struct {
	updateMtime time.Time
	reloadMtime time.Time
}

func statMtime(path string) (time.Time, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

// Reload rescans s.Dir() from scratch and replaces the published snapshot
// wholesale, clearing anything not present in the new scan, per §4.7
// "reload clears indices first".
func (s *Store) Reload() error {
	fresh, err := buildSnapshot(s.dir)
	if err != nil {
		return err
	}
	s.current.Store(fresh)
	return nil
}

// Update rescans s.Dir() and merges the result onto the currently published
// snapshot using insert-or-replace semantics (nothing is cleared), per
// §4.7 "update performs insert-or-replace only".
func (s *Store) Update() error {
	fresh, err := buildSnapshot(s.dir)
	if err != nil {
		return err
	}
	merged := mergeSnapshots(s.snap(), fresh)
	s.current.Store(merged)
	return nil
}

// WatchSentinels polls the update/reload sentinel files in s.Dir() on tick
// until ctx is cancelled. Reload and Update take no lock: each builds a new
// snapshot off to the side and publishes it by atomic pointer swap, and
// this single goroutine is what keeps two mutations from overlapping.
//
// §9's open question resolution applies here: reload is checked first, and
// wins when both sentinels changed in the same poll tick; only then is
// update checked, so a reload this tick suppresses a same-tick update.
func (s *Store) WatchSentinels(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = 2 * time.Second
	}
	log := logrus.WithField("component", "store")

	var state sentinelState
	if t, ok := statMtime(filepath.Join(s.dir, "reload")); ok {
		state.reloadMtime = t
	}
	if t, ok := statMtime(filepath.Join(s.dir, "update")); ok {
		state.updateMtime = t
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(&state, log)
		}
	}
}

func (s *Store) pollOnce(state *sentinelState, log *logrus.Entry) {
	reloadChanged := false
	if t, ok := statMtime(filepath.Join(s.dir, "reload")); ok && t.After(state.reloadMtime) {
		state.reloadMtime = t
		reloadChanged = true
	}
	if reloadChanged {
		if err := s.Reload(); err != nil {
			log.WithError(err).Warn("store reload failed")
		} else {
			log.Info("store reloaded")
		}
		// per §9: reload wins this tick; record update's current mtime so
		// an update that also changed this tick doesn't immediately fire
		// again next tick.
		if t, ok := statMtime(filepath.Join(s.dir, "update")); ok {
			state.updateMtime = t
		}
		return
	}

	if t, ok := statMtime(filepath.Join(s.dir, "update")); ok && t.After(state.updateMtime) {
		state.updateMtime = t
		if err := s.Update(); err != nil {
			log.WithError(err).Warn("store update failed")
		} else {
			log.Info("store updated")
		}
	}
}

package audiostore

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// StartJanitor evicts artifacts older than maxAge on a fixed interval until
// ctx ends. onEvict, if set, receives the number of files removed per sweep.
func (d *Dir) StartJanitor(ctx context.Context, interval, maxAge time.Duration, onEvict func(int)) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n := d.evictOlderThan(time.Now().Add(-maxAge))
				if n > 0 && onEvict != nil {
					onEvict(n)
				}
			}
		}
	}()
}

func (d *Dir) evictOlderThan(cutoff time.Time) int {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !validName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(d.root, entry.Name())) == nil {
			removed++
		}
	}
	return removed
}

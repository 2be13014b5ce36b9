package replaycatalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"replayvault/parser/internal/logging"
)

// RetentionPolicy defines how long catalog rows survive.
type RetentionPolicy struct {
	// MaxAge drops rows no scan has seen for this long. Zero disables age pruning.
	MaxAge time.Duration
}

// PruneStats summarises the last prune sweep.
type PruneStats struct {
	Rows      int
	Vanished  int
	Expired   int
	LastSweep time.Time
}

// Pruner removes catalog rows whose replay files disappeared or aged out.
// Replay files themselves are never touched.
type Pruner struct {
	mu     sync.RWMutex
	cache  *Cache
	policy RetentionPolicy
	log    *logging.Logger
	now    func() time.Time
	stats  PruneStats
}

// NewPruner constructs a pruner for the provided cache.
func NewPruner(cache *Cache, policy RetentionPolicy, logger *logging.Logger) *Pruner {
	if logger == nil {
		logger = logging.L()
	}
	return &Pruner{cache: cache, policy: policy, log: logger, now: time.Now}
}

// Run executes prune sweeps until the context is cancelled.
func (p *Pruner) Run(ctx context.Context, interval time.Duration) {
	if p == nil || ctx == nil {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	//1.- Perform an eager sweep so retention applies immediately on startup.
	p.sweepAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepAndLog(ctx)
		}
	}
}

func (p *Pruner) sweepAndLog(ctx context.Context) {
	if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
		p.log.Warn("catalog prune failed", logging.Error(err))
	}
}

// RunOnce performs a single sweep.
func (p *Pruner) RunOnce(ctx context.Context) (PruneStats, error) {
	if p == nil || p.cache == nil {
		return PruneStats{}, errors.New("pruner has no cache")
	}
	now := p.now()
	paths, err := p.cache.Paths(ctx)
	if err != nil {
		return PruneStats{}, fmt.Errorf("list cached replays: %w", err)
	}

	stats := PruneStats{LastSweep: now}
	doomed := make(map[string]string, 8)
	//1.- Rows whose file is gone are removed regardless of age.
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			doomed[path] = "vanished"
		}
	}
	//2.- Rows no scan has touched within the retention window are dropped next.
	if p.policy.MaxAge > 0 {
		expired, err := p.cache.ScannedBefore(ctx, now.Add(-p.policy.MaxAge))
		if err != nil {
			return PruneStats{}, fmt.Errorf("list expired replays: %w", err)
		}
		for _, path := range expired {
			if _, ok := doomed[path]; !ok {
				doomed[path] = fmt.Sprintf("age>%s", p.policy.MaxAge)
			}
		}
	}

	remove := make([]string, 0, len(doomed))
	for path, reason := range doomed {
		remove = append(remove, path)
		if strings.HasPrefix(reason, "age") {
			stats.Expired++
		} else {
			stats.Vanished++
		}
		p.log.Info("catalog row pruned", logging.String("path", path), logging.String("reason", reason))
	}
	if err := p.cache.Delete(ctx, remove); err != nil {
		return PruneStats{}, fmt.Errorf("prune catalog: %w", err)
	}
	stats.Rows = len(paths) - len(remove)

	p.mu.Lock()
	//3.- Publish the refreshed statistics for callers reporting catalog size.
	p.stats = stats
	p.mu.Unlock()
	return stats, nil
}

// Stats returns the last recorded sweep statistics.
func (p *Pruner) Stats() PruneStats {
	if p == nil {
		return PruneStats{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

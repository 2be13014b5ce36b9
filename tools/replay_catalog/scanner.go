package replaycatalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"replayvault/parser/internal/logging"
	"replayvault/parser/internal/replay"
	"replayvault/parser/internal/tree"
	"replayvault/parser/internal/vehicles"
)

// DefaultWorkers bounds concurrent parses when Scanner.Workers is unset.
const DefaultWorkers = 4

// Scanner lists a replay directory and catalogues every replay in it.
type Scanner struct {
	// Cache, when set, supplies records for unchanged files and stores new ones.
	Cache *Cache
	// Labels maps vehicle tags to display names.
	Labels vehicles.Labels
	// Workers bounds concurrent parses.
	Workers int
	// Full re-parses every file even when the cache holds a current record.
	Full bool
	// Logger defaults to the context logger.
	Logger *logging.Logger

	now func() time.Time
}

// ScanReport summarises one Scan call.
type ScanReport struct {
	RunID      string
	Records    []Record
	Parsed     int
	Reused     int
	Failed     int
	Duplicates int
	Elapsed    time.Duration
}

type candidate struct {
	path    string
	size    int64
	modTime time.Time
}

// Scan catalogues the *.wotreplay files directly inside dir. Files that fail
// to parse are logged and skipped. Records come back newest match first.
func (s *Scanner) Scan(ctx context.Context, dir string) (*ScanReport, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("replay directory must be provided")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	ctx, logger, runID := logging.WithRun(ctx, s.Logger, "")
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	started := now()
	report := &ScanReport{RunID: runID}

	candidates, err := listReplays(abs)
	if err != nil {
		return nil, err
	}

	//1.- Resolve unchanged files from the cache before spending parse time on them.
	var (
		pending []candidate
		reused  []string
	)
	for _, c := range candidates {
		if s.Cache != nil && !s.Full {
			rec, ok, err := s.Cache.Lookup(ctx, c.path, c.size, c.modTime)
			if err != nil {
				logger.Warn("catalog cache lookup failed", logging.String("path", c.path), logging.Error(err))
			} else if ok {
				rec.TankLabel = s.Labels.Label(rec.Tank)
				report.Records = append(report.Records, rec)
				reused = append(reused, rec.Path)
				report.Reused++
				continue
			}
		}
		pending = append(pending, c)
	}

	//2.- Parse the remaining files on a bounded pool; failures are skipped, cancellation stops the scan.
	workers := s.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	var (
		mu     sync.Mutex
		parsed []Record
	)
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for _, c := range pending {
		if gctx.Err() != nil {
			break
		}
		c := c
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, err := s.parse(c, now())
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				logger.Warn("replay skipped", logging.String("path", c.path), logging.Error(err))
				return nil
			}
			parsed = append(parsed, rec)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report.Parsed = len(parsed)

	if s.Cache != nil {
		if err := s.Cache.Put(ctx, parsed); err != nil {
			return nil, fmt.Errorf("update catalog cache: %w", err)
		}
		if err := s.Cache.Touch(ctx, reused, started); err != nil {
			return nil, fmt.Errorf("update catalog cache: %w", err)
		}
	}
	report.Records = append(report.Records, parsed...)

	markDuplicates(report.Records)
	for _, rec := range report.Records {
		if rec.Duplicate {
			report.Duplicates++
		}
	}
	sortRecords(report.Records)
	report.Elapsed = now().Sub(started)
	logger.Info("replay scan finished",
		logging.String("directory", abs),
		logging.Int("records", len(report.Records)),
		logging.Int("parsed", report.Parsed),
		logging.Int("reused", report.Reused),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Scanner) parse(c candidate, scannedAt time.Time) (Record, error) {
	result, err := replay.Decode(c.path)
	if err != nil {
		return Record{}, err
	}
	rec := newRecord(result.Summary(), s.Labels)
	rec.Complete = result.Complete()
	rec.Size = c.size
	rec.ModTime = c.modTime
	rec.ScannedAt = scannedAt
	fingerprint, err := tree.Digest(result.Start)
	if err != nil {
		return Record{}, fmt.Errorf("fingerprint: %w", err)
	}
	rec.Fingerprint = fingerprint
	return rec, nil
}

// listReplays returns the replay files directly inside dir, sorted by name.
func listReplays(dir string) ([]candidate, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			//1.- The file vanished between listing and stat; the next scan will settle it.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, candidate{
			path:    filepath.Join(dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime().UTC().Truncate(0),
		})
	}
	return out, nil
}

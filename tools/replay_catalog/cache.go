package replaycatalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"

	_ "modernc.org/sqlite" // SQLite driver.
)

// DefaultCacheSize is used when Open receives a non-positive LRU size.
const DefaultCacheSize = 512

const expectedReplays = 100000

// Cache persists parsed records in SQLite. A bloom filter answers "never seen"
// without touching the database and an LRU keeps recently used rows in memory.
type Cache struct {
	db *sql.DB

	mu     sync.Mutex
	known  *bloom.BloomFilter
	recent *lru.Cache[string, Record]
}

// OpenCache opens or creates the SQLite database at path and applies migrations.
func OpenCache(ctx context.Context, path string, size int) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	//1.- One connection keeps SQLite writers serialised and makes :memory: databases usable.
	db.SetMaxOpenConns(1)
	if size <= 0 {
		size = DefaultCacheSize
	}
	recent, err := lru.New[string, Record](size)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	cache := &Cache{
		db:     db,
		known:  bloom.NewWithEstimates(expectedReplays, 0.001),
		recent: recent,
	}
	if err := cache.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	//2.- Seed the filter so the first scan can skip database lookups for new files.
	paths, err := cache.Paths(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, p := range paths {
		cache.known.AddString(p)
	}
	return cache, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS replays (
			path TEXT PRIMARY KEY,
			player_name TEXT NOT NULL,
			tank TEXT NOT NULL,
			tank_label TEXT NOT NULL,
			map TEXT NOT NULL,
			date TEXT NOT NULL,
			played_at TEXT NOT NULL,
			damage INTEGER NOT NULL,
			server TEXT NOT NULL,
			version TEXT NOT NULL,
			complete INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			size INTEGER NOT NULL,
			mod_time INTEGER NOT NULL,
			scanned_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_replays_fingerprint ON replays(fingerprint);`,
		`CREATE INDEX IF NOT EXISTS idx_replays_scanned_at ON replays(scanned_at);`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate catalog cache: %w", err)
		}
	}
	return nil
}

const recordColumns = `path, player_name, tank, tank_label, map, date, played_at, damage, server, version, complete, fingerprint, size, mod_time, scanned_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec                Record
		playedAt           string
		complete           int
		modTime, scannedAt int64
	)
	err := row.Scan(&rec.Path, &rec.PlayerName, &rec.Tank, &rec.TankLabel, &rec.Map, &rec.Date, &playedAt,
		&rec.Damage, &rec.Server, &rec.Version, &complete, &rec.Fingerprint, &rec.Size, &modTime, &scannedAt)
	if err != nil {
		return Record{}, err
	}
	rec.Complete = complete != 0
	rec.ModTime = time.Unix(0, modTime).UTC()
	if playedAt != "" {
		rec.PlayedAt, _ = time.Parse(time.RFC3339, playedAt)
	}
	rec.ScannedAt = time.Unix(0, scannedAt).UTC()
	rec.Nation, rec.TankTag = splitTank(rec.Tank)
	return rec, nil
}

// Lookup returns the cached record for path when it still matches the file's size and mtime.
func (c *Cache) Lookup(ctx context.Context, path string, size int64, modTime time.Time) (Record, bool, error) {
	c.mu.Lock()
	seen := c.known.TestString(path)
	cached, inMemory := c.recent.Get(path)
	c.mu.Unlock()
	if !seen {
		return Record{}, false, nil
	}
	if !inMemory {
		row := c.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM replays WHERE path = ?`, path)
		rec, err := scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		if err != nil {
			return Record{}, false, fmt.Errorf("lookup %s: %w", path, err)
		}
		cached = rec
		c.mu.Lock()
		c.recent.Add(path, rec)
		c.mu.Unlock()
	}
	if cached.Size != size || !cached.ModTime.Equal(modTime.UTC().Truncate(0)) {
		return Record{}, false, nil
	}
	return cached, true, nil
}

// Put inserts or replaces records in a single transaction.
func (c *Cache) Put(ctx context.Context, records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO replays (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, rec := range records {
		playedAt := ""
		if !rec.PlayedAt.IsZero() {
			playedAt = rec.PlayedAt.Format(time.RFC3339)
		}
		complete := 0
		if rec.Complete {
			complete = 1
		}
		if _, err = stmt.ExecContext(ctx, rec.Path, rec.PlayerName, rec.Tank, rec.TankLabel, rec.Map, rec.Date, playedAt,
			rec.Damage, rec.Server, rec.Version, complete, rec.Fingerprint, rec.Size, rec.ModTime.UnixNano(),
			rec.ScannedAt.UnixNano()); err != nil {
			return fmt.Errorf("store %s: %w", rec.Path, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	c.mu.Lock()
	for _, rec := range records {
		c.known.AddString(rec.Path)
		c.recent.Add(rec.Path, rec)
	}
	c.mu.Unlock()
	return nil
}

// Delete removes rows for the given paths.
func (c *Cache) Delete(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx, `DELETE FROM replays WHERE path = ?`, p); err != nil {
			return errors.Join(fmt.Errorf("delete %s: %w", p, err), tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.mu.Lock()
	for _, p := range paths {
		//1.- The bloom filter cannot forget; a stale positive only costs one database miss.
		c.recent.Remove(p)
	}
	c.mu.Unlock()
	return nil
}

// Paths lists every cached replay path.
func (c *Cache) Paths(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT path FROM replays ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Records returns every cached record.
func (c *Cache) Records(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM replays`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Touch marks rows as seen by a scan at the given time.
func (c *Cache) Touch(ctx context.Context, paths []string, at time.Time) error {
	if len(paths) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, p := range paths {
		if _, err := tx.ExecContext(ctx, `UPDATE replays SET scanned_at = ? WHERE path = ?`, at.UnixNano(), p); err != nil {
			return errors.Join(fmt.Errorf("touch %s: %w", p, err), tx.Rollback())
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.mu.Lock()
	for _, p := range paths {
		c.recent.Remove(p)
	}
	c.mu.Unlock()
	return nil
}

// ScannedBefore lists paths whose rows were last seen by a scan before cutoff.
func (c *Cache) ScannedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT path FROM replays WHERE scanned_at < ? ORDER BY path`, cutoff.UnixNano())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

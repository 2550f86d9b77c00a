package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/mattn/go-sqlite3"

	"imgdup/types"
)

// ErrLocked is returned by Open when another process holds the cache
var ErrLocked = errors.New("fingerprint cache is in use by another imgdup process")

// Cache stores fingerprints keyed by path and hash settings so unchanged
// files are not decoded again on the next run
type Cache struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Key identifies one cached fingerprint
type Key struct {
	Path     string
	Hasher   string
	Settings types.HashSettings
}

// Open opens or creates the cache at dbPath and takes its lock file
func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	lock := flock.New(dbPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, dbPath)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	// One connection serialises writers from all workers
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("initialise cache schema: %w", err)
	}

	return &Cache{db: db, path: dbPath, lock: lock}, nil
}

func initSchema(db *sql.DB) error {
	// Create table if it doesn't exist
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		hasher TEXT NOT NULL,
		mode TEXT NOT NULL,
		resolution INTEGER NOT NULL,
		format TEXT,
		width INTEGER,
		height INTEGER,
		size INTEGER NOT NULL,
		modified_at TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		bits INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(path, hasher, mode, resolution)
	);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_path ON fingerprints(path);
	CREATE INDEX IF NOT EXISTS idx_fingerprints_fingerprint ON fingerprints(fingerprint);`

	_, err := db.Exec(createTableSQL)
	return err
}

// Path returns the database file location
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database and releases the lock
func (c *Cache) Close() error {
	return errors.Join(c.db.Close(), c.lock.Unlock())
}

// Lookup returns the cached fingerprint for key. It only hits when the file
// still has the recorded size and modification time.
func (c *Cache) Lookup(key Key, size int64, modTime time.Time) (types.ImageInfo, bool, error) {
	var (
		info      types.ImageInfo
		storedMod string
		hexValue  string
		bits      int
	)
	err := c.db.QueryRow(`
		SELECT format, width, height, size, modified_at, fingerprint, bits
		FROM fingerprints
		WHERE path = ? AND hasher = ? AND mode = ? AND resolution = ?`,
		key.Path, key.Hasher, key.Settings.Mode.String(), key.Settings.Resolution,
	).Scan(&info.Format, &info.Width, &info.Height, &info.Size, &storedMod, &hexValue, &bits)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ImageInfo{}, false, nil
	}
	if err != nil {
		return types.ImageInfo{}, false, fmt.Errorf("database error for %s: %w", key.Path, err)
	}

	// If the file changed since it was hashed, treat it as a miss
	if info.Size != size || storedMod != formatModTime(modTime) {
		return types.ImageInfo{}, false, nil
	}

	fp, err := types.ParseFingerprint(hexValue, bits)
	if err != nil {
		return types.ImageInfo{}, false, fmt.Errorf("corrupt fingerprint for %s: %w", key.Path, err)
	}
	if fp.Width() != key.Settings.Width() {
		return types.ImageInfo{}, false, nil
	}
	info.Fingerprint = fp
	return info, true, nil
}

// Store records the fingerprint for key, replacing any older entry
func (c *Cache) Store(key Key, info types.ImageInfo, modTime time.Time) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := c.db.Exec(`
		INSERT INTO fingerprints (
			path, hasher, mode, resolution, format, width, height, size, modified_at, fingerprint, bits, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path, hasher, mode, resolution) DO UPDATE SET
			format = excluded.format,
			width = excluded.width,
			height = excluded.height,
			size = excluded.size,
			modified_at = excluded.modified_at,
			fingerprint = excluded.fingerprint,
			bits = excluded.bits,
			created_at = excluded.created_at`,
		key.Path,
		key.Hasher,
		key.Settings.Mode.String(),
		key.Settings.Resolution,
		info.Format,
		info.Width,
		info.Height,
		info.Size,
		formatModTime(modTime),
		info.Fingerprint.Hex(),
		info.Fingerprint.Width(),
		now,
	)
	if err != nil {
		return fmt.Errorf("cannot store fingerprint for %s: %w", key.Path, err)
	}
	return nil
}

// HasherStats counts cache entries for one hasher configuration
type HasherStats struct {
	Hasher     string
	Mode       string
	Resolution int
	Entries    int
}

// Stats contains statistics about the cache contents
type Stats struct {
	Entries            int
	UniqueFingerprints int
	Files              int
	Hashers            []HasherStats
}

// Stats retrieves statistics about cached fingerprints
func (c *Cache) Stats() (*Stats, error) {
	var stats Stats

	err := c.db.QueryRow(`SELECT COUNT(*), COUNT(DISTINCT fingerprint), COUNT(DISTINCT path) FROM fingerprints`).
		Scan(&stats.Entries, &stats.UniqueFingerprints, &stats.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to count fingerprints: %w", err)
	}

	rows, err := c.db.Query(`
		SELECT hasher, mode, resolution, COUNT(*)
		FROM fingerprints
		GROUP BY hasher, mode, resolution
		ORDER BY hasher, mode, resolution`)
	if err != nil {
		return nil, fmt.Errorf("failed to group fingerprints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h HasherStats
		if err := rows.Scan(&h.Hasher, &h.Mode, &h.Resolution, &h.Entries); err != nil {
			return nil, err
		}
		stats.Hashers = append(stats.Hashers, h)
	}
	return &stats, rows.Err()
}

// Prune deletes entries whose file no longer exists and returns how many were removed
func (c *Cache) Prune() (int, error) {
	rows, err := c.db.Query(`SELECT DISTINCT path FROM fingerprints`)
	if err != nil {
		return 0, err
	}
	var gone []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, err
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			gone = append(gone, path)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range gone {
		res, err := tx.Exec(`DELETE FROM fingerprints WHERE path = ?`, path)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("cannot prune %s: %w", path, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	return removed, tx.Commit()
}

func formatModTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Package store provides SQLite persistence for the wallpaper catalog.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrStorageUnavailable marks failures of the underlying database. Callers
// treat these as round-level failures, never as fatal process errors.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Source identifies the provider an item came from.
type Source string

const (
	SourceBing     Source = "bing"
	SourcePeapix   Source = "peapix"
	SourceQihu     Source = "qihu360"
	SourceUnsplash Source = "unsplash"
	SourcePexels   Source = "pexels"
	SourceRSS      Source = "rss"
)

// Item represents one wallpaper in the catalog.
// ContentURL is the content identity: the catalog never holds two rows with
// the same ContentURL, regardless of source.
type Item struct {
	ID               string
	Source           Source
	Title            string
	Attribution      string
	ContentURL       string
	PreviewURL       string
	LocalPath        string
	LocalPreviewPath string
	Pinned           bool
	AddedAt          time.Time
}

// Query selects items from the catalog. Zero values mean "no filter";
// Pinned is a tri-state (nil = both).
type Query struct {
	Source Source
	Pinned *bool
	Limit  int
	Offset int
}

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: all methods are safe for concurrent use via internal mutex;
// eviction's read-then-delete runs as a single statement under the write lock.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates a new Store at the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every connection in the pool sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wallpapers (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		attribution TEXT NOT NULL DEFAULT '',
		content_url TEXT NOT NULL UNIQUE,
		preview_url TEXT NOT NULL DEFAULT '',
		local_path TEXT NOT NULL DEFAULT '',
		local_preview_path TEXT NOT NULL DEFAULT '',
		pinned INTEGER NOT NULL DEFAULT 0,
		added_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wallpapers_source_added ON wallpapers(source, added_at DESC);
	CREATE INDEX IF NOT EXISTS idx_wallpapers_added ON wallpapers(added_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Acquires the write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// storageErr tags a database failure so callers can errors.Is against
// ErrStorageUnavailable.
func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// Insert stores a single item, returning true if it was new.
// A ContentURL conflict is not an error: the insert is a no-op and Insert
// returns false. AddedAt is assigned at insert time if unset and is never
// updated afterwards.
func (s *Store) Insert(item Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(item)
}

// InsertBatch stores items, returning the count of new rows.
// Each insert is independently idempotent; a storage failure mid-batch
// leaves earlier inserts committed.
func (s *Store) InsertBatch(items []Item) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newCount := 0
	for _, item := range items {
		inserted, err := s.insertLocked(item)
		if err != nil {
			return newCount, err
		}
		if inserted {
			newCount++
		}
	}
	return newCount, nil
}

func (s *Store) insertLocked(item Item) (bool, error) {
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}

	result, err := s.db.Exec(`
		INSERT OR IGNORE INTO wallpapers (
			id, source, title, attribution, content_url, preview_url,
			local_path, local_preview_path, pinned, added_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		string(item.Source),
		item.Title,
		item.Attribution,
		item.ContentURL,
		item.PreviewURL,
		item.LocalPath,
		item.LocalPreviewPath,
		boolToInt(item.Pinned),
		item.AddedAt,
	)
	if err != nil {
		return false, storageErr("insert item", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("insert item", err)
	}
	return affected > 0, nil
}

// Exists reports whether the content identity is already in the catalog.
func (s *Store) Exists(contentURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM wallpapers WHERE content_url = ?", contentURL).Scan(&n)
	if err != nil {
		return false, storageErr("exists", err)
	}
	return n > 0, nil
}

// KnownURLs returns the set of content URLs already stored.
// An empty source returns the whole catalog's URLs; that is the set the
// deduplicator uses, since identical URLs across sources are still duplicates.
func (s *Store) KnownURLs(source Source) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows *sql.Rows
	var err error
	if source != "" {
		rows, err = s.db.Query("SELECT content_url FROM wallpapers WHERE source = ?", string(source))
	} else {
		rows, err = s.db.Query("SELECT content_url FROM wallpapers")
	}
	if err != nil {
		return nil, storageErr("known urls", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, storageErr("known urls", err)
		}
		urls[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("known urls", err)
	}
	return urls, nil
}

// Items retrieves items ordered by added_at descending (newest first).
func (s *Store) Items(q Query) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, source, title, attribution, content_url, preview_url,
			local_path, local_preview_path, pinned, added_at
		FROM wallpapers
	`
	var where []string
	var args []any

	if q.Source != "" {
		where = append(where, "source = ?")
		args = append(args, string(q.Source))
	}
	if q.Pinned != nil {
		where = append(where, "pinned = ?")
		args = append(args, boolToInt(*q.Pinned))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	query += " ORDER BY added_at DESC, rowid DESC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	return s.queryItems(query, args...)
}

// Item retrieves a single item by ID, or nil if absent.
func (s *Store) Item(id string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.queryItems(`
		SELECT id, source, title, attribution, content_url, preview_url,
			local_path, local_preview_path, pinned, added_at
		FROM wallpapers WHERE id = ?
	`, id)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// Count returns the number of stored items, optionally for one source.
func (s *Store) Count(source Source) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(source, false)
}

// CountUnpinned returns the number of stored items excluding pinned ones.
// This is the count capacity checks use: pinned items never count toward
// a cap.
func (s *Store) CountUnpinned(source Source) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(source, true)
}

func (s *Store) countLocked(source Source, excludePinned bool) (int, error) {
	query := "SELECT COUNT(*) FROM wallpapers"
	var where []string
	var args []any
	if source != "" {
		where = append(where, "source = ?")
		args = append(args, string(source))
	}
	if excludePinned {
		where = append(where, "pinned = 0")
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, storageErr("count", err)
	}
	return count, nil
}

// LastAddedAt returns when the source last gained an item.
// A zero time means the source has never produced anything.
func (s *Store) LastAddedAt(source Source) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last sql.NullTime
	err := s.db.QueryRow(
		"SELECT MAX(added_at) FROM wallpapers WHERE source = ?", string(source),
	).Scan(&last)
	if err != nil {
		return time.Time{}, storageErr("last added", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}

// TogglePin flips the pinned flag, returning the new state.
// Pinned items are exempt from eviction.
func (s *Store) TogglePin(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE wallpapers
		SET pinned = CASE WHEN pinned = 1 THEN 0 ELSE 1 END
		WHERE id = ?
	`, id)
	if err != nil {
		return false, storageErr("toggle pin", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("toggle pin", err)
	}
	if affected == 0 {
		return false, fmt.Errorf("toggle pin: no item with id %q", id)
	}

	var pinned int
	if err := s.db.QueryRow("SELECT pinned FROM wallpapers WHERE id = ?", id).Scan(&pinned); err != nil {
		return false, storageErr("toggle pin", err)
	}
	return pinned != 0, nil
}

// SetLocalPaths records where an item's content has been cached on disk.
// Paths are set once the download completes; empty arguments leave the
// existing value untouched.
func (s *Store) SetLocalPaths(id, localPath, previewPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE wallpapers
		SET local_path = CASE WHEN ? != '' THEN ? ELSE local_path END,
			local_preview_path = CASE WHEN ? != '' THEN ? ELSE local_preview_path END
		WHERE id = ?
	`, localPath, localPath, previewPath, previewPath, id)
	if err != nil {
		return storageErr("set local paths", err)
	}
	return nil
}

// DeleteOldest removes all non-pinned items beyond the most-recent keep,
// optionally scoped to one source. Pinned items are neither counted against
// keep nor deleted. Returns the number of rows removed.
//
// The subselect-and-delete is one statement, so it is atomic with respect
// to concurrent inserts.
func (s *Store) DeleteOldest(source Source, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}

	var result sql.Result
	var err error
	if source != "" {
		result, err = s.db.Exec(`
			DELETE FROM wallpapers
			WHERE id IN (
				SELECT id FROM wallpapers
				WHERE source = ? AND pinned = 0
				ORDER BY added_at DESC, rowid DESC
				LIMIT -1 OFFSET ?
			)
		`, string(source), keep)
	} else {
		result, err = s.db.Exec(`
			DELETE FROM wallpapers
			WHERE id IN (
				SELECT id FROM wallpapers
				WHERE pinned = 0
				ORDER BY added_at DESC, rowid DESC
				LIMIT -1 OFFSET ?
			)
		`, keep)
	}
	if err != nil {
		return 0, storageErr("delete oldest", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("delete oldest", err)
	}
	return int(affected), nil
}

// Delete removes a single item by ID, returning true if a row was removed.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM wallpapers WHERE id = ?", id)
	if err != nil {
		return false, storageErr("delete", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("delete", err)
	}
	return affected > 0, nil
}

// DeleteSource removes every item for one source, pinned included.
func (s *Store) DeleteSource(source Source) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM wallpapers WHERE source = ?", string(source))
	if err != nil {
		return 0, storageErr("delete source", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("delete source", err)
	}
	return int(affected), nil
}

// queryItems executes a query and scans results into Items.
// Caller must hold s.mu (read lock is sufficient).
func (s *Store) queryItems(query string, args ...any) ([]Item, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query items", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var source string
		var pinnedInt int
		err := rows.Scan(
			&item.ID,
			&source,
			&item.Title,
			&item.Attribution,
			&item.ContentURL,
			&item.PreviewURL,
			&item.LocalPath,
			&item.LocalPreviewPath,
			&pinnedInt,
			&item.AddedAt,
		)
		if err != nil {
			return nil, storageErr("query items", err)
		}
		item.Source = Source(source)
		item.Pinned = pinnedInt != 0
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("query items", err)
	}

	return items, nil
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	_ "modernc.org/sqlite"
)

// KeyTheme persists the UI theme preference. Session keys are owned by the
// session package; this is the only state key owned here.
const KeyTheme = "ui.theme"

// Store is the SQLite-backed persistence layer: a key-value table for
// session state and a versioned table for cached static assets.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the stored value for key. The bool reports whether the key
// exists. State reads are synchronous, last-write-wins.
func (s *Store) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("set state %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM client_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete state %q: %w", key, err)
	}
	return nil
}

// AssetEntry is one cached static asset response.
type AssetEntry struct {
	URL       string
	Status    int
	Header    http.Header
	Body      []byte
	FetchedAt time.Time
}

// GetAsset loads a cached asset from the named cache.
func (s *Store) GetAsset(ctx context.Context, cacheName, url string) (*AssetEntry, bool, error) {
	var (
		entry      AssetEntry
		headerJSON string
		compressed []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT status, headers, body, fetched_at FROM asset_cache
		WHERE cache_name = ? AND url = ?`,
		cacheName, url).Scan(&entry.Status, &headerJSON, &compressed, &entry.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get asset %q: %w", url, err)
	}

	if err := json.Unmarshal([]byte(headerJSON), &entry.Header); err != nil {
		return nil, false, fmt.Errorf("decode asset headers %q: %w", url, err)
	}
	body, err := gunzipBody(compressed)
	if err != nil {
		return nil, false, fmt.Errorf("decompress asset body %q: %w", url, err)
	}
	entry.URL = url
	entry.Body = body
	return &entry, true, nil
}

// PutAsset stores an asset in the named cache, overwriting any previous
// entry for the same URL. Bodies are gzip-compressed at rest.
func (s *Store) PutAsset(ctx context.Context, cacheName string, entry *AssetEntry) error {
	headerJSON, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("encode asset headers %q: %w", entry.URL, err)
	}
	compressed, err := gzipBody(entry.Body)
	if err != nil {
		return fmt.Errorf("compress asset body %q: %w", entry.URL, err)
	}

	fetchedAt := entry.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO asset_cache (cache_name, url, status, headers, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_name, url) DO UPDATE SET
			status = excluded.status,
			headers = excluded.headers,
			body = excluded.body,
			fetched_at = excluded.fetched_at`,
		cacheName, entry.URL, entry.Status, string(headerJSON), compressed, fetchedAt)
	if err != nil {
		return fmt.Errorf("put asset %q: %w", entry.URL, err)
	}
	return nil
}

// CacheNames returns the distinct cache names currently holding entries.
func (s *Store) CacheNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT cache_name FROM asset_cache ORDER BY cache_name`)
	if err != nil {
		return nil, fmt.Errorf("list cache names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan cache name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteCache removes every entry of the named cache and returns the number
// of entries removed.
func (s *Store) DeleteCache(ctx context.Context, cacheName string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM asset_cache WHERE cache_name = ?`, cacheName)
	if err != nil {
		return 0, fmt.Errorf("delete cache %q: %w", cacheName, err)
	}
	return res.RowsAffected()
}

func gzipBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBody(compressed []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

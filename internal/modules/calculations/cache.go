// Package calculations caches expensive intermediate results, such as
// return and covariance models, between pipeline runs.
package calculations

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache provides key-value storage with expiration. Values are serialized
// with msgpack, which keeps large float matrices compact.
type Cache struct {
	db *sql.DB
}

// NewCache creates a cache instance and ensures the schema exists.
func NewCache(db *sql.DB) (*Cache, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}
	return &Cache{db: db}, nil
}

// ReturnsModelKey builds a stable cache key for a return/covariance model:
// the symbol set (order-independent) plus the lookback window.
func ReturnsModelKey(symbols []string, lookbackDays int) string {
	sorted := make([]string, len(symbols))
	copy(sorted, symbols)
	sort.Strings(sorted)

	h := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return fmt.Sprintf("returns_model:%s:%d", hex.EncodeToString(h[:8]), lookbackDays)
}

// Set stores a value with a TTL.
func (c *Cache) Set(key string, value interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	_, err = c.db.Exec(`
		INSERT INTO cache (key, value, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at
	`, key, blob, expiresAt)
	return err
}

// Get retrieves a value into dest. Returns false when the key is missing
// or expired.
func (c *Cache) Get(key string, dest interface{}) (bool, error) {
	var blob []byte
	var expiresAt int64
	err := c.db.QueryRow("SELECT value, expires_at FROM cache WHERE key = ?", key).Scan(&blob, &expiresAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if time.Now().Unix() >= expiresAt {
		return false, nil
	}

	if err := msgpack.Unmarshal(blob, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache value: %w", err)
	}
	return true, nil
}

// Delete removes a cache entry.
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec("DELETE FROM cache WHERE key = ?", key)
	return err
}

// Purge removes all expired entries.
func (c *Cache) Purge() error {
	_, err := c.db.Exec("DELETE FROM cache WHERE expires_at < ?", time.Now().Unix())
	return err
}

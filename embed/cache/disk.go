package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/locatehq/locate/dbopen"
	"github.com/locatehq/locate/embed"
)

const diskSchema = `
CREATE TABLE IF NOT EXISTS vectors (
    content_hash TEXT PRIMARY KEY,
    dim          INTEGER NOT NULL,
    vector       BLOB NOT NULL,
    degraded     INTEGER NOT NULL DEFAULT 0,
    last_used    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_last_used ON vectors(last_used);
`

// diskTier is the Tier 2 on-disk key-value store, key = content hash,
// capacity-bounded with LRU eviction via the last_used column.
type diskTier struct {
	db       *sql.DB
	capacity int
}

func openDiskTier(path string, capacity int) (*diskTier, error) {
	if capacity <= 0 {
		capacity = 100_000
	}
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(diskSchema))
	if err != nil {
		return nil, fmt.Errorf("cache: open disk tier: %w", err)
	}
	if path == ":memory:" {
		// Each new connection to ":memory:" opens a separate database;
		// pin the pool to one connection so all callers share state.
		db.SetMaxOpenConns(1)
	}
	return &diskTier{db: db, capacity: capacity}, nil
}

func (t *diskTier) close() error { return t.db.Close() }

func (t *diskTier) get(contentHash string) ([]float32, bool, error) {
	var blob []byte
	var degraded bool
	row := t.db.QueryRow(`SELECT vector, degraded FROM vectors WHERE content_hash = ?`, contentHash)
	if err := row.Scan(&blob, &degraded); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: get: %w", err)
	}
	if _, err := t.db.Exec(`UPDATE vectors SET last_used = ? WHERE content_hash = ?`, time.Now().Unix(), contentHash); err != nil {
		return nil, false, fmt.Errorf("cache: touch last_used: %w", err)
	}
	return embed.DeserializeVector(blob), true, nil
}

func (t *diskTier) put(contentHash string, vec []float32, degraded bool) error {
	degradedInt := 0
	if degraded {
		degradedInt = 1
	}
	blob := embed.SerializeVector(vec)

	if err := dbopen.RunTx(context.Background(), t.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO vectors (content_hash, dim, vector, degraded, last_used)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(content_hash) DO UPDATE SET
				vector = excluded.vector, degraded = excluded.degraded, last_used = excluded.last_used
		`, contentHash, len(vec), blob, degradedInt, time.Now().Unix())
		return err
	}); err != nil {
		return fmt.Errorf("cache: put: %w", err)
	}

	return t.evictIfOverCapacity()
}

func (t *diskTier) evictIfOverCapacity() error {
	var count int
	if err := t.db.QueryRow(`SELECT COUNT(*) FROM vectors`).Scan(&count); err != nil {
		return fmt.Errorf("cache: count: %w", err)
	}
	if count <= t.capacity {
		return nil
	}
	excess := count - t.capacity
	_, err := t.db.Exec(`
		DELETE FROM vectors WHERE content_hash IN (
			SELECT content_hash FROM vectors ORDER BY last_used ASC LIMIT ?
		)`, excess)
	if err != nil {
		return fmt.Errorf("cache: evict: %w", err)
	}
	return nil
}

// Package promote is the durable store of selectors that have previously
// succeeded for a given (origin, query) pair, consulted first on every
// healing attempt before falling back to re-synthesis.
package promote

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/locatehq/locate/dbopen"
)

// Config controls store construction.
type Config struct {
	Path   string
	Logger *slog.Logger
}

func (c Config) applyDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Store is the promotion store's database handle.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the promotion database at cfg.Path, applying
// pragmas and the promotions schema.
func Open(cfg Config) (*Store, error) {
	cfg = cfg.applyDefaults()

	db, err := dbopen.Open(cfg.Path, dbopen.WithMkdirAll(), dbopen.WithSchema(Schema))
	if err != nil {
		return nil, fmt.Errorf("promote: open: %w", err)
	}
	return &Store{db: db, logger: cfg.Logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordSuccess increments the success counter for (origin, queryNorm,
// selector, modeKey) and updates last_used, inserting the row if absent.
func (s *Store) RecordSuccess(ctx context.Context, origin, queryNorm, selector, modeKey string) error {
	return s.record(ctx, origin, queryNorm, selector, modeKey, 1, 0)
}

// RecordFailure increments the failure counter, inserting the row if
// absent.
func (s *Store) RecordFailure(ctx context.Context, origin, queryNorm, selector, modeKey string) error {
	return s.record(ctx, origin, queryNorm, selector, modeKey, 0, 1)
}

func (s *Store) record(ctx context.Context, origin, queryNorm, selector, modeKey string, successDelta, failureDelta int64) error {
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO promotions (origin, query_norm, selector, mode_key, success, failure, last_used)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(origin, query_norm, selector, mode_key) DO UPDATE SET
				success = success + excluded.success,
				failure = failure + excluded.failure,
				last_used = excluded.last_used`,
			origin, queryNorm, selector, modeKey, successDelta, failureDelta, now)
		return err
	})
}

// Candidate is a previously attempted selector and its current
// shrinkage-adjusted confidence.
type Candidate struct {
	Selector   string
	Confidence float64
	Success    int64
	Failure    int64
}

// confMin is the minimum confidence a candidate must clear to be returned
// by Lookup, per spec.md §4.6.
const confMin = 0.3

// Lookup returns prior winners for (origin, queryNorm, modeKey) above
// confMin, highest-confidence first.
func (s *Store) Lookup(ctx context.Context, origin, queryNorm, modeKey string) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT selector, success, failure FROM promotions
		WHERE origin = ? AND query_norm = ? AND mode_key = ?`,
		origin, queryNorm, modeKey)
	if err != nil {
		return nil, fmt.Errorf("promote: lookup: %w", err)
	}
	defer rows.Close()

	var all []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.Selector, &c.Success, &c.Failure); err != nil {
			return nil, fmt.Errorf("promote: scan: %w", err)
		}
		c.Confidence = confidence(c.Success, c.Failure)
		all = append(all, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var qualifying []Candidate
	for _, c := range all {
		if c.Confidence >= confMin {
			qualifying = append(qualifying, c)
		}
	}
	sortByConfidenceDesc(qualifying)
	return qualifying, nil
}

func sortByConfidenceDesc(cands []Candidate) {
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0 && cands[j].Confidence > cands[j-1].Confidence; j-- {
			cands[j], cands[j-1] = cands[j-1], cands[j]
		}
	}
}

// CountEntries returns the total number of promotion rows, regardless of
// confidence, for reporting on the debug surface.
func (s *Store) CountEntries(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM promotions`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("promote: count: %w", err)
	}
	return n, nil
}

// PruneStale deletes promotion rows whose last_used is older than maxAge,
// mirroring the teacher's periodic expired-content pruning.
func (s *Store) PruneStale(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM promotions WHERE last_used < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("promote: prune: %w", err)
	}
	return res.RowsAffected()
}

// pruneCheckInterval is how often RunPruneLoop checks for stale rows,
// independent of maxAge.
const pruneCheckInterval = time.Hour

// RunPruneLoop periodically prunes rows older than maxAge until ctx is
// cancelled, mirroring domkeeper's freshness scheduler loop. Intended to
// run in its own goroutine for the lifetime of the process.
func (s *Store) RunPruneLoop(ctx context.Context, maxAge time.Duration) {
	ticker := time.NewTicker(pruneCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PruneStale(ctx, maxAge)
			if err != nil {
				s.logger.Warn("promote: prune failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("promote: pruned stale entries", "count", n)
			}
		}
	}
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetCachedPage returns the cached response body stored under key if it was
// fetched less than maxAge ago. A maxAge of zero or less disables the age
// check. Returns nil, ErrNotFound when the entry is missing or stale.
func (s *Store) GetCachedPage(ctx context.Context, key string, maxAge time.Duration) ([]byte, error) {
	var (
		body      []byte
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, fetched_at FROM page_cache WHERE cache_key = ?`, key,
	).Scan(&body, &fetchedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting cached page: %w", err)
	}

	if maxAge > 0 {
		fetched := parseTime(fetchedAt)
		if fetched.IsZero() || time.Since(fetched) > maxAge {
			return nil, ErrNotFound
		}
	}
	return body, nil
}

// PutCachedPage stores body under key, replacing any previous entry and
// resetting its fetch time.
func (s *Store) PutCachedPage(ctx context.Context, key, url string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_cache (cache_key, url, body, fetched_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			url        = excluded.url,
			body       = excluded.body,
			fetched_at = excluded.fetched_at`,
		key, url, body, time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("putting cached page: %w", err)
	}
	return nil
}

// PurgeCachedPages deletes cache entries fetched more than olderThan ago and
// returns the number of rows removed.
func (s *Store) PurgeCachedPages(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(sqliteTimeLayout)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging cached pages: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged pages: %w", err)
	}
	return n, nil
}

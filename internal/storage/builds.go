package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/iMitio/spacetraveling/internal/models"
)

// CreateBuildRun records a static build. An ID is generated when run.ID is
// empty; the stored ID is returned.
func (s *Store) CreateBuildRun(ctx context.Context, run *models.BuildRun) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO build_runs (id, posts_count, next_page, output_dir)
		 VALUES (?, ?, ?, ?)`,
		run.ID, run.PostsCount, run.NextPage, run.OutputDir,
	)
	if err != nil {
		return "", fmt.Errorf("creating build run: %w", err)
	}
	return run.ID, nil
}

// GetRecentBuildRuns returns the most recent build runs, newest first.
func (s *Store) GetRecentBuildRuns(ctx context.Context, limit int) ([]models.BuildRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, posts_count, next_page, output_dir, created_at
		 FROM build_runs
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent build runs: %w", err)
	}
	defer rows.Close()

	var runs []models.BuildRun
	for rows.Next() {
		var (
			run       models.BuildRun
			nextPage  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&run.ID, &run.PostsCount, &nextPage, &run.OutputDir, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning build run row: %w", err)
		}
		if nextPage.Valid {
			v := nextPage.String
			run.NextPage = &v
		}
		run.CreatedAt = parseTime(createdAt)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating build run rows: %w", err)
	}
	return runs, nil
}

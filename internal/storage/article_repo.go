package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_article_store.go -package=mocks newsdesk-ai/internal/storage ArticleStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ArticleStore is the read side of the metadata table used at query time.
type ArticleStore interface {
	// GetByPositions returns the rows at the given positions keyed by position.
	// Positions with no row are absent from the map.
	GetByPositions(ctx context.Context, positions []int) (map[int]*ArticleRecord, error)
	// Count returns the number of rows.
	Count(ctx context.Context) (int, error)
}

// ArticleRepo provides methods for article operations.
// It implements the ArticleStore interface.
type ArticleRepo struct {
	db *sql.DB
}

// NewArticleRepo creates a new ArticleRepo.
func NewArticleRepo(db *sql.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

// InsertBatch writes articles in a single transaction.
func (r *ArticleRepo) InsertBatch(ctx context.Context, articles []*ArticleRecord) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO articles (position, article_id, title, body, url, published_at) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, a := range articles {
		var published sql.NullTime
		if a.PublishedAt != nil {
			published = sql.NullTime{Time: a.PublishedAt.UTC(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, a.Position, a.ArticleID, a.Title, a.Body, a.URL, published); err != nil {
			return fmt.Errorf("failed to insert article %q at position %d: %w", a.ArticleID, a.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit articles: %w", err)
	}
	return nil
}

// GetByPositions returns the rows at the given positions keyed by position.
func (r *ArticleRepo) GetByPositions(ctx context.Context, positions []int) (map[int]*ArticleRecord, error) {
	result := make(map[int]*ArticleRecord, len(positions))
	if len(positions) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(positions)), ",")
	args := make([]any, len(positions))
	for i, p := range positions {
		args[i] = p
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT position, article_id, title, body, url, published_at FROM articles WHERE position IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			a         ArticleRecord
			published sql.NullTime
		)
		if err := rows.Scan(&a.Position, &a.ArticleID, &a.Title, &a.Body, &a.URL, &published); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		if published.Valid {
			t := published.Time
			a.PublishedAt = &t
		}
		result[a.Position] = &a
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return result, nil
}

// Count returns the number of rows.
func (r *ArticleRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// MaxPosition returns the highest position, or -1 for an empty table.
func (r *ArticleRepo) MaxPosition(ctx context.Context) (int, error) {
	var p sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(position) FROM articles").Scan(&p); err != nil {
		return 0, fmt.Errorf("failed to read max position: %w", err)
	}
	if !p.Valid {
		return -1, nil
	}
	return int(p.Int64), nil
}

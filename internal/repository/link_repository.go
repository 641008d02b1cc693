package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/shortify/internal/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrCodeExists   = errors.New("short code already exists")
)

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	GetByShortCode(ctx context.Context, code string) (*models.Link, error)
	Deactivate(ctx context.Context, code string, userID *int64) error
	GetLinkIDByShortCode(ctx context.Context, code string) (int64, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.LinkStats, error)
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

// Create inserts the link. The unique index on short_code is the only
// serialization point for collision detection; a violation comes back as
// ErrCodeExists and the caller decides whether to retry.
func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (short_code, original_url, user_id, custom_alias, is_active, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.Pool.QueryRow(
		ctx,
		query,
		link.ShortCode,
		link.OriginalURL,
		link.UserID,
		link.CustomAlias,
		link.IsActive,
		link.ExpiresAt,
		link.CreatedAt,
	).Scan(&link.ID, &link.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetByShortCode returns the row as stored, including deactivated and expired
// links. Validity checks belong to the service layer, which needs to tell
// "gone" apart from "never existed".
func (r *linkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	query := `
		SELECT id, short_code, original_url, user_id, custom_alias, is_active, expires_at, created_at
		FROM links
		WHERE short_code = $1
	`

	link := &models.Link{}
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(
		&link.ID,
		&link.ShortCode,
		&link.OriginalURL,
		&link.UserID,
		&link.CustomAlias,
		&link.IsActive,
		&link.ExpiresAt,
		&link.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return link, nil
}

// Deactivate is a logical delete: the row is kept so the code is never
// reused. With a userID it only matches links owned by that user, so a
// mismatch is indistinguishable from not-found.
func (r *linkRepository) Deactivate(ctx context.Context, code string, userID *int64) error {
	query := `UPDATE links SET is_active = FALSE WHERE short_code = $1`
	args := []any{code}

	if userID != nil {
		query += ` AND user_id = $2`
		args = append(args, *userID)
	}

	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to deactivate link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) GetLinkIDByShortCode(ctx context.Context, code string) (int64, error) {
	query := `SELECT id FROM links WHERE short_code = $1`

	var linkID int64
	err := r.db.Pool.QueryRow(ctx, query, code).Scan(&linkID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrLinkNotFound
		}
		return 0, fmt.Errorf("failed to get link ID: %w", err)
	}

	return linkID, nil
}

// ListByUser returns the user's links newest first, each with its total
// click count from the durable click log.
func (r *linkRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.LinkStats, error) {
	query := `
		SELECT
			l.id,
			l.short_code,
			l.original_url,
			l.is_active,
			l.created_at,
			COALESCE(COUNT(c.id), 0) AS total_clicks
		FROM links l
		LEFT JOIN clicks c ON l.id = c.link_id
		WHERE l.user_id = $1
		GROUP BY l.id
		ORDER BY l.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list user links: %w", err)
	}
	defer rows.Close()

	var stats []models.LinkStats
	for rows.Next() {
		var s models.LinkStats
		if err := rows.Scan(&s.ID, &s.ShortCode, &s.OriginalURL, &s.IsActive, &s.CreatedAt, &s.TotalClicks); err != nil {
			return nil, fmt.Errorf("failed to scan user link: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user links: %w", err)
	}

	return stats, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/shortify/internal/models"
)

// ClickRepository is the durable, append-only click log. Rows are never
// updated; the only delete is an explicit operator purge of one link's
// history.
type ClickRepository interface {
	RecordClick(ctx context.Context, click *models.Click) error
	GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error)
	GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error)
	DeleteByLinkID(ctx context.Context, linkID int64) (int64, error)
}

type clickRepository struct {
	db *PostgresDB
}

func NewClickRepository(db *PostgresDB) ClickRepository {
	return &clickRepository{db: db}
}

func (r *clickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	query := `
		INSERT INTO clicks (link_id, ip_address, user_agent, referrer, country, clicked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		click.LinkID,
		click.IPAddress,
		click.UserAgent,
		click.Referrer,
		click.Country,
		click.ClickedAt,
	).Scan(&click.ID)

	if err != nil {
		return fmt.Errorf("failed to record click: %w", err)
	}

	return nil
}

func (r *clickRepository) GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_clicks,
			COUNT(DISTINCT c.ip_address) AS unique_ips,
			COUNT(*) FILTER (WHERE c.clicked_at >= DATE_TRUNC('day', NOW())) AS clicks_today
		FROM clicks c
		JOIN links l ON c.link_id = l.id
		WHERE l.short_code = $1
	`

	stats := &models.ClickStats{
		ShortCode: shortCode,
	}

	err := r.db.Pool.QueryRow(ctx, query, shortCode).Scan(
		&stats.TotalClicks,
		&stats.UniqueIPs,
		&stats.ClicksToday,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get click stats: %w", err)
	}

	return stats, nil
}

func (r *clickRepository) GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error) {
	query := `
		SELECT
			TO_CHAR(DATE(c.clicked_at), 'YYYY-MM-DD') AS date,
			COUNT(*) AS clicks
		FROM clicks c
		JOIN links l ON c.link_id = l.id
		WHERE l.short_code = $1
			AND c.clicked_at >= NOW() - INTERVAL '1 day' * $2
		GROUP BY DATE(c.clicked_at)
		ORDER BY date DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, shortCode, days)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DailyClickStats
	for rows.Next() {
		var dailyStat models.DailyClickStats
		if err := rows.Scan(&dailyStat.Date, &dailyStat.Clicks); err != nil {
			return nil, fmt.Errorf("failed to scan daily stat: %w", err)
		}
		stats = append(stats, dailyStat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats: %w", err)
	}

	return stats, nil
}

// DeleteByLinkID bulk-deletes a link's click history. Operator-only.
func (r *clickRepository) DeleteByLinkID(ctx context.Context, linkID int64) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM clicks WHERE link_id = $1`, linkID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete clicks: %w", err)
	}
	return result.RowsAffected(), nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
	"github.com/benxgao/certifai-gateway/internal/gateway/store"
)

type userLinksRepo struct {
	db *sql.DB
}

func (r *userLinksRepo) GetBySubject(ctx context.Context, subject string) (domain.UserLink, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, subject, email, internal_id, status, created_at, updated_at
		FROM user_links
		WHERE subject = ?`, subject)

	return scanLink(row)
}

func (r *userLinksRepo) Upsert(ctx context.Context, link domain.UserLink) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_links (id, subject, email, internal_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (subject) DO UPDATE SET
			email       = excluded.email,
			internal_id = excluded.internal_id,
			status      = excluded.status,
			updated_at  = excluded.updated_at`,
		link.ID,
		link.Subject,
		link.Email,
		link.InternalID,
		string(link.Status),
		link.CreatedAt.UTC(),
		link.UpdatedAt.UTC(),
	)
	return err
}

func (r *userLinksRepo) ListFallbacks(ctx context.Context, limit int) ([]domain.UserLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subject, email, internal_id, status, created_at, updated_at
		FROM user_links
		WHERE status = ?
		ORDER BY updated_at ASC
		LIMIT ?`, string(domain.LinkFallback), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.UserLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (r *userLinksRepo) Confirm(ctx context.Context, subject, internalID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_links
		SET internal_id = ?, status = ?, updated_at = ?
		WHERE subject = ?`,
		internalID, string(domain.LinkConfirmed), at.UTC(), subject)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *userLinksRepo) DeleteStaleFallbacks(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM user_links
		WHERE status = ? AND updated_at < ?`,
		string(domain.LinkFallback), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLink(row scannable) (domain.UserLink, error) {
	var link domain.UserLink
	var status string

	err := row.Scan(
		&link.ID,
		&link.Subject,
		&link.Email,
		&link.InternalID,
		&status,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserLink{}, store.ErrNotFound
		}
		return domain.UserLink{}, err
	}

	link.Status = domain.LinkStatus(status)
	return link, nil
}

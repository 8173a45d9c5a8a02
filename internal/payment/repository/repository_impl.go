package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/channelpass/channelpass/internal/payment/domain"
	pkgdb "github.com/channelpass/channelpass/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, user_id, provider_payment_id, status, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.UserID,
		payment.ProviderPaymentID,
		payment.Status,
		payment.Metadata,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
	if pkgdb.IsDuplicateKeyErr(err) {
		return domain.ErrStateConflict
	}
	return err
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, provider_payment_id, status, metadata, created_at, updated_at
		 FROM payments
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

// Transition is the compare-and-swap the rest of the system relies on. The
// status guard lives in the WHERE clause, so concurrent callers race on the
// database row, not on process-local state, and at most one of them wins.
// A non-empty provider_payment_id is never overwritten.
func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, expected []domain.Status, next domain.Status, patch domain.Patch, now time.Time) (bool, error) {
	if len(expected) == 0 {
		return false, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?,
		     provider_payment_id = CASE WHEN provider_payment_id = '' THEN ? ELSE provider_payment_id END,
		     updated_at = ?
		 WHERE id = ? AND status IN ?`,
		next,
		patch.ProviderPaymentID,
		now,
		id,
		expected,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE id = ?`,
		id,
	).Error
}

func (r *repo) DeleteTerminalBefore(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM payments
		 WHERE status IN ? AND updated_at < ?`,
		[]domain.Status{domain.StatusCompleted, domain.StatusCanceled, domain.StatusFailed},
		cutoff,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

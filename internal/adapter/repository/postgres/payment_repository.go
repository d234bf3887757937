package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, reservation_id, user_id, merchant_uid, imp_uid, amount, status, created_at, paid_at`

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var impUID sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(&p.ID, &p.ReservationID, &p.UserID, &p.MerchantUID, &impUID, &p.Amount, &p.Status, &p.CreatedAt, &paidAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}

		return nil, err
	}

	p.ImpUID = impUID.String
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}

	return &p, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `
	INSERT INTO payments (reservation_id, user_id, merchant_uid, amount, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6)
	RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		p.ReservationID, p.UserID, p.MerchantUID, p.Amount, p.Status, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	return nil
}

func (r *PaymentRepository) GetByMerchantUID(ctx context.Context, merchantUID string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE merchant_uid = $1`, merchantUID))
}

func (r *PaymentRepository) FindLatestByReservation(ctx context.Context, reservationID int64) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reservation_id = $1 ORDER BY id DESC LIMIT 1`, reservationID))
}

func (r *PaymentRepository) MarkCompleted(ctx context.Context, id int64, impUID string, paidAt time.Time) (bool, error) {
	query := `
	UPDATE payments
	SET status = 'COMPLETED', imp_uid = $1, paid_at = $2, updated_at = NOW()
	WHERE id = $3 AND status = 'PENDING'
	`

	return execAffected(ctx, r.db, query, impUID, paidAt, id)
}

func (r *PaymentRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.PaymentStatus) (bool, error) {
	query := `
	UPDATE payments
	SET status = $1, updated_at = NOW()
	WHERE id = $2 AND status = $3
	`

	return execAffected(ctx, r.db, query, to, id, from)
}

func (r *PaymentRepository) CancelPendingByReservation(ctx context.Context, reservationID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
	UPDATE payments
	SET status = 'CANCELLED', updated_at = NOW()
	WHERE reservation_id = $1 AND status = 'PENDING'
	`, reservationID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *PaymentRepository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = 'PENDING' AND created_at < $1 ORDER BY id LIMIT $2`,
		createdBefore, limit,
	)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *p)
	}

	return out, rows.Err()
}

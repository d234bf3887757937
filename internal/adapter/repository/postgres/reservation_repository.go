package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

type ReservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, user_id, schedule_id, grade, quantity, track_type, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.ScheduleID,
		&res.Grade,
		&res.Quantity,
		&res.Track,
		&res.Status,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}

	return res, err
}

func (r *ReservationRepository) FindActive(ctx context.Context, userID, scheduleID int64) (*domain.Reservation, error) {
	query := `
	SELECT ` + reservationColumns + `
	FROM reservations
	WHERE user_id = $1 AND schedule_id = $2 AND status NOT IN ('CANCELLED', 'REFUNDED')
	`

	res, err := scanReservation(r.db.QueryRowContext(ctx, query, userID, scheduleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}

	return res, err
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID, scheduleID int64, track domain.Track) ([]domain.Reservation, error) {
	query := `
	SELECT ` + reservationColumns + `
	FROM reservations
	WHERE user_id = $1 AND schedule_id = $2 AND track_type = $3
	ORDER BY id
	`

	return r.list(ctx, query, userID, scheduleID, track)
}

func (r *ReservationRepository) ListByStatus(ctx context.Context, scheduleID int64, track domain.Track, status domain.ReservationStatus) ([]domain.Reservation, error) {
	query := `
	SELECT ` + reservationColumns + `
	FROM reservations
	WHERE schedule_id = $1 AND track_type = $2 AND status = $3
	ORDER BY id
	`

	return r.list(ctx, query, scheduleID, track, status)
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *res)
	}

	return out, rows.Err()
}

const lotteryQuantitySum = `
	SELECT COALESCE(SUM(quantity), 0)
	FROM reservations
	WHERE schedule_id = $1 AND grade = $2 AND track_type = 'LOTTERY'
		AND status IN ('PENDING', 'PAID_PENDING_SEAT', 'ASSIGNED')
	`

func (r *ReservationRepository) SumLotteryQuantity(ctx context.Context, scheduleID int64, grade domain.Grade) (int, error) {
	var sum int
	err := r.db.QueryRowContext(ctx, lotteryQuantitySum, scheduleID, grade).Scan(&sum)

	return sum, err
}

func (r *ReservationRepository) SumUserLotteryQuantity(ctx context.Context, userID, scheduleID int64) (int, error) {
	query := `
	SELECT COALESCE(SUM(quantity), 0)
	FROM reservations
	WHERE user_id = $1 AND schedule_id = $2 AND track_type = 'LOTTERY'
		AND status NOT IN ('CANCELLED', 'REFUNDED')
	`

	var sum int
	err := r.db.QueryRowContext(ctx, query, userID, scheduleID).Scan(&sum)

	return sum, err
}

const insertReservation = `
	INSERT INTO reservations (user_id, schedule_id, grade, quantity, track_type, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	RETURNING id
	`

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	err := r.db.QueryRowContext(ctx, insertReservation,
		res.UserID, res.ScheduleID, res.Grade, res.Quantity, res.Track, res.Status, res.CreatedAt,
	).Scan(&res.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyParticipated
		}

		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	res.UpdatedAt = res.CreatedAt

	return nil
}

// CreateLotteryWithinQuota takes a transaction-scoped advisory lock on
// (schedule, grade) so the sum check and the insert cannot interleave with
// another entrant for the same grade.
func (r *ReservationRepository) CreateLotteryWithinQuota(ctx context.Context, res *domain.Reservation, quota int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext('lottery:' || $1::text || ':' || $2::text))`,
		res.ScheduleID, string(res.Grade),
	)
	if err != nil {
		return fmt.Errorf("failed to lock lottery quota: %w", err)
	}

	var reserved int
	if err := tx.QueryRowContext(ctx, lotteryQuantitySum, res.ScheduleID, res.Grade).Scan(&reserved); err != nil {
		return fmt.Errorf("failed to sum lottery quantity: %w", err)
	}

	if reserved+res.Quantity > quota {
		return domain.ErrLotteryQuotaExceeded
	}

	err = tx.QueryRowContext(ctx, insertReservation,
		res.UserID, res.ScheduleID, res.Grade, res.Quantity, res.Track, res.Status, res.CreatedAt,
	).Scan(&res.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyParticipated
		}

		return fmt.Errorf("failed to insert lottery reservation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	res.UpdatedAt = res.CreatedAt

	return nil
}

func (r *ReservationRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.ReservationStatus) (bool, error) {
	query := `
	UPDATE reservations
	SET status = $1, updated_at = NOW()
	WHERE id = $2 AND status = $3
	`

	return execAffected(ctx, r.db, query, to, id, from)
}

func (r *ReservationRepository) IncrementQuantity(ctx context.Context, id int64, max int) (bool, error) {
	query := `
	UPDATE reservations
	SET quantity = quantity + 1, updated_at = NOW()
	WHERE id = $1 AND status = 'PENDING' AND quantity < $2
	`

	return execAffected(ctx, r.db, query, id, max)
}

func (r *ReservationRepository) DecrementQuantity(ctx context.Context, id int64) (int, error) {
	query := `
	UPDATE reservations
	SET quantity = quantity - 1,
		status = CASE WHEN quantity - 1 <= 0 THEN 'CANCELLED' ELSE status END,
		updated_at = NOW()
	WHERE id = $1 AND status = 'PENDING' AND quantity > 0
	RETURNING quantity
	`

	var left int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&left)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrReservationNotPending
	}

	return left, err
}

func execAffected(ctx context.Context, db *sql.DB, query string, args ...any) (bool, error) {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

type ReservationSeatRepository struct {
	db *sql.DB
}

func NewReservationSeatRepository(db *sql.DB) *ReservationSeatRepository {
	return &ReservationSeatRepository{db: db}
}

const reservationSeatSelect = `
	SELECT rs.id, rs.reservation_id, r.schedule_id, rs.seat_id, rs.zone, rs.seat_number, rs.status, rs.assigned_at, rs.created_at
	FROM reservation_seats rs
	JOIN reservations r ON r.id = rs.reservation_id
	`

func scanReservationSeat(row rowScanner) (*domain.ReservationSeat, error) {
	var rs domain.ReservationSeat
	var assignedAt sql.NullTime

	err := row.Scan(
		&rs.ID,
		&rs.ReservationID,
		&rs.ScheduleID,
		&rs.SeatID,
		&rs.Zone,
		&rs.SeatNumber,
		&rs.Status,
		&assignedAt,
		&rs.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if assignedAt.Valid {
		rs.AssignedAt = &assignedAt.Time
	}

	return &rs, nil
}

func (r *ReservationSeatRepository) Create(ctx context.Context, rs *domain.ReservationSeat) error {
	query := `
	INSERT INTO reservation_seats (reservation_id, seat_id, zone, seat_number, status, assigned_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		rs.ReservationID, rs.SeatID, rs.Zone, rs.SeatNumber, rs.Status, rs.AssignedAt, rs.CreatedAt,
	).Scan(&rs.ID)
	if err != nil {
		return fmt.Errorf("failed to insert reservation seat %s/%s: %w", rs.Zone, rs.SeatNumber, err)
	}

	return nil
}

func (r *ReservationSeatRepository) ListByReservation(ctx context.Context, reservationID int64) ([]domain.ReservationSeat, error) {
	return r.list(ctx, reservationSeatSelect+` WHERE rs.reservation_id = $1 ORDER BY rs.id`, reservationID)
}

func (r *ReservationSeatRepository) ListByStatus(ctx context.Context, reservationID int64, status domain.ReservationSeatStatus) ([]domain.ReservationSeat, error) {
	return r.list(ctx,
		reservationSeatSelect+` WHERE rs.reservation_id = $1 AND rs.status = $2 ORDER BY rs.id`,
		reservationID, status,
	)
}

func (r *ReservationSeatRepository) ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.ReservationSeat, error) {
	return r.list(ctx,
		reservationSeatSelect+` WHERE rs.status = 'PENDING' AND rs.created_at < $1 ORDER BY rs.id LIMIT $2`,
		createdBefore, limit,
	)
}

func (r *ReservationSeatRepository) FindPendingBySeat(ctx context.Context, scheduleID int64, zone, seatNumber string) (*domain.ReservationSeat, error) {
	query := reservationSeatSelect + `
	WHERE r.schedule_id = $1 AND rs.zone = $2 AND rs.seat_number = $3 AND rs.status = 'PENDING'
	ORDER BY rs.id DESC
	LIMIT 1
	`

	rs, err := scanReservationSeat(r.db.QueryRowContext(ctx, query, scheduleID, zone, seatNumber))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}

	return rs, err
}

func (r *ReservationSeatRepository) list(ctx context.Context, query string, args ...any) ([]domain.ReservationSeat, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var out []domain.ReservationSeat
	for rows.Next() {
		rs, err := scanReservationSeat(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *rs)
	}

	return out, rows.Err()
}

func (r *ReservationSeatRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.ReservationSeatStatus) (bool, error) {
	query := `
	UPDATE reservation_seats
	SET status = $1,
		assigned_at = CASE WHEN $4 THEN NOW() ELSE assigned_at END
	WHERE id = $2 AND status = $3
	`

	return execAffected(ctx, r.db, query, to, id, from, to == domain.ReservationSeatAssigned)
}

func (r *ReservationSeatRepository) AssignLottery(ctx context.Context, reservationID int64, seats []domain.ReservationSeat) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	queryItem := `
	INSERT INTO reservation_seats (reservation_id, seat_id, zone, seat_number, status, assigned_at, created_at)
	VALUES ($1, $2, $3, $4, 'ASSIGNED', $5, $5)
	`

	stmt, err := tx.PrepareContext(ctx, queryItem)
	if err != nil {
		return fmt.Errorf("failed to prepare item statement: %w", err)
	}

	defer stmt.Close()

	now := time.Now()
	seatIDs := make([]int64, 0, len(seats))
	for _, s := range seats {
		if _, err := stmt.ExecContext(ctx, reservationID, s.SeatID, s.Zone, s.SeatNumber, now); err != nil {
			return fmt.Errorf("failed to insert reservation seat %s/%s: %w", s.Zone, s.SeatNumber, err)
		}

		seatIDs = append(seatIDs, s.SeatID)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE seats SET status = 'SOLD', updated_at = NOW() WHERE id = ANY($1)`,
		pq.Array(seatIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to mark seats sold: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
	UPDATE reservations
	SET quantity = $1, status = 'ASSIGNED', updated_at = NOW()
	WHERE id = $2 AND status = 'PAID_PENDING_SEAT'
	`, len(seats), reservationID)
	if err != nil {
		return fmt.Errorf("failed to mark reservation assigned: %w", err)
	}

	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("reservation %d: %w", reservationID, domain.ErrReservationNotFound)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

type SeatRepository struct {
	db *sql.DB
}

func NewSeatRepository(db *sql.DB) *SeatRepository {
	return &SeatRepository{db: db}
}

func (r *SeatRepository) ListBySchedule(ctx context.Context, scheduleID int64) ([]domain.Seat, error) {
	query := `
	SELECT id, schedule_id, zone, grade, seat_number, price, status
	FROM seats
	WHERE schedule_id = $1
	ORDER BY zone, seat_number
	`
	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var seats []domain.Seat
	for rows.Next() {
		var seat domain.Seat
		if err := rows.Scan(
			&seat.ID,
			&seat.ScheduleID,
			&seat.Zone,
			&seat.Grade,
			&seat.SeatNumber,
			&seat.Price,
			&seat.Status,
		); err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	return seats, rows.Err()
}

func (r *SeatRepository) GetBySeatNumber(ctx context.Context, scheduleID int64, zone, seatNumber string) (*domain.Seat, error) {
	query := `
	SELECT id, schedule_id, zone, grade, seat_number, price, status
	FROM seats
	WHERE schedule_id = $1 AND zone = $2 AND seat_number = $3
	`

	var seat domain.Seat
	err := r.db.QueryRowContext(ctx, query, scheduleID, zone, seatNumber).Scan(
		&seat.ID,
		&seat.ScheduleID,
		&seat.Zone,
		&seat.Grade,
		&seat.SeatNumber,
		&seat.Price,
		&seat.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSeatNotFound
		}

		return nil, err
	}

	return &seat, nil
}

// UpdateStatus mirrors the fast-store state. It is idempotent.
func (r *SeatRepository) UpdateStatus(ctx context.Context, scheduleID int64, zone, seatNumber string, status domain.SeatStatus) error {
	query := `
	UPDATE seats
	SET status = $1,
		updated_at = NOW()
	WHERE schedule_id = $2 AND zone = $3 AND seat_number = $4
	`

	_, err := r.db.ExecContext(ctx, query, status, scheduleID, zone, seatNumber)
	if err != nil {
		return fmt.Errorf("update seat %s/%s status: %w", zone, seatNumber, err)
	}

	return nil
}

func (r *SeatRepository) CountByGrade(ctx context.Context, scheduleID int64, grade domain.Grade) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE schedule_id = $1 AND grade = $2`,
		scheduleID, grade,
	).Scan(&n)

	return n, err
}

func (r *SeatRepository) ZonesByGrade(ctx context.Context, scheduleID int64, grade domain.Grade) ([]string, error) {
	return r.zones(ctx,
		`SELECT DISTINCT zone FROM seats WHERE schedule_id = $1 AND grade = $2 ORDER BY zone`,
		scheduleID, grade,
	)
}

func (r *SeatRepository) Zones(ctx context.Context, scheduleID int64) ([]string, error) {
	return r.zones(ctx,
		`SELECT DISTINCT zone FROM seats WHERE schedule_id = $1 ORDER BY zone`,
		scheduleID,
	)
}

func (r *SeatRepository) zones(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var zones []string
	for rows.Next() {
		var zone string
		if err := rows.Scan(&zone); err != nil {
			return nil, err
		}

		zones = append(zones, zone)
	}

	return zones, rows.Err()
}

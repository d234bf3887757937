package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

type ScheduleRepository struct {
	db *sql.DB
}

func NewScheduleRepository(db *sql.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, concert_id, start_time, ticket_open_time, ticket_close_time, status`

func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	var s domain.Schedule
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID,
		&s.ConcertID,
		&s.StartTime,
		&s.TicketOpenTime,
		&s.TicketCloseTime,
		&s.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrScheduleNotFound
		}

		return nil, err
	}

	return &s, nil
}

func (r *ScheduleRepository) ListOpeningBetween(ctx context.Context, from, to time.Time) ([]domain.Schedule, error) {
	query := `
	SELECT ` + scheduleColumns + `
	FROM schedules
	WHERE ticket_open_time BETWEEN $1 AND $2
	ORDER BY ticket_open_time
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		var s domain.Schedule
		if err := rows.Scan(&s.ID, &s.ConcertID, &s.StartTime, &s.TicketOpenTime, &s.TicketCloseTime, &s.Status); err != nil {
			return nil, err
		}

		schedules = append(schedules, s)
	}

	return schedules, rows.Err()
}

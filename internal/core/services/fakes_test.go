package services_test

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
)

// memDB is an in-memory durable store with the same compare-and-set
// semantics as the postgres adapters.
type memDB struct {
	mu sync.Mutex

	schedules    map[int64]*domain.Schedule
	seats        []*domain.Seat
	reservations map[int64]*domain.Reservation
	resSeats     map[int64]*domain.ReservationSeat
	payments     map[int64]*domain.Payment

	nextSeat, nextRes, nextRS, nextPay int64
}

func newMemDB() *memDB {
	return &memDB{
		schedules:    make(map[int64]*domain.Schedule),
		reservations: make(map[int64]*domain.Reservation),
		resSeats:     make(map[int64]*domain.ReservationSeat),
		payments:     make(map[int64]*domain.Payment),
	}
}

func (db *memDB) addSchedule(s domain.Schedule) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.schedules[s.ID] = &s
}

func (db *memDB) addSeats(scheduleID int64, zone string, grade domain.Grade, numbers ...string) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, n := range numbers {
		db.nextSeat++
		db.seats = append(db.seats, &domain.Seat{
			ID:         db.nextSeat,
			ScheduleID: scheduleID,
			Zone:       zone,
			Grade:      grade,
			SeatNumber: n,
			Price:      grade.Price(),
			Status:     domain.SeatAvailable,
		})
	}
}

func (db *memDB) seatStatus(scheduleID int64, zone, number string) domain.SeatStatus {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, s := range db.seats {
		if s.ScheduleID == scheduleID && s.Zone == zone && s.SeatNumber == number {
			return s.Status
		}
	}
	return ""
}

func (db *memDB) reservation(id int64) domain.Reservation {
	db.mu.Lock()
	defer db.mu.Unlock()

	return *db.reservations[id]
}

func (db *memDB) payment(id int64) domain.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()

	return *db.payments[id]
}

func (db *memDB) insertReservation(r domain.Reservation) *domain.Reservation {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.nextRes++
	r.ID = db.nextRes
	db.reservations[r.ID] = &r
	out := r
	return &out
}

func (db *memDB) insertPayment(p domain.Payment) *domain.Payment {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.nextPay++
	p.ID = db.nextPay
	db.payments[p.ID] = &p
	out := p
	return &out
}

type scheduleRepo struct{ db *memDB }

func (r scheduleRepo) GetByID(_ context.Context, id int64) (*domain.Schedule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.schedules[id]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	out := *s
	return &out, nil
}

func (r scheduleRepo) ListOpeningBetween(_ context.Context, from, to time.Time) ([]domain.Schedule, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.Schedule
	for _, s := range r.db.schedules {
		if !s.TicketOpenTime.Before(from) && !s.TicketOpenTime.After(to) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type seatRepo struct{ db *memDB }

func (r seatRepo) ListBySchedule(_ context.Context, scheduleID int64) ([]domain.Seat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.Seat
	for _, s := range r.db.seats {
		if s.ScheduleID == scheduleID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r seatRepo) GetBySeatNumber(_ context.Context, scheduleID int64, zone, seatNumber string) (*domain.Seat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, s := range r.db.seats {
		if s.ScheduleID == scheduleID && s.Zone == zone && s.SeatNumber == seatNumber {
			out := *s
			return &out, nil
		}
	}
	return nil, domain.ErrSeatNotFound
}

func (r seatRepo) UpdateStatus(_ context.Context, scheduleID int64, zone, seatNumber string, status domain.SeatStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, s := range r.db.seats {
		if s.ScheduleID == scheduleID && s.Zone == zone && s.SeatNumber == seatNumber {
			s.Status = status
			return nil
		}
	}
	return domain.ErrSeatNotFound
}

func (r seatRepo) CountByGrade(_ context.Context, scheduleID int64, grade domain.Grade) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n := 0
	for _, s := range r.db.seats {
		if s.ScheduleID == scheduleID && s.Grade == grade {
			n++
		}
	}
	return n, nil
}

func (r seatRepo) zones(scheduleID int64, match func(*domain.Seat) bool) []string {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	seen := make(map[string]bool)
	var out []string
	for _, s := range r.db.seats {
		if s.ScheduleID == scheduleID && match(s) && !seen[s.Zone] {
			seen[s.Zone] = true
			out = append(out, s.Zone)
		}
	}
	sort.Strings(out)
	return out
}

func (r seatRepo) ZonesByGrade(_ context.Context, scheduleID int64, grade domain.Grade) ([]string, error) {
	return r.zones(scheduleID, func(s *domain.Seat) bool { return s.Grade == grade }), nil
}

func (r seatRepo) Zones(_ context.Context, scheduleID int64) ([]string, error) {
	return r.zones(scheduleID, func(*domain.Seat) bool { return true }), nil
}

type reservationRepo struct{ db *memDB }

func (r reservationRepo) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res, ok := r.db.reservations[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	out := *res
	return &out, nil
}

func (r reservationRepo) findActive(userID, scheduleID int64) *domain.Reservation {
	for _, res := range r.db.reservations {
		if res.UserID == userID && res.ScheduleID == scheduleID && !res.Status.IsTerminal() {
			return res
		}
	}
	return nil
}

func (r reservationRepo) FindActive(_ context.Context, userID, scheduleID int64) (*domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res := r.findActive(userID, scheduleID)
	if res == nil {
		return nil, domain.ErrReservationNotFound
	}
	out := *res
	return &out, nil
}

func (r reservationRepo) list(match func(*domain.Reservation) bool) []domain.Reservation {
	var out []domain.Reservation
	for _, res := range r.db.reservations {
		if match(res) {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r reservationRepo) ListByUser(_ context.Context, userID, scheduleID int64, track domain.Track) ([]domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.list(func(res *domain.Reservation) bool {
		return res.UserID == userID && res.ScheduleID == scheduleID && res.Track == track
	}), nil
}

func (r reservationRepo) ListByStatus(_ context.Context, scheduleID int64, track domain.Track, status domain.ReservationStatus) ([]domain.Reservation, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.list(func(res *domain.Reservation) bool {
		return res.ScheduleID == scheduleID && res.Track == track && res.Status == status
	}), nil
}

func (r reservationRepo) sumLottery(match func(*domain.Reservation) bool) int {
	total := 0
	for _, res := range r.db.reservations {
		if res.Track == domain.TrackLottery && !res.Status.IsTerminal() && match(res) {
			total += res.Quantity
		}
	}
	return total
}

func (r reservationRepo) SumLotteryQuantity(_ context.Context, scheduleID int64, grade domain.Grade) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.sumLottery(func(res *domain.Reservation) bool {
		return res.ScheduleID == scheduleID && res.Grade == grade
	}), nil
}

func (r reservationRepo) SumUserLotteryQuantity(_ context.Context, userID, scheduleID int64) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.sumLottery(func(res *domain.Reservation) bool {
		return res.ScheduleID == scheduleID && res.UserID == userID
	}), nil
}

func (r reservationRepo) insert(res *domain.Reservation) error {
	if r.findActive(res.UserID, res.ScheduleID) != nil {
		return domain.ErrAlreadyParticipated
	}

	r.db.nextRes++
	res.ID = r.db.nextRes
	stored := *res
	r.db.reservations[res.ID] = &stored
	return nil
}

func (r reservationRepo) Create(_ context.Context, res *domain.Reservation) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.insert(res)
}

func (r reservationRepo) CreateLotteryWithinQuota(_ context.Context, res *domain.Reservation, quota int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	used := r.sumLottery(func(other *domain.Reservation) bool {
		return other.ScheduleID == res.ScheduleID && other.Grade == res.Grade
	})
	if used+res.Quantity > quota {
		return domain.ErrLotteryQuotaExceeded
	}
	return r.insert(res)
}

func (r reservationRepo) TransitionStatus(_ context.Context, id int64, from, to domain.ReservationStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res, ok := r.db.reservations[id]
	if !ok || res.Status != from {
		return false, nil
	}
	res.Status = to
	return true, nil
}

func (r reservationRepo) IncrementQuantity(_ context.Context, id int64, max int) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res, ok := r.db.reservations[id]
	if !ok || res.Status != domain.ReservationPending || res.Quantity >= max {
		return false, nil
	}
	res.Quantity++
	return true, nil
}

func (r reservationRepo) DecrementQuantity(_ context.Context, id int64) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res, ok := r.db.reservations[id]
	if !ok || res.Status != domain.ReservationPending {
		return 0, domain.ErrReservationNotPending
	}
	res.Quantity--
	if res.Quantity <= 0 {
		res.Quantity = 0
		res.Status = domain.ReservationCancelled
	}
	return res.Quantity, nil
}

type resSeatRepo struct{ db *memDB }

func (r resSeatRepo) Create(_ context.Context, rs *domain.ReservationSeat) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextRS++
	rs.ID = r.db.nextRS
	stored := *rs
	r.db.resSeats[rs.ID] = &stored
	return nil
}

func (r resSeatRepo) list(match func(*domain.ReservationSeat) bool) []domain.ReservationSeat {
	var out []domain.ReservationSeat
	for _, rs := range r.db.resSeats {
		if match(rs) {
			out = append(out, *rs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r resSeatRepo) ListByReservation(_ context.Context, reservationID int64) ([]domain.ReservationSeat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.list(func(rs *domain.ReservationSeat) bool { return rs.ReservationID == reservationID }), nil
}

func (r resSeatRepo) ListByStatus(_ context.Context, reservationID int64, status domain.ReservationSeatStatus) ([]domain.ReservationSeat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	return r.list(func(rs *domain.ReservationSeat) bool {
		return rs.ReservationID == reservationID && rs.Status == status
	}), nil
}

func (r resSeatRepo) ListExpiredPending(_ context.Context, createdBefore time.Time, limit int) ([]domain.ReservationSeat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := r.list(func(rs *domain.ReservationSeat) bool {
		return rs.Status == domain.ReservationSeatPending && rs.CreatedAt.Before(createdBefore)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r resSeatRepo) FindPendingBySeat(_ context.Context, scheduleID int64, zone, seatNumber string) (*domain.ReservationSeat, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	found := r.list(func(rs *domain.ReservationSeat) bool {
		return rs.ScheduleID == scheduleID && rs.Zone == zone && rs.SeatNumber == seatNumber &&
			rs.Status == domain.ReservationSeatPending
	})
	if len(found) == 0 {
		return nil, domain.ErrReservationNotFound
	}
	return &found[0], nil
}

func (r resSeatRepo) TransitionStatus(_ context.Context, id int64, from, to domain.ReservationSeatStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	rs, ok := r.db.resSeats[id]
	if !ok || rs.Status != from {
		return false, nil
	}
	rs.Status = to
	return true, nil
}

func (r resSeatRepo) AssignLottery(_ context.Context, reservationID int64, seats []domain.ReservationSeat) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	res, ok := r.db.reservations[reservationID]
	if !ok || res.Status != domain.ReservationPaidPendingSeat {
		return domain.ErrReservationNotPending
	}

	for _, rs := range seats {
		r.db.nextRS++
		rs.ID = r.db.nextRS
		rs.ReservationID = reservationID
		stored := rs
		r.db.resSeats[rs.ID] = &stored

		for _, s := range r.db.seats {
			if s.ID == rs.SeatID {
				s.Status = domain.SeatSold
			}
		}
	}

	res.Quantity = len(seats)
	res.Status = domain.ReservationAssigned
	return nil
}

type paymentRepo struct{ db *memDB }

func (r paymentRepo) Create(_ context.Context, p *domain.Payment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.nextPay++
	p.ID = r.db.nextPay
	stored := *p
	r.db.payments[p.ID] = &stored
	return nil
}

func (r paymentRepo) GetByMerchantUID(_ context.Context, merchantUID string) (*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, p := range r.db.payments {
		if p.MerchantUID == merchantUID {
			out := *p
			return &out, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r paymentRepo) FindLatestByReservation(_ context.Context, reservationID int64) (*domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var latest *domain.Payment
	for _, p := range r.db.payments {
		if p.ReservationID == reservationID && (latest == nil || p.ID > latest.ID) {
			latest = p
		}
	}
	if latest == nil {
		return nil, domain.ErrPaymentNotFound
	}
	out := *latest
	return &out, nil
}

func (r paymentRepo) MarkCompleted(_ context.Context, id int64, impUID string, paidAt time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.payments[id]
	if !ok || p.Status != domain.PaymentPending {
		return false, nil
	}
	p.Status, p.ImpUID, p.PaidAt = domain.PaymentCompleted, impUID, &paidAt
	return true, nil
}

func (r paymentRepo) TransitionStatus(_ context.Context, id int64, from, to domain.PaymentStatus) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	p, ok := r.db.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (r paymentRepo) CancelPendingByReservation(_ context.Context, reservationID int64) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	for _, p := range r.db.payments {
		if p.ReservationID == reservationID && p.Status == domain.PaymentPending {
			p.Status = domain.PaymentCancelled
			n++
		}
	}
	return n, nil
}

func (r paymentRepo) ListStalePending(_ context.Context, createdBefore time.Time, limit int) ([]domain.Payment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var out []domain.Payment
	for _, p := range r.db.payments {
		if p.Status == domain.PaymentPending && p.CreatedAt.Before(createdBefore) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, rdb
}

package domain

import "strings"

type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatSold      SeatStatus = "SOLD"
)

type Grade string

const (
	GradeVIP Grade = "VIP"
	GradeR   Grade = "R"
	GradeS   Grade = "S"
	GradeA   Grade = "A"
)

var gradePrices = map[Grade]int64{
	GradeVIP: 150000,
	GradeR:   120000,
	GradeS:   90000,
	GradeA:   60000,
}

func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := gradePrices[g]; !ok {
		return "", ErrInvalidGrade
	}
	return g, nil
}

func (g Grade) Price() int64 {
	return gradePrices[g]
}

func Grades() []Grade {
	return []Grade{GradeVIP, GradeR, GradeS, GradeA}
}

type Seat struct {
	ID         int64
	ScheduleID int64
	Zone       string
	Grade      Grade
	SeatNumber string
	Price      int64
	Status     SeatStatus
}

func (s *Seat) IsAvailable() bool {
	return s.Status == SeatAvailable
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

type Payment struct {
	ID            int64
	ReservationID int64
	UserID        int64
	MerchantUID   string
	ImpUID        string
	Amount        int64
	Status        PaymentStatus
	CreatedAt     time.Time
	PaidAt        *time.Time
}

func NewMerchantUID(now time.Time) string {
	return fmt.Sprintf("FAIR_%d_%s", now.UnixMilli(), uuid.NewString()[:8])
}

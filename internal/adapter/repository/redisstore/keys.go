package redisstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
)

const activeSchedulesKey = "active-schedules"

func queueKey(scheduleID int64) string { return fmt.Sprintf("queue:%d", scheduleID) }

func activeKey(scheduleID int64) string { return fmt.Sprintf("active:%d", scheduleID) }

func heartbeatPrefix(scheduleID int64) string { return fmt.Sprintf("heartbeat:%d:", scheduleID) }

func heartbeatKey(scheduleID, userID int64) string {
	return heartbeatPrefix(scheduleID) + strconv.FormatInt(userID, 10)
}

func tokenKey(userID, scheduleID int64) string { return fmt.Sprintf("token:%d:%d", userID, scheduleID) }

func poolKey(scheduleID int64, zone string) string { return fmt.Sprintf("seats:%d:%s", scheduleID, zone) }

func holdKey(scheduleID int64, zone, seatNumber string) string {
	return fmt.Sprintf("hold:%d:%s:%s", scheduleID, zone, seatNumber)
}

func stockKey(scheduleID int64, grade domain.Grade) string {
	return fmt.Sprintf("stock:%d:%s", scheduleID, grade)
}

func lotteryPaidKey(scheduleID int64) string { return fmt.Sprintf("lottery-paid:%d", scheduleID) }

func lotteryAssignedKey(scheduleID int64) string {
	return fmt.Sprintf("lottery-assigned:%d", scheduleID)
}

func liveClosedKey(scheduleID int64) string { return fmt.Sprintf("live-closed:%d", scheduleID) }

func queueZeroSinceKey(scheduleID int64) string {
	return fmt.Sprintf("queue-zero-since:%d", scheduleID)
}

func paymentTimerKey(reservationID int64) string {
	return fmt.Sprintf("payment-timer:%d", reservationID)
}

func lockKey(name string) string { return "lock:" + name }

// ParseExpiredKey recognises the key families whose expiry needs compensation.
func ParseExpiredKey(key string) (ports.ExpiryEvent, bool) {
	switch {
	case strings.HasPrefix(key, "payment-timer:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(key, "payment-timer:"), 10, 64)
		if err != nil {
			return ports.ExpiryEvent{}, false
		}
		return ports.ExpiryEvent{Kind: ports.ExpiredPaymentTimer, Key: key, ReservationID: id}, true

	case strings.HasPrefix(key, "hold:"):
		parts := strings.SplitN(strings.TrimPrefix(key, "hold:"), ":", 3)
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return ports.ExpiryEvent{}, false
		}
		scheduleID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return ports.ExpiryEvent{}, false
		}
		return ports.ExpiryEvent{
			Kind:       ports.ExpiredHold,
			Key:        key,
			ScheduleID: scheduleID,
			Zone:       parts[1],
			SeatNumber: parts[2],
		}, true
	}

	return ports.ExpiryEvent{}, false
}

func parseIDs(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

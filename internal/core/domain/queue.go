package domain

type QueueState string

const (
	QueueWaiting    QueueState = "WAITING"
	QueueReady      QueueState = "READY"
	QueueNotInQueue QueueState = "NOT_IN_QUEUE"
)

type QueueEntry struct {
	Position             int64
	EstimatedWaitMinutes int64
	State                QueueState
	Token                string
}

type QueueStatus struct {
	Position int64
	State    QueueState
	Token    string
}

// EstimateWaitMinutes assumes the first batch is admitted on the next tick and
// everyone behind it moves at perMinute admissions.
func EstimateWaitMinutes(position int64, batch, perMinute int) int64 {
	if position <= int64(batch) || perMinute <= 0 {
		return 0
	}
	behind := position - int64(batch)
	return (behind + int64(perMinute) - 1) / int64(perMinute)
}

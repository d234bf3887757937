package services

import "time"

type QueueConfig struct {
	BatchSize      int
	MaxActiveUsers int
	MaxQueueSize   int
	AdmitPerMinute int

	HeartbeatTTL  time.Duration
	TokenTTL      time.Duration
	ActiveTimeout time.Duration

	AdmissionInterval time.Duration
	CleanupInterval   time.Duration
}

func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		BatchSize:         100,
		MaxActiveUsers:    500,
		MaxQueueSize:      100000,
		AdmitPerMinute:    50,
		HeartbeatTTL:      30 * time.Second,
		TokenTTL:          300 * time.Second,
		ActiveTimeout:     60 * time.Second,
		AdmissionInterval: 5 * time.Second,
		CleanupInterval:   10 * time.Second,
	}
}

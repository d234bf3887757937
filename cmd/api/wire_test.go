package main

import (
	"log/slog"
	"testing"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/services"
	"github.com/srgjo27/fair_ticket/internal/platform/config"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigMatchesServiceDefaults(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, services.DefaultQueueConfig(), queueConfig(cfg.Queue))
	assert.Equal(t, domain.DefaultTrackPolicy(), trackPolicy(cfg.Track))
}

func TestDatabaseConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Name = "tickets"
	cfg.Database.Password = "pw"

	db := databaseConfig(cfg.Database)
	assert.Equal(t, "postgres://postgres:pw@localhost:5432/tickets?sslmode=disable", db.DSN())
}

func TestAPIMiddleware(t *testing.T) {
	cfg := config.Default()
	log := slog.New(slog.DiscardHandler)

	assert.Len(t, apiMiddleware(cfg.Limit, nil, log), 1)

	cfg.Limit.Enabled = false
	assert.Empty(t, apiMiddleware(cfg.Limit, nil, log))
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"serve", "migrate", "init-pool"}, names)
}

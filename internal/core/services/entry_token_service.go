package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
)

// EntryTokenService issues the single-use capability an admitted user needs
// to enter either track.
type EntryTokenService struct {
	tokens ports.TokenStore
	ttl    time.Duration
}

func NewEntryTokenService(tokens ports.TokenStore, ttl time.Duration) *EntryTokenService {
	return &EntryTokenService{tokens: tokens, ttl: ttl}
}

func (s *EntryTokenService) Issue(ctx context.Context, userID, scheduleID int64) (string, error) {
	token := uuid.NewString()

	if err := s.tokens.Save(ctx, userID, scheduleID, token, s.ttl); err != nil {
		return "", fmt.Errorf("issue token user=%d schedule=%d: %w", userID, scheduleID, err)
	}

	return token, nil
}

func (s *EntryTokenService) Current(ctx context.Context, userID, scheduleID int64) (string, error) {
	return s.tokens.Get(ctx, userID, scheduleID)
}

func (s *EntryTokenService) Validate(ctx context.Context, userID, scheduleID int64, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	current, err := s.tokens.Get(ctx, userID, scheduleID)
	if err != nil {
		return false, err
	}

	return current == token, nil
}

func (s *EntryTokenService) Consume(ctx context.Context, userID, scheduleID int64) (bool, error) {
	return s.tokens.Delete(ctx, userID, scheduleID)
}

// ValidateAndConsume deletes the token only if it matches, in one atomic step.
func (s *EntryTokenService) ValidateAndConsume(ctx context.Context, userID, scheduleID int64, token string) error {
	if token == "" {
		return domain.ErrInvalidOrExpiredToken
	}

	ok, err := s.tokens.ConsumeIfMatch(ctx, userID, scheduleID, token)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if !ok {
		return domain.ErrInvalidOrExpiredToken
	}

	return nil
}

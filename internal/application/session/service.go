package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ai-content-platform/internal/application/notification"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/infrastructure/google"
)

type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type TokenSigner interface {
	Sign(userID, email, plan string) (string, error)
}

// StatsKeeper moves a user's usage stats between the active and preserved slots.
type StatsKeeper interface {
	PreserveUserStats(ctx context.Context, userID string) error
	RestoreUserStats(ctx context.Context, userID string) (*domain.UsageStats, error)
}

type Notifications interface {
	For(userID string) *notification.Manager
}

type Service interface {
	SignInWithGoogle(ctx context.Context, idToken string) (*domain.SignInResult, error)
	SignOut(ctx context.Context, userID string) error
}

type service struct {
	verifier GoogleVerifier
	signer   TokenSigner
	stats    StatsKeeper
	notes    Notifications
	plan     domain.Plan
}

func NewService(verifier GoogleVerifier, signer TokenSigner, stats StatsKeeper, notes Notifications, plan domain.Plan) Service {
	return &service{
		verifier: verifier,
		signer:   signer,
		stats:    stats,
		notes:    notes,
		plan:     plan,
	}
}

func (s *service) SignInWithGoogle(ctx context.Context, idToken string) (*domain.SignInResult, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, fmt.Errorf("id_token is required: %w", domain.ErrBadRequest)
	}
	p, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}
	if p.Sub == "" {
		return nil, fmt.Errorf("google token has no subject: %w", domain.ErrUnauthorized)
	}

	bearer, err := s.signer.Sign(p.Sub, p.Email, string(s.plan))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	stats, err := s.stats.RestoreUserStats(ctx, p.Sub)
	if err != nil {
		slog.Warn("could not restore usage stats on sign-in", "user_id", p.Sub, "err", err)
	}
	return &domain.SignInResult{
		Bearer: bearer,
		UserID: p.Sub,
		Email:  p.Email,
		Plan:   s.plan,
		Stats:  stats,
	}, nil
}

func (s *service) SignOut(ctx context.Context, userID string) error {
	mgr := s.notes.For(userID)
	if err := s.stats.PreserveUserStats(ctx, userID); err != nil {
		mgr.Error("Logout failed", domain.NotificationOptions{Description: "Please try again"})
		return fmt.Errorf("sign out: %w", err)
	}
	mgr.Success("Logged out successfully", domain.NotificationOptions{})
	return nil
}

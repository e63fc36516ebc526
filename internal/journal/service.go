package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service records onboarding milestones. Recording never fails the caller:
// errors are logged and dropped.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds a journal service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Record appends an event for sessionID.
func (s *Service) Record(ctx context.Context, sessionID, step, kind, detail string) {
	if s == nil || s.repo == nil {
		return
	}
	event := Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Step:      step,
		Kind:      kind,
		Detail:    detail,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Append(ctx, event); err != nil {
		s.logger.Warn("journal append failed", slog.String("session_id", sessionID), slog.String("kind", kind), slog.Any("error", err))
	}
}

// List returns the trail of sessionID.
func (s *Service) List(ctx context.Context, sessionID string) ([]Event, error) {
	return s.repo.List(ctx, sessionID)
}

package flow

import (
	"context"
	"log/slog"
)

// Success is the terminal screen.
type Success struct {
	session Session
	logger  *slog.Logger
}

// NewSuccess builds the success step.
func NewSuccess(session Session, logger *slog.Logger) *Success {
	return &Success{session: session, logger: logger}
}

// SuccessView is what the success screen shows.
type SuccessView struct {
	// Verified is true once a session credential exists, which makes the
	// KYC step reachable.
	Verified bool `json:"verified"`
}

// View reports whether the user holds a session credential.
func (s *Success) View(ctx context.Context) SuccessView {
	token, ok, err := s.session.Token(ctx)
	if err != nil {
		s.logger.Warn("read session token", slog.Any("error", err))
		return SuccessView{}
	}
	return SuccessView{Verified: ok && token != ""}
}

// Download is a placeholder for credential download.
func (s *Success) Download(_ context.Context) Outcome {
	return Outcome{Status: info("Download action placeholder")}
}

// Restart goes back to signup.
func (s *Success) Restart() Outcome {
	return Outcome{Next: StepSignup}
}

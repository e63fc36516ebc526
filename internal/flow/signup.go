package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/nirv-ico/onboarding/internal/apiclient"
)

// ErrMissingUserID is returned when signup succeeds without a user id.
var ErrMissingUserID = errors.New("signup response has no user id")

var validate = validator.New(validator.WithRequiredStructEnabled())

// SignupInput is the registration form.
type SignupInput struct {
	FullName string `json:"fullName" validate:"required,max=100"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Mobile   string `json:"mobile" validate:"required,len=10,number"`
}

var signupFieldMessages = map[string]string{
	"FullName": "Please enter your full name.",
	"Email":    "Please enter a valid email address.",
	"Mobile":   "Please enter a valid 10-digit mobile number.",
}

func (in SignupInput) normalized() SignupInput {
	return SignupInput{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.TrimSpace(in.Email),
		Mobile:   strings.TrimSpace(in.Mobile),
	}
}

// validateSignup returns the message for the first invalid field, or "".
func validateSignup(in SignupInput) string {
	err := validate.Struct(in)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if msg, ok := signupFieldMessages[fieldErrs[0].Field()]; ok {
			return msg
		}
	}
	return "Please check the form and try again."
}

// Signup collects registration details and starts mobile verification.
type Signup struct {
	api    API
	logger *slog.Logger

	mu       sync.Mutex
	inFlight bool
	status   Status
}

// NewSignup builds the signup step.
func NewSignup(api API, logger *slog.Logger) *Signup {
	return &Signup{api: api, logger: logger}
}

// Submit registers the user and, on success, hands the draft to the OTP step.
func (s *Signup) Submit(ctx context.Context, in SignupInput) Outcome {
	in = in.normalized()
	if msg := validateSignup(in); msg != "" {
		return s.settle(validationOutcome(msg))
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return busyOutcome()
	}
	s.inFlight = true
	s.status = Status{}
	s.mu.Unlock()

	out := s.register(ctx, in)

	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
	return s.settle(out)
}

func (s *Signup) register(ctx context.Context, in SignupInput) Outcome {
	res, err := s.api.Signup(ctx, apiclient.SignupRequest{FullName: in.FullName, Email: in.Email, Mobile: in.Mobile})
	if err != nil {
		s.logger.Warn("signup failed", slog.String("mobile", in.Mobile), slog.Any("error", err))
		return remoteFailure(err, "Signup failed", "Something went wrong. Try again.")
	}
	if res.UserID == "" {
		s.logger.Error("signup response missing user id", slog.String("mobile", in.Mobile))
		return Outcome{Status: failure("Signup failed"), Err: ErrMissingUserID}
	}

	mobile := res.Mobile
	if mobile == "" {
		mobile = in.Mobile
	}
	s.logger.Info("signup completed", slog.String("user_id", res.UserID))
	return Outcome{
		Status: success("OTP sent to your mobile number."),
		Next:   StepOTP,
		Draft:  &SignupDraft{Mobile: mobile, UserID: res.UserID},
	}
}

func (s *Signup) settle(out Outcome) Outcome {
	s.mu.Lock()
	s.status = out.Status
	s.mu.Unlock()
	return out
}

// Status returns the status of the last action.
func (s *Signup) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Busy reports whether a signup request is outstanding.
func (s *Signup) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

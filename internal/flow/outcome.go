package flow

import (
	"context"
	"errors"

	"github.com/nirv-ico/onboarding/internal/apiclient"
	"github.com/nirv-ico/onboarding/internal/kyc"
)

// Step names one screen of the onboarding flow.
type Step string

const (
	StepSignup  Step = "signup"
	StepOTP     Step = "otp"
	StepKYC     Step = "kyc"
	StepSuccess Step = "success"
)

// StatusKind classifies a user-facing status line.
type StatusKind string

const (
	StatusInfo    StatusKind = "info"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// Status is the message a screen shows after an action.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message"`
}

func info(msg string) Status { return Status{Kind: StatusInfo, Message: msg} }
func success(msg string) Status { return Status{Kind: StatusSuccess, Message: msg} }
func failure(msg string) Status { return Status{Kind: StatusError, Message: msg} }

var (
	// ErrValidation marks input rejected locally; no request was sent.
	ErrValidation = errors.New("validation failed")
	// ErrBusy marks an action refused because the same action is in flight.
	ErrBusy = errors.New("request already in flight")
	// ErrPrecondition marks a step entered without the state it requires.
	ErrPrecondition = errors.New("missing prerequisite state")
)

// Outcome is the typed result of a step action.
type Outcome struct {
	Status Status
	// Next is the step to navigate to, empty to stay.
	Next Step
	// Draft is carried to the OTP step and nowhere else.
	Draft *SignupDraft
	// Err is the underlying cause for error outcomes.
	Err error
}

// Navigates reports whether the outcome moves to another step.
func (o Outcome) Navigates() bool {
	return o.Next != ""
}

// Failed reports whether the outcome is an error of any kind.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

func validationOutcome(msg string) Outcome {
	return Outcome{Status: failure(msg), Err: ErrValidation}
}

func busyOutcome() Outcome {
	return Outcome{Status: info("Please wait, still working on it."), Err: ErrBusy}
}

// redirectToSignup is a precondition failure: silent, no message.
func redirectToSignup() Outcome {
	return Outcome{Next: StepSignup, Err: ErrPrecondition}
}

// remoteFailure converts an API error into a status. HTTP errors use the
// server message or fallback, transport errors use networkFallback.
func remoteFailure(err error, fallback, networkFallback string) Outcome {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		return Outcome{Status: failure(msg), Err: err}
	}
	return Outcome{Status: failure(networkFallback), Err: err}
}

// SignupDraft is handed from the signup step to the OTP step.
type SignupDraft struct {
	Mobile string
	UserID string
}

// Session holds the bearer credential issued after OTP verification.
type Session interface {
	Token(ctx context.Context) (string, bool, error)
	SetToken(ctx context.Context, token string) error
}

// API is the remote onboarding API consumed by the steps.
type API interface {
	Signup(ctx context.Context, req apiclient.SignupRequest) (apiclient.SignupResponse, error)
	VerifyOTP(ctx context.Context, req apiclient.VerifyRequest) (apiclient.VerifyResponse, error)
	UploadDocument(ctx context.Context, token string, kind kyc.DocumentKind, file *kyc.File) (apiclient.UploadResponse, error)
	SubmitKYC(ctx context.Context, token string, sub kyc.Submission) error
}

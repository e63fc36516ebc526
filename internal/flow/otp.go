package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nirv-ico/onboarding/internal/apiclient"
)

// OTPLength is the code length accepted by the input surface.
const OTPLength = 6

// OTP verifies the mobile number with the code sent at signup.
type OTP struct {
	api     API
	session Session
	draft   *SignupDraft
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight bool
	status   Status
}

// NewOTP builds the OTP step for the draft produced by signup. draft may be
// nil, in which case Enter redirects.
func NewOTP(api API, session Session, draft *SignupDraft, logger *slog.Logger) *OTP {
	return &OTP{api: api, session: session, draft: draft, logger: logger}
}

// Enter checks the step can be shown. Without a user id it redirects to
// signup before anything is rendered.
func (o *OTP) Enter() Outcome {
	if o.draft == nil || o.draft.UserID == "" {
		return redirectToSignup()
	}
	return Outcome{}
}

// Mobile is the number the code was sent to.
func (o *OTP) Mobile() string {
	if o.draft == nil {
		return ""
	}
	return o.draft.Mobile
}

// Verify submits code. On success the returned credential, if any, is saved
// to the session and the flow moves to the success step.
func (o *OTP) Verify(ctx context.Context, code string) Outcome {
	if out := o.Enter(); out.Navigates() {
		return out
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return o.settle(validationOutcome("Please enter the OTP"))
	}

	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return busyOutcome()
	}
	o.inFlight = true
	o.status = Status{}
	o.mu.Unlock()

	out := o.verify(ctx, code)

	o.mu.Lock()
	o.inFlight = false
	o.mu.Unlock()
	return o.settle(out)
}

func (o *OTP) verify(ctx context.Context, code string) Outcome {
	res, err := o.api.VerifyOTP(ctx, apiclient.VerifyRequest{
		UserID: o.draft.UserID,
		OTP:    code,
		Type:   apiclient.VerifyTypeMobile,
	})
	if err != nil {
		o.logger.Warn("otp verification failed", slog.String("user_id", o.draft.UserID), slog.Any("error", err))
		return remoteFailure(err, "OTP verification failed", "Something went wrong. Try again.")
	}

	if res.Token != "" {
		if err := o.session.SetToken(ctx, res.Token); err != nil {
			o.logger.Error("store session token", slog.String("user_id", o.draft.UserID), slog.Any("error", err))
			return Outcome{Status: failure("Something went wrong. Try again."), Err: fmt.Errorf("store session token: %w", err)}
		}
	}

	o.logger.Info("mobile verified", slog.String("user_id", o.draft.UserID), slog.Bool("token_issued", res.Token != ""))
	return Outcome{Status: success("Phone Verified Successfully!"), Next: StepSuccess}
}

func (o *OTP) settle(out Outcome) Outcome {
	o.mu.Lock()
	o.status = out.Status
	o.mu.Unlock()
	return out
}

// Status returns the status of the last verification attempt.
func (o *OTP) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Busy reports whether a verification is outstanding.
func (o *OTP) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inFlight
}

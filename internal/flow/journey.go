package flow

import (
	"context"
	"log/slog"
	"sync"
)

// Journey tracks which step one user is on and owns the mounted controller.
// Navigation-carried state (the signup draft) lives only inside the OTP
// controller it was handed to.
type Journey struct {
	router  *Router
	api     API
	session Session
	logger  *slog.Logger

	mu      sync.Mutex
	step    Step
	signup  *Signup
	otp     *OTP
	kyc     *KYC
	success *Success
}

// NewJourney starts a journey on the signup step.
func NewJourney(router *Router, api API, session Session, logger *slog.Logger) *Journey {
	j := &Journey{router: router, api: api, session: session, logger: logger}
	j.step = StepSignup
	j.signup = NewSignup(api, logger)
	return j
}

// Open navigates to path. The mounted controller is kept when path resolves
// to the current step. It returns the step finally shown and whether a
// precondition redirect happened on the way.
func (j *Journey) Open(ctx context.Context, path string) (Step, bool) {
	target := j.router.Resolve(path)

	j.mu.Lock()
	defer j.mu.Unlock()
	if target == j.step && j.mountedLocked(target) {
		return target, false
	}
	return j.mountLocked(ctx, target, nil)
}

// Apply follows the navigation carried by out, if any.
func (j *Journey) Apply(ctx context.Context, out Outcome) (Step, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !out.Navigates() {
		return j.step, false
	}
	return j.mountLocked(ctx, out.Next, out.Draft)
}

// Step returns the current step.
func (j *Journey) Step() Step {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.step
}

// Path returns the canonical path of the current step.
func (j *Journey) Path() string {
	return j.router.PathFor(j.Step())
}

// PathFor returns the canonical path of step.
func (j *Journey) PathFor(step Step) string {
	return j.router.PathFor(step)
}

// Signup returns the signup controller when it is the current step.
func (j *Journey) Signup() (*Signup, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.signup, j.step == StepSignup && j.signup != nil
}

// OTP returns the OTP controller when it is the current step.
func (j *Journey) OTP() (*OTP, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.otp, j.step == StepOTP && j.otp != nil
}

// KYC returns the KYC controller when it is the current step.
func (j *Journey) KYC() (*KYC, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.kyc, j.step == StepKYC && j.kyc != nil
}

// Success returns the success controller when it is the current step.
func (j *Journey) Success() (*Success, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.success, j.step == StepSuccess && j.success != nil
}

func (j *Journey) mountedLocked(step Step) bool {
	switch step {
	case StepSignup:
		return j.signup != nil
	case StepOTP:
		return j.otp != nil
	case StepKYC:
		return j.kyc != nil
	case StepSuccess:
		return j.success != nil
	}
	return false
}

// mountLocked replaces the controller for step. Leaving a step drops its
// controller, so its transient state does not survive navigation.
func (j *Journey) mountLocked(ctx context.Context, step Step, draft *SignupDraft) (Step, bool) {
	j.signup, j.otp, j.kyc, j.success = nil, nil, nil, nil

	switch step {
	case StepOTP:
		otp := NewOTP(j.api, j.session, draft, j.logger)
		if out := otp.Enter(); out.Navigates() {
			j.logger.Debug("otp step entered without signup draft")
			return j.redirectLocked(), true
		}
		j.otp = otp
	case StepKYC:
		k := NewKYC(j.api, j.session, j.logger)
		if out := k.Enter(ctx); out.Navigates() {
			j.logger.Debug("kyc step entered without session credential")
			return j.redirectLocked(), true
		}
		j.kyc = k
	case StepSuccess:
		j.success = NewSuccess(j.session, j.logger)
	default:
		step = StepSignup
		j.signup = NewSignup(j.api, j.logger)
	}
	j.step = step
	return step, false
}

// redirectLocked handles precondition redirects. Every redirect in the flow
// lands on signup, which has no preconditions of its own.
func (j *Journey) redirectLocked() Step {
	j.signup = NewSignup(j.api, j.logger)
	j.step = StepSignup
	return StepSignup
}

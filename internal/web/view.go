package web

import (
	"context"

	"github.com/dustin/go-humanize"

	"github.com/nirv-ico/onboarding/internal/flow"
	"github.com/nirv-ico/onboarding/internal/kyc"
)

// Envelope is the body of every step response.
type Envelope struct {
	Step       flow.Step    `json:"step"`
	Path       string       `json:"path"`
	Redirected bool         `json:"redirected"`
	Status     *flow.Status `json:"status,omitempty"`
	View       any          `json:"view"`
}

type signupView struct {
	Busy bool `json:"busy"`
}

type otpView struct {
	Mobile    string `json:"mobile"`
	OTPLength int    `json:"otpLength"`
	Busy      bool   `json:"busy"`
}

type documentView struct {
	Type      string        `json:"type"`
	Label     string        `json:"label"`
	State     kyc.SlotState `json:"state"`
	FileName  string        `json:"fileName,omitempty"`
	FileSize  string        `json:"fileSize,omitempty"`
	URL       string        `json:"url,omitempty"`
	Uploading bool          `json:"uploading"`
	Message   string        `json:"message,omitempty"`
}

type kycView struct {
	Documents  []documentView `json:"documents"`
	Ready      bool           `json:"ready"`
	Submitting bool           `json:"submitting"`
}

func newDocumentView(slot kyc.Slot) documentView {
	v := documentView{
		Type:      slot.Kind.Key(),
		Label:     slot.Kind.Label(),
		State:     slot.State,
		URL:       slot.URL,
		Uploading: slot.Uploading,
		Message:   slot.Message,
	}
	if slot.File != nil {
		v.FileName = slot.File.Name
		v.FileSize = humanize.Bytes(uint64(slot.File.Size()))
	}
	return v
}

func newKYCView(k *flow.KYC) kycView {
	slots := k.Slots()
	docs := make([]documentView, 0, len(slots))
	for _, slot := range slots {
		docs = append(docs, newDocumentView(slot))
	}
	return kycView{Documents: docs, Ready: k.Ready(), Submitting: k.Submitting()}
}

func statusPtr(s flow.Status) *flow.Status {
	if s.Message == "" {
		return nil
	}
	return &s
}

// render describes the step currently mounted in j. The status is the one
// the step keeps from its last action.
func render(ctx context.Context, j *flow.Journey, redirected bool) Envelope {
	step := j.Step()
	env := Envelope{Step: step, Path: j.PathFor(step), Redirected: redirected}
	switch step {
	case flow.StepSignup:
		if s, ok := j.Signup(); ok {
			env.View = signupView{Busy: s.Busy()}
			env.Status = statusPtr(s.Status())
		}
	case flow.StepOTP:
		if o, ok := j.OTP(); ok {
			env.View = otpView{Mobile: o.Mobile(), OTPLength: flow.OTPLength, Busy: o.Busy()}
			env.Status = statusPtr(o.Status())
		}
	case flow.StepKYC:
		if k, ok := j.KYC(); ok {
			env.View = newKYCView(k)
			env.Status = statusPtr(k.Status())
		}
	case flow.StepSuccess:
		if s, ok := j.Success(); ok {
			env.View = s.View(ctx)
		}
	}
	return env
}

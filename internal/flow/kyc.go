package flow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nirv-ico/onboarding/internal/apiclient"
	"github.com/nirv-ico/onboarding/internal/kyc"
)

// KYC drives the document upload and submission screen.
type KYC struct {
	api     API
	session Session
	logger  *slog.Logger
	tracker *kyc.Tracker

	mu         sync.Mutex
	token      string
	submitting bool
	status     Status
}

// NewKYC builds the KYC step with an empty slot for every required document.
func NewKYC(api API, session Session, logger *slog.Logger) *KYC {
	return &KYC{api: api, session: session, logger: logger, tracker: kyc.NewTracker()}
}

// Enter loads the session credential. Without one the step redirects to
// signup and nothing is rendered.
func (k *KYC) Enter(ctx context.Context) Outcome {
	token, ok, err := k.session.Token(ctx)
	if err != nil {
		k.logger.Error("read session token", slog.Any("error", err))
		return redirectToSignup()
	}
	if !ok || token == "" {
		return redirectToSignup()
	}
	k.mu.Lock()
	k.token = token
	k.mu.Unlock()
	return Outcome{}
}

func (k *KYC) credential() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.token
}

// SelectFile records file for kind. A new file clears any uploaded URL for
// that slot; a nil file clears the selection only.
func (k *KYC) SelectFile(kind kyc.DocumentKind, file *kyc.File) (kyc.Slot, error) {
	return k.tracker.Select(kind, file)
}

// Upload sends the selected file for kind. The returned outcome mirrors the
// slot message; it never navigates except on a missing credential.
func (k *KYC) Upload(ctx context.Context, kind kyc.DocumentKind) (kyc.Slot, Outcome) {
	if !kind.Valid() {
		return kyc.Slot{Kind: kind}, validationOutcome("Unknown document type.")
	}
	token := k.credential()
	if token == "" {
		return k.tracker.Slot(kind), redirectToSignup()
	}

	ticket, err := k.tracker.Begin(kind)
	switch {
	case errors.Is(err, kyc.ErrNoFile):
		return k.tracker.Slot(kind), validationOutcome(kyc.MsgChooseFile)
	case errors.Is(err, kyc.ErrUploadInFlight):
		return k.tracker.Slot(kind), busyOutcome()
	case err != nil:
		return k.tracker.Slot(kind), Outcome{Status: failure(kyc.MsgUploadFailed), Err: err}
	}

	res, err := k.api.UploadDocument(ctx, token, kind, ticket.File)
	if err != nil {
		k.logger.Warn("kyc upload failed", slog.String("document_type", kind.Key()), slog.Any("error", err))
		msg := apiclient.Message(err)
		slot, applied := k.tracker.Fail(ticket, msg)
		if !applied {
			return slot, Outcome{Status: info(slot.Message)}
		}
		return slot, Outcome{Status: failure(slot.Message), Err: err}
	}

	slot, applied := k.tracker.Finish(ticket, res.Location(), res.Status)
	if !applied {
		k.logger.Info("discarded stale kyc upload", slog.String("document_type", kind.Key()))
		return slot, Outcome{Status: info(slot.Message)}
	}
	k.logger.Info("kyc document uploaded", slog.String("document_type", kind.Key()), slog.String("status", res.Status))
	return slot, Outcome{Status: info(slot.Message)}
}

// Slot returns the current state of one document.
func (k *KYC) Slot(kind kyc.DocumentKind) kyc.Slot {
	return k.tracker.Slot(kind)
}

// Slots returns every document slot in display order.
func (k *KYC) Slots() [len(kyc.Kinds)]kyc.Slot {
	return k.tracker.Slots()
}

// Ready reports whether every document has been uploaded.
func (k *KYC) Ready() bool {
	return k.tracker.Ready()
}

// Submit sends the uploaded document URLs. Slot state is kept on failure so
// the user can retry without uploading again.
func (k *KYC) Submit(ctx context.Context, meta kyc.Metadata) Outcome {
	sub, err := k.tracker.Submission(meta)
	if err != nil {
		return k.settle(validationOutcome("Please upload all documents before submitting."))
	}
	token := k.credential()
	if token == "" {
		return redirectToSignup()
	}

	k.mu.Lock()
	if k.submitting {
		k.mu.Unlock()
		return busyOutcome()
	}
	k.submitting = true
	k.status = Status{}
	k.mu.Unlock()

	out := k.submit(ctx, token, sub)

	k.mu.Lock()
	k.submitting = false
	k.mu.Unlock()
	return k.settle(out)
}

func (k *KYC) submit(ctx context.Context, token string, sub kyc.Submission) Outcome {
	if err := k.api.SubmitKYC(ctx, token, sub); err != nil {
		k.logger.Warn("kyc submit failed", slog.Any("error", err))
		return remoteFailure(err, "KYC submission failed", "Could not submit KYC.")
	}
	k.logger.Info("kyc submitted", slog.Bool("pan_name", sub.Metadata.PANName != ""))
	return Outcome{Status: success("KYC submitted. Redirecting..."), Next: StepSuccess}
}

func (k *KYC) settle(out Outcome) Outcome {
	k.mu.Lock()
	k.status = out.Status
	k.mu.Unlock()
	return out
}

// Status returns the status of the last submit attempt.
func (k *KYC) Status() Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.status
}

// Submitting reports whether a submission is outstanding.
func (k *KYC) Submitting() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.submitting
}

package journal

import "time"

// Event kinds recorded along the onboarding flow.
const (
	KindSignupSubmitted  = "signup_submitted"
	KindMobileVerified   = "mobile_verified"
	KindDocumentUploaded = "document_uploaded"
	KindKYCSubmitted     = "kyc_submitted"
	KindStepFailed       = "step_failed"
)

// Event is one entry of a browser session's onboarding trail.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Step      string    `json:"step"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

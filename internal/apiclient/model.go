package apiclient

import (
	"errors"
	"fmt"
)

// ErrTransport wraps failures where no HTTP response was received.
var ErrTransport = errors.New("onboarding api unreachable")

// Error is a non-2xx response from the onboarding API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("onboarding api returned status %d", e.Status)
	}
	return fmt.Sprintf("onboarding api returned status %d: %s", e.Status, e.Message)
}

// SignupRequest registers a new user and triggers the mobile OTP.
type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email,omitempty"`
	Mobile   string `json:"mobile"`
}

// SignupResponse carries the identifiers needed by the OTP step.
type SignupResponse struct {
	UserID string `json:"userId"`
	Mobile string `json:"mobile"`
}

// VerifyRequest confirms the OTP sent during signup.
type VerifyRequest struct {
	UserID string `json:"userId"`
	OTP    string `json:"otp"`
	Type   string `json:"type"`
}

// VerifyTypeMobile is the only verification channel used by the flow.
const VerifyTypeMobile = "mobile"

// VerifyResponse optionally carries the bearer credential for later steps.
type VerifyResponse struct {
	Token string `json:"token"`
}

// UploadResponse describes an uploaded KYC document.
type UploadResponse struct {
	DocumentURL string `json:"documentUrl"`
	URL         string `json:"url"`
	Status      string `json:"status"`
}

// Location returns the stored document URL, preferring documentUrl.
func (r UploadResponse) Location() string {
	if r.DocumentURL != "" {
		return r.DocumentURL
	}
	return r.URL
}

type errorBody struct {
	Message string `json:"message"`
}

package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nirv-ico/onboarding/internal/apiclient"
	"github.com/nirv-ico/onboarding/internal/kyc"
	"github.com/nirv-ico/onboarding/internal/logging"
)

func enteredKYC(t *testing.T, api *fakeAPI) *KYC {
	t.Helper()
	k := NewKYC(api, &memSession{token: "tok1"}, logging.Discard())
	out := k.Enter(context.Background())
	require.False(t, out.Navigates())
	return k
}

func jpeg(name string) *kyc.File {
	return &kyc.File{Name: name, ContentType: "image/jpeg", Content: []byte{0xff, 0xd8, 0xff}}
}

func TestKYCEnterWithoutSessionRedirects(t *testing.T) {
	api := &fakeAPI{}
	for _, sess := range []*memSession{{}, {getErr: errStore}} {
		k := NewKYC(api, sess, logging.Discard())
		out := k.Enter(context.Background())
		require.Equal(t, StepSignup, out.Next)
		require.ErrorIs(t, out.Err, ErrPrecondition)
		require.Empty(t, out.Status.Message)
	}
	require.Zero(t, api.calls())
}

func TestKYCSelectFile(t *testing.T) {
	k := enteredKYC(t, &fakeAPI{})
	for _, kind := range kyc.Kinds {
		f := jpeg(kind.Key())
		slot, err := k.SelectFile(kind, f)
		require.NoError(t, err)
		require.Same(t, f, slot.File)
		require.Empty(t, slot.URL)
	}
}

func TestKYCUploadWithoutFile(t *testing.T) {
	api := &fakeAPI{}
	k := enteredKYC(t, api)

	slot, out := k.Upload(context.Background(), kyc.PAN)
	require.ErrorIs(t, out.Err, ErrValidation)
	require.Equal(t, "Choose a file first.", slot.Message)
	require.Equal(t, "Choose a file first.", k.Slot(kyc.PAN).Message)
	require.Zero(t, api.calls())
}

func TestKYCUploadSuccess(t *testing.T) {
	api := &fakeAPI{uploadFn: func(kind kyc.DocumentKind, _ *kyc.File) (apiclient.UploadResponse, error) {
		return apiclient.UploadResponse{DocumentURL: "https://x/a.jpg", Status: "approved"}, nil
	}}
	k := enteredKYC(t, api)

	_, err := k.SelectFile(kyc.AadhaarFront, jpeg("a.jpg"))
	require.NoError(t, err)
	slot, out := k.Upload(context.Background(), kyc.AadhaarFront)
	require.NoError(t, out.Err)
	require.Equal(t, "https://x/a.jpg", slot.URL)
	require.False(t, slot.Uploading)
	require.Equal(t, "Status: approved", slot.Message)
	require.False(t, k.Ready())
	require.Equal(t, []string{"tok1"}, api.uploadToken)
}

func TestKYCUploadFailureKeepsFile(t *testing.T) {
	api := &fakeAPI{uploadFn: func(kyc.DocumentKind, *kyc.File) (apiclient.UploadResponse, error) {
		return apiclient.UploadResponse{}, &apiclient.Error{Status: 413, Message: "File too large"}
	}}
	k := enteredKYC(t, api)
	f := jpeg("big.jpg")
	_, _ = k.SelectFile(kyc.Selfie, f)

	slot, out := k.Upload(context.Background(), kyc.Selfie)
	require.Error(t, out.Err)
	require.Equal(t, StatusError, out.Status.Kind)
	require.Equal(t, "File too large", slot.Message)
	require.Same(t, f, slot.File)
	require.False(t, slot.Uploading)

	api.uploadFn = func(kyc.DocumentKind, *kyc.File) (apiclient.UploadResponse, error) {
		return apiclient.UploadResponse{}, errNetwork
	}
	slot, _ = k.Upload(context.Background(), kyc.Selfie)
	require.Equal(t, "Upload failed", slot.Message)
}

func TestKYCUploadDiscardsStaleResponse(t *testing.T) {
	var k *KYC
	fresh := jpeg("fresh.jpg")
	api := &fakeAPI{}
	api.uploadFn = func(kind kyc.DocumentKind, _ *kyc.File) (apiclient.UploadResponse, error) {
		// the user picks another file while the first upload is in flight
		_, err := k.SelectFile(kind, fresh)
		require.NoError(t, err)
		return apiclient.UploadResponse{DocumentURL: "https://x/stale.jpg"}, nil
	}
	k = enteredKYC(t, api)
	_, _ = k.SelectFile(kyc.PAN, jpeg("stale.jpg"))

	slot, out := k.Upload(context.Background(), kyc.PAN)
	require.NoError(t, out.Err)
	require.Empty(t, slot.URL)
	require.Same(t, fresh, slot.File)
	require.Equal(t, kyc.MsgReady, slot.Message)
}

func TestKYCSubmitRequiresAllDocuments(t *testing.T) {
	api := &fakeAPI{}
	k := enteredKYC(t, api)
	_, _ = k.SelectFile(kyc.PAN, jpeg("pan.jpg"))
	_, _ = k.Upload(context.Background(), kyc.PAN)

	out := k.Submit(context.Background(), kyc.Metadata{PANName: "Jane"})
	require.ErrorIs(t, out.Err, ErrValidation)
	require.Equal(t, "Please upload all documents before submitting.", out.Status.Message)
	require.Empty(t, api.submitCalls)
}

func uploadEverything(t *testing.T, k *KYC) {
	t.Helper()
	for _, kind := range kyc.Kinds {
		_, err := k.SelectFile(kind, jpeg(kind.Key()))
		require.NoError(t, err)
		_, out := k.Upload(context.Background(), kind)
		require.NoError(t, out.Err)
	}
	require.True(t, k.Ready())
}

func TestKYCSubmitSuccess(t *testing.T) {
	api := &fakeAPI{}
	k := enteredKYC(t, api)
	uploadEverything(t, k)

	out := k.Submit(context.Background(), kyc.Metadata{PANName: "Jane Doe"})
	require.NoError(t, out.Err)
	require.Equal(t, StepSuccess, out.Next)
	require.Equal(t, StatusSuccess, out.Status.Kind)
	require.Equal(t, "KYC submitted. Redirecting...", out.Status.Message)
	require.Equal(t, kyc.Submission{
		AadhaarFrontURL: "https://x/aadhaar_front",
		AadhaarBackURL:  "https://x/aadhaar_back",
		PANURL:          "https://x/pan",
		SelfieURL:       "https://x/selfie",
		Metadata:        kyc.Metadata{PANName: "Jane Doe"},
	}, api.submitCalls[0])
	require.Equal(t, []string{"tok1"}, api.submitToken)
}

func TestKYCSubmitFailurePreservesSlots(t *testing.T) {
	api := &fakeAPI{submitErr: &apiclient.Error{Status: 422, Message: "Selfie unreadable"}}
	k := enteredKYC(t, api)
	uploadEverything(t, k)

	out := k.Submit(context.Background(), kyc.Metadata{})
	require.Equal(t, "Selfie unreadable", out.Status.Message)
	require.False(t, out.Navigates())
	require.True(t, k.Ready())

	api.submitErr = errNetwork
	out = k.Submit(context.Background(), kyc.Metadata{})
	require.Equal(t, "Could not submit KYC.", out.Status.Message)

	api.submitErr = &apiclient.Error{Status: 500}
	out = k.Submit(context.Background(), kyc.Metadata{})
	require.Equal(t, "KYC submission failed", out.Status.Message)

	api.submitErr = nil
	out = k.Submit(context.Background(), kyc.Metadata{})
	require.Equal(t, StepSuccess, out.Next)
	require.Len(t, api.uploadCalls, len(kyc.Kinds))
}

func TestKYCSubmitBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	api := &blockingSubmitAPI{fakeAPI: &fakeAPI{}, started: started, release: release}
	k := NewKYC(api, &memSession{token: "tok1"}, logging.Discard())
	require.False(t, k.Enter(context.Background()).Navigates())
	for _, kind := range kyc.Kinds {
		_, _ = k.SelectFile(kind, jpeg(kind.Key()))
		_, _ = k.Upload(context.Background(), kind)
	}

	done := make(chan Outcome, 1)
	go func() { done <- k.Submit(context.Background(), kyc.Metadata{}) }()
	<-started
	require.True(t, k.Submitting())

	out := k.Submit(context.Background(), kyc.Metadata{})
	require.ErrorIs(t, out.Err, ErrBusy)

	close(release)
	require.Equal(t, StepSuccess, (<-done).Next)
	require.False(t, k.Submitting())
}

type blockingSubmitAPI struct {
	*fakeAPI
	started chan struct{}
	release chan struct{}
}

func (b *blockingSubmitAPI) SubmitKYC(ctx context.Context, token string, sub kyc.Submission) error {
	close(b.started)
	<-b.release
	return b.fakeAPI.SubmitKYC(ctx, token, sub)
}

type blockingVerifyAPI struct {
	*fakeAPI
	started chan struct{}
	release chan struct{}
}

func (b *blockingVerifyAPI) VerifyOTP(ctx context.Context, req apiclient.VerifyRequest) (apiclient.VerifyResponse, error) {
	close(b.started)
	<-b.release
	return b.fakeAPI.VerifyOTP(ctx, req)
}

func TestOTPSingleVerificationInFlight(t *testing.T) {
	api := &blockingVerifyAPI{fakeAPI: &fakeAPI{}, started: make(chan struct{}), release: make(chan struct{})}
	otp := NewOTP(api, &memSession{}, &SignupDraft{UserID: "u1"}, logging.Discard())

	done := make(chan Outcome, 1)
	go func() { done <- otp.Verify(context.Background(), "123456") }()
	<-api.started
	require.True(t, otp.Busy())

	out := otp.Verify(context.Background(), "123456")
	require.ErrorIs(t, out.Err, ErrBusy)

	close(api.release)
	require.Equal(t, StepSuccess, (<-done).Next)
	require.Len(t, api.verifyCalls, 1)
}

package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nirv-ico/onboarding/internal/apiclient"
	"github.com/nirv-ico/onboarding/internal/logging"
)

func TestSignupSubmit(t *testing.T) {
	api := &fakeAPI{signupRes: apiclient.SignupResponse{UserID: "u1", Mobile: "9999999999"}}
	s := NewSignup(api, logging.Discard())

	out := s.Submit(context.Background(), SignupInput{FullName: " Jane Doe ", Mobile: "9999999999"})
	require.NoError(t, out.Err)
	require.Equal(t, StepOTP, out.Next)
	require.Equal(t, &SignupDraft{Mobile: "9999999999", UserID: "u1"}, out.Draft)
	require.Equal(t, StatusSuccess, out.Status.Kind)
	require.Equal(t, "Jane Doe", api.signupCalls[0].FullName)
}

func TestSignupFallsBackToSubmittedMobile(t *testing.T) {
	api := &fakeAPI{signupRes: apiclient.SignupResponse{UserID: "u2"}}
	out := NewSignup(api, logging.Discard()).Submit(context.Background(), SignupInput{FullName: "A", Mobile: "8888888888"})
	require.Equal(t, "8888888888", out.Draft.Mobile)
}

func TestSignupValidation(t *testing.T) {
	cases := map[string]struct {
		in   SignupInput
		want string
	}{
		"missing name":   {SignupInput{Mobile: "9999999999"}, "Please enter your full name."},
		"short mobile":   {SignupInput{FullName: "A", Mobile: "12345"}, "Please enter a valid 10-digit mobile number."},
		"signed mobile":  {SignupInput{FullName: "A", Mobile: "-999999999"}, "Please enter a valid 10-digit mobile number."},
		"bad email":      {SignupInput{FullName: "A", Mobile: "9999999999", Email: "nope"}, "Please enter a valid email address."},
		"blank name pad": {SignupInput{FullName: "   ", Mobile: "9999999999"}, "Please enter your full name."},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			api := &fakeAPI{}
			s := NewSignup(api, logging.Discard())
			out := s.Submit(context.Background(), tc.in)
			require.ErrorIs(t, out.Err, ErrValidation)
			require.Equal(t, tc.want, out.Status.Message)
			require.Equal(t, tc.want, s.Status().Message)
			require.False(t, out.Navigates())
			require.Zero(t, api.calls())
		})
	}
}

func TestSignupRemoteFailures(t *testing.T) {
	api := &fakeAPI{signupErr: &apiclient.Error{Status: 409, Message: "Mobile already registered"}}
	s := NewSignup(api, logging.Discard())
	out := s.Submit(context.Background(), SignupInput{FullName: "A", Mobile: "9999999999"})
	require.Equal(t, "Mobile already registered", out.Status.Message)
	require.False(t, out.Navigates())

	api.signupErr = &apiclient.Error{Status: 500}
	out = s.Submit(context.Background(), SignupInput{FullName: "A", Mobile: "9999999999"})
	require.Equal(t, "Signup failed", out.Status.Message)

	api.signupErr = errNetwork
	out = s.Submit(context.Background(), SignupInput{FullName: "A", Mobile: "9999999999"})
	require.Equal(t, "Something went wrong. Try again.", out.Status.Message)
	require.ErrorIs(t, out.Err, apiclient.ErrTransport)

	api.signupErr = nil
	api.signupRes = apiclient.SignupResponse{}
	out = s.Submit(context.Background(), SignupInput{FullName: "A", Mobile: "9999999999"})
	require.ErrorIs(t, out.Err, ErrMissingUserID)
	require.False(t, out.Navigates())
}

func TestOTPEnterWithoutDraftRedirects(t *testing.T) {
	api := &fakeAPI{}
	for _, draft := range []*SignupDraft{nil, {Mobile: "9999999999"}} {
		otp := NewOTP(api, &memSession{}, draft, logging.Discard())
		out := otp.Enter()
		require.Equal(t, StepSignup, out.Next)
		require.ErrorIs(t, out.Err, ErrPrecondition)
		require.Empty(t, out.Status.Message)

		out = otp.Verify(context.Background(), "123456")
		require.Equal(t, StepSignup, out.Next)
	}
	require.Zero(t, api.calls())
}

func TestOTPVerifyEmpty(t *testing.T) {
	api := &fakeAPI{}
	otp := NewOTP(api, &memSession{}, &SignupDraft{UserID: "u1"}, logging.Discard())
	for _, code := range []string{"", "   "} {
		out := otp.Verify(context.Background(), code)
		require.ErrorIs(t, out.Err, ErrValidation)
		require.Equal(t, "Please enter the OTP", out.Status.Message)
	}
	require.Zero(t, api.calls())
}

func TestOTPVerifyStoresToken(t *testing.T) {
	api := &fakeAPI{verifyRes: apiclient.VerifyResponse{Token: "tok1"}}
	sess := &memSession{}
	otp := NewOTP(api, sess, &SignupDraft{UserID: "u1", Mobile: "9999999999"}, logging.Discard())

	out := otp.Verify(context.Background(), "123456")
	require.NoError(t, out.Err)
	require.Equal(t, StepSuccess, out.Next)
	require.Equal(t, "Phone Verified Successfully!", out.Status.Message)
	require.Equal(t, apiclient.VerifyRequest{UserID: "u1", OTP: "123456", Type: "mobile"}, api.verifyCalls[0])

	token, ok, err := sess.Token(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "tok1", token)
}

func TestOTPVerifyWithoutTokenStillSucceeds(t *testing.T) {
	sess := &memSession{}
	otp := NewOTP(&fakeAPI{}, sess, &SignupDraft{UserID: "u1"}, logging.Discard())
	out := otp.Verify(context.Background(), "123456")
	require.Equal(t, StepSuccess, out.Next)
	_, ok, _ := sess.Token(context.Background())
	require.False(t, ok)
}

func TestOTPVerifyFailures(t *testing.T) {
	api := &fakeAPI{verifyErr: &apiclient.Error{Status: 400, Message: "Invalid OTP"}}
	otp := NewOTP(api, &memSession{}, &SignupDraft{UserID: "u1"}, logging.Discard())

	out := otp.Verify(context.Background(), "000000")
	require.Equal(t, "Invalid OTP", out.Status.Message)
	require.Equal(t, StatusError, otp.Status().Kind)
	require.False(t, out.Navigates())
	require.False(t, otp.Busy())

	api.verifyErr = &apiclient.Error{Status: 400}
	out = otp.Verify(context.Background(), "000000")
	require.Equal(t, "OTP verification failed", out.Status.Message)

	api.verifyErr = errNetwork
	out = otp.Verify(context.Background(), "000000")
	require.Equal(t, "Something went wrong. Try again.", out.Status.Message)
	require.Len(t, api.verifyCalls, 3)
}

func TestOTPVerifySessionWriteFailure(t *testing.T) {
	api := &fakeAPI{verifyRes: apiclient.VerifyResponse{Token: "tok1"}}
	otp := NewOTP(api, &memSession{setErr: errStore}, &SignupDraft{UserID: "u1"}, logging.Discard())
	out := otp.Verify(context.Background(), "123456")
	require.ErrorIs(t, out.Err, errStore)
	require.False(t, out.Navigates())
}

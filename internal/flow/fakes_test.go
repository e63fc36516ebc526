package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nirv-ico/onboarding/internal/apiclient"
	"github.com/nirv-ico/onboarding/internal/kyc"
)

type fakeAPI struct {
	mu sync.Mutex

	signupRes apiclient.SignupResponse
	signupErr error
	verifyRes apiclient.VerifyResponse
	verifyErr error
	uploadFn  func(kind kyc.DocumentKind, file *kyc.File) (apiclient.UploadResponse, error)
	submitErr error

	signupCalls []apiclient.SignupRequest
	verifyCalls []apiclient.VerifyRequest
	uploadCalls []kyc.DocumentKind
	uploadToken []string
	submitCalls []kyc.Submission
	submitToken []string
}

func (f *fakeAPI) Signup(_ context.Context, req apiclient.SignupRequest) (apiclient.SignupResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signupCalls = append(f.signupCalls, req)
	return f.signupRes, f.signupErr
}

func (f *fakeAPI) VerifyOTP(_ context.Context, req apiclient.VerifyRequest) (apiclient.VerifyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls = append(f.verifyCalls, req)
	return f.verifyRes, f.verifyErr
}

func (f *fakeAPI) UploadDocument(_ context.Context, token string, kind kyc.DocumentKind, file *kyc.File) (apiclient.UploadResponse, error) {
	f.mu.Lock()
	f.uploadCalls = append(f.uploadCalls, kind)
	f.uploadToken = append(f.uploadToken, token)
	fn := f.uploadFn
	f.mu.Unlock()
	if fn == nil {
		return apiclient.UploadResponse{DocumentURL: fmt.Sprintf("https://x/%s", kind.Key())}, nil
	}
	return fn(kind, file)
}

func (f *fakeAPI) SubmitKYC(_ context.Context, token string, sub kyc.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls = append(f.submitCalls, sub)
	f.submitToken = append(f.submitToken, token)
	return f.submitErr
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.signupCalls) + len(f.verifyCalls) + len(f.uploadCalls) + len(f.submitCalls)
}

type memSession struct {
	mu     sync.Mutex
	token  string
	setErr error
	getErr error
}

func (s *memSession) Token(context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	return s.token, s.token != "", nil
}

func (s *memSession) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.token = token
	return nil
}

var errNetwork = fmt.Errorf("%w: dial tcp: connection refused", apiclient.ErrTransport)

var errStore = errors.New("store unavailable")

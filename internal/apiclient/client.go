package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nirv-ico/onboarding/internal/kyc"
	"github.com/nirv-ico/onboarding/internal/metrics"
)

const (
	signupPath = "/api/auth/signup"
	verifyPath = "/api/auth/signup/verify"
	uploadPath = "/api/kyc/upload"
	submitPath = "/api/kyc/submit"

	callSignup = "signup"
	callVerify = "verify_otp"
	callUpload = "upload_document"
	callSubmit = "submit_kyc"
)

// Options tunes the API client.
type Options struct {
	Timeout time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Client calls the remote onboarding API using fiber's HTTP client.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fiber.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New builds a client for the API rooted at baseURL.
func New(baseURL string, opts Options) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api base url must be http or https, got %q", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("api base url %q has no host", baseURL)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: opts.Timeout,
		http:    &fiber.Client{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal},
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// Signup registers the user. No credential is attached.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (SignupResponse, error) {
	a := c.http.Post(c.baseURL + signupPath).JSON(req)
	var out SignupResponse
	if err := c.do(ctx, callSignup, a, &out); err != nil {
		return SignupResponse{}, err
	}
	return out, nil
}

// VerifyOTP confirms the signup OTP. No credential is attached.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	a := c.http.Post(c.baseURL + verifyPath).JSON(req)
	var out VerifyResponse
	if err := c.do(ctx, callVerify, a, &out); err != nil {
		return VerifyResponse{}, err
	}
	return out, nil
}

// UploadDocument sends one KYC document as multipart form data.
func (c *Client) UploadDocument(ctx context.Context, token string, kind kyc.DocumentKind, file *kyc.File) (UploadResponse, error) {
	if file == nil {
		return UploadResponse{}, kyc.ErrNoFile
	}
	key := kind.Key()
	a := c.http.Post(c.baseURL + uploadPath + "?documentType=" + url.QueryEscape(key))
	a.Set(fiber.HeaderAuthorization, "Bearer "+token)

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("documentType", key)
	a.FileData(&fiber.FormFile{Fieldname: "file", Name: file.Name, Content: file.Content})
	a.MultipartForm(args)

	var out UploadResponse
	if err := c.do(ctx, callUpload, a, &out); err != nil {
		return UploadResponse{}, err
	}
	return out, nil
}

// SubmitKYC submits the uploaded document URLs for verification.
func (c *Client) SubmitKYC(ctx context.Context, token string, sub kyc.Submission) error {
	a := c.http.Post(c.baseURL + submitPath).JSON(sub)
	a.Set(fiber.HeaderAuthorization, "Bearer "+token)
	return c.do(ctx, callSubmit, a, nil)
}

func (c *Client) do(ctx context.Context, call string, a *fiber.Agent, out any) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}
	if timeout > 0 {
		a.Timeout(timeout)
	}

	start := time.Now()
	code, body, errs := a.Bytes()
	elapsed := time.Since(start)
	c.metrics.ObserveUpstream(call, code, elapsed)

	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Warn("onboarding api call failed", slog.String("call", call), slog.Duration("duration", elapsed), slog.Any("error", err))
		return fmt.Errorf("%w: %s: %w", ErrTransport, call, err)
	}

	c.logger.Debug("onboarding api call", slog.String("call", call), slog.Int("status", code), slog.Duration("duration", elapsed))

	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return &Error{Status: code, Message: decodeMessage(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", call, err)
	}
	return nil
}

func decodeMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return strings.TrimSpace(eb.Message)
}

// Message extracts the server-provided message from err, if any.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// Package web exposes the onboarding steps over HTTP. Each browser, told
// apart by its session cookie, gets its own journey through the steps.
package web

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/nirv-ico/onboarding/internal/apiclient"
	"github.com/nirv-ico/onboarding/internal/flow"
	"github.com/nirv-ico/onboarding/internal/journal"
	"github.com/nirv-ico/onboarding/internal/kyc"
	"github.com/nirv-ico/onboarding/internal/metrics"
	"github.com/nirv-ico/onboarding/internal/middleware"
	"github.com/nirv-ico/onboarding/internal/session"
)

// Deps aggregates what the handler needs.
type Deps struct {
	Router         *flow.Router
	API            flow.API
	Sessions       session.Store
	Sealer         *session.Sealer
	Journal        *journal.Service
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	IdleTTL        time.Duration
	MaxUploadBytes int
}

// Handler serves the onboarding steps.
type Handler struct {
	deps     Deps
	journeys *journeys
}

// NewHandler builds a handler with an empty journey registry.
func NewHandler(d Deps) *Handler {
	h := &Handler{deps: d}
	h.journeys = newJourneys(d.IdleTTL, func(sessionID string) *flow.Journey {
		sess := session.Bind(d.Sessions, sessionID, d.Sealer)
		return flow.NewJourney(d.Router, d.API, sess, d.Logger.With(slog.String("session_id", sessionID)))
	})
	return h
}

// Run expires idle journeys until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	h.journeys.run(ctx, h.deps.Logger)
}

// Guards holds optional middleware applied to individual routes.
type Guards struct {
	OTPAttempts fiber.Handler
	Idempotent  fiber.Handler
}

// Register mounts the step routes. The catch-all view route goes last.
func (h *Handler) Register(r fiber.Router, g Guards) {
	pass := func(c *fiber.Ctx) error { return c.Next() }
	if g.OTPAttempts == nil {
		g.OTPAttempts = pass
	}
	if g.Idempotent == nil {
		g.Idempotent = pass
	}

	r.Post("/signup", h.signup)
	r.Post("/otp/verify", g.OTPAttempts, h.verifyOTP)
	r.Put("/kyc/documents/:kind", h.selectDocument)
	r.Delete("/kyc/documents/:kind", h.clearDocument)
	r.Post("/kyc/documents/:kind/upload", h.uploadDocument)
	r.Post("/kyc/submit", g.Idempotent, h.submitKYC)
	r.Post("/success/download", h.download)
	r.Post("/success/restart", h.restart)
	r.Get("/journey/events", h.events)
	r.Get("/*", h.show)
}

func (h *Handler) journey(c *fiber.Ctx) (*flow.Journey, string) {
	sid := middleware.GetSessionID(c)
	return h.journeys.get(sid), sid
}

func (h *Handler) show(c *fiber.Ctx) error {
	j, _ := h.journey(c)
	_, redirected := j.Open(c.UserContext(), c.OriginalURL())
	return c.JSON(render(c.UserContext(), j, redirected))
}

func notOnStep(step flow.Step) error {
	return fiber.NewError(fiber.StatusConflict, "the "+string(step)+" step is not open")
}

func (h *Handler) signup(c *fiber.Ctx) error {
	j, sid := h.journey(c)
	ctrl, ok := j.Signup()
	if !ok {
		return notOnStep(flow.StepSignup)
	}
	var in flow.SignupInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid signup form")
	}
	in.FullName = plainText(in.FullName)

	out := ctrl.Submit(c.UserContext(), in)
	if out.Err == nil && out.Draft != nil {
		h.deps.Journal.Record(c.UserContext(), sid, string(flow.StepSignup), journal.KindSignupSubmitted, out.Draft.UserID)
	}
	return h.respond(c, j, sid, flow.StepSignup, out)
}

type verifyForm struct {
	OTP string `json:"otp" form:"otp"`
}

func (h *Handler) verifyOTP(c *fiber.Ctx) error {
	j, sid := h.journey(c)
	ctrl, ok := j.OTP()
	if !ok {
		return notOnStep(flow.StepOTP)
	}
	var form verifyForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid otp form")
	}

	out := ctrl.Verify(c.UserContext(), truncateRunes(strings.TrimSpace(form.OTP), flow.OTPLength))
	if out.Err == nil && out.Navigates() {
		h.deps.Journal.Record(c.UserContext(), sid, string(flow.StepOTP), journal.KindMobileVerified, "")
	}
	return h.respond(c, j, sid, flow.StepOTP, out)
}

func (h *Handler) kycStep(c *fiber.Ctx) (*flow.Journey, string, *flow.KYC, kyc.DocumentKind, error) {
	j, sid := h.journey(c)
	ctrl, ok := j.KYC()
	if !ok {
		return nil, "", nil, 0, notOnStep(flow.StepKYC)
	}
	kind, err := kyc.ParseKind(c.Params("kind"))
	if err != nil {
		return nil, "", nil, 0, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return j, sid, ctrl, kind, nil
}

func (h *Handler) selectDocument(c *fiber.Ctx) error {
	j, _, ctrl, kind, err := h.kycStep(c)
	if err != nil {
		return err
	}
	file, err := readDocument(c, h.deps.MaxUploadBytes)
	if err != nil {
		return err
	}
	if _, err := ctrl.SelectFile(kind, file); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(render(c.UserContext(), j, false))
}

func (h *Handler) clearDocument(c *fiber.Ctx) error {
	j, _, ctrl, kind, err := h.kycStep(c)
	if err != nil {
		return err
	}
	if _, err := ctrl.SelectFile(kind, nil); err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return c.JSON(render(c.UserContext(), j, false))
}

func (h *Handler) uploadDocument(c *fiber.Ctx) error {
	j, sid, ctrl, kind, err := h.kycStep(c)
	if err != nil {
		return err
	}
	slot, out := ctrl.Upload(c.UserContext(), kind)
	if out.Err == nil && slot.State == kyc.SlotUploaded {
		h.deps.Journal.Record(c.UserContext(), sid, string(flow.StepKYC), journal.KindDocumentUploaded, kind.Key())
	}
	return h.respond(c, j, sid, flow.StepKYC, out)
}

type submitForm struct {
	Metadata kyc.Metadata `json:"metadata"`
}

func (h *Handler) submitKYC(c *fiber.Ctx) error {
	j, sid := h.journey(c)
	ctrl, ok := j.KYC()
	if !ok {
		return notOnStep(flow.StepKYC)
	}
	var form submitForm
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&form); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid kyc submission")
		}
	}
	form.Metadata.PANName = plainText(form.Metadata.PANName)

	out := ctrl.Submit(c.UserContext(), form.Metadata)
	if out.Err == nil && out.Navigates() {
		h.deps.Journal.Record(c.UserContext(), sid, string(flow.StepKYC), journal.KindKYCSubmitted, "")
	}
	return h.respond(c, j, sid, flow.StepKYC, out)
}

func (h *Handler) download(c *fiber.Ctx) error {
	j, sid := h.journey(c)
	ctrl, ok := j.Success()
	if !ok {
		return notOnStep(flow.StepSuccess)
	}
	return h.respond(c, j, sid, flow.StepSuccess, ctrl.Download(c.UserContext()))
}

func (h *Handler) restart(c *fiber.Ctx) error {
	j, sid := h.journey(c)
	ctrl, ok := j.Success()
	if !ok {
		return notOnStep(flow.StepSuccess)
	}
	return h.respond(c, j, sid, flow.StepSuccess, ctrl.Restart())
}

func (h *Handler) events(c *fiber.Ctx) error {
	events, err := h.deps.Journal.List(c.UserContext(), middleware.GetSessionID(c))
	if err != nil {
		h.deps.Logger.Error("list journey events", slog.Any("error", err))
		return fiber.NewError(fiber.StatusServiceUnavailable, "journey events unavailable")
	}
	if events == nil {
		events = []journal.Event{}
	}
	return c.JSON(fiber.Map{"events": events})
}

// respond follows the navigation in out and writes the resulting step. The
// action's own status wins over whatever the landing step shows.
func (h *Handler) respond(c *fiber.Ctx, j *flow.Journey, sid string, step flow.Step, out flow.Outcome) error {
	kind := outcomeLabel(out)
	h.deps.Metrics.ObserveStep(string(step), kind)
	if kind == "error" {
		h.deps.Journal.Record(c.UserContext(), sid, string(step), journal.KindStepFailed, out.Status.Message)
	}

	_, redirected := j.Apply(c.UserContext(), out)
	env := render(c.UserContext(), j, redirected || errors.Is(out.Err, flow.ErrPrecondition))
	if s := statusPtr(out.Status); s != nil {
		env.Status = s
	}
	return c.Status(httpStatus(out)).JSON(env)
}

func outcomeLabel(out flow.Outcome) string {
	switch {
	case out.Err == nil:
		return "ok"
	case errors.Is(out.Err, flow.ErrValidation):
		return "validation"
	case errors.Is(out.Err, flow.ErrBusy):
		return "busy"
	case errors.Is(out.Err, flow.ErrPrecondition):
		return "redirect"
	default:
		return "error"
	}
}

func httpStatus(out flow.Outcome) int {
	var apiErr *apiclient.Error
	switch {
	case out.Err == nil, errors.Is(out.Err, flow.ErrPrecondition):
		return fiber.StatusOK
	case errors.Is(out.Err, flow.ErrValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(out.Err, flow.ErrBusy):
		return fiber.StatusConflict
	case errors.As(out.Err, &apiErr) && apiErr.Status < 500:
		return fiber.StatusUnprocessableEntity
	case errors.Is(out.Err, apiclient.ErrTransport), errors.As(out.Err, &apiErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ai-content-platform/internal/application/notification"
	"github.com/ai-content-platform/internal/application/usage"
	"github.com/ai-content-platform/internal/domain"
	"github.com/ai-content-platform/internal/pkg/validate"
)

// Upstream service names used in failure notifications.
const (
	textService  = "OpenAI"
	imageService = "Image Generation"
)

type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (*domain.TextResult, error)
	Configured() bool
}

type ImageGenerator interface {
	Generate(ctx context.Context, req domain.ImageRequest) (string, error)
	Configured() bool
}

// Archiver copies a generated image somewhere durable and returns a URL for it.
type Archiver interface {
	Archive(ctx context.Context, userID, sourceURL string) (string, error)
}

type UsageTracker interface {
	TrackGeneration(ctx context.Context, kind domain.GenerationKind) (*domain.UsageStats, error)
	CheckLimit(ctx context.Context, plan domain.Plan) error
}

type Notifications interface {
	For(userID string) *notification.Manager
}

// Recorder receives one observation per generation attempt.
type Recorder interface {
	ObserveGeneration(kind, outcome string, d time.Duration)
}

type Service interface {
	Text(ctx context.Context, userID string, plan domain.Plan, req domain.TextRequest) (*domain.TextResult, error)
	Image(ctx context.Context, userID string, plan domain.Plan, req domain.ImageRequest) (*domain.ImageResult, error)
}

type Option func(*service)

func WithArchiver(a Archiver) Option { return func(s *service) { s.archiver = a } }

func WithRecorder(r Recorder) Option { return func(s *service) { s.recorder = r } }

func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

type service struct {
	text     TextGenerator
	image    ImageGenerator
	usage    UsageTracker
	notes    Notifications
	archiver Archiver
	recorder Recorder
	now      func() time.Time
}

func NewService(text TextGenerator, image ImageGenerator, usage UsageTracker, notes Notifications, opts ...Option) Service {
	s := &service{
		text:  text,
		image: image,
		usage: usage,
		notes: notes,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Text(ctx context.Context, userID string, plan domain.Plan, req domain.TextRequest) (*domain.TextResult, error) {
	mgr := s.notes.For(userID)
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		mgr.Warning("Please enter a prompt first", domain.NotificationOptions{})
		s.observe(domain.KindText, "invalid", 0)
		return nil, fmt.Errorf("prompt is required: %w", domain.ErrBadRequest)
	}
	if err := s.checkLimit(ctx, mgr, domain.KindText, plan); err != nil {
		return nil, err
	}

	loadingID := mgr.AI("", domain.NotificationOptions{Description: "Generating text..."})
	start := s.now()
	res, err := s.text.Complete(ctx, req.Prompt)
	elapsed := s.now().Sub(start)
	mgr.Remove(loadingID)
	if err != nil {
		s.notifyFailure(mgr, textService, "Failed to generate text", nil, err)
		s.observe(domain.KindText, outcomeOf(err), elapsed)
		return nil, err
	}

	s.track(ctx, userID, domain.KindText)
	res.GenerationMS = elapsed.Milliseconds()
	mgr.Success("Text generated successfully!", domain.NotificationOptions{
		Description: generatedIn(elapsed),
	})
	s.observe(domain.KindText, "success", elapsed)
	return res, nil
}

func (s *service) Image(ctx context.Context, userID string, plan domain.Plan, req domain.ImageRequest) (*domain.ImageResult, error) {
	mgr := s.notes.For(userID)
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		mgr.Warning("Empty Prompt", domain.NotificationOptions{
			Description: "Please enter a description of the image you want to generate",
		})
		s.observe(domain.KindImage, "invalid", 0)
		return nil, fmt.Errorf("prompt is required: %w", domain.ErrBadRequest)
	}
	req = req.WithDefaults()
	if err := validate.Struct(req); err != nil {
		mgr.Warning("Invalid image settings", domain.NotificationOptions{Description: err.Error()})
		s.observe(domain.KindImage, "invalid", 0)
		return nil, fmt.Errorf("%v: %w", err, domain.ErrBadRequest)
	}
	if err := s.checkLimit(ctx, mgr, domain.KindImage, plan); err != nil {
		return nil, err
	}

	loadingID := mgr.AI("", domain.NotificationOptions{Description: "Generating your image..."})
	start := s.now()
	url, err := s.image.Generate(ctx, req)
	elapsed := s.now().Sub(start)
	mgr.Remove(loadingID)
	if err != nil {
		s.notifyFailure(mgr, imageService, "Generation Failed", &domain.NotificationAction{Label: "Try Again"}, err)
		s.observe(domain.KindImage, outcomeOf(err), elapsed)
		return nil, err
	}

	s.track(ctx, userID, domain.KindImage)
	res := &domain.ImageResult{URL: url, GenerationMS: elapsed.Milliseconds()}
	if s.archiver != nil {
		archived, err := s.archiver.Archive(ctx, userID, url)
		if err != nil {
			slog.Warn("could not archive generated image", "user_id", userID, "err", err)
		} else {
			res.ArchiveURL = archived
		}
	}
	mgr.Success("Image Generated", domain.NotificationOptions{
		Description: generatedIn(elapsed),
		Action:      &domain.NotificationAction{Label: "View", Href: res.URL},
	})
	s.observe(domain.KindImage, "success", elapsed)
	return res, nil
}

func (s *service) checkLimit(ctx context.Context, mgr *notification.Manager, kind domain.GenerationKind, plan domain.Plan) error {
	err := s.usage.CheckLimit(ctx, plan)
	if err == nil {
		return nil
	}
	title := "Usage limit reached"
	var le *usage.LimitError
	if errors.As(err, &le) {
		title = le.Title()
	}
	mgr.Warning(title, domain.NotificationOptions{
		Description: "Upgrade your plan to keep generating",
		Action:      &domain.NotificationAction{Label: "Upgrade", Href: "/upgrade"},
	})
	s.observe(kind, "limited", 0)
	return err
}

// track counts a completed generation. A failure here must not fail the
// generation the user already paid for.
func (s *service) track(ctx context.Context, userID string, kind domain.GenerationKind) {
	if _, err := s.usage.TrackGeneration(ctx, kind); err != nil {
		slog.Warn("could not track generation", "user_id", userID, "kind", kind, "err", err)
	}
}

// notifyFailure shows the provider-specific message for credential and quota
// failures and the generic one otherwise.
func (s *service) notifyFailure(mgr *notification.Manager, svc, generic string, action *domain.NotificationAction, err error) {
	switch {
	case errors.Is(err, domain.ErrUpstreamUnauthorized):
		mgr.Error(fmt.Sprintf("Invalid %s API key", svc), domain.NotificationOptions{
			Description: "Please check your API key in settings",
			Action:      &domain.NotificationAction{Label: "Go to Settings", Href: "/settings"},
		})
	case errors.Is(err, domain.ErrUpstreamRateLimited):
		mgr.Error(fmt.Sprintf("%s rate limit exceeded", svc), domain.NotificationOptions{
			Description: "Please try again later",
		})
	case errors.Is(err, domain.ErrNotConfigured):
		mgr.Error(fmt.Sprintf("%s is not configured", svc), domain.NotificationOptions{
			Description: "Please check your API key in settings",
			Action:      &domain.NotificationAction{Label: "Go to Settings", Href: "/settings"},
		})
	default:
		mgr.Error(generic, domain.NotificationOptions{Description: err.Error(), Action: action})
	}
}

func (s *service) observe(kind domain.GenerationKind, outcome string, d time.Duration) {
	if s.recorder != nil {
		s.recorder.ObserveGeneration(string(kind), outcome, d)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrUpstreamRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, domain.ErrBadRequest):
		return "invalid"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "upstream_error"
	}
}

func generatedIn(d time.Duration) string {
	return fmt.Sprintf("Generated in %.2fs", d.Seconds())
}

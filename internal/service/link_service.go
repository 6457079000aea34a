package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/relinkhq/relink/internal/events"
	"github.com/relinkhq/relink/internal/model"
	"github.com/relinkhq/relink/internal/observability"
	"github.com/relinkhq/relink/internal/repository"
)

var (
	ErrInvalidURL     = errors.New("invalid URL format")
	ErrLinkNotFound   = errors.New("link not found")
	ErrCodeExists     = errors.New("code already exists")
	ErrCodeGeneration = errors.New("failed to generate a unique code")
)

// LinkService owns the code registry: atomic creation with collision
// handling, lookup, listing, deletion, and the redirect decision path.
type LinkService struct {
	repo        repository.LinkRepositoryInterface
	publisher   events.ClickPublisher
	metrics     *observability.AppMetrics
	logger      *slog.Logger
	codeLength  int
	codeRetries int
}

// LinkServiceInterface defines the contract for the registry and the
// redirect resolver.
type LinkServiceInterface interface {
	Create(ctx context.Context, req *model.CreateLinkRequest) (*model.Link, error)
	Get(ctx context.Context, code string) (*model.Link, error)
	List(ctx context.Context) ([]*model.Link, error)
	Delete(ctx context.Context, code string) (*model.Link, error)
	Resolve(ctx context.Context, code string) (string, error)
}

// NewLinkService creates a new link service. Publisher and metrics are
// optional; logger must not be nil.
func NewLinkService(repo repository.LinkRepositoryInterface, publisher events.ClickPublisher, metrics *observability.AppMetrics, logger *slog.Logger, codeLength, codeRetries int) *LinkService {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	if codeRetries <= 0 {
		codeRetries = 1
	}
	return &LinkService{
		repo:        repo,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		codeLength:  codeLength,
		codeRetries: codeRetries,
	}
}

// Create registers a new link. A client-supplied code is used as-is and a
// collision surfaces as ErrCodeExists. When no code is supplied, the service
// generates one and retries a bounded number of times on collision before
// giving up; the store's uniqueness constraint is the sole arbiter, so two
// concurrent creates for the same code can never both succeed.
func (s *LinkService) Create(ctx context.Context, req *model.CreateLinkRequest) (*model.Link, error) {
	if !IsValidURL(req.URL) {
		return nil, ErrInvalidURL
	}

	if req.Code != "" {
		link := &model.Link{Code: req.Code, URL: req.URL}
		if err := s.repo.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrCodeConflict) {
				return nil, ErrCodeExists
			}
			return nil, err
		}
		s.countCreated(ctx)
		return link, nil
	}

	for attempt := 0; attempt < s.codeRetries; attempt++ {
		link := &model.Link{Code: GenerateCode(s.codeLength), URL: req.URL}
		err := s.repo.Create(ctx, link)
		if err == nil {
			s.countCreated(ctx)
			return link, nil
		}
		if !errors.Is(err, repository.ErrCodeConflict) {
			return nil, err
		}
		s.logger.DebugContext(ctx, "generated code collided, retrying",
			slog.String("code", link.Code),
			slog.Int("attempt", attempt+1))
	}
	return nil, ErrCodeGeneration
}

func (s *LinkService) countCreated(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.LinksCreated.Add(ctx, 1)
	}
}

// Get retrieves a link by code without touching its counters.
func (s *LinkService) Get(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

// List returns all links, most recently created first.
func (s *LinkService) List(ctx context.Context) ([]*model.Link, error) {
	return s.repo.List(ctx)
}

// Delete removes a link and returns the removed record.
func (s *LinkService) Delete(ctx context.Context, code string) (*model.Link, error) {
	link, err := s.repo.Delete(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return link, nil
}

// Resolve maps a code to its destination URL for a redirect. Lookup and
// click accounting are fused into the store's single atomic
// increment-and-return operation, so there is no window where a concurrent
// delete could split the two. The increment is durably applied before the
// redirect target is returned; the click event publish afterwards is
// fire-and-forget and never affects the result.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.repo.Touch(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrLinkNotFound
		}
		return "", err
	}

	if s.metrics != nil {
		s.metrics.RedirectsServed.Add(ctx, 1)
	}

	if s.publisher != nil {
		event := events.ClickEvent{
			Code:       link.Code,
			Clicks:     link.Clicks,
			OccurredAt: time.Now().UTC(),
		}
		if err := s.publisher.PublishClick(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish click event",
				slog.String("code", link.Code),
				slog.String("error", err.Error()))
		}
	}

	return link.URL, nil
}

// Ensure LinkService implements LinkServiceInterface at compile time
var _ LinkServiceInterface = (*LinkService)(nil)

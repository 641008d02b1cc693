package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/SergeiKhy/shortify/internal/models"
	"github.com/SergeiKhy/shortify/internal/repository"
)

var (
	ErrInvalidURL          = errors.New("invalid original URL")
	ErrInvalidAlias        = errors.New("invalid custom alias")
	ErrAliasTaken          = errors.New("custom alias already taken")
	ErrGenerationExhausted = errors.New("failed to generate unique short code")
	ErrLinkNotFound        = errors.New("link not found")
	ErrLinkGone            = errors.New("link deactivated or expired")
)

const (
	defaultCodeLength  = 6
	defaultMaxAttempts = 10
	defaultCacheTTL    = time.Hour
	aliasMinLength     = 3
	aliasMaxLength     = 20
	maxExpiry          = 30 * 24 * time.Hour
	codeAlphabet       = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	urlPattern   = regexp.MustCompile(`^https?://[^\s]+$`)
	aliasPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// CreatedLink is the creation result: the stored link plus the derived
// artifacts (full short URL and, when rendering succeeded, the QR image).
type CreatedLink struct {
	Link         *models.Link
	FullShortURL string
	QRCode       string
}

// LinkService owns short-code generation and the cache-aside resolution path.
type LinkService interface {
	CreateLink(ctx context.Context, input *models.CreateLinkInput) (*CreatedLink, error)
	Resolve(ctx context.Context, code string) (*models.Resolution, error)
	Deactivate(ctx context.Context, code string, userID *int64) error
	ListUserLinks(ctx context.Context, userID int64, limit, offset int) ([]models.LinkStats, error)
}

// Options tunes the generator and the cache staleness window. Zero values
// fall back to production defaults.
type Options struct {
	BaseURL     string
	CodeLength  int
	MaxAttempts int
	CacheTTL    time.Duration
}

type linkService struct {
	linkRepo  repository.LinkRepository
	cacheRepo repository.CacheRepository
	qr        QRRenderer
	logger    *zap.Logger

	baseURL     string
	codeLength  int
	maxAttempts int
	cacheTTL    time.Duration
}

func NewLinkService(
	linkRepo repository.LinkRepository,
	cacheRepo repository.CacheRepository,
	qr QRRenderer,
	logger *zap.Logger,
	opts Options,
) LinkService {
	if opts.CodeLength <= 0 {
		opts.CodeLength = defaultCodeLength
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8080"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &linkService{
		linkRepo:    linkRepo,
		cacheRepo:   cacheRepo,
		qr:          qr,
		logger:      logger,
		baseURL:     opts.BaseURL,
		codeLength:  opts.CodeLength,
		maxAttempts: opts.MaxAttempts,
		cacheTTL:    opts.CacheTTL,
	}
}

// CreateLink shortens a URL. A custom alias gets exactly one insert attempt:
// the alias is user intent, silently substituting another code would be
// wrong. Random codes are retried up to the attempt bound because the unique
// index, not the generator, is the serialization point and collisions under
// load are expected, not fatal.
func (s *linkService) CreateLink(ctx context.Context, input *models.CreateLinkInput) (*CreatedLink, error) {
	if !urlPattern.MatchString(input.OriginalURL) {
		return nil, ErrInvalidURL
	}

	var expiresAt *time.Time
	if input.ExpiresIn != nil && *input.ExpiresIn > 0 {
		ttl := time.Duration(*input.ExpiresIn) * time.Minute
		if ttl > maxExpiry {
			ttl = maxExpiry
		}
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	link := &models.Link{
		OriginalURL: input.OriginalURL,
		UserID:      input.UserID,
		IsActive:    true,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}

	if input.CustomAlias != nil && *input.CustomAlias != "" {
		alias := *input.CustomAlias
		if err := validateAlias(alias); err != nil {
			return nil, err
		}

		link.ShortCode = alias
		link.CustomAlias = true

		if err := s.linkRepo.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrCodeExists) {
				return nil, ErrAliasTaken
			}
			return nil, err
		}
	} else {
		if err := s.createWithGeneratedCode(ctx, link); err != nil {
			return nil, err
		}
	}

	// Write-through so the very next redirect hits the cache.
	if err := s.cacheRepo.SetURL(ctx, link.ShortCode, link.OriginalURL, s.entryTTL(link)); err != nil {
		s.logger.Warn("failed to cache new link",
			zap.String("short_code", link.ShortCode),
			zap.Error(err),
		)
	}

	fullShortURL := s.baseURL + "/" + link.ShortCode

	// QR rendering runs after the insert committed; it never holds a
	// transaction open and its failure only drops the image.
	var qrCode string
	if s.qr != nil {
		var err error
		if qrCode, err = s.qr.Render(fullShortURL); err != nil {
			s.logger.Warn("QR rendering failed",
				zap.String("short_code", link.ShortCode),
				zap.Error(err),
			)
			qrCode = ""
		}
	}

	return &CreatedLink{
		Link:         link,
		FullShortURL: fullShortURL,
		QRCode:       qrCode,
	}, nil
}

// createWithGeneratedCode runs the bounded-attempt state machine: generate,
// insert, and on a uniqueness violation regenerate, up to maxAttempts.
func (s *linkService) createWithGeneratedCode(ctx context.Context, link *models.Link) error {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := gonanoid.Generate(codeAlphabet, s.codeLength)
		if err != nil {
			return fmt.Errorf("failed to generate code: %w", err)
		}

		link.ShortCode = code
		link.CustomAlias = false

		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrCodeExists) {
			s.logger.Debug("short code collision, regenerating",
				zap.String("short_code", code),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return err
	}

	// Exhaustion means the keyspace is too dense for this code length.
	return ErrGenerationExhausted
}

// Resolve is the redirect hot path. A cache hit returns immediately without
// re-checking active/expiry state: validity was checked when the entry was
// populated, and the TTL bounds the staleness window. Only the miss path
// pays for the database read and the lifecycle checks.
func (s *linkService) Resolve(ctx context.Context, code string) (*models.Resolution, error) {
	if url, err := s.cacheRepo.GetURL(ctx, code); err == nil {
		return &models.Resolution{OriginalURL: url, Source: "cache"}, nil
	}

	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	if !link.IsActive {
		return nil, ErrLinkGone
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(time.Now()) {
		return nil, ErrLinkGone
	}

	if err := s.cacheRepo.SetURL(ctx, code, link.OriginalURL, s.entryTTL(link)); err != nil {
		s.logger.Warn("failed to populate cache",
			zap.String("short_code", code),
			zap.Error(err),
		)
	}

	return &models.Resolution{OriginalURL: link.OriginalURL, Source: "database"}, nil
}

// Deactivate flips the active flag and invalidates the cache entry. The row
// is never deleted so the code is never reused.
func (s *linkService) Deactivate(ctx context.Context, code string, userID *int64) error {
	if err := s.linkRepo.Deactivate(ctx, code, userID); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	if err := s.cacheRepo.Delete(ctx, code); err != nil {
		// A cached entry may now serve the stale target until its TTL
		// expires; that window is the documented consistency bound.
		s.logger.Warn("failed to invalidate cache entry",
			zap.String("short_code", code),
			zap.Error(err),
		)
	}

	return nil
}

func (s *linkService) ListUserLinks(ctx context.Context, userID int64, limit, offset int) ([]models.LinkStats, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.linkRepo.ListByUser(ctx, userID, limit, offset)
}

// entryTTL caps the cache TTL at the link's remaining lifetime so an
// expiring link never outlives itself in the cache.
func (s *linkService) entryTTL(link *models.Link) time.Duration {
	ttl := s.cacheTTL
	if link.ExpiresAt != nil {
		if remaining := time.Until(*link.ExpiresAt); remaining < ttl {
			ttl = remaining
		}
	}
	return ttl
}

func validateAlias(alias string) error {
	if len(alias) < aliasMinLength || len(alias) > aliasMaxLength {
		return ErrInvalidAlias
	}
	if !aliasPattern.MatchString(alias) {
		return ErrInvalidAlias
	}
	return nil
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ndvi-gateway/internal/cards"
	"github.com/noah-isme/ndvi-gateway/internal/models"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

const (
	noticeOffline     = "The analysis backend is offline; showing an empty gallery (demo mode)."
	noticeUnavailable = "Your gallery could not be loaded right now: "
)

type galleryClient interface {
	GetUserGallery(ctx context.Context, userID string, limit, offset int) ([]models.GalleryItem, error)
}

// GalleryConfig holds paging defaults.
type GalleryConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// GalleryService lists a user's analyses. Backend failures degrade to an
// empty page with a notice instead of an error.
type GalleryService struct {
	client   galleryClient
	ids      userIDResolver
	counters cards.CounterStore
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      GalleryConfig
	now      func() time.Time
}

// NewGalleryService constructs the service. A nil counter store falls back
// to in-memory counters.
func NewGalleryService(client galleryClient, ids userIDResolver, counters cards.CounterStore, metrics *MetricsService, cfg GalleryConfig, logger *zap.Logger) *GalleryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if counters == nil {
		counters = cards.NewMemoryCounters()
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = 200
	}
	return &GalleryService{
		client:   client,
		ids:      ids,
		counters: counters,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// List returns one page of gallery items for the current user.
func (s *GalleryService) List(ctx context.Context, limit, offset int) (*models.GalleryPage, error) {
	userID, err := resolveUserID(ctx, s.ids, s.logger)
	if err != nil {
		return nil, err
	}
	limit, offset = s.normalize(limit, offset)

	page := &models.GalleryPage{UserID: userID, Limit: limit, Offset: offset, Items: []models.GalleryItem{}}
	items, err := s.client.GetUserGallery(ctx, userID, limit, offset)
	if err != nil {
		page.Notice = galleryNotice(err)
		s.metrics.RecordGalleryFallback()
		s.logger.Warn("gallery unavailable, serving empty page",
			zap.String("user_id", userID),
			zap.String("code", appErrors.FromError(err).Code),
			zap.Error(err))
		return page, nil
	}
	page.Items = items
	return page, nil
}

// Cards returns the gallery page as display cards with their counters.
func (s *GalleryService) Cards(ctx context.Context, limit, offset int) (*models.CardPage, error) {
	page, err := s.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := &models.CardPage{
		UserID: page.UserID,
		Cards:  make([]models.AnalysisCard, 0, len(page.Items)),
		Limit:  page.Limit,
		Offset: page.Offset,
		Notice: page.Notice,
	}
	ids := make([]string, 0, len(page.Items))
	for _, item := range page.Items {
		out.Cards = append(out.Cards, cards.FromGalleryItem(item, now))
		ids = append(ids, item.SessionID)
	}

	counts, err := s.counters.Get(ctx, ids...)
	if err != nil {
		s.logger.Warn("card counters unavailable", zap.Error(err))
		return out, nil
	}
	for i := range out.Cards {
		out.Cards[i].CardCounters = counts[out.Cards[i].SessionID]
	}
	return out, nil
}

// Increment bumps a cosmetic counter on a card.
func (s *GalleryService) Increment(ctx context.Context, sessionID, counter string) (models.CardCounters, error) {
	if sessionID == "" {
		return models.CardCounters{}, appErrors.Clone(appErrors.ErrValidation, "a session id is required")
	}
	name, err := cards.ParseCounter(counter)
	if err != nil {
		return models.CardCounters{}, err
	}
	counts, err := s.counters.Increment(ctx, sessionID, name)
	if err != nil {
		if appErrors.IsCode(err, appErrors.CodeValidation) {
			return models.CardCounters{}, err
		}
		s.logger.Error("failed to update card counter", zap.String("session_id", sessionID), zap.Error(err))
		return models.CardCounters{}, appErrors.Wrap(err, appErrors.CodeInternal, appErrors.ErrInternal.Status, "failed to update counter")
	}
	return counts, nil
}

func (s *GalleryService) normalize(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func galleryNotice(err error) string {
	appErr := appErrors.FromError(err)
	if appErr.Code == appErrors.CodeOffline {
		return noticeOffline
	}
	return noticeUnavailable + appErr.Message
}

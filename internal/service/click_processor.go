package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/shortify/internal/models"
	"github.com/SergeiKhy/shortify/internal/repository"
)

const (
	defaultWorkerCount   = 3
	defaultChannelBuffer = 1000
	defaultTrackTimeout  = 2 * time.Second
	maxRecordRetries     = 3
)

// ClickProcessor records clicks. Enqueue is the fire-and-forget side channel
// used by the redirect path: it never blocks and never fails the caller.
// Track is the synchronous recording surface for the /track endpoint.
type ClickProcessor interface {
	Start()
	Stop()
	Enqueue(ctx context.Context, event *models.ClickEvent) error
	Track(ctx context.Context, event *models.ClickEvent) (*models.Click, error)
	GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error)
	GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error)
	GetRealtimeStats(ctx context.Context, shortCode string) (*models.CounterSnapshot, error)
	PurgeClicks(ctx context.Context, shortCode string) (int64, error)
}

type clickProcessor struct {
	clickRepo   repository.ClickRepository
	linkRepo    repository.LinkRepository
	counterRepo repository.CounterRepository
	logger      *zap.Logger

	clickChannel chan *models.ClickEvent
	workerCount  int
	trackTimeout time.Duration
	wg           sync.WaitGroup
	ctx          context.Context
	cancel       context.CancelFunc
}

// ProcessorOption tunes quantities the defaults already cover.
type ProcessorOption func(*clickProcessor)

// WithTrackTimeout bounds how long a worker spends on one click record.
func WithTrackTimeout(d time.Duration) ProcessorOption {
	return func(p *clickProcessor) {
		if d > 0 {
			p.trackTimeout = d
		}
	}
}

func NewClickProcessor(
	clickRepo repository.ClickRepository,
	linkRepo repository.LinkRepository,
	counterRepo repository.CounterRepository,
	logger *zap.Logger,
	opts ...ProcessorOption,
) ClickProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &clickProcessor{
		clickRepo:    clickRepo,
		linkRepo:     linkRepo,
		counterRepo:  counterRepo,
		logger:       logger,
		clickChannel: make(chan *models.ClickEvent, defaultChannelBuffer),
		workerCount:  defaultWorkerCount,
		trackTimeout: defaultTrackTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *clickProcessor) Start() {
	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.logger.Info("starting click processor workers", zap.Int("count", p.workerCount))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *clickProcessor) Stop() {
	p.logger.Info("stopping click processor")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("click processor stopped")
}

func (p *clickProcessor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("click worker started", zap.Int("id", id))

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("click worker stopped", zap.Int("id", id))
			return

		case event, ok := <-p.clickChannel:
			if !ok {
				return
			}
			p.processClick(event)
		}
	}
}

// processClick appends the durable click record and then increments the
// real-time counters. The two writes are independent on purpose: either can
// fail without rolling back the other, and exact counts always come from
// the durable log.
func (p *clickProcessor) processClick(event *models.ClickEvent) {
	ctx, cancel := context.WithTimeout(p.ctx, p.trackTimeout)
	defer cancel()

	click, err := p.record(ctx, event)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			p.logger.Warn("dropping click for unknown short code",
				zap.String("short_code", event.ShortCode),
			)
			return
		}
		p.logger.Error("failed to record click",
			zap.String("short_code", event.ShortCode),
			zap.Error(err),
		)
		return
	}

	p.incrementCounters(ctx, event.ShortCode, click.ClickedAt)
}

// record resolves the short code to its durable identity and appends the
// click with a small retry budget.
func (p *clickProcessor) record(ctx context.Context, event *models.ClickEvent) (*models.Click, error) {
	linkID, err := p.linkRepo.GetLinkIDByShortCode(ctx, event.ShortCode)
	if err != nil {
		return nil, err
	}

	click := &models.Click{
		LinkID:    linkID,
		ShortCode: event.ShortCode,
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Referrer:  event.Referrer,
		Country:   event.Country,
		ClickedAt: time.Now(),
	}

	var lastErr error
	for i := 0; i < maxRecordRetries; i++ {
		if lastErr = p.clickRepo.RecordClick(ctx, click); lastErr == nil {
			return click, nil
		}
		if i < maxRecordRetries-1 {
			p.logger.Debug("retrying click record",
				zap.String("short_code", event.ShortCode),
				zap.Int("attempt", i+1),
				zap.Error(lastErr),
			)
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}
	return nil, lastErr
}

func (p *clickProcessor) incrementCounters(ctx context.Context, shortCode string, clickedAt time.Time) {
	if p.counterRepo == nil {
		return
	}
	if err := p.counterRepo.IncrementClicks(ctx, shortCode, clickedAt); err != nil {
		p.logger.Warn("failed to increment click counters",
			zap.String("short_code", shortCode),
			zap.Error(err),
		)
	}
}

// Enqueue hands the event to the worker pool without blocking. A full
// buffer drops the event: losing a click beats stalling a redirect.
func (p *clickProcessor) Enqueue(ctx context.Context, event *models.ClickEvent) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case p.clickChannel <- event:
		return nil
	default:
		p.logger.Warn("click buffer full, event dropped",
			zap.String("short_code", event.ShortCode),
		)
		return nil
	}
}

// Track records a click synchronously. Unlike Enqueue it surfaces
// ErrLinkNotFound so the tracking endpoint can answer 404.
func (p *clickProcessor) Track(ctx context.Context, event *models.ClickEvent) (*models.Click, error) {
	click, err := p.record(ctx, event)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	p.incrementCounters(ctx, event.ShortCode, click.ClickedAt)
	return click, nil
}

func (p *clickProcessor) GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error) {
	if _, err := p.linkRepo.GetLinkIDByShortCode(ctx, shortCode); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return p.clickRepo.GetStats(ctx, shortCode)
}

func (p *clickProcessor) GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error) {
	return p.clickRepo.GetDailyStats(ctx, shortCode, days)
}

// GetRealtimeStats reads the best-effort counters. The numbers may lag or
// lead the durable log; they exist for dashboards, not billing.
func (p *clickProcessor) GetRealtimeStats(ctx context.Context, shortCode string) (*models.CounterSnapshot, error) {
	total, today, err := p.counterRepo.Snapshot(ctx, shortCode, time.Now())
	if err != nil {
		return nil, err
	}
	return &models.CounterSnapshot{
		ShortCode:   shortCode,
		TotalClicks: total,
		ClicksToday: today,
	}, nil
}

// PurgeClicks deletes a link's click history and resets its counters.
func (p *clickProcessor) PurgeClicks(ctx context.Context, shortCode string) (int64, error) {
	linkID, err := p.linkRepo.GetLinkIDByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return 0, ErrLinkNotFound
		}
		return 0, err
	}

	deleted, err := p.clickRepo.DeleteByLinkID(ctx, linkID)
	if err != nil {
		return 0, err
	}

	if p.counterRepo != nil {
		if err := p.counterRepo.Reset(ctx, shortCode); err != nil {
			p.logger.Warn("failed to reset click counters",
				zap.String("short_code", shortCode),
				zap.Error(err),
			)
		}
	}

	return deleted, nil
}

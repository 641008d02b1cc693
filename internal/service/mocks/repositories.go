package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/shortify/internal/models"
	"github.com/SergeiKhy/shortify/internal/repository"
)

// MockLinkRepository implements repository.LinkRepository for testing.
type MockLinkRepository struct {
	mu     sync.RWMutex
	links  map[string]*models.Link
	nextID int64

	// CreateErr, when set, is returned by every Create call. CreateCalls
	// counts attempts either way, which is what the bounded-retry tests
	// assert on.
	CreateErr   error
	CreateCalls int
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:  make(map[string]*models.Link),
		nextID: 1,
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls++

	if m.CreateErr != nil {
		return m.CreateErr
	}

	if _, exists := m.links[link.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	link.ID = m.nextID
	m.nextID++
	stored := *link
	m.links[link.ShortCode] = &stored
	return nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[code]
	if !exists {
		return nil, repository.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockLinkRepository) Deactivate(ctx context.Context, code string, userID *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.links[code]
	if !exists {
		return repository.ErrLinkNotFound
	}
	if userID != nil {
		if link.UserID == nil || *link.UserID != *userID {
			return repository.ErrLinkNotFound
		}
	}
	link.IsActive = false
	return nil
}

func (m *MockLinkRepository) GetLinkIDByShortCode(ctx context.Context, code string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, exists := m.links[code]
	if !exists {
		return 0, repository.ErrLinkNotFound
	}
	return link.ID, nil
}

func (m *MockLinkRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]models.LinkStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats []models.LinkStats
	for _, link := range m.links {
		if link.UserID != nil && *link.UserID == userID {
			stats = append(stats, models.LinkStats{
				ID:          link.ID,
				ShortCode:   link.ShortCode,
				OriginalURL: link.OriginalURL,
				IsActive:    link.IsActive,
				CreatedAt:   link.CreatedAt,
			})
		}
	}
	return stats, nil
}

func (m *MockLinkRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = make(map[string]*models.Link)
	m.nextID = 1
	m.CreateErr = nil
	m.CreateCalls = 0
}

// MockCacheRepository implements repository.CacheRepository for testing.
type MockCacheRepository struct {
	mu    sync.RWMutex
	cache map[string]string

	// Unavailable simulates an unreachable cache: reads miss and writes
	// fail, but nothing else should break.
	Unavailable bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]string),
	}
}

func (m *MockCacheRepository) GetURL(ctx context.Context, code string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Unavailable {
		return "", repository.ErrCacheMiss
	}

	url, exists := m.cache[code]
	if !exists {
		return "", repository.ErrCacheMiss
	}
	return url, nil
}

func (m *MockCacheRepository) SetURL(ctx context.Context, code string, originalURL string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Unavailable {
		return errors.New("cache unavailable")
	}

	m.cache[code] = originalURL
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Unavailable {
		return errors.New("cache unavailable")
	}

	delete(m.cache, code)
	return nil
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]string)
	m.Unavailable = false
}

// MockClickRepository implements repository.ClickRepository for testing.
type MockClickRepository struct {
	mu     sync.RWMutex
	clicks []*models.Click
	nextID int64

	RecordErr error
}

func NewMockClickRepository() *MockClickRepository {
	return &MockClickRepository{nextID: 1}
}

func (m *MockClickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.RecordErr != nil {
		return m.RecordErr
	}

	click.ID = m.nextID
	m.nextID++
	stored := *click
	m.clicks = append(m.clicks, &stored)
	return nil
}

func (m *MockClickRepository) GetStats(ctx context.Context, shortCode string) (*models.ClickStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &models.ClickStats{ShortCode: shortCode}
	uniqueIPs := make(map[string]bool)

	for _, click := range m.clicks {
		if click.ShortCode == shortCode {
			stats.TotalClicks++
			uniqueIPs[click.IPAddress] = true
		}
	}
	stats.UniqueIPs = int64(len(uniqueIPs))

	return stats, nil
}

func (m *MockClickRepository) GetDailyStats(ctx context.Context, shortCode string, days int) ([]models.DailyClickStats, error) {
	return []models.DailyClickStats{}, nil
}

func (m *MockClickRepository) DeleteByLinkID(ctx context.Context, linkID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var kept []*models.Click
	var deleted int64
	for _, click := range m.clicks {
		if click.LinkID == linkID {
			deleted++
			continue
		}
		kept = append(kept, click)
	}
	m.clicks = kept
	return deleted, nil
}

// Recorded returns a copy of the stored clicks for assertions.
func (m *MockClickRepository) Recorded() []models.Click {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Click, 0, len(m.clicks))
	for _, click := range m.clicks {
		out = append(out, *click)
	}
	return out
}

func (m *MockClickRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = nil
	m.nextID = 1
	m.RecordErr = nil
}

// MockCounterRepository implements repository.CounterRepository for testing.
type MockCounterRepository struct {
	mu       sync.RWMutex
	counters map[string]int64

	IncrementErr error
}

func NewMockCounterRepository() *MockCounterRepository {
	return &MockCounterRepository{
		counters: make(map[string]int64),
	}
}

func (m *MockCounterRepository) IncrementClicks(ctx context.Context, code string, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IncrementErr != nil {
		return m.IncrementErr
	}

	m.counters["clicks:"+code]++
	m.counters["clicks:total"]++
	m.counters["clicks:"+code+":"+day.UTC().Format("2006-01-02")]++
	return nil
}

func (m *MockCounterRepository) Snapshot(ctx context.Context, code string, day time.Time) (int64, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := m.counters["clicks:"+code]
	today := m.counters["clicks:"+code+":"+day.UTC().Format("2006-01-02")]
	return total, today, nil
}

func (m *MockCounterRepository) Reset(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")
	delete(m.counters, "clicks:"+code)
	delete(m.counters, "clicks:"+code+":"+today)
	return nil
}

// Counter reads one raw counter value.
func (m *MockCounterRepository) Counter(key string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters[key]
}

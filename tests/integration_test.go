package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/SergeiKhy/shortify/internal/auth"
	"github.com/SergeiKhy/shortify/internal/config"
	"github.com/SergeiKhy/shortify/internal/handler"
	"github.com/SergeiKhy/shortify/internal/middleware"
	"github.com/SergeiKhy/shortify/internal/models"
	"github.com/SergeiKhy/shortify/internal/repository"
	"github.com/SergeiKhy/shortify/internal/service"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type TestEnv struct {
	router         *gin.Engine
	tokens         *auth.TokenManager
	linkService    service.LinkService
	clickProc      service.ClickProcessor
	dbContainer    testcontainers.Container
	redisContainer testcontainers.Container
	db             *repository.PostgresDB
	redis          *repository.RedisDB
}

func setupTestEnv(t *testing.T) *TestEnv {
	ctx := t.Context()

	dbContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("shortify"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		postgres.WithInitScripts(filepath.Join("..", "migrations", "001_init.sql")),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	redisContainer, err := redis.Run(ctx,
		"redis:7-alpine",
	)
	require.NoError(t, err)

	dbHost, err := dbContainer.Host(ctx)
	require.NoError(t, err)
	dbPort, err := dbContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	db, err := repository.NewPostgresDB(config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "user",
		Password: "password",
		Name:     "shortify",
	})
	require.NoError(t, err)

	redisClient, err := repository.NewRedisClient(config.RedisConfig{
		Host: redisHost,
		Port: redisPort.Port(),
	})
	require.NoError(t, err)

	linkRepo := repository.NewLinkRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)
	clickRepo := repository.NewClickRepository(db)
	counterRepo := repository.NewCounterRepository(redisClient)

	linkService := service.NewLinkService(linkRepo, cacheRepo, service.NewQRRenderer(), nil, service.Options{
		BaseURL: "http://localhost:8080",
	})
	clickProc := service.NewClickProcessor(clickRepo, linkRepo, counterRepo, nil)
	clickProc.Start()

	tokens := auth.NewTokenManager("integration-test-secret", time.Hour)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 100,
		BurstSize:         200,
		CleanupInterval:   time.Minute,
	})

	router := handler.NewRouter(linkService, clickProc, tokens, rateLimiter, nil, nil)

	return &TestEnv{
		router:         router,
		tokens:         tokens,
		linkService:    linkService,
		clickProc:      clickProc,
		dbContainer:    dbContainer,
		redisContainer: redisContainer,
		db:             db,
		redis:          redisClient,
	}
}

func (env *TestEnv) teardown(t *testing.T) {
	env.clickProc.Stop()
	env.db.Close()
	env.redis.Close()

	ctx := t.Context()
	if env.dbContainer != nil {
		env.dbContainer.Terminate(ctx)
	}
	if env.redisContainer != nil {
		env.redisContainer.Terminate(ctx)
	}
}

func (env *TestEnv) doJSON(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *TestEnv) createLink(t *testing.T, body gin.H, headers map[string]string) handler.CreateLinkResponse {
	t.Helper()

	w := env.doJSON(t, "POST", "/api/v1/links", body, headers)
	require.Equal(t, http.StatusCreated, w.Code, "create failed: %s", w.Body.String())

	var resp handler.CreateLinkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestIntegration_CreateLink(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	tests := []struct {
		name           string
		request        gin.H
		expectedStatus int
	}{
		{
			name:           "valid URL",
			request:        gin.H{"original_url": "https://example.com/test"},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "valid URL with custom alias",
			request: gin.H{
				"original_url": "https://example.com/custom",
				"custom_alias": "my-custom",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid URL",
			request:        gin.H{"original_url": "not-a-url"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate custom alias",
			request: gin.H{
				"original_url": "https://example.com/other",
				"custom_alias": "my-custom",
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "alias too short",
			request: gin.H{
				"original_url": "https://example.com/test",
				"custom_alias": "ab",
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.doJSON(t, "POST", "/api/v1/links", tt.request, nil)
			assert.Equal(t, tt.expectedStatus, w.Code, "body: %s", w.Body.String())
		})
	}
}

func TestIntegration_RedirectFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	created := env.createLink(t, gin.H{"original_url": "https://example.com/target"}, nil)

	// First hit comes from the database and warms the cache.
	w := env.doJSON(t, "GET", "/"+created.ShortCode, nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "https://example.com/target", w.Header().Get("Location"))

	// Create already wrote through to the cache, so resolution reports it.
	w = env.doJSON(t, "GET", "/api/v1/links/"+created.ShortCode, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resolution models.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolution))
	assert.Equal(t, "https://example.com/target", resolution.OriginalURL)
	assert.Equal(t, "cache", resolution.Source)

	// Clicks from the redirect land asynchronously.
	require.Eventually(t, func() bool {
		w := env.doJSON(t, "GET", "/api/v1/links/"+created.ShortCode+"/stats", nil, nil)
		if w.Code != http.StatusOK {
			return false
		}
		var stats models.ClickStats
		if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
			return false
		}
		return stats.TotalClicks >= 1
	}, 5*time.Second, 100*time.Millisecond)
}

func TestIntegration_RedirectUnknownCode(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	w := env.doJSON(t, "GET", "/doesnotexist", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegration_DeactivateFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	token, err := env.tokens.Sign(auth.Identity{UserID: 42, Username: "owner"})
	require.NoError(t, err)
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	created := env.createLink(t, gin.H{"original_url": "https://example.com/mine"}, authHeader)

	// Warm the cache, then deactivate. The invalidation must be visible
	// on the very next resolve.
	w := env.doJSON(t, "GET", "/"+created.ShortCode, nil, nil)
	require.Equal(t, http.StatusTemporaryRedirect, w.Code)

	w = env.doJSON(t, "DELETE", "/api/v1/links/"+created.ShortCode, nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	w = env.doJSON(t, "GET", "/"+created.ShortCode, nil, nil)
	assert.Equal(t, http.StatusGone, w.Code)

	// A stranger cannot deactivate somebody else's link.
	other := env.createLink(t, gin.H{"original_url": "https://example.com/other"}, authHeader)
	strangerToken, err := env.tokens.Sign(auth.Identity{UserID: 43, Username: "stranger"})
	require.NoError(t, err)

	w = env.doJSON(t, "DELETE", "/api/v1/links/"+other.ShortCode, nil,
		map[string]string{"Authorization": "Bearer " + strangerToken})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegration_TrackAndStats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	created := env.createLink(t, gin.H{"original_url": "https://example.com/tracked"}, nil)

	for i := 0; i < 3; i++ {
		w := env.doJSON(t, "POST", "/api/v1/track", gin.H{
			"short_code": created.ShortCode,
			"ip_address": fmt.Sprintf("10.0.0.%d", i%2+1),
			"user_agent": "integration-test",
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())
	}

	w := env.doJSON(t, "GET", "/api/v1/links/"+created.ShortCode+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.ClickStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(3), stats.TotalClicks)
	assert.Equal(t, int64(2), stats.UniqueIPs)
	assert.Equal(t, int64(3), stats.ClicksToday)

	w = env.doJSON(t, "GET", "/api/v1/links/"+created.ShortCode+"/stats/realtime", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot models.CounterSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, int64(3), snapshot.TotalClicks)
	assert.Equal(t, int64(3), snapshot.ClicksToday)

	// Tracking an unknown code is rejected before anything is written.
	w = env.doJSON(t, "POST", "/api/v1/track", gin.H{"short_code": "missing"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntegration_ExpiredLink(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	created := env.createLink(t, gin.H{
		"original_url": "https://example.com/shortlived",
		"expires_in":   1,
	}, nil)
	require.NotNil(t, created.ExpiresAt)

	// Still valid right after creation.
	w := env.doJSON(t, "GET", "/"+created.ShortCode, nil, nil)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
}

func TestIntegration_UserLinks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	token, err := env.tokens.Sign(auth.Identity{UserID: 7, Username: "bob"})
	require.NoError(t, err)
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	env.createLink(t, gin.H{"original_url": "https://example.com/a"}, authHeader)
	env.createLink(t, gin.H{"original_url": "https://example.com/b"}, authHeader)
	env.createLink(t, gin.H{"original_url": "https://example.com/anon"}, nil)

	w := env.doJSON(t, "GET", "/api/v1/users/7/links", nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code)

	var links []models.LinkStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &links))
	assert.Len(t, links, 2)

	// Listings are self-only.
	w = env.doJSON(t, "GET", "/api/v1/users/8/links", nil, authHeader)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(t, "GET", "/api/v1/users/7/links", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIntegration_PurgeClicks(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	env := setupTestEnv(t)
	defer env.teardown(t)

	token, err := env.tokens.Sign(auth.Identity{UserID: 7, Username: "bob"})
	require.NoError(t, err)
	authHeader := map[string]string{"Authorization": "Bearer " + token}

	created := env.createLink(t, gin.H{"original_url": "https://example.com/purge"}, authHeader)

	for i := 0; i < 2; i++ {
		w := env.doJSON(t, "POST", "/api/v1/track", gin.H{
			"short_code": created.ShortCode,
			"ip_address": "10.0.0.1",
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.doJSON(t, "DELETE", "/api/v1/links/"+created.ShortCode+"/clicks", nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	assert.Contains(t, w.Body.String(), `"deleted_records":2`)

	w = env.doJSON(t, "GET", "/api/v1/links/"+created.ShortCode+"/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.ClickStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(0), stats.TotalClicks)

	w = env.doJSON(t, "GET", "/api/v1/links/"+created.ShortCode+"/stats/realtime", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot models.CounterSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, int64(0), snapshot.TotalClicks)
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/flexinvest/platform/internal/config"
	"github.com/flexinvest/platform/internal/di"
	"github.com/flexinvest/platform/internal/events"
	"github.com/flexinvest/platform/internal/modules/accounts"
)

const (
	adminEmail    = "ops@flexinvest.test"
	adminPassword = "correct-horse"
)

type fixture struct {
	server    *Server
	container *di.Container
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()

	cfg := &config.Config{
		DataDir:     t.TempDir(),
		Port:        0,
		DevMode:     true,
		JWTSecret:   "test-secret-that-is-long-enough-for-hs256",
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"*"},
		Accrual:     config.AccrualConfig{Schedule: "0 0 0 * * *"},
		Notifications: config.NotificationConfig{
			RatePerSec:    100,
			MaxAttempts:   3,
			BatchSize:     10,
			SweepSchedule: "0 * * * * *",
		},
		AdminSeed: config.AdminSeedConfig{Email: adminEmail, Password: adminPassword, Name: "Ops"},
	}
	for _, m := range mutate {
		m(cfg)
	}

	container, _, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(container.Stop)

	return &fixture{
		server:    New(Config{Log: zerolog.Nop(), Config: cfg, Container: container}),
		container: container,
	}
}

func (f *fixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) userToken(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	_, err := f.container.AccountService.Register(ctx, accounts.RegisterInput{
		Email:    "ada@example.com",
		Password: "lovelace-1815",
		FullName: "Ada Lovelace",
	})
	require.NoError(t, err)

	session, err := f.container.AccountService.Authenticate(ctx, "ada@example.com", "lovelace-1815")
	require.NoError(t, err)
	return session.Token.AccessToken
}

func (f *fixture) adminToken(t *testing.T) string {
	t.Helper()

	session, err := f.container.AccountService.AuthenticateAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	return session.Token.AccessToken
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "connected", body["database"])
	assert.Equal(t, config.Version, body["version"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRoutes_AuthGroups(t *testing.T) {
	f := newFixture(t)
	userToken := f.userToken(t)
	adminToken := f.adminToken(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"public catalog", http.MethodGet, "/api/investments/packages", "", http.StatusOK},
		{"public company bank", http.MethodGet, "/api/deposits/company-bank", "", http.StatusOK},
		{"public support links", http.MethodGet, "/api/support/links", "", http.StatusOK},
		{"wallet needs token", http.MethodGet, "/api/user/wallet", "", http.StatusUnauthorized},
		{"wallet with user token", http.MethodGet, "/api/user/wallet", userToken, http.StatusOK},
		{"profile with user token", http.MethodGet, "/api/user/profile", userToken, http.StatusOK},
		{"withdrawal history", http.MethodGet, "/api/withdrawals/history", userToken, http.StatusOK},
		{"admin token on user route", http.MethodGet, "/api/user/wallet", adminToken, http.StatusForbidden},
		{"user token on admin route", http.MethodGet, "/api/admin/dashboard", userToken, http.StatusForbidden},
		{"admin dashboard", http.MethodGet, "/api/admin/dashboard", adminToken, http.StatusOK},
		{"admin accrual runs", http.MethodGet, "/api/admin/accrual/runs", adminToken, http.StatusOK},
		{"admin deposits", http.MethodGet, "/api/admin/deposits", adminToken, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestSystemStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/admin/system/status", f.adminToken(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data SystemStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Data.Status)
	assert.Equal(t, "ledger", body.Data.Database.Name)
	assert.Equal(t, "connected", body.Data.Database.Status)
	require.NotNil(t, body.Data.Database.Stats)
	assert.Positive(t, body.Data.Database.Stats.PageSize)
	assert.Positive(t, body.Data.Goroutines)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/api/investments/packages", "")
	rec := f.do(t, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `flexinvest_http_requests_total{method="GET",route="/api/investments/packages",status="200"} 1`)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.RateLimitPerMin = 4 // burst of one
	})

	first := f.do(t, http.MethodGet, "/health", "")
	second := f.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestIPRateLimiter_SeparateClientsAndEviction(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPRateLimiter(60, zerolog.Nop()) // 1/s, burst 15
	l.now = func() time.Time { return now }
	l.lastSweep = now

	for i := 0; i < 15; i++ {
		require.True(t, l.allow("10.0.0.1"))
	}
	assert.False(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))

	now = now.Add(clientIdleTTL + time.Second)
	assert.True(t, l.allow("10.0.0.3"))
	assert.Len(t, l.clients, 1)
}

func TestEventsStream(t *testing.T) {
	f := newFixture(t)
	token := f.adminToken(t)

	srv := httptest.NewServer(f.server.Router())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/events/ws?types=ACCRUAL_RUN_STARTED&token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	bus := f.container.EventBus
	require.Eventually(t, func() bool {
		return bus.SubscriberCount(events.AccrualRunStarted) > 0
	}, 2*time.Second, 10*time.Millisecond)

	f.container.EventManager.EmitTyped(events.AccrualRunStarted, "investments", &events.AccrualRunStartedData{
		RunID:   "run-1",
		Trigger: "manual",
	})

	var got events.Event
	require.NoError(t, wsjson.Read(ctx, conn, &got))
	assert.Equal(t, events.AccrualRunStarted, got.Type)
	assert.Equal(t, "run-1", got.Data["run_id"])
}

func TestEventsStream_RequiresAdmin(t *testing.T) {
	f := newFixture(t)

	srv := httptest.NewServer(f.server.Router())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/admin/events/ws"
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexinvest/platform/internal/auth"
	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/locks"
	"github.com/flexinvest/platform/internal/modules/investments"
	"github.com/flexinvest/platform/internal/modules/ledger"
	testutil "github.com/flexinvest/platform/internal/testing"
)

type testEnv struct {
	router *chi.Mux
	store  *ledger.Store
}

// asPrincipal stands in for the auth middleware
func asPrincipal(p *auth.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

func setupEnv(t *testing.T, userID string) *testEnv {
	t.Helper()

	db, cleanup := testutil.NewTestDB(t)
	t.Cleanup(cleanup)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	locker := locks.NewKeyedMutex()
	store := ledger.NewStore(db.Conn(), locker, log)
	runs := investments.NewRunRepository(db.Conn(), log)
	service := investments.NewService(store, runs, nil, log)
	engine := investments.NewEngine(store, runs, locker, nil, investments.EngineConfig{}, log)

	handler := NewHandler(service, engine, log)

	router := chi.NewRouter()
	handler.RegisterPublicRoutes(router)
	router.Group(func(r chi.Router) {
		r.Use(asPrincipal(&auth.Principal{ID: userID, Role: domain.RoleUser}))
		handler.RegisterRoutes(r)
	})
	router.Group(func(r chi.Router) {
		r.Use(asPrincipal(&auth.Principal{ID: "admin-1", Role: domain.RoleAdmin}))
		handler.RegisterAdminRoutes(r)
	})

	return &testEnv{router: router, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return w, response
}

func TestHandleGetPackages(t *testing.T) {
	env := setupEnv(t, "nobody")

	w, response := env.do(t, "GET", "/investments/packages", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(8), data["count"])
	assert.Contains(t, response, "metadata")

	first := data["packages"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "pkg_1", first["id"])
	assert.Equal(t, "25200", first["total_return"])
}

func TestHandleSubscribe(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	user := testutil.InsertUser(t, db.Conn(), "ada@example.com", decimal.NewFromInt(25000))

	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := ledger.NewStore(db.Conn(), locks.NewKeyedMutex(), log)
	service := investments.NewService(store, investments.NewRunRepository(db.Conn(), log), nil, log)
	handler := NewHandler(service, nil, log)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(asPrincipal(&auth.Principal{ID: user.ID, Role: domain.RoleUser}))
		handler.RegisterRoutes(r)
	})
	env := &testEnv{router: router, store: store}

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantError  string
	}{
		{"success", map[string]string{"package_id": "pkg_2"}, http.StatusCreated, ""},
		{"insufficient funds", map[string]string{"package_id": "pkg_2"}, http.StatusBadRequest, domain.ErrInsufficientFunds.Error()},
		{"unknown package", map[string]string{"package_id": "pkg_x"}, http.StatusNotFound, domain.ErrPackageNotFound.Error()},
		{"missing package id", map[string]string{}, http.StatusBadRequest, "package_id is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := env.do(t, "POST", "/investments/subscribe", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, response["error"])
			}
		})
	}

	assert.True(t, testutil.WalletBalance(t, db.Conn(), user.ID).Equal(decimal.NewFromInt(5000)))

	w, response := env.do(t, "GET", "/investments/active", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
}

func TestHandleSubscribe_InvalidBody(t *testing.T) {
	env := setupEnv(t, "u1")

	req := httptest.NewRequest("POST", "/investments/subscribe", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleGetHistory(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()
	user := testutil.InsertUser(t, db.Conn(), "h@example.com", decimal.Zero)

	done := testutil.StarterInvestment(user.ID)
	done.Status = domain.InvestmentCompleted
	testutil.InsertInvestment(t, db.Conn(), done)
	testutil.InsertInvestment(t, db.Conn(), testutil.StarterInvestment(user.ID))

	log := zerolog.New(nil).Level(zerolog.Disabled)
	store := ledger.NewStore(db.Conn(), locks.NewKeyedMutex(), log)
	handler := NewHandler(investments.NewService(store, investments.NewRunRepository(db.Conn(), log), nil, log), nil, log)

	req := httptest.NewRequest("GET", "/investments/history", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{ID: user.ID, Role: domain.RoleUser}))
	w := httptest.NewRecorder()

	handler.HandleGetHistory(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["count"])
}

func TestHandleGetActive_NoPrincipal(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewHandler(nil, nil, log)

	w := httptest.NewRecorder()
	handler.HandleGetActive(w, httptest.NewRequest("GET", "/investments/active", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleRunAccrual(t *testing.T) {
	env := setupEnv(t, "u1")
	user := testutil.InsertUser(t, env.store.DB(), "run@example.com", decimal.Zero)
	testutil.InsertInvestment(t, env.store.DB(), testutil.StarterInvestment(user.ID))

	w, response := env.do(t, "POST", "/admin/accrual/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, "manual", data["trigger"])
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(1), data["processed"])
	assert.Equal(t, float64(1), data["advanced"])

	w, response = env.do(t, "GET", "/admin/accrual/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	runs := response["data"].(map[string]interface{})
	assert.Equal(t, float64(1), runs["count"])
}

func TestHandleRunAccrual_InProgress(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	locker := locks.NewKeyedMutex()
	store := ledger.NewStore(db.Conn(), locker, log)
	runs := investments.NewRunRepository(db.Conn(), log)
	engine := investments.NewEngine(store, runs, locker, nil, investments.EngineConfig{}, log)
	handler := NewHandler(investments.NewService(store, runs, nil, log), engine, log)

	unlock, err := locker.TryLock(context.Background(), locks.AccrualRunKey)
	require.NoError(t, err)
	defer unlock()

	w := httptest.NewRecorder()
	handler.HandleRunAccrual(w, httptest.NewRequest("POST", "/admin/accrual/run", nil))

	assert.Equal(t, http.StatusConflict, w.Code)
}

// stubRunner records the context it ran with and returns a canned result
type stubRunner struct {
	summary *investments.RunSummary
	err     error
	ctxErr  error
	hasDL   bool
}

func (s *stubRunner) Run(ctx context.Context, _ investments.Trigger) (*investments.RunSummary, error) {
	s.ctxErr = ctx.Err()
	_, s.hasDL = ctx.Deadline()
	return s.summary, s.err
}

func TestHandleRunAccrual_DetachedFromRequestContext(t *testing.T) {
	runner := &stubRunner{summary: &investments.RunSummary{ID: "run-1", Status: investments.RunCompleted}}
	handler := NewHandler(nil, runner, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // client went away or the router timeout fired

	w := httptest.NewRecorder()
	handler.HandleRunAccrual(w, httptest.NewRequest("POST", "/admin/accrual/run", nil).WithContext(ctx))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, runner.ctxErr)
	assert.True(t, runner.hasDL)
}

func TestHandleRunAccrual_AbortedRunIsServerError(t *testing.T) {
	runner := &stubRunner{
		summary: &investments.RunSummary{ID: "run-2", Status: investments.RunAborted, Error: "disk I/O error"},
		err:     errors.New("accrual run aborted: disk I/O error"),
	}
	handler := NewHandler(nil, runner, zerolog.Nop())

	w := httptest.NewRecorder()
	handler.HandleRunAccrual(w, httptest.NewRequest("POST", "/admin/accrual/run", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Accrual run aborted", body["error"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "run-2", data["id"])
	assert.Equal(t, "aborted", data["status"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInsufficientFunds, http.StatusBadRequest},
		{domain.ErrPackageNotFound, http.StatusNotFound},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrRunInProgress, http.StatusConflict},
		{domain.ErrAlreadyRanToday, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

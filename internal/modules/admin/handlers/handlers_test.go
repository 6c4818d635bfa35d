package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flexinvest/platform/internal/domain"
	"github.com/flexinvest/platform/internal/modules/admin"
)

// MockAdminService is a mock back-office service for testing
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Dashboard(ctx context.Context) (*admin.Dashboard, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*admin.Dashboard), args.Error(1)
}

func (m *MockAdminService) Users(ctx context.Context) ([]admin.UserSummary, error) {
	args := m.Called()
	return args.Get(0).([]admin.UserSummary), args.Error(1)
}

func (m *MockAdminService) CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, note string) (*admin.CreditResult, error) {
	args := m.Called(userID, amount.String(), note)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*admin.CreditResult), args.Error(1)
}

func (m *MockAdminService) ExportInvestments(ctx context.Context, w io.Writer) error {
	args := m.Called()
	if payload := args.String(0); payload != "" {
		_, _ = io.WriteString(w, payload)
	}
	return args.Error(1)
}

func newRouter(svc *MockAdminService) *chi.Mux {
	router := chi.NewRouter()
	NewHandler(svc, zerolog.Nop()).RegisterAdminRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleGetDashboard(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("Dashboard").Return(&admin.Dashboard{TotalUsers: 3, TotalDeposited: decimal.RequireFromString("150.5")}, nil)

	w := serve(newRouter(svc), http.MethodGet, "/admin/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(3), body.Data["total_users"])
	assert.Equal(t, "150.5", body.Data["total_deposited"])
	svc.AssertExpectations(t)
}

func TestHandleGetDashboardFailure(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("Dashboard").Return(nil, errors.New("disk on fire"))

	w := serve(newRouter(svc), http.MethodGet, "/admin/dashboard", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")
}

func TestHandleGetUsers(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("Users").Return([]admin.UserSummary{
		{User: domain.User{ID: "u1", Email: "ada@example.com"}, Balance: decimal.NewFromInt(10)},
	}, nil)

	w := serve(newRouter(svc), http.MethodGet, "/admin/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
	assert.Contains(t, w.Body.String(), "ada@example.com")
}

func TestHandleCreditWallet(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(svc *MockAdminService)
		wantStatus int
	}{
		{
			name: "credited",
			body: `{"user_id":"u1","amount":"500","note":"bonus"}`,
			setup: func(svc *MockAdminService) {
				svc.On("CreditWallet", "u1", "500", "bonus").
					Return(&admin.CreditResult{UserID: "u1", Amount: decimal.NewFromInt(500), BalanceAfter: decimal.NewFromInt(900)}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing user id",
			body:       `{"amount":"500"}`,
			setup:      func(*MockAdminService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{`,
			setup:      func(*MockAdminService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid amount",
			body: `{"user_id":"u1","amount":"-5"}`,
			setup: func(svc *MockAdminService) {
				svc.On("CreditWallet", "u1", "-5", "").Return(nil, domain.ErrInvalidAmount)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unknown user",
			body: `{"user_id":"ghost","amount":"5"}`,
			setup: func(svc *MockAdminService) {
				svc.On("CreditWallet", "ghost", "5", "").Return(nil, domain.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAdminService)
			tt.setup(svc)

			w := serve(newRouter(svc), http.MethodPost, "/admin/credit-wallet", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandleExportInvestments(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("ExportInvestments").Return("PK-fake-workbook", nil)

	w := serve(newRouter(svc), http.MethodGet, "/admin/reports/investments.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=investments-")
	assert.Equal(t, "PK-fake-workbook", w.Body.String())
}

func TestHandleExportInvestmentsFailure(t *testing.T) {
	svc := new(MockAdminService)
	svc.On("ExportInvestments").Return("", errors.New("boom"))

	w := serve(newRouter(svc), http.MethodGet, "/admin/reports/investments.xlsx", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

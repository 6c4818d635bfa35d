package testing

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flexinvest/platform/internal/domain"
)

// UserFixture describes a customer row plus wallet
type UserFixture struct {
	ID       string
	Email    string
	FullName string
	Balance  decimal.Decimal
}

// InsertUser creates a user and wallet directly in SQL and returns the fixture.
// The password hash is a placeholder; use the accounts service when login matters.
func InsertUser(t *testing.T, db *sql.DB, email string, balance decimal.Decimal) UserFixture {
	t.Helper()

	now := time.Now().Unix()
	u := UserFixture{
		ID:       uuid.NewString(),
		Email:    email,
		FullName: "Test " + email,
		Balance:  balance,
	}

	if _, err := db.Exec(
		`INSERT INTO users (id, email, password_hash, full_name, phone, is_verified, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)`,
		u.ID, u.Email, "x", u.FullName, "", now,
	); err != nil {
		t.Fatalf("Failed to insert user %s: %v", email, err)
	}

	if _, err := db.Exec(
		`INSERT INTO wallets (id, user_id, balance, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), u.ID, balance.String(), now, now,
	); err != nil {
		t.Fatalf("Failed to insert wallet for %s: %v", email, err)
	}

	return u
}

// InsertInvestment stores an investment row as-is, bypassing subscription
func InsertInvestment(t *testing.T, db *sql.DB, inv domain.Investment) domain.Investment {
	t.Helper()

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Status == "" {
		inv.Status = domain.InvestmentActive
	}
	if inv.StartDate.IsZero() {
		inv.StartDate = time.Now().UTC()
	}
	if inv.EndDate.IsZero() {
		inv.EndDate = inv.StartDate.AddDate(0, 0, inv.Duration)
	}
	if inv.PackageID == "" {
		inv.PackageID = "pkg_test"
		inv.PackageName = "Test"
	}

	now := time.Now().Unix()
	if _, err := db.Exec(`
		INSERT INTO investments (
			id, user_id, package_id, package_name, capital, daily_profit, duration,
			total_return, days_completed, profit_earned, status, start_date, end_date,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.UserID, inv.PackageID, inv.PackageName,
		inv.Capital.String(), inv.DailyProfit.String(), inv.Duration, inv.TotalReturn.String(),
		inv.DaysCompleted, inv.ProfitEarned.String(), string(inv.Status),
		inv.StartDate.Unix(), inv.EndDate.Unix(), now, now,
	); err != nil {
		t.Fatalf("Failed to insert investment: %v", err)
	}

	return inv
}

// StarterInvestment returns the 10000 / 600 / 42-day investment used across tests
func StarterInvestment(userID string) domain.Investment {
	return domain.Investment{
		UserID:       userID,
		PackageID:    "pkg_1",
		PackageName:  "Starter",
		Capital:      decimal.NewFromInt(10000),
		DailyProfit:  decimal.NewFromInt(600),
		Duration:     42,
		TotalReturn:  decimal.NewFromInt(25200),
		ProfitEarned: decimal.Zero,
		Status:       domain.InvestmentActive,
	}
}

// WalletBalance reads a wallet balance straight from SQL
func WalletBalance(t *testing.T, db *sql.DB, userID string) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	if err := db.QueryRow(`SELECT balance FROM wallets WHERE user_id = ?`, userID).Scan(&balance); err != nil {
		t.Fatalf("Failed to read wallet for %s: %v", userID, err)
	}
	return balance
}

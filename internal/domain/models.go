// Package domain holds the core types shared by every module.
// It has no infrastructure dependencies.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentStatus is the lifecycle state of an investment.
// Transitions are one-way: active -> completed.
type InvestmentStatus string

const (
	InvestmentActive    InvestmentStatus = "active"
	InvestmentCompleted InvestmentStatus = "completed"
)

// RequestStatus is the state of a deposit or withdrawal request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Decision is an admin verdict on a pending request
type Decision string

const (
	DecisionApprove Decision = "approved"
	DecisionReject  Decision = "rejected"
)

// Valid reports whether d is a known decision
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Status maps the decision to the resulting request status
func (d Decision) Status() RequestStatus {
	if d == DecisionApprove {
		return RequestApproved
	}
	return RequestRejected
}

// ComplaintStatus is the state of a support complaint
type ComplaintStatus string

const (
	ComplaintOpen       ComplaintStatus = "open"
	ComplaintInProgress ComplaintStatus = "in_progress"
	ComplaintResolved   ComplaintStatus = "resolved"
	ComplaintClosed     ComplaintStatus = "closed"
)

// Valid reports whether s is a known complaint status
func (s ComplaintStatus) Valid() bool {
	switch s {
	case ComplaintOpen, ComplaintInProgress, ComplaintResolved, ComplaintClosed:
		return true
	}
	return false
}

// EntryKind classifies a wallet journal entry
type EntryKind string

const (
	EntryDeposit      EntryKind = "deposit"
	EntryWithdrawal   EntryKind = "withdrawal"
	EntrySubscription EntryKind = "subscription"
	EntrySettlement   EntryKind = "settlement"
	EntryAdminCredit  EntryKind = "admin_credit"
)

// Role is the authorization role carried in access tokens
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superadmin"
)

// IsAdmin reports whether the role grants admin access
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Package is an immutable catalog entry. Its values are copied into an
// investment at subscription time. TotalReturn is the advertised profit over
// the whole term and does not include the capital.
type Package struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Capital     decimal.Decimal `json:"capital"`
	DailyProfit decimal.Decimal `json:"daily_profit"`
	Duration    int             `json:"duration"`
	TotalReturn decimal.Decimal `json:"total_return"`
}

// Investment is a subscription to a package snapshot.
// DaysCompleted is authoritative for maturity; EndDate is informational.
type Investment struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	PackageID     string           `json:"package_id"`
	PackageName   string           `json:"package_name"`
	Capital       decimal.Decimal  `json:"capital"`
	DailyProfit   decimal.Decimal  `json:"daily_profit"`
	Duration      int              `json:"duration"`
	TotalReturn   decimal.Decimal  `json:"total_return"`
	DaysCompleted int              `json:"days_completed"`
	ProfitEarned  decimal.Decimal  `json:"profit_earned"`
	Status        InvestmentStatus `json:"status"`
	StartDate     time.Time        `json:"start_date"`
	EndDate       time.Time        `json:"end_date"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Advance computes the state after one accrual tick.
// It returns the new counters and whether the investment matures on this tick.
func (i Investment) Advance() (days int, profit decimal.Decimal, matured bool) {
	days = i.DaysCompleted + 1
	profit = i.ProfitEarned.Add(i.DailyProfit)
	return days, profit, days >= i.Duration
}

// SettlementAmount is the amount paid out at maturity for the given accrued profit
func (i Investment) SettlementAmount(profit decimal.Decimal) decimal.Decimal {
	return i.Capital.Add(profit)
}

// Wallet holds a user's balance. Non-negativity is enforced at debit time only.
type Wallet struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WalletEntry is one row of the wallet journal
type WalletEntry struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Kind         EntryKind       `json:"kind"`
	Amount       decimal.Decimal `json:"amount"` // signed: credits positive, debits negative
	BalanceAfter decimal.Decimal `json:"balance_after"`
	ReferenceID  string          `json:"reference_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// User is a platform customer
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// Admin is a back-office operator
type Admin struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// BankAccount is the payout destination for withdrawals
type BankAccount struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	BankName      string    `json:"bank_name"`
	AccountNumber string    `json:"account_number"`
	AccountName   string    `json:"account_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Deposit is a user's request to fund their wallet
type Deposit struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	UserEmail string          `json:"user_email"`
	UserName  string          `json:"user_name"`
	Amount    decimal.Decimal `json:"amount"`
	ProofRef  string          `json:"proof_ref"`
	Status    RequestStatus   `json:"status"`
	AdminNote string          `json:"admin_note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Withdrawal is a user's payout request. Bank details are snapshotted at
// request time.
type Withdrawal struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	UserEmail     string          `json:"user_email"`
	UserName      string          `json:"user_name"`
	Amount        decimal.Decimal `json:"amount"`
	BankName      string          `json:"bank_name"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Status        RequestStatus   `json:"status"`
	AdminNote     string          `json:"admin_note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Complaint is a support ticket
type Complaint struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	UserEmail     string          `json:"user_email"`
	UserName      string          `json:"user_name"`
	Subject       string          `json:"subject"`
	Message       string          `json:"message"`
	Status        ComplaintStatus `json:"status"`
	AdminResponse string          `json:"admin_response,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Package events provides the in-process event bus and typed event payloads.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	// Investment lifecycle
	InvestmentCreated   EventType = "INVESTMENT_CREATED"
	InvestmentCompleted EventType = "INVESTMENT_COMPLETED"

	// Wallet funding workflows
	DepositCreated    EventType = "DEPOSIT_CREATED"
	DepositDecided    EventType = "DEPOSIT_DECIDED"
	WithdrawalCreated EventType = "WITHDRAWAL_CREATED"
	WithdrawalDecided EventType = "WITHDRAWAL_DECIDED"
	WalletCredited    EventType = "WALLET_CREDITED"

	// Support
	ComplaintCreated EventType = "COMPLAINT_CREATED"
	ComplaintUpdated EventType = "COMPLAINT_UPDATED"

	// Batch jobs
	AccrualRunStarted  EventType = "ACCRUAL_RUN_STARTED"
	AccrualRunFinished EventType = "ACCRUAL_RUN_FINISHED"

	ErrorOccurred EventType = "ERROR_OCCURRED"
)

// AllEventTypes lists every event type the platform emits
func AllEventTypes() []EventType {
	return []EventType{
		InvestmentCreated,
		InvestmentCompleted,
		DepositCreated,
		DepositDecided,
		WithdrawalCreated,
		WithdrawalDecided,
		WalletCredited,
		ComplaintCreated,
		ComplaintUpdated,
		AccrualRunStarted,
		AccrualRunFinished,
		ErrorOccurred,
	}
}

// Event represents a system event.
// Data holds the JSON-object form of the typed payload; use GetTypedData to recover it.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

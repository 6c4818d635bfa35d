package events

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// InvestmentCreatedData contains data for InvestmentCreated events
type InvestmentCreatedData struct {
	UserID       string          `json:"user_id"`
	InvestmentID string          `json:"investment_id"`
	PackageID    string          `json:"package_id"`
	PackageName  string          `json:"package_name"`
	Capital      decimal.Decimal `json:"capital"`
	DailyProfit  decimal.Decimal `json:"daily_profit"`
	TotalReturn  decimal.Decimal `json:"total_return"`
	Duration     int             `json:"duration"`
}

// EventType returns the event type for InvestmentCreatedData
func (d *InvestmentCreatedData) EventType() EventType {
	return InvestmentCreated
}

// InvestmentCompletedData contains data for InvestmentCompleted events.
// Settlement is the amount credited to the wallet (capital + profit earned).
type InvestmentCompletedData struct {
	UserID       string          `json:"user_id"`
	InvestmentID string          `json:"investment_id"`
	PackageName  string          `json:"package_name"`
	Capital      decimal.Decimal `json:"capital"`
	ProfitEarned decimal.Decimal `json:"profit_earned"`
	TotalReturn  decimal.Decimal `json:"total_return"`
	Settlement   decimal.Decimal `json:"settlement"`
	Duration     int             `json:"duration"`
}

// EventType returns the event type for InvestmentCompletedData
func (d *InvestmentCompletedData) EventType() EventType {
	return InvestmentCompleted
}

// DepositCreatedData contains data for DepositCreated events
type DepositCreatedData struct {
	UserID    string          `json:"user_id"`
	DepositID string          `json:"deposit_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// EventType returns the event type for DepositCreatedData
func (d *DepositCreatedData) EventType() EventType {
	return DepositCreated
}

// DepositDecidedData contains data for DepositDecided events
type DepositDecidedData struct {
	UserID    string          `json:"user_id"`
	DepositID string          `json:"deposit_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Note      string          `json:"note,omitempty"`
}

// EventType returns the event type for DepositDecidedData
func (d *DepositDecidedData) EventType() EventType {
	return DepositDecided
}

// WithdrawalCreatedData contains data for WithdrawalCreated events
type WithdrawalCreatedData struct {
	UserID       string          `json:"user_id"`
	WithdrawalID string          `json:"withdrawal_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// EventType returns the event type for WithdrawalCreatedData
func (d *WithdrawalCreatedData) EventType() EventType {
	return WithdrawalCreated
}

// WithdrawalDecidedData contains data for WithdrawalDecided events
type WithdrawalDecidedData struct {
	UserID       string          `json:"user_id"`
	WithdrawalID string          `json:"withdrawal_id"`
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	Note         string          `json:"note,omitempty"`
}

// EventType returns the event type for WithdrawalDecidedData
func (d *WithdrawalDecidedData) EventType() EventType {
	return WithdrawalDecided
}

// WalletCreditedData contains data for WalletCredited events (manual admin credits)
type WalletCreditedData struct {
	UserID       string          `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Note         string          `json:"note,omitempty"`
}

// EventType returns the event type for WalletCreditedData
func (d *WalletCreditedData) EventType() EventType {
	return WalletCredited
}

// ComplaintCreatedData contains data for ComplaintCreated events
type ComplaintCreatedData struct {
	UserID      string `json:"user_id"`
	ComplaintID string `json:"complaint_id"`
	Subject     string `json:"subject"`
}

// EventType returns the event type for ComplaintCreatedData
func (d *ComplaintCreatedData) EventType() EventType {
	return ComplaintCreated
}

// ComplaintUpdatedData contains data for ComplaintUpdated events
type ComplaintUpdatedData struct {
	UserID      string `json:"user_id"`
	ComplaintID string `json:"complaint_id"`
	Subject     string `json:"subject"`
	Status      string `json:"status"`
	Response    string `json:"response,omitempty"`
}

// EventType returns the event type for ComplaintUpdatedData
func (d *ComplaintUpdatedData) EventType() EventType {
	return ComplaintUpdated
}

// AccrualRunStartedData contains data for AccrualRunStarted events
type AccrualRunStartedData struct {
	RunID   string `json:"run_id"`
	Trigger string `json:"trigger"`
}

// EventType returns the event type for AccrualRunStartedData
func (d *AccrualRunStartedData) EventType() EventType {
	return AccrualRunStarted
}

// AccrualRunFinishedData contains data for AccrualRunFinished events
type AccrualRunFinishedData struct {
	RunID        string          `json:"run_id"`
	Trigger      string          `json:"trigger"`
	Status       string          `json:"status"`
	Processed    int             `json:"processed"`
	Advanced     int             `json:"advanced"`
	Completed    int             `json:"completed"`
	Failed       int             `json:"failed"`
	Skipped      int             `json:"skipped"`
	TotalSettled decimal.Decimal `json:"total_settled"`
	DurationMs   int64           `json:"duration_ms"`
}

// EventType returns the event type for AccrualRunFinishedData
func (d *AccrualRunFinishedData) EventType() EventType {
	return AccrualRunFinished
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}

// GetTypedData converts the Data map back to its typed EventData.
// Returns nil if the type is unknown or the payload does not decode.
func (e *Event) GetTypedData() EventData {
	if e.Data == nil {
		return nil
	}

	var data EventData
	switch e.Type {
	case InvestmentCreated:
		data = &InvestmentCreatedData{}
	case InvestmentCompleted:
		data = &InvestmentCompletedData{}
	case DepositCreated:
		data = &DepositCreatedData{}
	case DepositDecided:
		data = &DepositDecidedData{}
	case WithdrawalCreated:
		data = &WithdrawalCreatedData{}
	case WithdrawalDecided:
		data = &WithdrawalDecidedData{}
	case WalletCredited:
		data = &WalletCreditedData{}
	case ComplaintCreated:
		data = &ComplaintCreatedData{}
	case ComplaintUpdated:
		data = &ComplaintUpdatedData{}
	case AccrualRunStarted:
		data = &AccrualRunStartedData{}
	case AccrualRunFinished:
		data = &AccrualRunFinishedData{}
	case ErrorOccurred:
		data = &ErrorEventData{}
	default:
		return nil
	}

	if err := convertMapToStruct(e.Data, data); err != nil {
		return nil
	}
	return data
}

// convertMapToStruct converts a map[string]interface{} to a struct
func convertMapToStruct(m map[string]interface{}, v interface{}) error {
	jsonBytes, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, v)
}

// convertEventDataToMap converts typed EventData to map[string]interface{}
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}

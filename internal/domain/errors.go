package domain

import "errors"

// Caller-visible error kinds. Wrap them with fmt.Errorf("...: %w", err) and
// compare with errors.Is.
var (
	ErrInsufficientFunds   = errors.New("insufficient wallet balance")
	ErrPackageNotFound     = errors.New("package not found")
	ErrAlreadyProcessed    = errors.New("request already processed")
	ErrNotFound            = errors.New("not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidDecision     = errors.New("decision must be approved or rejected")
	ErrInvalidStatus       = errors.New("invalid status")
	ErrInvalidInput        = errors.New("invalid input")
	ErrBankAccountRequired = errors.New("bank account required")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrConcurrentUpdate    = errors.New("record changed by a concurrent writer")
	ErrRunInProgress       = errors.New("accrual run already in progress")
	ErrAlreadyRanToday     = errors.New("accrual already ran for this date")
	ErrLockNotObtained     = errors.New("lock not obtained")
)

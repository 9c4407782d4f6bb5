package errors

import (
	"errors"
	"fmt"
)

// Standard error codes
const (
	ErrInvalidRequest      = 400
	ErrNotFound            = 404
	ErrInternalServerError = 500
	ErrServiceUnavailable  = 503

	// Engine-specific error codes (1000+)
	ErrInsufficientFunds     = 1001
	ErrPeriodClosed          = 1002
	ErrInvalidBet            = 1003
	ErrGeneratorFailure      = 1004
	ErrSettlementFailure     = 1005
	ErrLedgerUnavailable     = 1006
	ErrRoundCrashed          = 1007
	ErrDuplicateSettlement   = 1008
	ErrUnknownPlayer         = 1009
	ErrIdentityCheckFailed   = 1010
	ErrUnknownGame           = 1011
	ErrSchedulerShuttingDown = 1012
)

// AppError represents a custom application error
type AppError struct {
	Code         int    `json:"code"`
	Message      string `json:"message"`
	DebugMessage string `json:"debug_message,omitempty"`
	Err          error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.DebugMessage != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.DebugMessage)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s [%v]", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithDebug creates a new AppError with a debug message
func NewWithDebug(code int, message string, debugMessage string) *AppError {
	return &AppError{
		Code:         code,
		Message:      message,
		DebugMessage: debugMessage,
	}
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode extracts error code from an error
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternalServerError
}

// HasCode reports whether err carries the given engine error code
func HasCode(err error, code int) bool {
	return GetCode(err) == code
}

// Placement errors are returned synchronously to the caller and carry no
// side effects. Resolution errors never escape the scheduler; they void
// the period instead.

// InsufficientFunds rejects a wager the ledger could not reserve
func InsufficientFunds(playerID string) *AppError {
	return NewWithDebug(ErrInsufficientFunds, "insufficient funds", "player "+playerID)
}

// PeriodClosed rejects a wager placed outside the open betting window
func PeriodClosed(periodID int64) *AppError {
	return NewWithDebug(ErrPeriodClosed, "betting window closed", fmt.Sprintf("period %d", periodID))
}

// InvalidBet rejects a wager whose bet is outside the family's union
func InvalidBet(reason string) *AppError {
	return NewWithDebug(ErrInvalidBet, "invalid bet", reason)
}

// LedgerUnavailable fails a placement closed when the ledger cannot answer.
// Callers treat it exactly like InsufficientFunds: reject, never assume success.
func LedgerUnavailable(err error) *AppError {
	return Wrap(err, ErrLedgerUnavailable, "ledger unavailable")
}

// RoundCrashed is the definitive loss returned to a cash-out request
// that arrives at or after the crash point
func RoundCrashed() *AppError {
	return New(ErrRoundCrashed, "round already crashed")
}

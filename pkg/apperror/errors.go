package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LED) ----

func ErrSelfTransfer() *AppError {
	return New("LED_001", "Cannot transfer to the same account", http.StatusBadRequest)
}

func ErrInsufficientBalance() *AppError {
	return New("LED_002", "Insufficient balance in wallet", http.StatusPaymentRequired)
}

func ErrCurrencyNotFound() *AppError {
	return New("LED_003", "Currency not found", http.StatusNotFound)
}

func ErrRateNotFound() *AppError {
	return New("LED_004", "No exchange rate configured for this direction", http.StatusNotFound)
}

func ErrInvalidAmount() *AppError {
	return New("LED_005", "Amount must be positive", http.StatusBadRequest)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_006", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Bank notes (NOTE) ----

func ErrInvalidSignature() *AppError {
	return New("NOTE_001", "Bank note signature is invalid", http.StatusUnauthorized)
}

func ErrRecipientMismatch() *AppError {
	return New("NOTE_002", "Bank note is bound to a different recipient", http.StatusForbidden)
}

func ErrAlreadyConsumed() *AppError {
	return New("NOTE_003", "Bank note has already been redeemed", http.StatusConflict)
}

// ---- Currency registry (REG) ----

func ErrDuplicateCurrency() *AppError {
	return New("REG_001", "Currency with this name already exists in the group", http.StatusConflict)
}

func ErrCurrencyGroupMismatch() *AppError {
	return New("REG_002", "Currency does not belong to this group", http.StatusBadRequest)
}

func ErrInvalidRate() *AppError {
	return New("REG_003", "Exchange rate must be positive", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidAdminKey() *AppError {
	return New("AUTH_001", "Invalid admin API key", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// ErrStorageUnavailable reports a transient durable-storage failure. The
// surrounding operation was aborted with no partial mutation retained.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_001", "Storage temporarily unavailable", http.StatusServiceUnavailable, err)
}

// InternalError wraps an internal error as a SYS_000 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a LED_005-style validation error.
func Validation(message string) *AppError {
	return New("LED_005", message, http.StatusBadRequest)
}

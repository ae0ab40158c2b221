package types

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorCode identifies a business error kind surfaced to the caller.
type ErrorCode string

const (
	// Ledger errors
	ErrInvalidAmount        ErrorCode = "INVALID_AMOUNT"
	ErrInsufficientFunds    ErrorCode = "INSUFFICIENT_FUNDS"
	ErrDuplicateExternalTxn ErrorCode = "DUPLICATE_EXTERNAL_TXN"
	ErrAlreadyCompleted     ErrorCode = "ALREADY_COMPLETED"
	ErrWalletNotFound       ErrorCode = "WALLET_NOT_FOUND"
	ErrTopupNotFound        ErrorCode = "TOPUP_NOT_FOUND"

	// Purchase errors
	ErrLedgerRefRequired    ErrorCode = "LEDGER_REF_REQUIRED"
	ErrPurchaseNotFound     ErrorCode = "PURCHASE_NOT_FOUND"
	ErrWrongPurchaseType    ErrorCode = "WRONG_PURCHASE_TYPE"
	ErrPurchaseNotConfirmed ErrorCode = "PURCHASE_NOT_CONFIRMED"
	ErrMissingLedgerRef     ErrorCode = "MISSING_LEDGER_REF"
	ErrAlreadyRedeemed      ErrorCode = "ALREADY_REDEEMED"

	// Pool errors
	ErrPoolNotFound ErrorCode = "POOL_NOT_FOUND"
	ErrPoolNotOpen  ErrorCode = "POOL_NOT_OPEN"
	ErrPoolFull     ErrorCode = "POOL_FULL"
	ErrPoolNotFull  ErrorCode = "POOL_NOT_FULL"

	// Tournament errors
	ErrTournamentNotFound ErrorCode = "TOURNAMENT_NOT_FOUND"
	ErrPhaseNotFound      ErrorCode = "PHASE_NOT_FOUND"

	// Generic
	ErrForbidden     ErrorCode = "FORBIDDEN"
	ErrInvalidState  ErrorCode = "INVALID_STATE"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// ServiceError carries a business error code plus a caller-facing message.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, format string, args ...any) *ServiceError {
	return &ServiceError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code ErrorCode, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Err: err}
}

// Is reports whether err is a *ServiceError with the given code.
func Is(err error, code ErrorCode) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// HTTPStatus maps the error code to the transport status the handlers use.
func (e *ServiceError) HTTPStatus() int {
	switch e.Code {
	case ErrWalletNotFound, ErrTopupNotFound, ErrPurchaseNotFound,
		ErrPoolNotFound, ErrTournamentNotFound, ErrPhaseNotFound:
		return fiber.StatusNotFound
	case ErrForbidden:
		return fiber.StatusForbidden
	case ErrDuplicateExternalTxn, ErrAlreadyRedeemed, ErrAlreadyCompleted:
		return fiber.StatusConflict
	case ErrInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeConflict       ErrorCode = "CONFLICT"
	ErrCodeInvalidState   ErrorCode = "INVALID_STATE"
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabaseError  ErrorCode = "DATABASE_ERROR"
)

// Бизнес-причины отказа. Отдаются клиенту вместе с кодом, чтобы
// объяснить, почему действие было отклонено.
const (
	ReasonWorklogNotRejected   = "WORKLOG_NOT_REJECTED"
	ReasonDisputeWindowExpired = "DISPUTE_WINDOW_EXPIRED"
	ReasonWorklogDisputeExists = "WORKLOG_DISPUTE_EXISTS"
	ReasonDisputeAlreadyExists = "ALREADY_EXISTS"
	ReasonInvalidReason        = "INVALID_REASON"
	ReasonCannotRaiseDispute   = "CANNOT_RAISE_DISPUTE"
)

type AppError struct {
	Code       ErrorCode
	Reason     string
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// NewReason создаёт ошибку с бизнес-причиной отказа.
func NewReason(code ErrorCode, reason, message string) *AppError {
	return &AppError{
		Code:       code,
		Reason:     reason,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// As извлекает *AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeValidation
}

func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeConflict
}

func IsInvalidState(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeInvalidState
}

// HasReason проверяет бизнес-причину отказа.
func HasReason(err error, reason string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Reason == reason
}

var (
	ErrContractNotFound = New(ErrCodeNotFound, "контракт не найден")
	ErrWorklogNotFound  = New(ErrCodeNotFound, "ворклог не найден")
	ErrDisputeNotFound  = New(ErrCodeNotFound, "спор не найден")
	ErrUnauthorized     = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden        = New(ErrCodeForbidden, "недостаточно прав")

	ErrWorklogNotRejected = NewReason(ErrCodeInvalidState, ReasonWorklogNotRejected,
		"оспорить можно только отклонённый ворклог")
	ErrDisputeWindowExpired = NewReason(ErrCodeInvalidState, ReasonDisputeWindowExpired,
		"окно оспаривания истекло, отклонение окончательно")
	ErrWorklogDisputeExists = NewReason(ErrCodeConflict, ReasonWorklogDisputeExists,
		"по этому ворклогу уже открыт спор")
	ErrDisputeAlreadyExists = NewReason(ErrCodeConflict, ReasonDisputeAlreadyExists,
		"по контракту уже есть активный спор")
	ErrInvalidDisputeReason = NewReason(ErrCodeValidation, ReasonInvalidReason,
		"недопустимая причина спора")
	ErrCannotRaiseDispute = NewReason(ErrCodeInvalidState, ReasonCannotRaiseDispute,
		"оспорить можно только отмену, выполненную клиентом")
	ErrHourlyDisputeNotImplemented = New(ErrCodeNotImplemented,
		"оспаривание отмены почасового контракта пока не поддерживается")
)

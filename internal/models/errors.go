package models

import "errors"

// Sentinel errors for saved-state handling. Callers match them with errors.Is.
var (
	// ErrLoad is returned when the saved-state file exists but cannot be read
	// or contains a malformed record.
	ErrLoad = errors.New("saved state load failed")
	// ErrParse marks a line that does not follow the entity id grammar.
	ErrParse = errors.New("malformed entity id")
	// ErrIO is returned when the saved-state file cannot be written.
	ErrIO = errors.New("saved state write failed")
	// ErrNotFound is returned when no saved state matches a name or index.
	ErrNotFound = errors.New("saved state not found")
	// ErrFastConnectDisabled is returned by saves while fast connect is off.
	ErrFastConnectDisabled = errors.New("fast connect not supported")
	// ErrInvalidName is returned for friendly names with non-printable characters.
	ErrInvalidName = errors.New("invalid friendly name")
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string { return e.Message }

// Error constructors.
var (
	ErrNotFoundf = func(msg string) *AppError {
		return &AppError{Code: "NOT_FOUND", Message: msg, Status: 404}
	}
	ErrBadRequest = func(msg string) *AppError {
		return &AppError{Code: "BAD_REQUEST", Message: msg, Status: 400}
	}
	ErrInternal = func(msg string) *AppError {
		return &AppError{Code: "INTERNAL", Message: msg, Status: 500}
	}
	ErrConflict = func(msg string) *AppError {
		return &AppError{Code: "CONFLICT", Message: msg, Status: 409}
	}
)

// ToAppError maps a saved-state error onto an HTTP-facing AppError.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrNotFound):
		return ErrNotFoundf(err.Error())
	case errors.Is(err, ErrInvalidName):
		return ErrBadRequest(err.Error())
	case errors.Is(err, ErrFastConnectDisabled):
		return ErrConflict(err.Error())
	default:
		return ErrInternal(err.Error())
	}
}

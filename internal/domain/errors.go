package domain

import "errors"

type ErrorCode string

const (
	CodeValidation    ErrorCode = "VALIDATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCapacity      ErrorCode = "CAPACITY"
	CodeConflict      ErrorCode = "CONFLICT"
	CodeDataIntegrity ErrorCode = "DATA_INTEGRITY"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeForbidden     ErrorCode = "FORBIDDEN"
)

var (
	ErrValidation    = errors.New("validation failed")
	ErrTimeout       = errors.New("classifier timed out")
	ErrCapacity      = errors.New("pivot depth cap reached")
	ErrConflict      = errors.New("a change is already pending")
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
)

var codeSentinels = map[ErrorCode]error{
	CodeValidation:    ErrValidation,
	CodeTimeout:       ErrTimeout,
	CodeCapacity:      ErrCapacity,
	CodeConflict:      ErrConflict,
	CodeDataIntegrity: ErrDataIntegrity,
	CodeNotFound:      ErrNotFound,
	CodeForbidden:     ErrForbidden,
}

// PivotError is the typed error surfaced by the engine.
type PivotError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *PivotError) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *PivotError) Unwrap() error { return e.Err }

// Is lets errors.Is match a PivotError against its code's sentinel.
func (e *PivotError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

func NewValidationError(msg string) *PivotError {
	return &PivotError{Code: CodeValidation, Message: msg}
}

func NewConflictError(msg string) *PivotError {
	return &PivotError{Code: CodeConflict, Message: msg}
}

func NewCapacityError(msg string) *PivotError {
	return &PivotError{Code: CodeCapacity, Message: msg}
}

func NewDataIntegrityError(msg string) *PivotError {
	return &PivotError{Code: CodeDataIntegrity, Message: msg}
}

func NewForbiddenError(msg string) *PivotError {
	return &PivotError{Code: CodeForbidden, Message: msg}
}

func NewNotFoundError(msg string, err error) *PivotError {
	return &PivotError{Code: CodeNotFound, Message: msg, Err: err}
}

// CodeOf returns the code of the first PivotError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *PivotError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

package service

type ErrorCode string

const (
	ErrorCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrorCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrorCodeConflict     ErrorCode = "CONFLICT"
	ErrorCodeInvalidState ErrorCode = "INVALID_STATE"
	ErrorCodeInvalidBody  ErrorCode = "INVALID_BODY"
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrorCodeUnspecified  ErrorCode = "UNSPECIFIED"
)

// Error carries a display-ready message; infrastructure failures are
// reported as ErrorCodeUnspecified without leaking storage details.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) Error() string {
	return e.Message
}

package apperror

// AppError is a custom error type that includes an HTTP status code, an
// optional machine-readable reason code, and an optional internal error.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 409)
	Reason  string // Machine-readable code for clients (e.g., "SLOT_NO_LONGER_AVAILABLE")
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code and message.
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithReason creates a new AppError carrying a machine-readable reason code.
// Clients switch on Reason; Message is for humans.
func NewWithReason(code int, reason, message string) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

package httpdto

// ErrorCode is the machine-readable half of an error envelope. The set
// mirrors the sentinel errors in pkg/errors plus the transport-level
// rejections that never reach the service layer.
type ErrorCode string

const (
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeWindowClosed    ErrorCode = "WINDOW_CLOSED"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeAccessDenied    ErrorCode = "ACCESS_DENIED"
	CodeChannelDisabled ErrorCode = "CHANNEL_DISABLED"
	CodeTransportError  ErrorCode = "TRANSPORT_ERROR"
	CodeConflict        ErrorCode = "CONFLICT"
	CodeInternalError   ErrorCode = "INTERNAL_ERROR"
	CodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	CodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
)

type Response[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
	Code    ErrorCode `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code ErrorCode) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

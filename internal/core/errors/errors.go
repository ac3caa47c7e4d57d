package errors

const (
	HttpInternalError          = "internal_error"
	HttpInvalidParamsError     = "invalid_params"
	HttpInvalidTimeFormatError = "invalid_time_format"
	HttpInvalidWindowError     = "invalid_window"
	HttpWindowTooLargeError    = "window_too_large"
	HttpInvalidLimitError      = "invalid_limit"
	HttpUpstreamError          = "upstream_unavailable"
)

// ErrorResponse is the error response body for query errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

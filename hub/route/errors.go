package route

// HTTPError is the uniform error body of the external controller.
type HTTPError struct {
	Message string `json:"message"`
}

func (e *HTTPError) Error() string {
	return e.Message
}

func newError(msg string) *HTTPError {
	return &HTTPError{Message: msg}
}

var (
	ErrNotFound       = newError("Resource not found")
	ErrBadRequest     = newError("Body invalid")
	ErrRequestTimeout = newError("Timeout")
)

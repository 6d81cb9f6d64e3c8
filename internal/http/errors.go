package http

import (
	stdhttp "net/http"

	"github.com/danielgtaylor/huma/v2"
)

// apiError replaces Huma's default problem-details model so that framework
// level failures (malformed JSON, unsupported media types) answer with the
// same envelope the handlers use.
type apiError struct {
	Success bool   `json:"success"`
	Message string `json:"error"`

	status int
}

func (e *apiError) Error() string {
	return e.Message
}

func (e *apiError) GetStatus() int {
	return e.status
}

func (e *apiError) ContentType(string) string {
	return "application/json"
}

func init() {
	huma.NewError = func(status int, message string, _ ...error) huma.StatusError {
		if message == "" {
			message = stdhttp.StatusText(status)
		}
		return &apiError{Success: false, Message: message, status: status}
	}
}

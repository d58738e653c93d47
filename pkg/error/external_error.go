package error

import "net/http"

// ExternalError wraps an error raised by the WhatsApp client. The message
// is passed through to the caller verbatim, no retry.
type ExternalError string

func (err ExternalError) Error() string {
	return string(err)
}

func (err ExternalError) ErrCode() string {
	return "EXTERNAL_ERROR"
}

func (err ExternalError) StatusCode() int {
	return http.StatusInternalServerError
}

package error

import "net/http"

// NotReadyError is raised when an operation requires a READY session.
type NotReadyError string

func (err NotReadyError) Error() string {
	return string(err)
}

func (err NotReadyError) ErrCode() string {
	return "NOT_READY"
}

func (err NotReadyError) StatusCode() int {
	return http.StatusServiceUnavailable
}

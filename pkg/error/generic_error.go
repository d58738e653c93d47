package error

// GenericError is implemented by every bridge error type so the REST
// recovery middleware can map a panic to the right HTTP response.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}

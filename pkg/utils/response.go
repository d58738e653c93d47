package utils

// ResponseData is the REST error envelope. Success bodies are endpoint
// specific; only failures share this shape.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code,omitempty"`
	Message string `json:"error"`
}

// PanicIfNeeded panics with err so the recovery middleware can translate
// it into an HTTP response. Keeps handler bodies linear.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}

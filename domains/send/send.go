package send

import "context"

type ISendUsecase interface {
	Send(ctx context.Context, request MessageRequest) (response GenericResponse, err error)
}

// MessageRequest is the /api/send payload. Message is required unless
// MediaURL is set, in which case it becomes the caption.
type MessageRequest struct {
	To            string `json:"to"`
	Message       string `json:"message"`
	MediaURL      string `json:"media_url,omitempty"`
	MediaFilename string `json:"media_filename,omitempty"`
}

type GenericResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	Timestamp int64  `json:"timestamp"`
}

package chat

import "context"

type IChatUsecase interface {
	ListChats(ctx context.Context) (response []Chat, err error)
}

// IChatRepository persists the local chat index built from observed
// message traffic.
type IChatRepository interface {
	ListChats(ctx context.Context, limit int) ([]Chat, error)
}

type Chat struct {
	JID             string `json:"id"`
	Name            string `json:"name"`
	LastMessage     string `json:"last_message"`
	LastMessageTime int64  `json:"timestamp"`
	UnreadCount     int    `json:"unread_count"`
	IsGroup         bool   `json:"is_group"`
}

package usecase

import (
	"context"
	"fmt"

	domainChat "github.com/wabridge/wabridge/domains/chat"
	pkgError "github.com/wabridge/wabridge/pkg/error"
	"github.com/wabridge/wabridge/session"
)

type serviceChat struct {
	state *session.State
	repo  domainChat.IChatRepository
}

func NewChatService(state *session.State, repo domainChat.IChatRepository) domainChat.IChatUsecase {
	return &serviceChat{state: state, repo: repo}
}

// ListChats returns the most recently active chats. The index only reflects
// live traffic, so anything served before READY would be stale.
func (service *serviceChat) ListChats(ctx context.Context) (response []domainChat.Chat, err error) {
	if status := service.state.Status(); status != session.StatusReady {
		return nil, pkgError.NotReadyError(fmt.Sprintf("session is not ready (status: %s)", status))
	}
	return service.repo.ListChats(ctx, 50)
}

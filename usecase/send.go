package usecase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp"

	domainSend "github.com/wabridge/wabridge/domains/send"
	pkgError "github.com/wabridge/wabridge/pkg/error"
	"github.com/wabridge/wabridge/pkg/utils"
	"github.com/wabridge/wabridge/session"
	"github.com/wabridge/wabridge/validations"
)

type serviceSend struct {
	state       *session.State
	coordinator *session.Coordinator
}

func NewSendService(state *session.State, coordinator *session.Coordinator) domainSend.ISendUsecase {
	return &serviceSend{state: state, coordinator: coordinator}
}

func (service *serviceSend) Send(ctx context.Context, request domainSend.MessageRequest) (response domainSend.GenericResponse, err error) {
	if err = validations.ValidateSendMessage(ctx, request); err != nil {
		return response, err
	}

	if status := service.state.Status(); status != session.StatusReady {
		return response, pkgError.NotReadyError(fmt.Sprintf("session is not ready (status: %s)", status))
	}

	messenger := service.coordinator.Messenger()
	if messenger == nil {
		return response, pkgError.NotReadyError("session is not initialized yet")
	}

	recipient := utils.FormatRecipient(request.To)

	var receipt session.SendReceipt
	if request.MediaURL != "" {
		receipt, err = service.sendMedia(ctx, messenger, recipient, request)
	} else {
		receipt, err = messenger.SendText(ctx, recipient, request.Message)
	}
	if err != nil {
		logrus.WithError(err).WithField("recipient", recipient).Error("[SEND] Failed to send message")
		return response, err
	}

	logrus.WithFields(logrus.Fields{
		"message_id": receipt.MessageID,
		"recipient":  recipient,
	}).Info("[SEND] Message sent successfully")

	response.Success = true
	response.MessageID = receipt.MessageID
	response.Timestamp = receipt.Timestamp.Unix()
	return response, nil
}

func (service *serviceSend) sendMedia(ctx context.Context, messenger session.Messenger, recipient string, request domainSend.MessageRequest) (session.SendReceipt, error) {
	data, filename, err := utils.DownloadMediaFromURL(request.MediaURL)
	if err != nil {
		return session.SendReceipt{}, err
	}
	if request.MediaFilename != "" {
		filename = request.MediaFilename
	}

	// WhatsApp renders WebP as a sticker, so re-encode to PNG first.
	if http.DetectContentType(data) == "image/webp" {
		webpImage, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return session.SendReceipt{}, pkgError.InternalServerError(fmt.Sprintf("failed to decode WebP image: %v", err))
		}

		var pngBuffer bytes.Buffer
		if err = imaging.Encode(&pngBuffer, webpImage, imaging.PNG); err != nil {
			return session.SendReceipt{}, pkgError.InternalServerError(fmt.Sprintf("failed to convert WebP to PNG: %v", err))
		}
		data = pngBuffer.Bytes()

		if strings.HasSuffix(strings.ToLower(filename), ".webp") {
			filename = filename[:len(filename)-5] + ".png"
		} else {
			filename += ".png"
		}
	}

	return messenger.SendMedia(ctx, recipient, request.Message, filename, data)
}

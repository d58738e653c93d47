package validations

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	domainSend "github.com/wabridge/wabridge/domains/send"
	pkgError "github.com/wabridge/wabridge/pkg/error"
)

func ValidateSendMessage(ctx context.Context, request domainSend.MessageRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.To, validation.Required),
		validation.Field(&request.Message, validation.Required.When(request.MediaURL == "")),
		validation.Field(&request.MediaURL, is.URL),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidatePairingCode(ctx context.Context, phone string) error {
	err := validation.Validate(phone,
		validation.Required,
		validation.Length(5, 20),
	)

	if err != nil {
		return pkgError.ValidationError("phone: " + err.Error())
	}

	return nil
}

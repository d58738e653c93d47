package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	domainApp "github.com/wabridge/wabridge/domains/app"
	pkgError "github.com/wabridge/wabridge/pkg/error"
	"github.com/wabridge/wabridge/pkg/utils"
	"github.com/wabridge/wabridge/session"
	"github.com/wabridge/wabridge/validations"
)

type serviceApp struct {
	state       *session.State
	coordinator *session.Coordinator
}

func NewAppService(state *session.State, coordinator *session.Coordinator) domainApp.IAppUsecase {
	return &serviceApp{state: state, coordinator: coordinator}
}

func (service *serviceApp) Status(ctx context.Context) (response domainApp.StatusResponse, err error) {
	snap := service.state.Snapshot()
	response.Status = string(snap.Status)
	if snap.Status == session.StatusReady && snap.Info != nil {
		response.Info = &domainApp.SessionInfo{
			JID:      snap.Info.JID,
			PushName: snap.Info.PushName,
		}
	}
	return response, nil
}

func (service *serviceApp) QR(ctx context.Context) (response domainApp.QRResponse, err error) {
	snap := service.state.Snapshot()
	switch snap.Status {
	case session.StatusQRReady:
		response.DataURL = snap.QRDataURL
	case session.StatusAuthenticated, session.StatusReady:
		response.Message = "already authenticated"
	default:
		response.Message = fmt.Sprintf("QR code not available (status: %s)", snap.Status)
	}
	return response, nil
}

func (service *serviceApp) PairingCode(ctx context.Context, phone string) (response domainApp.PairingCodeResponse, err error) {
	if err = validations.ValidatePairingCode(ctx, phone); err != nil {
		return response, err
	}

	status := service.state.Status()
	if status == session.StatusAuthenticated || status == session.StatusReady {
		return response, pkgError.ValidationError("already authenticated")
	}

	messenger := service.coordinator.Messenger()
	if messenger == nil {
		return response, pkgError.NotReadyError("session is not initialized yet")
	}

	code, err := messenger.PairPhone(ctx, utils.DigitsOnly(phone))
	if err != nil {
		return response, err
	}

	logrus.Info("[APP] Pairing code issued")
	response.Code = code
	return response, nil
}

func (service *serviceApp) Logout(ctx context.Context) (err error) {
	messenger := service.coordinator.Messenger()
	if messenger == nil {
		return pkgError.NotReadyError("no active session to logout")
	}

	if err = service.coordinator.Logout(ctx); err != nil {
		return err
	}

	logrus.Info("[APP] Logout requested")
	return nil
}

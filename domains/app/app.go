package app

import "context"

type IAppUsecase interface {
	Status(ctx context.Context) (response StatusResponse, err error)
	QR(ctx context.Context) (response QRResponse, err error)
	PairingCode(ctx context.Context, phone string) (response PairingCodeResponse, err error)
	Logout(ctx context.Context) (err error)
}

// StatusResponse reports the session status. Info is only populated once
// the session is READY; until then it serializes as null.
type StatusResponse struct {
	Status string       `json:"status"`
	Info   *SessionInfo `json:"info"`
}

type SessionInfo struct {
	JID      string `json:"jid"`
	PushName string `json:"push_name"`
}

// QRResponse carries the pairing artifact for the QR page. Exactly one of
// DataURL and Message is set.
type QRResponse struct {
	DataURL string `json:"qr_data_url,omitempty"`
	Message string `json:"message,omitempty"`
}

// PairingCodeRequest is the /api/pairing-code payload.
type PairingCodeRequest struct {
	Phone string `json:"phone"`
}

type PairingCodeResponse struct {
	Code string `json:"code"`
}

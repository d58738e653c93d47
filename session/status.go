package session

import "sync"

// Status is the lifecycle phase of the WhatsApp session.
type Status string

const (
	StatusDisconnected  Status = "DISCONNECTED"
	StatusInitializing  Status = "INITIALIZING"
	StatusQRReady       Status = "QR_READY"
	StatusAuthenticated Status = "AUTHENTICATED"
	StatusReady         Status = "READY"
	StatusAuthFailure   Status = "AUTH_FAILURE"
)

// Info describes the account the session is bound to once connected.
type Info struct {
	JID      string `json:"jid"`
	PushName string `json:"push_name"`
}

// Snapshot is a consistent read of the whole session state.
type Snapshot struct {
	Status    Status `json:"status"`
	QRDataURL string `json:"-"`
	Info      *Info  `json:"info,omitempty"`
}

// State holds the current session status plus its pairing artifact. All
// reads and writes go through the mutex; the coordinator is the only
// writer, REST and WS handlers read concurrently.
type State struct {
	mu        sync.RWMutex
	status    Status
	qrDataURL string
	info      *Info
}

func NewState() *State {
	return &State{status: StatusDisconnected}
}

func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus transitions to st. The QR artifact only survives while the
// session sits in QR_READY; any other status clears it.
func (s *State) SetStatus(st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	if st != StatusQRReady {
		s.qrDataURL = ""
	}
	if st == StatusDisconnected || st == StatusAuthFailure {
		s.info = nil
	}
}

// SetQR stores the pairing artifact and moves the session to QR_READY.
func (s *State) SetQR(dataURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusQRReady
	s.qrDataURL = dataURL
}

func (s *State) QR() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.qrDataURL
}

func (s *State) SetInfo(info *Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

func (s *State) Info() *Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Status: s.status, QRDataURL: s.qrDataURL, Info: s.info}
}

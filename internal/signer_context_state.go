package internal

type State string

const (
	Disconnected    State = "disconnected"
	Connected       State = "connected"
	ConnectionError State = "connection-error" // transport failed, handle still open
)

type Status struct {
	State   State  `json:"state"`
	Port    string `json:"port,omitempty"`
	Network string `json:"network"`
}

func NewStatus(network string) *Status {
	status := &Status{Network: network}
	status.Reset()
	return status
}

func (s *Status) Reset() {
	s.State = Disconnected
	s.Port = ""
}

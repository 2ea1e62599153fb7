package domain

// ConnState is the lifecycle state of the streaming connection.
type ConnState string

const (
	ConnIdle       ConnState = "idle"
	ConnConnecting ConnState = "connecting"
	ConnOpen       ConnState = "open"
	ConnClosed     ConnState = "closed"
	ConnFailed     ConnState = "failed"
)

// ConnStatus reports the connection runtime state to the presentation layer.
type ConnStatus struct {
	State      ConnState `json:"state"`
	RetryCount int       `json:"retryCount"`
	LastError  string    `json:"lastError,omitempty"`
}

// Live reports whether the streaming channel is usable for sends.
func (s ConnStatus) Live() bool {
	return s.State == ConnOpen
}

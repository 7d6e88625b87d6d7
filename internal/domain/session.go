package domain

type SessionState string

const (
	SessionUninitialized SessionState = "uninitialized"
	SessionInitializing  SessionState = "initializing"
	SessionReady         SessionState = "ready"
	SessionRetrying      SessionState = "retrying"
	SessionClosed        SessionState = "closed"
)

func (s SessionState) Label() string {
	switch s {
	case SessionUninitialized:
		return "not connected"
	case SessionInitializing:
		return "connecting"
	case SessionReady:
		return "ready"
	case SessionRetrying:
		return "failed, retrying"
	case SessionClosed:
		return "closed"
	default:
		return string(s)
	}
}

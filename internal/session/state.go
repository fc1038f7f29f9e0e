package session

import "easemyday/internal/identity"

// Phase is the position of a session in its state machine.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseAnonymous    Phase = "anonymous"
	PhaseUnverified   Phase = "unverified"
	PhaseVerified     Phase = "verified"
)

// ErrorState is the last failure of a session operation as shown to the user.
type ErrorState struct {
	Kind           identity.Kind `json:"kind"`
	Message        string        `json:"message"`
	Infrastructure bool          `json:"infrastructure"`
}

func errorStateOf(err error) *ErrorState {
	kind := identity.KindOf(err)
	return &ErrorState{
		Kind:           kind,
		Message:        kind.Message(),
		Infrastructure: kind.Infrastructure(),
	}
}

// State is a snapshot of a visitor's session. Snapshots are values: holding
// one never observes later changes.
type State struct {
	IsLoading bool                `json:"is_loading"`
	User      *identity.Principal `json:"user"`
	LastError *ErrorState         `json:"last_error"`
	Version   uint64              `json:"version"`
}

func (s State) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseInitializing
	case s.User == nil:
		return PhaseAnonymous
	case !s.User.EmailVerified:
		return PhaseUnverified
	default:
		return PhaseVerified
	}
}

// IsEmailVerified is false when nobody is signed in.
func (s State) IsEmailVerified() bool {
	return s.User != nil && s.User.EmailVerified
}

func (s State) clone() State {
	if s.User != nil {
		user := *s.User
		s.User = &user
	}
	if s.LastError != nil {
		lastError := *s.LastError
		s.LastError = &lastError
	}
	return s
}

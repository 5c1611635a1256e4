package session

import (
	"time"

	"github.com/Zuzuna54/fintech-app-demo/internal/domain"
)

// State is the process-wide authentication state. It is a value type:
// transitions produce a new State and never mutate the old one.
type State struct {
	User            *domain.User
	IsAuthenticated bool
	IsLoading       bool
	Error           string
	LastLogin       time.Time // zero means never
	AccessToken     string
}

// InitialState is the state at application bootstrap: loading, anonymous.
func InitialState() State {
	return State{IsLoading: true}
}

// Action is a session state transition. The reducer is pure; all I/O
// happens in the Service operations that dispatch actions.
type Action interface {
	isAction()
}

// Start marks the beginning of a bootstrap, login, or refresh attempt.
type Start struct{}

// Success records an authenticated user. AccessToken is the token read from
// the store by the orchestrating operation (the reducer performs no I/O).
// A zero LastLogin preserves the previous value.
type Success struct {
	User        *domain.User
	LastLogin   time.Time
	AccessToken string
}

// Failure records a failed bootstrap, login, or refresh.
type Failure struct {
	Message string
}

// Logout resets to the anonymous state.
type Logout struct{}

// UpdateUser replaces the user snapshot in place.
type UpdateUser struct {
	User *domain.User
}

// ClearError clears the error field and nothing else.
type ClearError struct{}

func (Start) isAction()      {}
func (Success) isAction()    {}
func (Failure) isAction()    {}
func (Logout) isAction()     {}
func (UpdateUser) isAction() {}
func (ClearError) isAction() {}

// Reduce applies an action to a state and returns the next state.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case Start:
		s.IsLoading = true
		s.Error = ""
		return s

	case Success:
		s.User = act.User
		s.IsAuthenticated = true
		s.IsLoading = false
		s.Error = ""
		s.AccessToken = act.AccessToken
		if !act.LastLogin.IsZero() {
			s.LastLogin = act.LastLogin
		}
		return s

	case Failure:
		s.User = nil
		s.IsAuthenticated = false
		s.IsLoading = false
		s.Error = act.Message
		s.AccessToken = ""
		return s

	case Logout:
		return State{}

	case UpdateUser:
		s.User = act.User
		s.IsAuthenticated = act.User != nil
		return s

	case ClearError:
		s.Error = ""
		return s

	default:
		return s
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Zuzuna54/fintech-app-demo/internal/domain"
	"github.com/Zuzuna54/fintech-app-demo/internal/gateway"
	"github.com/Zuzuna54/fintech-app-demo/internal/logger"
	"github.com/Zuzuna54/fintech-app-demo/internal/token"
)

var (
	// ErrNoToken is returned when bootstrap finds no persisted token pair.
	ErrNoToken = errors.New("no token found")
	// ErrSessionExpired is returned when a refresh is rejected by the
	// backend; the session is terminally over.
	ErrSessionExpired = errors.New("session expired")
)

// Gateway is the narrow view of the API gateway the session service needs.
type Gateway interface {
	Token(ctx context.Context, email, password string) (*domain.TokenPair, error)
	Me(ctx context.Context) (*domain.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResponse, error)
	UpdateMe(ctx context.Context, patch map[string]any) (*domain.User, error)
	Logout(ctx context.Context) error
}

// Service owns the session state machine and orchestrates the I/O around
// it: token storage, backend calls, and state dispatches. It is
// constructor-injected everywhere it is consumed; there is no package-level
// singleton.
type Service struct {
	store     token.Store
	inspector *token.Inspector
	gw        Gateway
	log       *logger.Logger
	now       func() time.Time

	// opMu serializes orchestrating operations so a login, logout, and
	// refresh never interleave their read-then-write of the token store.
	opMu sync.Mutex

	mu    sync.RWMutex
	state State
	gen   uint64
	subs  map[int]chan State
	subID int
}

// NewService creates a session service in the initial loading state.
func NewService(store token.Store, inspector *token.Inspector, gw Gateway, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Get()
	}
	return &Service{
		store:     store,
		inspector: inspector,
		gw:        gw,
		log:       log,
		now:       time.Now,
		state:     InitialState(),
		subs:      make(map[int]chan State),
	}
}

// Snapshot returns the current session state.
func (s *Service) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a channel that receives state snapshots after every
// transition (latest wins; slow consumers never block dispatch) and a
// cancel function that must be called when done.
func (s *Service) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.subID
	s.subID++
	ch := make(chan State, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// ClearError clears the last failure message.
func (s *Service) ClearError() {
	s.dispatch(ClearError{})
}

func (s *Service) dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	next := s.state
	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}
	s.mu.Unlock()
	return next
}

func (s *Service) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// bumpGeneration invalidates any in-flight refresh: its result will be
// discarded rather than resurrect a session that ended while it was on the
// wire.
func (s *Service) bumpGeneration() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
}

// Bootstrap restores the session from persisted tokens. It runs once per
// process start; failures land in the session state, never at the caller.
func (s *Service) Bootstrap(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.dispatch(Start{})

	access, errA := s.store.Access(ctx)
	_, errR := s.store.Refresh(ctx)
	if errA != nil || errR != nil {
		s.dispatch(Failure{Message: "No token found"})
		return
	}

	if s.inspector.IsExpired(access) {
		if err := s.refresh(ctx); err != nil {
			s.clearTokens(ctx)
			s.bumpGeneration()
			s.dispatch(Failure{Message: "Session expired"})
			s.log.Warn("bootstrap refresh failed", zap.Error(err))
		}
		return
	}

	user, err := s.gw.Me(ctx)
	if err != nil {
		s.clearTokens(ctx)
		s.bumpGeneration()
		s.dispatch(Failure{Message: "Failed to initialize auth"})
		s.log.Warn("bootstrap profile fetch failed", zap.Error(err))
		return
	}

	s.dispatch(Success{User: user, LastLogin: s.now(), AccessToken: access})
	s.log.Info("session restored", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
}

// Login exchanges credentials for a token pair and fetches the user
// profile. Failures both update the session state and return to the caller
// so a login form can surface its own message.
func (s *Service) Login(ctx context.Context, email, password string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.dispatch(Start{})

	pair, err := s.gw.Token(ctx, email, password)
	if err != nil {
		s.failLogin(ctx, err)
		return err
	}

	if err := s.store.Save(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		s.failLogin(ctx, err)
		return err
	}

	user, err := s.gw.Me(ctx)
	if err != nil {
		s.failLogin(ctx, err)
		return err
	}

	s.dispatch(Success{User: user, LastLogin: s.now(), AccessToken: pair.AccessToken})
	s.log.Info("login succeeded", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return nil
}

func (s *Service) failLogin(ctx context.Context, err error) {
	s.clearTokens(ctx)
	s.bumpGeneration()
	msg := "Invalid credentials"
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	s.dispatch(Failure{Message: msg})
	s.log.Warn("login failed", zap.Error(err))
}

// Logout ends the session. The server-side call is best effort; tokens and
// state are always cleared.
func (s *Service) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.gw.Logout(ctx); err != nil {
		s.log.Warn("server-side logout failed", zap.Error(err))
	}

	s.clearTokens(ctx)
	s.bumpGeneration()
	s.dispatch(Logout{})
	s.log.Info("logged out")
}

// Invalidate ends the session locally without a server-side call. Used
// when the backend has already rejected the credentials, so a logout
// round-trip would only fail again. A no-op when no session is
// established.
func (s *Service) Invalidate(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !s.Snapshot().IsAuthenticated {
		return
	}

	s.clearTokens(ctx)
	s.bumpGeneration()
	s.dispatch(Failure{Message: "Session expired"})
	s.log.Warn("session invalidated")
}

// UpdateUser patches the operator's profile. Failures update the session
// error and propagate to the caller.
func (s *Service) UpdateUser(ctx context.Context, patch map[string]any) (*domain.User, error) {
	user, err := s.gw.UpdateMe(ctx, patch)
	if err != nil {
		msg := "Failed to update user"
		var apiErr *gateway.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			msg = apiErr.Message
		}
		s.dispatch(Failure{Message: msg})
		return nil, err
	}
	s.dispatch(UpdateUser{User: user})
	return user, nil
}

// Refresh exchanges the stored refresh token for a new pair. A 401 from
// the refresh endpoint is terminal (ErrSessionExpired); any other failure
// is transient and leaves the session untouched.
func (s *Service) Refresh(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	err := s.refresh(ctx)
	if errors.Is(err, ErrSessionExpired) {
		s.clearTokens(ctx)
		s.bumpGeneration()
		s.dispatch(Failure{Message: "Session expired"})
	}
	return err
}

func (s *Service) refresh(ctx context.Context) error {
	gen := s.generation()

	// The store is the source of truth: re-read the refresh token here
	// rather than caching it across calls, in case a logout raced ahead.
	refreshToken, err := s.store.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionExpired, ErrNoToken)
	}

	resp, err := s.gw.RefreshToken(ctx, refreshToken)
	if err != nil {
		if gateway.IsUnauthorized(err) {
			return fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}
		return err
	}

	if s.generation() != gen {
		// A logout (or terminal failure) happened while the refresh was in
		// flight; discard the result instead of resurrecting the session.
		s.log.Info("discarding stale refresh result")
		return nil
	}

	if err := s.store.Save(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
		return err
	}

	user := resp.User
	s.dispatch(Success{User: &user, AccessToken: resp.AccessToken})
	s.log.Debug("token refreshed", zap.String("user_id", user.ID))
	return nil
}

func (s *Service) clearTokens(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.log.Warn("failed to clear tokens", zap.Error(err))
	}
}

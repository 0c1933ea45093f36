package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/scoperival/internal/model"
	"github.com/nao1215/scoperival/internal/notify"
)

// Client is the part of *apiclient.Client the store needs.
type Client interface {
	SetToken(token string)
	ClearToken()
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Scheduler runs the profile fetch that follows a successful login.
type Scheduler func(fn func())

var (
	// Background runs the fetch on a new goroutine; Login returns at once.
	Background Scheduler = func(fn func()) { go fn() }

	// Inline runs the fetch before Login returns.
	Inline Scheduler = func(fn func()) { fn() }
)

// Option configures a Store.
type Option func(*Store)

// WithScheduler replaces the default Background scheduler.
func WithScheduler(s Scheduler) Option {
	return func(st *Store) { st.schedule = s }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(st *Store) { st.logger = logger }
}

// Store is the single owner of the session.
//
// Invariant: a user is held only while a token is held.
type Store struct {
	client   Client
	tokens   TokenStore
	schedule Scheduler
	logger   *slog.Logger

	// persistMu serialises durable token I/O. Each write or delete re-checks
	// the generation while holding it, so storage follows the newest session.
	persistMu sync.Mutex

	mu    sync.Mutex
	token string
	user  *model.User
	// generation changes whenever the token does, so that an in-flight
	// profile fetch can tell whether its result still applies.
	generation uint64

	subs notify.Subscribers[Snapshot]
}

// NewStore creates an Anonymous store. Call Restore to pick up a persisted
// token.
func NewStore(client Client, tokens TokenStore, opts ...Option) *Store {
	s := &Store{
		client:   client,
		tokens:   tokens,
		schedule: Background,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tokens == nil {
		s.tokens = &MemoryTokens{}
	}
	return s
}

// Login exchanges credentials for a token and moves to TokenOnly.
// The profile is fetched through the scheduler; Login does not set the user.
// On failure the current session is left untouched.
func (s *Store) Login(ctx context.Context, email, password string) error {
	var resp model.AccessToken
	if err := s.client.Post(ctx, "/auth/login", model.Credentials{Email: email, Password: password}, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return s.establish(ctx, resp.AccessToken)
}

// Register creates an account and logs in with the token the backend issues.
func (s *Store) Register(ctx context.Context, email, password, companyName string) error {
	body := model.Registration{Email: email, Password: password, CompanyName: companyName}
	var resp model.AccessToken
	if err := s.client.Post(ctx, "/auth/register", body, &resp); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return s.establish(ctx, resp.AccessToken)
}

func (s *Store) establish(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	gen := s.setToken(token)
	s.persist(ctx, gen, token)
	s.logger.Debug("session established", "fingerprint", Fingerprint(token))
	s.notify()

	fetchCtx := context.WithoutCancel(ctx)
	s.schedule(func() {
		if _, err := s.FetchProfile(fetchCtx); err != nil {
			s.logger.Debug("profile fetch after login failed", "error", err)
		}
	})
	return nil
}

func (s *Store) setToken(token string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = nil
	s.generation++
	s.client.SetToken(token)
	return s.generation
}

// persist writes token, or deletes the stored one when token is "", unless
// the session moved past gen.
func (s *Store) persist(ctx context.Context, gen uint64, token string) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	current := s.generation == gen
	s.mu.Unlock()
	if !current {
		return
	}

	if token == "" {
		if err := s.tokens.DeleteToken(ctx); err != nil {
			s.logger.Warn("failed to delete persisted token", "error", err)
		}
		return
	}
	if err := s.tokens.SaveToken(ctx, token); err != nil {
		s.logger.Warn("failed to persist token", "error", err)
	}
}

// FetchProfile loads the user for the current token.
//
// Any failure, including a missing token or an unreachable backend, logs the
// session out. A result that arrives after the token changed is discarded
// and ErrSessionChanged is returned without touching the newer session.
func (s *Store) FetchProfile(ctx context.Context) (model.User, error) {
	s.mu.Lock()
	token, gen := s.token, s.generation
	s.mu.Unlock()

	if token == "" {
		s.logoutIfGeneration(gen)
		return model.User{}, ErrNoToken
	}

	var user model.User
	err := s.client.Get(ctx, "/me", &user)

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Debug("discarding stale profile result", "fingerprint", Fingerprint(token))
		return model.User{}, ErrSessionChanged
	}
	if err != nil {
		hadSession, cleared := s.clearLocked()
		s.mu.Unlock()
		s.logger.Info("profile fetch failed, logging out", "error", err)
		s.finishLogout(hadSession, cleared)
		return model.User{}, fmt.Errorf("fetch profile: %w", err)
	}
	s.user = &user
	s.mu.Unlock()

	s.notify()
	return user, nil
}

// Logout clears the session from memory, the API client and durable
// storage. It makes no request, always succeeds and may be called any number
// of times.
func (s *Store) Logout() {
	s.mu.Lock()
	hadSession, gen := s.clearLocked()
	s.mu.Unlock()
	s.finishLogout(hadSession, gen)
}

// logoutIfGeneration logs out only if the session is still the one at gen.
func (s *Store) logoutIfGeneration(gen uint64) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	hadSession, cleared := s.clearLocked()
	s.mu.Unlock()
	s.finishLogout(hadSession, cleared)
	return true
}

// clearLocked drops the session and returns whether there was one and the
// new generation. s.mu must be held.
func (s *Store) clearLocked() (bool, uint64) {
	hadSession := s.token != ""
	s.token = ""
	s.user = nil
	s.generation++
	s.client.ClearToken()
	return hadSession, s.generation
}

func (s *Store) finishLogout(hadSession bool, gen uint64) {
	s.persist(context.Background(), gen, "")
	if hadSession {
		s.logger.Debug("logged out")
		s.notify()
	}
}

// Restore picks up a persisted token. With a token the store enters
// TokenOnly and fetches the profile immediately; without one it stays
// Anonymous. The returned error is the storage or profile fetch failure.
func (s *Store) Restore(ctx context.Context) (State, error) {
	token, err := s.tokens.LoadToken(ctx)
	if err != nil {
		return s.State(), fmt.Errorf("load persisted token: %w", err)
	}
	if token == "" {
		return s.State(), nil
	}

	s.setToken(token)
	s.notify()

	if _, err := s.FetchProfile(ctx); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	switch {
	case s.token == "":
		return Anonymous
	case s.user == nil:
		return TokenOnly
	default:
		return Authenticated
	}
}

// Token returns the current token, or "".
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the profile and whether the store is Authenticated.
func (s *Store) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return model.User{}, false
	}
	return *s.user, true
}

// Snapshot returns the current state as a value.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{State: s.stateLocked(), Fingerprint: Fingerprint(s.token)}
	if s.user != nil {
		snap.User = *s.user
	}
	return snap
}

// Subscribe registers fn to receive a Snapshot after every change.
// fn is called without any store lock held. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	return s.subs.Add(fn)
}

func (s *Store) notify() {
	s.subs.Publish(s.Snapshot())
}

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/apierr"
	"github.com/stanstork/hackmatch/internal/identity"
	"github.com/stanstork/hackmatch/internal/models"
)

// ErrSuperseded is returned when a response arrived after a login or logout
// changed the session it was requested for. The result was discarded.
var ErrSuperseded = errors.New("session changed while the request was in flight")

// Gateway is the subset of the API client the store calls.
type Gateway interface {
	LoginByCode(ctx context.Context, code string) (string, error)
	Logout(ctx context.Context) error
	GetProfile(ctx context.Context, identity string) (models.Profile, error)
	UpdateProfile(ctx context.Context, identity string, patch models.ProfilePatch) (models.Profile, error)
}

// credentialClearer is implemented by gateways that keep the server
// credential; a rejected identity takes its credential with it.
type credentialClearer interface {
	ClearCredentials()
}

type Option func(*Store)

// WithAsyncHydration makes LoginByCode return as soon as the code is
// exchanged, fetching the profile in the background.
func WithAsyncHydration(timeout time.Duration) Option {
	return func(s *Store) {
		s.async = true
		s.hydrateTimeout = timeout
	}
}

// Store is the session context object. Create one per application run with
// New, call Init once, and inject it into consumers.
type Store struct {
	gw        Gateway
	persisted identity.Store
	logger    zerolog.Logger

	async          bool
	hydrateTimeout time.Duration
	hydrating      sync.WaitGroup

	mu      sync.Mutex
	current Session
	// epoch changes whenever the identity is replaced or dropped.
	epoch uint64

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(Session)
	// notifyMu serializes deliveries so subscribers never observe an older state last.
	notifyMu sync.Mutex
}

func New(gw Gateway, persisted identity.Store, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		gw:        gw,
		persisted: persisted,
		logger:    logger.With().Str("component", "session").Logger(),
		current:   anonymous(),
		subs:      make(map[int]func(Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Current returns a snapshot of the session.
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// RequireAuthenticated returns the session when it is server-confirmed.
func (s *Store) RequireAuthenticated() (Session, error) {
	cur := s.Current()
	if !cur.IsAuthenticated() {
		return cur, &apierr.Error{Kind: apierr.KindUnauthorized, Op: "session", Message: "sign in required"}
	}
	return cur, nil
}

// Subscribe registers fn to be called with the new snapshot after every
// state change. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(Session)) (cancel func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Init restores the remembered identity at startup and verifies it.
// A 404 or an authorization failure is a valid outcome reflected in the
// state; only storage and transient failures are returned.
func (s *Store) Init(ctx context.Context) error {
	remembered, err := s.persisted.Load(ctx)
	if err != nil {
		return err
	}
	if remembered == "" {
		s.logger.Debug().Msg("No remembered identity")
		return nil
	}

	s.mu.Lock()
	s.epoch++
	s.current = pending(remembered)
	s.mu.Unlock()
	s.notify()

	s.logger.Info().Str("identity", remembered).Msg("Verifying remembered identity")
	err = s.CheckAuth(ctx)
	if apierr.KindOf(err) == apierr.KindNotFound || apierr.IsAuthorization(err) {
		return nil
	}
	return err
}

// LoginByCode exchanges a one-time code for an identity, persists it and
// moves to Pending. The profile is then hydrated; a failed hydration leaves
// the session Pending and is not reported as a login failure.
func (s *Store) LoginByCode(ctx context.Context, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", apierr.New(apierr.KindInvalidCode, "code is required")
	}

	id, err := s.gw.LoginByCode(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Str("code_prefix", codePrefix(code)).Msg("Login by code failed")
		return "", err
	}

	s.mu.Lock()
	if err := s.persisted.Save(ctx, id); err != nil {
		s.mu.Unlock()
		return "", err
	}
	s.epoch++
	epoch := s.epoch
	s.current = pending(id)
	s.mu.Unlock()
	s.notify()

	s.logger.Info().Str("identity", id).Msg("Logged in by code")

	if s.async {
		s.hydrating.Add(1)
		go func() {
			defer s.hydrating.Done()
			hctx := context.WithoutCancel(ctx)
			if s.hydrateTimeout > 0 {
				var cancel context.CancelFunc
				hctx, cancel = context.WithTimeout(hctx, s.hydrateTimeout)
				defer cancel()
			}
			s.hydrate(hctx, id, epoch)
		}()
		return id, nil
	}
	s.hydrate(ctx, id, epoch)
	return id, nil
}

// WaitHydration blocks until background hydrations started by LoginByCode finish.
func (s *Store) WaitHydration() {
	s.hydrating.Wait()
}

func (s *Store) hydrate(ctx context.Context, id string, epoch uint64) {
	profile, err := s.gw.GetProfile(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("identity", id).Msg("Profile not hydrated after login, staying pending")
		return
	}
	if s.apply(epoch, authenticated(id, profile)) {
		s.notify()
	}
}

// CheckAuth verifies the current identity by fetching its profile.
//
//   - success: Authenticated
//   - 401/403: the remembered identity is cleared, Anonymous
//   - 404: Pending, identity kept
//   - anything else: state unchanged
func (s *Store) CheckAuth(ctx context.Context) error {
	s.mu.Lock()
	id, epoch := s.current.Identity, s.epoch
	s.mu.Unlock()
	if id == "" {
		return nil
	}

	profile, err := s.gw.GetProfile(ctx, id)
	if err == nil {
		if !s.apply(epoch, authenticated(id, profile)) {
			return ErrSuperseded
		}
		s.notify()
		return nil
	}

	switch {
	case apierr.IsAuthorization(err):
		s.mu.Lock()
		if s.epoch != epoch {
			s.mu.Unlock()
			return ErrSuperseded
		}
		clearErr := s.persisted.Clear(ctx)
		s.epoch++
		s.current = anonymous()
		s.mu.Unlock()
		if clearer, ok := s.gw.(credentialClearer); ok {
			clearer.ClearCredentials()
		}
		s.notify()
		s.logger.Warn().Err(err).Str("identity", id).Msg("Identity rejected by server, signed out")
		if clearErr != nil {
			return errors.Join(err, clearErr)
		}
		return err
	case apierr.KindOf(err) == apierr.KindNotFound:
		if s.apply(epoch, pending(id)) {
			s.notify()
		}
		s.logger.Info().Str("identity", id).Msg("Profile not provisioned yet, session pending")
		return err
	default:
		s.logger.Warn().Err(err).Str("identity", id).Msg("Profile check failed, keeping session")
		return err
	}
}

// RefreshProfile re-fetches the profile with the same branching as CheckAuth.
func (s *Store) RefreshProfile(ctx context.Context) error {
	return s.CheckAuth(ctx)
}

// UpdateProfile applies a partial update to the caller's own profile, then
// drops the cached profile and re-fetches it.
func (s *Store) UpdateProfile(ctx context.Context, patch models.ProfilePatch) error {
	patch = patch.Normalize()
	if patch.IsEmpty() {
		return apierr.New(apierr.KindValidation, "nothing to update")
	}

	s.mu.Lock()
	id := s.current.Identity
	s.mu.Unlock()
	if id == "" {
		return &apierr.Error{Kind: apierr.KindUnauthorized, Op: "session", Message: "sign in required"}
	}

	if _, err := s.gw.UpdateProfile(ctx, id, patch); err != nil {
		return err
	}
	return s.RefreshProfile(ctx)
}

// Logout terminates the server session best-effort and always clears local
// state. The server error, if any, is returned for reporting only.
func (s *Store) Logout(ctx context.Context) error {
	serverErr := s.gw.Logout(ctx)
	if serverErr != nil {
		s.logger.Warn().Err(serverErr).Msg("Server logout failed, clearing local session anyway")
	}

	s.mu.Lock()
	id := s.current.Identity
	clearErr := s.persisted.Clear(ctx)
	s.epoch++
	s.current = anonymous()
	s.mu.Unlock()
	s.notify()

	s.logger.Info().Str("identity", id).Msg("Logged out")
	return errors.Join(serverErr, clearErr)
}

// apply installs next if no login or logout happened since epoch was read.
func (s *Store) apply(epoch uint64, next Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Debug().Str("identity", next.Identity).Msg("Discarding superseded session result")
		return false
	}
	s.current = next
	return true
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	fns := make([]func(Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	snapshot := s.Current()
	for _, fn := range fns {
		fn(snapshot)
	}
}

func codePrefix(code string) string {
	if len(code) <= 4 {
		return code[:len(code)/2] + "..."
	}
	return code[:4] + "..."
}

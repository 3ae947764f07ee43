package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/apierr"
	"github.com/stanstork/hackmatch/internal/identity"
	"github.com/stanstork/hackmatch/internal/models"
)

type fakeGateway struct {
	mu        sync.Mutex
	codes     map[string]string
	profiles  map[string]models.Profile
	status    map[string]int // forced GetProfile failure per identity
	logoutErr error
	gets      int
	patches   []models.ProfilePatch

	cleared int

	// when set, GetProfile signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func (g *fakeGateway) ClearCredentials() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared++
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		codes:    map[string]string{"ABCD": "u1", "EFGH": "u2"},
		profiles: map[string]models.Profile{},
		status:   map[string]int{},
	}
}

func (g *fakeGateway) LoginByCode(_ context.Context, code string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.codes[code]
	if !ok {
		return "", &apierr.Error{Kind: apierr.KindInvalidCode, Status: http.StatusBadRequest, Message: "invalid code"}
	}
	delete(g.codes, code)
	return id, nil
}

func (g *fakeGateway) Logout(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logoutErr
}

func (g *fakeGateway) GetProfile(_ context.Context, id string) (models.Profile, error) {
	g.mu.Lock()
	entered, release := g.entered, g.release
	g.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
		<-release
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.gets++
	if status := g.status[id]; status != 0 {
		return models.Profile{}, apierr.FromResponse("GET /profile/{identity}", status, http.StatusText(status))
	}
	p, ok := g.profiles[id]
	if !ok {
		return models.Profile{}, apierr.FromResponse("GET /profile/{identity}", http.StatusNotFound, "User not found")
	}
	return p, nil
}

func (g *fakeGateway) UpdateProfile(_ context.Context, id string, patch models.ProfilePatch) (models.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.patches = append(g.patches, patch)
	p := g.profiles[id]
	if patch.Role != nil {
		p.Role = *patch.Role
	}
	g.profiles[id] = p
	return p, nil
}

func (g *fakeGateway) setStatus(id string, status int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status[id] = status
}

func newStore(t *testing.T, gw Gateway, persisted identity.Store, opts ...Option) *Store {
	t.Helper()
	return New(gw, persisted, zerolog.Nop(), opts...)
}

func persistedIdentity(t *testing.T, s identity.Store) string {
	t.Helper()
	id, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load identity: %v", err)
	}
	return id
}

func TestInitWithoutRememberedIdentity(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	store := newStore(t, gw, identity.NewMemoryStore())

	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if got := store.Current(); got.State != Anonymous || got.Identity != "" {
		t.Fatalf("session = %+v, want anonymous", got)
	}
	if gw.gets != 0 {
		t.Fatalf("profile fetched %d times without identity", gw.gets)
	}
}

func TestCheckAuthBranches(t *testing.T) {
	t.Parallel()
	cached := models.Profile{TelegramID: "u1", FullName: "Cached Name"}
	tests := []struct {
		name          string
		start         Session
		status        int
		wantState     State
		wantPersisted string
		wantProfile   string
		wantErr       error
	}{
		{name: "profile found", start: pending("u1"), status: 0, wantState: Authenticated, wantPersisted: "u1", wantProfile: "User One"},
		{name: "unauthorized", start: pending("u1"), status: http.StatusUnauthorized, wantState: Anonymous, wantPersisted: "", wantErr: apierr.ErrUnauthorized},
		{name: "forbidden", start: pending("u1"), status: http.StatusForbidden, wantState: Anonymous, wantPersisted: "", wantErr: apierr.ErrForbidden},
		{name: "not provisioned", start: pending("u1"), status: http.StatusNotFound, wantState: Pending, wantPersisted: "u1", wantErr: apierr.ErrNotFound},
		{name: "server error", start: pending("u1"), status: http.StatusBadGateway, wantState: Pending, wantPersisted: "u1", wantErr: apierr.ErrServer},
		{name: "refresh replaces profile", start: authenticated("u1", cached), status: 0, wantState: Authenticated, wantPersisted: "u1", wantProfile: "User One"},
		{name: "refresh transient failure keeps session", start: authenticated("u1", cached), status: http.StatusServiceUnavailable, wantState: Authenticated, wantPersisted: "u1", wantProfile: "Cached Name", wantErr: apierr.ErrServer},
		{name: "refresh unauthorized signs out", start: authenticated("u1", cached), status: http.StatusUnauthorized, wantState: Anonymous, wantPersisted: "", wantErr: apierr.ErrUnauthorized},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			gw := newFakeGateway()
			gw.profiles["u1"] = models.Profile{TelegramID: "u1", FullName: "User One"}
			if tt.status != 0 {
				gw.setStatus("u1", tt.status)
			}
			persisted := identity.NewMemoryStore()
			_ = persisted.Save(ctx, "u1")

			store := newStore(t, gw, persisted)
			store.current = tt.start

			check := store.CheckAuth
			if tt.start.State == Authenticated {
				check = store.RefreshProfile
			}
			err := check(ctx)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("check: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("check err = %v, want %v", err, tt.wantErr)
			}
			got := store.Current()
			if got.State != tt.wantState {
				t.Fatalf("state = %v, want %v", got.State, tt.wantState)
			}
			if tt.wantProfile != "" && (got.Profile == nil || got.Profile.FullName != tt.wantProfile) {
				t.Fatalf("profile = %+v, want name %q", got.Profile, tt.wantProfile)
			}
			if got := persistedIdentity(t, persisted); got != tt.wantPersisted {
				t.Fatalf("persisted = %q, want %q", got, tt.wantPersisted)
			}
			if signedOut := tt.wantState == Anonymous; (gw.cleared > 0) != signedOut {
				t.Fatalf("credentials cleared %d times, signed out %v", gw.cleared, signedOut)
			}
		})
	}
}

func TestAuthenticatedOnlyAfterSuccessfulFetch(t *testing.T) {
	t.Parallel()
	outcomes := []int{0, http.StatusNotFound, http.StatusUnauthorized, http.StatusServiceUnavailable}

	var sequences [][]int
	for _, a := range outcomes {
		for _, b := range outcomes {
			for _, c := range outcomes {
				sequences = append(sequences, []int{a, b, c})
			}
		}
	}

	for _, seq := range sequences {
		ctx := context.Background()
		gw := newFakeGateway()
		gw.profiles["u1"] = models.Profile{TelegramID: "u1"}
		persisted := identity.NewMemoryStore()
		_ = persisted.Save(ctx, "u1")
		store := newStore(t, gw, persisted)
		store.current = pending("u1")

		model := Pending
		for step, status := range seq {
			gw.setStatus("u1", status)
			_ = store.CheckAuth(ctx)

			if model != Anonymous {
				switch status {
				case 0:
					model = Authenticated
				case http.StatusNotFound:
					model = Pending
				case http.StatusUnauthorized:
					model = Anonymous
				}
			}
			got := store.Current()
			if got.State != model {
				t.Fatalf("sequence %v step %d: state = %v, want %v", seq, step, got.State, model)
			}
			if got.State == Authenticated && (got.Profile == nil || got.Profile.TelegramID != got.Identity) {
				t.Fatalf("sequence %v step %d: authenticated without a profile for %q", seq, step, got.Identity)
			}
		}
	}
}

func TestLoginThenReloadWithMissingProfileStaysPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	persisted := identity.NewMemoryStore()

	store := newStore(t, gw, persisted)
	id, err := store.LoginByCode(ctx, "ABCD")
	if err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}
	if id != "u1" {
		t.Fatalf("identity = %q, want u1", id)
	}
	if got := store.Current(); got.State != Pending || got.Identity != "u1" {
		t.Fatalf("after login session = %+v, want pending u1", got)
	}

	reloaded := newStore(t, gw, persisted)
	if err := reloaded.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	got := reloaded.Current()
	if got.State != Pending || got.Identity != "u1" {
		t.Fatalf("after reload session = %+v, want pending u1", got)
	}
	if persistedIdentity(t, persisted) != "u1" {
		t.Fatalf("404 cleared the remembered identity")
	}
}

func TestLoginHydratesProfile(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	gw.profiles["u1"] = models.Profile{TelegramID: "u1", Username: "one"}
	persisted := identity.NewMemoryStore()

	store := newStore(t, gw, persisted)
	if _, err := store.LoginByCode(ctx, " ABCD "); err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}
	got := store.Current()
	if !got.IsAuthenticated() || got.Profile.Username != "one" {
		t.Fatalf("session = %+v, want authenticated u1", got)
	}
	if persistedIdentity(t, persisted) != "u1" {
		t.Fatalf("identity not persisted")
	}
}

func TestLoginAsyncHydration(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.profiles["u1"] = models.Profile{TelegramID: "u1"}
	store := newStore(t, gw, identity.NewMemoryStore(), WithAsyncHydration(time.Second))

	if _, err := store.LoginByCode(context.Background(), "ABCD"); err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}
	store.WaitHydration()
	if !store.Current().IsAuthenticated() {
		t.Fatalf("background hydration did not authenticate")
	}
}

func TestLoginWithInvalidCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	persisted := identity.NewMemoryStore()
	store := newStore(t, newFakeGateway(), persisted)

	for _, code := range []string{"", "ZZZZ"} {
		_, err := store.LoginByCode(ctx, code)
		if !errors.Is(err, apierr.ErrInvalidCode) {
			t.Fatalf("code %q: err = %v, want invalid code", code, err)
		}
		if got := store.Current(); got.State != Anonymous {
			t.Fatalf("code %q: state = %v, want anonymous", code, got.State)
		}
		if persistedIdentity(t, persisted) != "" {
			t.Fatalf("code %q: identity persisted on failed login", code)
		}
	}
}

func TestLogoutIsUnconditionalLocally(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	gw.profiles["u1"] = models.Profile{TelegramID: "u1"}
	gw.logoutErr = apierr.Network("POST /logout", errors.New("connection reset"))
	persisted := identity.NewMemoryStore()

	store := newStore(t, gw, persisted)
	if _, err := store.LoginByCode(ctx, "ABCD"); err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}

	err := store.Logout(ctx)
	if !errors.Is(err, apierr.ErrNetwork) {
		t.Fatalf("Logout err = %v, want network error reported", err)
	}
	if got := store.Current(); got.State != Anonymous || got.Identity != "" || got.Profile != nil {
		t.Fatalf("session = %+v, want anonymous", got)
	}
	if persistedIdentity(t, persisted) != "" {
		t.Fatalf("identity survived logout")
	}
}

func TestRefreshRacingLogoutIsDiscarded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	gw.profiles["u1"] = models.Profile{TelegramID: "u1"}
	persisted := identity.NewMemoryStore()
	_ = persisted.Save(ctx, "u1")

	store := newStore(t, gw, persisted)
	store.current = pending("u1")

	gw.mu.Lock()
	gw.entered = make(chan struct{})
	gw.release = make(chan struct{})
	gw.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- store.RefreshProfile(ctx) }()
	<-gw.entered

	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	close(gw.release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("refresh err = %v, want ErrSuperseded", err)
	}
	if got := store.Current(); got.State != Anonymous {
		t.Fatalf("late profile resurrected the session: %+v", got)
	}
}

func TestUnauthorizedAfterReloginDoesNotClearNewIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	gw.profiles["u2"] = models.Profile{TelegramID: "u2"}
	gw.setStatus("u1", http.StatusUnauthorized)
	persisted := identity.NewMemoryStore()
	_ = persisted.Save(ctx, "u1")

	store := newStore(t, gw, persisted)
	store.current = pending("u1")

	gw.mu.Lock()
	gw.entered = make(chan struct{})
	gw.release = make(chan struct{})
	gw.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- store.CheckAuth(ctx) }()
	<-gw.entered

	gw.mu.Lock()
	parked := gw.release
	gw.entered, gw.release = nil, nil
	gw.mu.Unlock()

	if _, err := store.LoginByCode(ctx, "EFGH"); err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}
	close(parked)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale check err = %v, want ErrSuperseded", err)
	}
	if got := store.Current(); got.Identity != "u2" || !got.IsAuthenticated() {
		t.Fatalf("session = %+v, want authenticated u2", got)
	}
	if persistedIdentity(t, persisted) != "u2" {
		t.Fatalf("stale 401 cleared the new identity")
	}
}

func TestUpdateProfileRefetches(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	gw.profiles["u1"] = models.Profile{TelegramID: "u1", Role: "frontend"}
	store := newStore(t, gw, identity.NewMemoryStore())
	if _, err := store.LoginByCode(ctx, "ABCD"); err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}

	if err := store.UpdateProfile(ctx, models.ProfilePatch{}); !errors.Is(err, apierr.ErrValidation) {
		t.Fatalf("empty patch err = %v, want validation", err)
	}

	role := " backend "
	before := gw.gets
	if err := store.UpdateProfile(ctx, models.ProfilePatch{Role: &role}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if gw.gets != before+1 {
		t.Fatalf("profile not re-fetched after update")
	}
	if got := store.Current().Profile.Role; got != "backend" {
		t.Fatalf("role = %q, want backend", got)
	}
}

func TestRequireAuthenticated(t *testing.T) {
	t.Parallel()
	gw := newFakeGateway()
	gw.profiles["u1"] = models.Profile{TelegramID: "u1"}
	store := newStore(t, gw, identity.NewMemoryStore())

	if _, err := store.RequireAuthenticated(); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("anonymous err = %v, want unauthorized", err)
	}
	if _, err := store.LoginByCode(context.Background(), "ABCD"); err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}
	sess, err := store.RequireAuthenticated()
	if err != nil || sess.Identity != "u1" {
		t.Fatalf("RequireAuthenticated = %+v, %v", sess, err)
	}
}

func TestSubscribeObservesTransitions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := newFakeGateway()
	gw.profiles["u1"] = models.Profile{TelegramID: "u1"}
	store := newStore(t, gw, identity.NewMemoryStore())

	var mu sync.Mutex
	var seen []State
	cancel := store.Subscribe(func(s Session) {
		mu.Lock()
		seen = append(seen, s.State)
		mu.Unlock()
	})

	if _, err := store.LoginByCode(ctx, "ABCD"); err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}
	cancel()
	_ = store.Logout(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[len(seen)-1] != Authenticated {
		t.Fatalf("observed %v, want [pending authenticated]", seen)
	}
}

package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/apierr"
	"github.com/stanstork/hackmatch/internal/gateway"
	"github.com/stanstork/hackmatch/internal/identity"
	"github.com/stanstork/hackmatch/internal/membership"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/session"
	"github.com/stanstork/hackmatch/internal/stubapi"
)

type recorder struct {
	mu   sync.Mutex
	got  []models.Notification
	fail bool
}

func (r *recorder) Notify(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	if r.fail {
		return errors.New("push service unavailable")
	}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type user struct {
	gw     *gateway.Client
	sess   *session.Store
	engine *membership.Engine
}

func login(t *testing.T, srv *stubapi.Server, baseURL, id string) user {
	t.Helper()
	gw, err := gateway.New(gateway.Options{BaseURL: baseURL, Timeout: 5 * time.Second, Registerer: prometheus.NewRegistry()}, zerolog.Nop())
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	sess := session.New(gw, identity.NewMemoryStore(), zerolog.Nop())
	code, err := srv.IssueCode(id, "Person "+id)
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}
	if _, err := sess.LoginByCode(context.Background(), code); err != nil {
		t.Fatalf("LoginByCode: %v", err)
	}
	return user{gw: gw, sess: sess, engine: membership.New(gw, sess, zerolog.Nop())}
}

func TestFeedProjectsJoinRequests(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	srv, ts := stubapi.StartTest(t)
	hack, err := srv.SeedHackathon("Hack", 4)
	if err != nil {
		t.Fatalf("SeedHackathon: %v", err)
	}
	captain := login(t, srv, ts.URL, "C")
	p1 := login(t, srv, ts.URL, "P1")

	rec := &recorder{fail: true}
	feed := NewFeed(captain.gw, captain.sess, zerolog.Nop(), rec, nil)
	cancel := captain.engine.Subscribe(feed.Handle)
	defer cancel()

	team, err := captain.engine.CreateTeam(ctx, "T", nil, hack.ID)
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	inv, err := p1.engine.RequestJoin(ctx, team.ID)
	if err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}

	items, err := feed.Refresh(ctx, hack.ID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(items) != 1 || items[0].InvitationID != inv.ID || items[0].EventType != models.NotificationEventJoinRequested {
		t.Fatalf("feed = %+v", items)
	}
	if _, err := feed.Refresh(ctx, hack.ID); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("notifier called %d times, want once per new entry", rec.count())
	}

	// the requester is not the one expected to act, so their feed stays empty
	requesterFeed := NewFeed(p1.gw, p1.sess, zerolog.Nop())
	if items, err := requesterFeed.Refresh(ctx, hack.ID); err != nil || len(items) != 0 {
		t.Fatalf("requester feed = %+v, %v", items, err)
	}

	if err := captain.engine.Approve(ctx, inv.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if !feed.Stale() || len(feed.Pending()) != 0 {
		t.Fatalf("approved invitation still in feed: stale=%v pending=%+v", feed.Stale(), feed.Pending())
	}
	if items, err := feed.Refresh(ctx, hack.ID); err != nil || len(items) != 0 {
		t.Fatalf("feed after approve = %+v, %v", items, err)
	}
}

func TestFeedResetsOnLogout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	srv, ts := stubapi.StartTest(t)
	hack, _ := srv.SeedHackathon("Hack", 4)
	captain := login(t, srv, ts.URL, "C")
	p1 := login(t, srv, ts.URL, "P1")

	team, err := captain.engine.CreateTeam(ctx, "T", nil, hack.ID)
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if _, err := p1.engine.RequestJoin(ctx, team.ID); err != nil {
		t.Fatalf("RequestJoin: %v", err)
	}

	feed := NewFeed(captain.gw, captain.sess, zerolog.Nop())
	cancel := captain.sess.Subscribe(feed.OnSession)
	defer cancel()

	if items, err := feed.Refresh(ctx, 0); err != nil || len(items) != 1 {
		t.Fatalf("Refresh = %+v, %v", items, err)
	}
	if err := captain.sess.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(feed.Pending()) != 0 {
		t.Fatalf("feed kept entries after logout")
	}
	if _, err := feed.Refresh(ctx, 0); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("Refresh after logout err = %v, want unauthorized", err)
	}
}

type blockingGateway struct {
	entered chan struct{}
	release chan struct{}
	items   []models.Invitation
}

func (g *blockingGateway) MyInvitations(context.Context, int64) ([]models.Invitation, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.items, nil
}

type fixedSession struct{ s session.Session }

func (f fixedSession) RequireAuthenticated() (session.Session, error) { return f.s, nil }

func TestResetDiscardsRefreshInFlight(t *testing.T) {
	t.Parallel()
	gw := &blockingGateway{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		items: []models.Invitation{{
			ID: 1, TeamID: 2, CaptainID: "c", ParticipantID: "p",
			Status: models.InvitationPending, RequestedBy: models.RequestedByParticipant,
		}},
	}
	sess := fixedSession{s: session.Session{State: session.Authenticated, Identity: "c", Profile: &models.Profile{TelegramID: "c"}}}
	feed := NewFeed(gw, sess, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := feed.Refresh(context.Background(), 0)
		done <- err
	}()
	<-gw.entered
	feed.Reset()
	close(gw.release)

	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Refresh err = %v, want ErrSuperseded", err)
	}
	if len(feed.Pending()) != 0 {
		t.Fatalf("superseded refresh populated the feed")
	}
}

// signOutSession returns the viewer and then lets a sign-out reset the feed,
// as when logout lands right after the session was read.
type signOutSession struct {
	s     session.Session
	onGet func()
}

func (f signOutSession) RequireAuthenticated() (session.Session, error) {
	viewer := f.s
	f.onGet()
	return viewer, nil
}

type staticGateway struct{ items []models.Invitation }

func (g staticGateway) MyInvitations(context.Context, int64) ([]models.Invitation, error) {
	return g.items, nil
}

func TestResetAfterViewerReadSupersedesRefresh(t *testing.T) {
	t.Parallel()
	gw := staticGateway{items: []models.Invitation{{
		ID: 1, TeamID: 2, CaptainID: "c", ParticipantID: "p",
		Status: models.InvitationPending, RequestedBy: models.RequestedByParticipant,
	}}}
	rec := &recorder{}
	var feed *Feed
	sess := signOutSession{
		s:     session.Session{State: session.Authenticated, Identity: "c", Profile: &models.Profile{TelegramID: "c"}},
		onGet: func() { feed.OnSession(session.Session{State: session.Anonymous}) },
	}
	feed = NewFeed(gw, sess, zerolog.Nop(), rec)

	if _, err := feed.Refresh(context.Background(), 0); !errors.Is(err, ErrSuperseded) {
		t.Fatalf("Refresh err = %v, want ErrSuperseded", err)
	}
	if len(feed.Pending()) != 0 || rec.count() != 0 {
		t.Fatalf("signed-out viewer's notifications leaked: pending=%v delivered=%d", feed.Pending(), rec.count())
	}
}

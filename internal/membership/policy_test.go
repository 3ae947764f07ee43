package membership

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/apierr"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/session"
)

func capacity(n int) *int { return &n }

func TestEvaluate(t *testing.T) {
	t.Parallel()
	team := models.Team{
		ID:           1,
		Captain:      models.Profile{TelegramID: "c"},
		Participants: []models.Profile{{TelegramID: "p1"}},
		Capacity:     capacity(3),
	}
	full := team
	full.Capacity = capacity(2)

	signedIn := func(id string) session.Session {
		return session.Session{State: session.Authenticated, Identity: id, Profile: &models.Profile{TelegramID: id}}
	}

	tests := []struct {
		name   string
		team   models.Team
		viewer session.Session
		want   Actions
	}{
		{
			name:   "anonymous",
			team:   team,
			viewer: session.Session{},
			want:   Actions{RequestJoinReason: ReasonSignIn, LeaveReason: ReasonNotMember, ManageReason: ReasonNotCaptain},
		},
		{
			name:   "pending identity cannot join",
			team:   team,
			viewer: session.Session{State: session.Pending, Identity: "x"},
			want:   Actions{RequestJoinReason: ReasonSignIn, LeaveReason: ReasonNotMember, ManageReason: ReasonNotCaptain},
		},
		{
			name:   "outsider",
			team:   team,
			viewer: signedIn("x"),
			want:   Actions{CanRequestJoin: true, LeaveReason: ReasonNotMember, ManageReason: ReasonNotCaptain},
		},
		{
			name:   "outsider on full team",
			team:   full,
			viewer: signedIn("x"),
			want:   Actions{RequestJoinReason: ReasonTeamFull, LeaveReason: ReasonNotMember, ManageReason: ReasonNotCaptain},
		},
		{
			name:   "participant",
			team:   team,
			viewer: signedIn("p1"),
			want:   Actions{RequestJoinReason: ReasonAlreadyMember, CanLeave: true, ManageReason: ReasonNotCaptain},
		},
		{
			name:   "captain",
			team:   team,
			viewer: signedIn("c"),
			want:   Actions{RequestJoinReason: ReasonAlreadyMember, LeaveReason: ReasonCaptainLeave, CanManage: true},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Evaluate(tt.team, tt.viewer); got != tt.want {
				t.Fatalf("Evaluate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type staticSession struct {
	sess session.Session
}

func (s staticSession) Current() session.Session { return s.sess }

func (s staticSession) RequireAuthenticated() (session.Session, error) {
	if !s.sess.IsAuthenticated() {
		return s.sess, apierr.New(apierr.KindUnauthorized, "sign in required")
	}
	return s.sess, nil
}

// orderedGateway answers GetTeam calls in the order the test releases them.
type orderedGateway struct {
	Gateway
	mu      sync.Mutex
	calls   int
	entered chan int
	release map[int]chan models.Team
}

func (g *orderedGateway) GetTeam(ctx context.Context, teamID int64) (models.Team, error) {
	g.mu.Lock()
	g.calls++
	n := g.calls
	ch := g.release[n]
	g.mu.Unlock()

	g.entered <- n
	return <-ch, nil
}

func TestOutOfOrderRefreshIsDiscarded(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := &orderedGateway{
		entered: make(chan int, 3),
		release: map[int]chan models.Team{1: make(chan models.Team, 1), 2: make(chan models.Team, 1), 3: make(chan models.Team, 1)},
	}
	engine := New(gw, staticSession{sess: session.Session{}}, zerolog.Nop())
	v := &TeamView{engine: engine, teamID: 7}

	older := make(chan error, 1)
	go func() { older <- v.Refresh(ctx) }()
	<-gw.entered

	newer := make(chan error, 1)
	go func() { newer <- v.Refresh(ctx) }()
	<-gw.entered

	gw.release[2] <- models.Team{ID: 7, Title: "new", Captain: models.Profile{TelegramID: "c"}}
	if err := <-newer; err != nil {
		t.Fatalf("newer refresh: %v", err)
	}
	gw.release[1] <- models.Team{ID: 7, Title: "old", Captain: models.Profile{TelegramID: "c"}}
	if err := <-older; !errors.Is(err, ErrStale) {
		t.Fatalf("older refresh err = %v, want ErrStale", err)
	}
	if got := v.Snapshot().Team.Title; got != "new" {
		t.Fatalf("title = %q, stale response overwrote newer state", got)
	}
}

func TestMutationFailureKeepsSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gw := &orderedGateway{
		entered: make(chan int, 1),
		release: map[int]chan models.Team{1: make(chan models.Team, 1)},
	}
	gw.release[1] <- models.Team{ID: 7, Title: "kept", Captain: models.Profile{TelegramID: "c"}}
	engine := New(gw, staticSession{sess: session.Session{}}, zerolog.Nop())

	view, err := engine.Open(ctx, 7)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	<-gw.entered

	// anonymous viewer: the engine refuses before any request
	if err := view.Approve(ctx, 1); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("Approve err = %v, want unauthorized", err)
	}
	if got := view.Snapshot().Team.Title; got != "kept" {
		t.Fatalf("snapshot changed after failed mutation: %q", got)
	}
}

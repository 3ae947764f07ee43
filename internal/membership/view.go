package membership

import (
	"context"
	"errors"
	"sync"

	"github.com/stanstork/hackmatch/internal/apierr"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/session"
)

var (
	// ErrViewClosed is returned by operations on a closed view.
	ErrViewClosed = errors.New("team view is closed")
	// ErrStale marks a refresh whose result was dropped because a newer one
	// had already been applied.
	ErrStale = errors.New("newer team state already applied")
)

// Snapshot is what a team detail view renders.
type Snapshot struct {
	Team models.Team
	// Invitations is the team's full invitation set; filled only for the captain.
	Invitations []models.Invitation
	// Gone is set once the server reports the team no longer exists.
	Gone    bool
	Viewer  session.Session
	Actions Actions
}

// Pending returns the invitations the captain can act on.
func (s Snapshot) Pending() []models.Invitation {
	return Actionable(s.Invitations)
}

// TeamView owns one team and its invitation set for the lifetime of a
// detail view. It never caches across views and never patches the roster
// locally: every mutation is followed by a full re-fetch.
type TeamView struct {
	engine *Engine
	teamID int64

	mu      sync.Mutex
	seq     uint64
	applied uint64
	closed  bool
	snap    Snapshot
}

// Open creates a view for teamID and loads it.
func (e *Engine) Open(ctx context.Context, teamID int64) (*TeamView, error) {
	v := &TeamView{engine: e, teamID: teamID}
	if err := v.Refresh(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *TeamView) TeamID() int64 {
	return v.teamID
}

// Snapshot returns the last applied state.
func (v *TeamView) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

// Actions re-evaluates action availability against the current session.
func (v *TeamView) Actions() Actions {
	snap := v.Snapshot()
	return Evaluate(snap.Team, v.engine.sess.Current())
}

// Close makes the view drop any results that arrive later.
func (v *TeamView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

// Refresh re-reads the team, and for its captain the invitation set, from
// the server. Responses older than the last applied one are discarded.
func (v *TeamView) Refresh(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.seq++
	seq := v.seq
	v.mu.Unlock()

	viewer := v.engine.sess.Current()
	next := Snapshot{Viewer: viewer}

	team, err := v.engine.gw.GetTeam(ctx, v.teamID)
	switch {
	case err == nil:
		next.Team = team
	case apierr.KindOf(err) == apierr.KindNotFound:
		next.Gone = true
	default:
		return err
	}

	if !next.Gone && viewer.IsAuthenticated() && team.IsCaptain(viewer.Identity) {
		invitations, err := v.engine.gw.ListTeamInvitations(ctx, v.teamID)
		switch {
		case err == nil:
			next.Invitations = invitations
		case apierr.KindOf(err) == apierr.KindForbidden:
			// captaincy changed between the two reads
		default:
			return err
		}
	}
	next.Actions = Evaluate(next.Team, viewer)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	if seq < v.applied {
		return ErrStale
	}
	v.applied = seq
	v.snap = next
	return nil
}

// after re-fetches following a mutation. A failed mutation leaves the
// snapshot untouched unless the server says the state moved on (conflict or
// missing), in which case the view is refreshed so the user sees it.
func (v *TeamView) after(ctx context.Context, mutErr error) error {
	if mutErr != nil {
		switch apierr.KindOf(mutErr) {
		case apierr.KindConflict, apierr.KindNotFound:
			if err := v.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
				v.engine.logger.Debug().Err(err).Int64("team_id", v.teamID).Msg("Refresh after failed mutation")
			}
		}
		return mutErr
	}
	if err := v.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) {
		return err
	}
	return nil
}

func (v *TeamView) Approve(ctx context.Context, invitationID int64) error {
	return v.after(ctx, v.engine.Approve(ctx, invitationID))
}

func (v *TeamView) Decline(ctx context.Context, invitationID int64) error {
	return v.after(ctx, v.engine.Decline(ctx, invitationID))
}

func (v *TeamView) RemoveParticipant(ctx context.Context, participantID string) error {
	return v.after(ctx, v.engine.RemoveParticipant(ctx, v.teamID, participantID))
}

func (v *TeamView) Leave(ctx context.Context) error {
	return v.after(ctx, v.engine.LeaveTeam(ctx, v.teamID))
}

func (v *TeamView) Update(ctx context.Context, title, description string) error {
	return v.after(ctx, v.engine.UpdateTeam(ctx, v.teamID, title, description))
}

func (v *TeamView) Delete(ctx context.Context) error {
	return v.after(ctx, v.engine.DeleteTeam(ctx, v.teamID))
}

func (v *TeamView) RequestJoin(ctx context.Context) (models.Invitation, error) {
	inv, err := v.engine.RequestJoin(ctx, v.teamID)
	return inv, v.after(ctx, err)
}

func (v *TeamView) Enter(ctx context.Context, password string) error {
	return v.after(ctx, v.engine.EnterTeam(ctx, v.teamID, password))
}

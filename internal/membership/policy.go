package membership

import (
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/session"
)

const (
	ReasonSignIn        = "Sign in to join a team"
	ReasonAlreadyMember = "You are already in this team"
	ReasonTeamFull      = "The team is full"
	ReasonCaptainLeave  = "The captain cannot leave; delete the team instead"
	ReasonNotMember     = "You are not a member of this team"
	ReasonNotCaptain    = "Only the captain can manage the team"
)

// Actions describes which team actions the UI should offer. A disabled
// action carries the reason shown to the user.
type Actions struct {
	CanRequestJoin    bool
	RequestJoinReason string
	CanLeave          bool
	LeaveReason       string
	CanManage         bool
	ManageReason      string
}

// Evaluate derives the available actions for viewer on team. Capacity is only
// used to disable joining when it is visibly exhausted; the server stays the
// authority.
func Evaluate(team models.Team, viewer session.Session) Actions {
	var a Actions
	id := viewer.Identity

	switch {
	case !viewer.IsAuthenticated():
		a.RequestJoinReason = ReasonSignIn
	case team.IsMember(id):
		a.RequestJoinReason = ReasonAlreadyMember
	case team.IsFull():
		a.RequestJoinReason = ReasonTeamFull
	default:
		a.CanRequestJoin = true
	}

	switch {
	case team.IsCaptain(id):
		a.LeaveReason = ReasonCaptainLeave
	case viewer.IsAuthenticated() && team.HasParticipant(id):
		a.CanLeave = true
	default:
		a.LeaveReason = ReasonNotMember
	}

	if viewer.IsAuthenticated() && team.IsCaptain(id) {
		a.CanManage = true
	} else {
		a.ManageReason = ReasonNotCaptain
	}
	return a
}

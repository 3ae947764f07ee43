package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// IsTerminal reports whether no further transition is possible.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationAccepted || s == InvitationDeclined
}

// CanTransition reports whether the status may move to next.
// Only pending invitations can be resolved.
func (s InvitationStatus) CanTransition(next InvitationStatus) bool {
	return s == InvitationPending && next.IsTerminal()
}

type RequestedBy string

const (
	RequestedByCaptain     RequestedBy = "captain"
	RequestedByParticipant RequestedBy = "participant"
)

// Invitation links a participant and a team; it is resolved by the counterpart role.
type Invitation struct {
	ID            int64            `json:"invitation_id"`
	TeamID        int64            `json:"team_id"`
	HackathonID   int64            `json:"hackathon_id"`
	CaptainID     string           `json:"captain_id"`
	ParticipantID string           `json:"participant_id"`
	Status        InvitationStatus `json:"status"`
	RequestedBy   RequestedBy      `json:"requested_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// IsPending reports whether the invitation still awaits resolution.
func (i Invitation) IsPending() bool {
	return i.Status == InvitationPending
}

// IsActionableByCaptain reports whether a captain should see approve/decline for it.
func (i Invitation) IsActionableByCaptain() bool {
	return i.IsPending() && i.RequestedBy == RequestedByParticipant
}

// ResolverID returns the identity entitled to resolve the invitation.
func (i Invitation) ResolverID() string {
	if i.RequestedBy == RequestedByParticipant {
		return i.CaptainID
	}
	return i.ParticipantID
}

// FilterInvitations returns the invitations matching keep, preserving order.
func FilterInvitations(invitations []Invitation, keep func(Invitation) bool) []Invitation {
	out := make([]Invitation, 0, len(invitations))
	for _, inv := range invitations {
		if keep(inv) {
			out = append(out, inv)
		}
	}
	return out
}

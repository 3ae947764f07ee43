package models

import "time"

type NotificationEvent string

const (
	NotificationEventJoinRequested NotificationEvent = "join_requested"
	NotificationEventInvited       NotificationEvent = "invited"
)

// Notification is one entry of the current user's feed, derived from an invitation.
type Notification struct {
	ID           string            `json:"id"`
	InvitationID int64             `json:"invitation_id"`
	TeamID       int64             `json:"team_id"`
	HackathonID  int64             `json:"hackathon_id"`
	EventType    NotificationEvent `json:"event_type"`
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	CreatedAt    time.Time         `json:"created_at"`
	ReadAt       *time.Time        `json:"read_at,omitempty"`
}

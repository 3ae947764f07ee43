package models

import (
	"fmt"
	"strings"
)

// TeamSummary is the short team shape used in lists and on profiles.
type TeamSummary struct {
	ID          int64  `json:"team_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Team is a captained group tied to one hackathon.
type Team struct {
	ID           int64     `json:"team_id"`
	HackathonID  int64     `json:"hackathon_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Captain      Profile   `json:"captain"`
	Participants []Profile `json:"participants"`
	Capacity     *int      `json:"capacity,omitempty"`
	// Password is only disclosed to the captain.
	Password *string `json:"password,omitempty"`
}

// Size counts the captain plus participants.
func (t Team) Size() int {
	return len(t.Participants) + 1
}

// IsFull reports whether a declared capacity is exhausted.
func (t Team) IsFull() bool {
	return t.Capacity != nil && t.Size() >= *t.Capacity
}

// IsCaptain reports whether identity is the team's captain.
func (t Team) IsCaptain(identity string) bool {
	return identity != "" && t.Captain.TelegramID == identity
}

// HasParticipant reports whether identity is listed as a non-captain member.
func (t Team) HasParticipant(identity string) bool {
	if identity == "" {
		return false
	}
	for _, p := range t.Participants {
		if p.TelegramID == identity {
			return true
		}
	}
	return false
}

// IsMember reports whether identity is the captain or a participant.
func (t Team) IsMember(identity string) bool {
	return t.IsCaptain(identity) || t.HasParticipant(identity)
}

// ParticipantIDs returns participant identities in roster order.
func (t Team) ParticipantIDs() []string {
	ids := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.TelegramID)
	}
	return ids
}

// Validate checks the roster invariants: one captain, captain not among participants,
// no duplicate participants and size within capacity.
func (t Team) Validate() error {
	if strings.TrimSpace(t.Captain.TelegramID) == "" {
		return fmt.Errorf("team %d has no captain", t.ID)
	}
	seen := make(map[string]struct{}, len(t.Participants))
	for _, p := range t.Participants {
		if p.TelegramID == t.Captain.TelegramID {
			return fmt.Errorf("team %d lists captain %s as participant", t.ID, p.TelegramID)
		}
		if _, ok := seen[p.TelegramID]; ok {
			return fmt.Errorf("team %d lists participant %s twice", t.ID, p.TelegramID)
		}
		seen[p.TelegramID] = struct{}{}
	}
	if t.Capacity != nil && t.Size() > *t.Capacity {
		return fmt.Errorf("team %d has %d members over capacity %d", t.ID, t.Size(), *t.Capacity)
	}
	return nil
}

type CreateTeamRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	HackathonID int64   `json:"hackathon_id"`
}

type UpdateTeamRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

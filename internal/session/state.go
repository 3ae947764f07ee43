// Package session owns the client's belief about who is signed in.
//
// The state is a tagged variant:
//
//	Anonymous -> Pending(identity) -> Authenticated(identity, profile)
//
// with Pending|Authenticated -> Anonymous on logout or on a 401/403 from an
// identity-verification call. A remembered identity without a confirmed
// profile is Pending, never Authenticated.
package session

import "github.com/stanstork/hackmatch/internal/models"

type State int

const (
	Anonymous State = iota
	Pending
	Authenticated
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Session is an immutable snapshot of the store.
type Session struct {
	State    State
	Identity string
	// Profile is set only in the Authenticated state.
	Profile *models.Profile
}

func (s Session) IsAuthenticated() bool {
	return s.State == Authenticated
}

func anonymous() Session {
	return Session{State: Anonymous}
}

func pending(identity string) Session {
	return Session{State: Pending, Identity: identity}
}

func authenticated(identity string, profile models.Profile) Session {
	return Session{State: Authenticated, Identity: identity, Profile: &profile}
}

// clone detaches the snapshot from the store's copy of the profile.
func (s Session) clone() Session {
	if s.Profile == nil {
		return s
	}
	p := *s.Profile
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	if p.Team != nil {
		team := *p.Team
		p.Team = &team
	}
	s.Profile = &p
	return s
}

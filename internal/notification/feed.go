// Package notification projects the invitations waiting on the current user
// into a feed and fans newly seen entries out to notifiers.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stanstork/hackmatch/internal/membership"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/session"
)

// ErrSuperseded is returned when the feed was reset while a refresh was in flight.
var ErrSuperseded = errors.New("feed reset while refreshing")

type Gateway interface {
	MyInvitations(ctx context.Context, hackathonID int64) ([]models.Invitation, error)
}

type SessionGate interface {
	RequireAuthenticated() (session.Session, error)
}

// Feed is a read-only projection: it never mutates invitations.
type Feed struct {
	gw        Gateway
	sess      SessionGate
	notifiers []Notifier
	logger    zerolog.Logger

	mu       sync.Mutex
	gen      uint64
	identity string
	pending  []models.Notification
	seen     map[int64]struct{}
	stale    bool
}

func NewFeed(gw Gateway, sess SessionGate, logger zerolog.Logger, notifiers ...Notifier) *Feed {
	active := make([]Notifier, 0, len(notifiers))
	for _, notifier := range notifiers {
		if notifier != nil {
			active = append(active, notifier)
		}
	}
	return &Feed{
		gw:        gw,
		sess:      sess,
		notifiers: active,
		logger:    logger.With().Str("component", "notification_feed").Logger(),
		seen:      make(map[int64]struct{}),
		stale:     true,
	}
}

// Refresh re-reads the user's invitations (hackathonID 0 means all) and keeps
// the pending ones the user is expected to resolve. Entries not seen before
// are delivered to the notifiers.
func (f *Feed) Refresh(ctx context.Context, hackathonID int64) ([]models.Notification, error) {
	// gen is taken before the viewer so a reset landing between the two
	// still supersedes this refresh.
	f.mu.Lock()
	gen := f.gen
	f.mu.Unlock()

	viewer, err := f.sess.RequireAuthenticated()
	if err != nil {
		return nil, err
	}

	invitations, err := f.gw.MyInvitations(ctx, hackathonID)
	if err != nil {
		return nil, err
	}

	next := make([]models.Notification, 0, len(invitations))
	for _, inv := range invitations {
		if !inv.IsPending() || inv.ResolverID() != viewer.Identity {
			continue
		}
		next = append(next, fromInvitation(inv))
	}
	sort.Slice(next, func(i, j int) bool { return next[i].InvitationID < next[j].InvitationID })

	f.mu.Lock()
	if f.gen != gen {
		f.mu.Unlock()
		return nil, ErrSuperseded
	}
	if f.identity != viewer.Identity {
		f.identity = viewer.Identity
		f.seen = make(map[int64]struct{})
	}
	var fresh []models.Notification
	for _, n := range next {
		if _, ok := f.seen[n.InvitationID]; !ok {
			f.seen[n.InvitationID] = struct{}{}
			fresh = append(fresh, n)
		}
	}
	f.pending = next
	f.stale = false
	out := append([]models.Notification(nil), next...)
	f.mu.Unlock()

	for _, n := range fresh {
		for _, notifier := range f.notifiers {
			if err := notifier.Notify(ctx, n); err != nil {
				logNotifyError(f.logger, err, notifierChannelName(notifier), n)
			}
		}
	}
	return out, nil
}

// Pending returns the last projection.
func (f *Feed) Pending() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Notification(nil), f.pending...)
}

// Stale reports whether an event arrived since the last refresh.
func (f *Feed) Stale() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stale
}

// Handle consumes membership events. A resolved invitation is terminal, so
// it is dropped at once; everything else only marks the feed stale.
func (f *Feed) Handle(evt membership.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stale = true
	switch evt.Type {
	case membership.EventInvitationAccepted, membership.EventInvitationDeclined:
		kept := f.pending[:0]
		for _, n := range f.pending {
			if n.InvitationID != evt.InvitationID {
				kept = append(kept, n)
			}
		}
		f.pending = kept
	}
}

// OnSession resets the feed when the user signs out or another user signs in.
// It is meant to be passed to session.Store.Subscribe.
func (f *Feed) OnSession(s session.Session) {
	f.mu.Lock()
	changed := f.identity != "" && f.identity != s.Identity
	f.mu.Unlock()
	if s.State == session.Anonymous || changed {
		f.Reset()
	}
}

// Reset clears the projection and discards refreshes in flight.
func (f *Feed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	f.identity = ""
	f.pending = nil
	f.seen = make(map[int64]struct{})
	f.stale = true
}

func fromInvitation(inv models.Invitation) models.Notification {
	n := models.Notification{
		ID:           fmt.Sprintf("invitation-%d", inv.ID),
		InvitationID: inv.ID,
		TeamID:       inv.TeamID,
		HackathonID:  inv.HackathonID,
		CreatedAt:    inv.CreatedAt,
	}
	if inv.RequestedBy == models.RequestedByParticipant {
		n.EventType = models.NotificationEventJoinRequested
		n.Title = "New join request"
		n.Message = fmt.Sprintf("%s asked to join your team %d.", inv.ParticipantID, inv.TeamID)
	} else {
		n.EventType = models.NotificationEventInvited
		n.Title = "Team invitation"
		n.Message = fmt.Sprintf("You were invited to join team %d.", inv.TeamID)
	}
	return n
}

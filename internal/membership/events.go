package membership

import (
	"sync"
	"time"
)

type EventType string

const (
	EventInvitationRequested EventType = "invitation.requested"
	EventInvitationAccepted  EventType = "invitation.accepted"
	EventInvitationDeclined  EventType = "invitation.declined"
	EventTeamCreated         EventType = "team.created"
	EventTeamUpdated         EventType = "team.updated"
	EventTeamDeleted         EventType = "team.deleted"
	EventTeamJoined          EventType = "team.joined"
	EventTeamLeft            EventType = "team.left"
	EventMemberRemoved       EventType = "team.member_removed"
)

// Event reports a mutation the server acknowledged. Fields not relevant to
// the event type are zero.
type Event struct {
	Type          EventType
	Actor         string
	TeamID        int64
	HackathonID   int64
	InvitationID  int64
	ParticipantID string
	At            time.Time
}

type bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func newBus() *bus {
	return &bus{subs: make(map[int]func(Event))}
}

func (b *bus) subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *bus) publish(evt Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}

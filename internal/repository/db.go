package repository

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/stanstork/hackmatch/internal/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

// DefaultTeamCapacity applies to hackathons seeded without an explicit team size.
const DefaultTeamCapacity = 5

type teamRecord struct {
	id           int64
	hackathonID  int64
	title        string
	description  string
	captain      string
	participants []string
	capacity     int
	password     string
}

type hackathonRecord struct {
	hackathon    models.Hackathon
	teamCapacity int
}

type adminRecord struct {
	admin        models.Admin
	passwordHash string
}

type codeRecord struct {
	identity string
	issuedAt time.Time
}

// MemoryDB is the in-process state behind every repository. All invariants
// spanning teams, invitations and profiles are checked under one lock.
type MemoryDB struct {
	mu sync.RWMutex

	profiles    map[string]models.Profile
	hackathons  map[int64]*hackathonRecord
	teams       map[int64]*teamRecord
	invitations map[int64]*models.Invitation
	codes       map[string]codeRecord
	admins      map[string]*adminRecord

	nextAdminID      int64
	nextTeamID       int64
	nextInvitationID int64
	nextHackathonID  int64

	now func() time.Time
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		profiles:    make(map[string]models.Profile),
		hackathons:  make(map[int64]*hackathonRecord),
		teams:       make(map[int64]*teamRecord),
		invitations: make(map[int64]*models.Invitation),
		codes:       make(map[string]codeRecord),
		admins:      make(map[string]*adminRecord),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source.
func (db *MemoryDB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// teamOf returns the team identity belongs to in hackathonID, if any. Caller holds the lock.
func (db *MemoryDB) teamOf(identity string, hackathonID int64) *teamRecord {
	for _, t := range db.sortedTeams() {
		if t.hackathonID != hackathonID {
			continue
		}
		if t.captain == identity || contains(t.participants, identity) {
			return t
		}
	}
	return nil
}

// anyTeamOf returns the lowest-numbered team identity belongs to. Caller holds the lock.
func (db *MemoryDB) anyTeamOf(identity string) *teamRecord {
	for _, t := range db.sortedTeams() {
		if t.captain == identity || contains(t.participants, identity) {
			return t
		}
	}
	return nil
}

func (db *MemoryDB) sortedTeams() []*teamRecord {
	out := make([]*teamRecord, 0, len(db.teams))
	for _, t := range db.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// profile returns the stored profile with its team reference filled in. Caller holds the lock.
func (db *MemoryDB) profile(identity string) (models.Profile, bool) {
	p, ok := db.profiles[identity]
	if !ok {
		return models.Profile{}, false
	}
	p.Team = nil
	if t := db.anyTeamOf(identity); t != nil {
		summary := models.TeamSummary{ID: t.id, Title: t.title, Description: t.description}
		p.Team = &summary
	}
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	return p, true
}

// placeholder profile for members whose profile row is missing. Caller holds the lock.
func (db *MemoryDB) member(identity string) models.Profile {
	if p, ok := db.profile(identity); ok {
		return p
	}
	return models.Profile{TelegramID: identity}
}

// toTeam projects a record; the password is disclosed only to the captain. Caller holds the lock.
func (db *MemoryDB) toTeam(t *teamRecord, viewer string) models.Team {
	team := models.Team{
		ID:           t.id,
		HackathonID:  t.hackathonID,
		Title:        t.title,
		Description:  t.description,
		Captain:      db.member(t.captain),
		Participants: make([]models.Profile, 0, len(t.participants)),
	}
	for _, id := range t.participants {
		team.Participants = append(team.Participants, db.member(id))
	}
	if t.capacity > 0 {
		capacity := t.capacity
		team.Capacity = &capacity
	}
	if viewer != "" && viewer == t.captain && t.password != "" {
		password := t.password
		team.Password = &password
	}
	return team
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}

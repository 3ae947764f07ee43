package stubapi

import (
	"time"

	"github.com/stanstork/hackmatch/internal/models"
)

// SeedDemo loads a small data set for local development and returns the
// login codes it issued, keyed by identity.
func (s *Server) SeedDemo() (map[string]string, error) {
	maxParticipants := 120
	start := time.Now().UTC().AddDate(0, 0, 14)
	hack := models.Hackathon{
		Title:           "Spring Build Weekend",
		Description:     "Two days, one product, teams of up to four.",
		EventDate:       models.NewDate(start.Year(), start.Month(), start.Day()),
		StartDate:       models.NewDate(start.Year(), start.Month(), start.Day()),
		EndDate:         models.NewDate(start.Year(), start.Month(), start.Day()+1),
		Location:        "Online",
		MaxParticipants: &maxParticipants,
	}
	created, err := s.Hackathons.CreateHackathon(hack, 4)
	if err != nil {
		return nil, err
	}

	people := []models.Profile{
		{TelegramID: "1001", FullName: "Alice Captain", Username: "alice", Role: "backend", Tags: []string{"go", "postgres"}},
		{TelegramID: "1002", FullName: "Bob Builder", Username: "bob", Role: "frontend", Tags: []string{"react"}},
		{TelegramID: "1003", FullName: "Carol Designer", Role: "design", Tags: []string{"figma"}},
	}
	codes := make(map[string]string, len(people)+1)
	for _, p := range people {
		if _, err := s.Profiles.UpsertProfile(p); err != nil {
			return nil, err
		}
		code, err := s.Codes.IssueCode(p.TelegramID)
		if err != nil {
			return nil, err
		}
		codes[p.TelegramID] = code
	}

	description := "Looking for a designer"
	if _, err := s.Teams.CreateTeam("1001", models.CreateTeamRequest{
		Title:       "Gophers",
		Description: &description,
		HackathonID: created.ID,
	}); err != nil {
		return nil, err
	}

	// an identity with a valid code but no profile yet
	code, err := s.Codes.IssueCode("1004")
	if err != nil {
		return nil, err
	}
	codes["1004"] = code
	return codes, nil
}

package models

import (
	"encoding/json"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.Time = time.Time{}
		return nil
	}
	value := strings.TrimSpace(*raw)
	// Some servers send full timestamps for date fields.
	if len(value) > len(dateLayout) {
		value = value[:len(dateLayout)]
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}

// Hackathon is an event teams are formed for.
type Hackathon struct {
	ID                int64  `json:"hack_id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	Pic               string `json:"pic"`
	EventDate         Date   `json:"event_date"`
	StartDate         Date   `json:"start_date"`
	EndDate           Date   `json:"end_date"`
	Location          string `json:"location,omitempty"`
	ParticipantsCount int    `json:"participants_count"`
	MaxParticipants   *int   `json:"max_participants,omitempty"`
}

// IsOpen reports whether the hackathon has not ended as of now.
func (h Hackathon) IsOpen(now time.Time) bool {
	if h.EndDate.IsZero() {
		return true
	}
	return !now.After(h.EndDate.AddDate(0, 0, 1))
}

package models

import (
	"fmt"
	"strings"
)

// Admin is an operator account that manages hackathons.
type Admin struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NormalizeEmail trims and lower-cases an admin email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HackathonInput is the admin payload that creates a hackathon or replaces
// all of its editable fields.
type HackathonInput struct {
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Pic             string  `json:"pic"`
	EventDate       Date    `json:"event_date"`
	StartDate       Date    `json:"start_date"`
	EndDate         Date    `json:"end_date"`
	Location        *string `json:"location,omitempty"`
	MaxParticipants *int    `json:"max_participants,omitempty"`
}

// InputFrom returns the editable fields of h, so an update can change a few
// of them and send the rest back unchanged.
func InputFrom(h Hackathon) HackathonInput {
	in := HackathonInput{
		Title:           h.Title,
		Description:     h.Description,
		Pic:             h.Pic,
		EventDate:       h.EventDate,
		StartDate:       h.StartDate,
		EndDate:         h.EndDate,
		MaxParticipants: h.MaxParticipants,
	}
	if h.Location != "" {
		location := h.Location
		in.Location = &location
	}
	return in
}

// Normalize trims text fields and defaults the event date to the start date.
func (in HackathonInput) Normalize() HackathonInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Pic = strings.TrimSpace(in.Pic)
	if in.Location != nil {
		location := strings.TrimSpace(*in.Location)
		if location == "" {
			in.Location = nil
		} else {
			in.Location = &location
		}
	}
	if in.EventDate.IsZero() {
		in.EventDate = in.StartDate
	}
	return in
}

func (in HackathonInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("hackathon title is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return fmt.Errorf("hackathon start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate.Time) {
		return fmt.Errorf("hackathon ends %s before it starts %s", in.EndDate, in.StartDate)
	}
	if in.MaxParticipants != nil && *in.MaxParticipants <= 0 {
		return fmt.Errorf("max participants must be positive")
	}
	return nil
}

// Apply writes the input onto h, keeping its id and participant count.
func (in HackathonInput) Apply(h Hackathon) Hackathon {
	h.Title = in.Title
	h.Description = in.Description
	h.Pic = in.Pic
	h.EventDate = in.EventDate
	h.StartDate = in.StartDate
	h.EndDate = in.EndDate
	h.Location = ""
	if in.Location != nil {
		h.Location = *in.Location
	}
	h.MaxParticipants = in.MaxParticipants
	return h
}

package models

import "strings"

const unnamedDisplayName = "Unnamed"

// Profile is a person's attributes as returned by the server.
type Profile struct {
	TelegramID  string       `json:"telegram_id"`
	FullName    string       `json:"fullname"`
	Username    string       `json:"username,omitempty"`
	Pic         string       `json:"pic"`
	Role        string       `json:"role,omitempty"`
	Description string       `json:"description,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Team        *TeamSummary `json:"team,omitempty"`
}

// DisplayName prefers the self-chosen username over the account full name.
func (p Profile) DisplayName() string {
	if name := strings.TrimSpace(p.Username); name != "" {
		return name
	}
	if name := strings.TrimSpace(p.FullName); name != "" {
		return name
	}
	return unnamedDisplayName
}

// AvatarURL returns a data URL for the profile picture, or "" when none is set.
func (p Profile) AvatarURL() string {
	pic := strings.TrimSpace(p.Pic)
	if pic == "" {
		return ""
	}
	if strings.HasPrefix(pic, "data:") {
		return pic
	}
	return "data:image/jpeg;base64," + pic
}

// ProfilePatch is a partial profile update. Nil fields are left unchanged server-side.
type ProfilePatch struct {
	Username    *string  `json:"username,omitempty"`
	Role        *string  `json:"role,omitempty"`
	Description *string  `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Normalize trims string fields and drops blank ones so they never overwrite stored values.
func (p ProfilePatch) Normalize() ProfilePatch {
	out := ProfilePatch{
		Username:    trimmedOrNil(p.Username),
		Role:        trimmedOrNil(p.Role),
		Description: trimmedOrNil(p.Description),
	}
	if p.Tags != nil {
		tags := make([]string, 0, len(p.Tags))
		seen := make(map[string]struct{}, len(p.Tags))
		for _, tag := range p.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
		out.Tags = tags
	}
	return out
}

// IsEmpty reports whether the patch would change nothing.
func (p ProfilePatch) IsEmpty() bool {
	return p.Username == nil && p.Role == nil && p.Description == nil && p.Tags == nil
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

package identity

import (
	"context"
	"net/http"
	"strings"
)

// Credentials keeps the API session cookies between runs, the way a
// browser's cookie store outlives a page load. Saving an empty set clears it.
type Credentials interface {
	LoadCookies(ctx context.Context) ([]*http.Cookie, error)
	SaveCookies(ctx context.Context, cookies []*http.Cookie) error
}

type storedCookie struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

func toStored(cookies []*http.Cookie) []storedCookie {
	out := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || strings.TrimSpace(c.Name) == "" {
			continue
		}
		out = append(out, storedCookie{Name: c.Name, Value: c.Value})
	}
	return out
}

func fromStored(stored []storedCookie) []*http.Cookie {
	if len(stored) == 0 {
		return nil
	}
	out := make([]*http.Cookie, 0, len(stored))
	for _, c := range stored {
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestFromStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindUnauthorized},
		{http.StatusForbidden, KindForbidden},
		{http.StatusNotFound, KindNotFound},
		{http.StatusConflict, KindConflict},
		{http.StatusBadRequest, KindValidation},
		{http.StatusUnprocessableEntity, KindValidation},
		{http.StatusTooManyRequests, KindServer},
		{http.StatusInternalServerError, KindServer},
		{http.StatusBadGateway, KindServer},
		{http.StatusOK, KindUnknown},
	}
	for _, tc := range cases {
		if got := FromStatus(tc.status); got != tc.want {
			t.Fatalf("FromStatus(%d) = %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestErrorsIsMatchesByKind(t *testing.T) {
	t.Parallel()

	err := FromResponse("POST /invitations/{id}/approve", http.StatusConflict, "already resolved")
	wrapped := fmt.Errorf("approve: %w", err)
	if !errors.Is(wrapped, ErrConflict) {
		t.Fatalf("expected conflict, got %v", wrapped)
	}
	if errors.Is(wrapped, ErrNotFound) {
		t.Fatalf("conflict must not match not found")
	}

	viaPkg := pkgerrors.Wrap(Network("GET /teams/{id}", errors.New("dial tcp: refused")), "load team")
	if !errors.Is(viaPkg, ErrNetwork) {
		t.Fatalf("pkg/errors wrapping must preserve kind: %v", viaPkg)
	}
}

func TestTransientAndAuthorization(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err       error
		transient bool
		authz     bool
	}{
		{nil, false, false},
		{errors.New("boom"), true, false},
		{Network("op", errors.New("eof")), true, false},
		{FromResponse("op", 503, ""), true, false},
		{FromResponse("op", 401, ""), false, true},
		{FromResponse("op", 403, ""), false, true},
		{FromResponse("op", 404, ""), false, false},
		{FromResponse("op", 409, ""), false, false},
	}
	for i, tc := range cases {
		if got := IsTransient(tc.err); got != tc.transient {
			t.Fatalf("case %d: IsTransient = %v, want %v", i, got, tc.transient)
		}
		if got := IsAuthorization(tc.err); got != tc.authz {
			t.Fatalf("case %d: IsAuthorization = %v, want %v", i, got, tc.authz)
		}
	}
}

func TestUserMessage(t *testing.T) {
	t.Parallel()

	if got := UserMessage(New(KindPolicy, "captain must transfer or dissolve the team")); got != "captain must transfer or dissolve the team" {
		t.Fatalf("policy message not surfaced: %q", got)
	}
	if got := UserMessage(ErrConflict); got == "" {
		t.Fatalf("conflict must have a message")
	}
	if got := UserMessage(nil); got != "" {
		t.Fatalf("nil error must have no message")
	}
}

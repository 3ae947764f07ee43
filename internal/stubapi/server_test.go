package stubapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"testing"

	"github.com/stanstork/hackmatch/internal/models"
)

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newClient(t *testing.T, base string) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &client{t: t, base: base, http: &http.Client{Jar: jar}}
}

func (c *client) call(method, path string, body any, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (c *client) login(srv *Server, identity, fullName string) {
	c.t.Helper()
	code, err := srv.IssueCode(identity, fullName)
	if err != nil {
		c.t.Fatalf("IssueCode: %v", err)
	}
	var resp struct {
		TelegramID string `json:"telegram_id"`
	}
	if status := c.call(http.MethodPost, "/login-by-code", map[string]string{"code": code}, &resp); status != http.StatusOK {
		c.t.Fatalf("login status = %d", status)
	}
	if resp.TelegramID != identity {
		c.t.Fatalf("login identity = %q, want %q", resp.TelegramID, identity)
	}
}

func TestLoginByCode(t *testing.T) {
	t.Parallel()
	srv, ts := StartTest(t)
	c := newClient(t, ts.URL)

	if status := c.call(http.MethodGet, "/profile/u1", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous profile status = %d, want 401", status)
	}
	if status := c.call(http.MethodPost, "/login-by-code", map[string]string{"code": "NOPE"}, nil); status != http.StatusBadRequest {
		t.Fatalf("bad code status = %d, want 400", status)
	}

	code, err := srv.IssueCode("u1", "")
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}
	if status := c.call(http.MethodPost, "/login-by-code", map[string]string{"code": code}, nil); status != http.StatusOK {
		t.Fatalf("login status = %d", status)
	}
	if status := c.call(http.MethodPost, "/login-by-code", map[string]string{"code": code}, nil); status != http.StatusBadRequest {
		t.Fatalf("reused code status = %d, want 400", status)
	}

	// logged in but not provisioned
	if status := c.call(http.MethodGet, "/profile/u1", nil, nil); status != http.StatusNotFound {
		t.Fatalf("unprovisioned profile status = %d, want 404", status)
	}

	role := "backend"
	var profile models.Profile
	if status := c.call(http.MethodPost, "/profile/u1", models.ProfilePatch{Role: &role}, &profile); status != http.StatusOK {
		t.Fatalf("provisioning update status = %d", status)
	}
	if profile.Role != "backend" {
		t.Fatalf("profile = %+v", profile)
	}
	if status := c.call(http.MethodPost, "/profile/u2", models.ProfilePatch{Role: &role}, nil); status != http.StatusForbidden {
		t.Fatalf("foreign profile update status = %d, want 403", status)
	}

	if status := c.call(http.MethodPost, "/logout", nil, nil); status != http.StatusOK {
		t.Fatalf("logout status = %d", status)
	}
	if status := c.call(http.MethodGet, "/profile/u1", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("after logout status = %d, want 401", status)
	}
}

func TestInvitationLifecycle(t *testing.T) {
	t.Parallel()
	srv, ts := StartTest(t)
	hack, err := srv.SeedHackathon("Hack", 2)
	if err != nil {
		t.Fatalf("SeedHackathon: %v", err)
	}

	captain := newClient(t, ts.URL)
	captain.login(srv, "c", "Captain")
	p1 := newClient(t, ts.URL)
	p1.login(srv, "p1", "First")
	p2 := newClient(t, ts.URL)
	p2.login(srv, "p2", "Second")

	var team models.Team
	if status := captain.call(http.MethodPost, "/teams/create", models.CreateTeamRequest{Title: "T", HackathonID: hack.ID}, &team); status != http.StatusOK {
		t.Fatalf("create status = %d", status)
	}
	if team.Password == nil || team.Capacity == nil || *team.Capacity != 2 {
		t.Fatalf("created team = %+v", team)
	}

	var inv models.Invitation
	if status := p1.call(http.MethodPost, fmt.Sprintf("/teams/%d/request-join", team.ID), nil, &inv); status != http.StatusOK {
		t.Fatalf("request-join status = %d", status)
	}
	if inv.Status != models.InvitationPending || inv.RequestedBy != models.RequestedByParticipant || inv.CaptainID != "c" {
		t.Fatalf("invitation = %+v", inv)
	}
	if status := p1.call(http.MethodPost, fmt.Sprintf("/teams/%d/request-join", team.ID), nil, nil); status != http.StatusConflict {
		t.Fatalf("duplicate request status = %d, want 409", status)
	}
	if status := p1.call(http.MethodGet, fmt.Sprintf("/teams/%d/invitations", team.ID), nil, nil); status != http.StatusForbidden {
		t.Fatalf("non-captain list status = %d, want 403", status)
	}
	if status := p1.call(http.MethodPost, fmt.Sprintf("/invitations/%d/approve", inv.ID), nil, nil); status != http.StatusForbidden {
		t.Fatalf("self approve status = %d, want 403", status)
	}

	approve := fmt.Sprintf("/invitations/%d/approve", inv.ID)
	if status := captain.call(http.MethodPost, approve, nil, nil); status != http.StatusOK {
		t.Fatalf("approve status = %d", status)
	}
	if status := captain.call(http.MethodPost, approve, nil, nil); status != http.StatusConflict {
		t.Fatalf("second approve status = %d, want 409", status)
	}
	if status := captain.call(http.MethodPost, fmt.Sprintf("/invitations/%d/decline", inv.ID), nil, nil); status != http.StatusConflict {
		t.Fatalf("decline after approve status = %d, want 409", status)
	}

	// team is now full: captain + p1
	if status := p2.call(http.MethodPost, fmt.Sprintf("/teams/%d/request-join", team.ID), nil, nil); status != http.StatusConflict {
		t.Fatalf("full team request status = %d, want 409", status)
	}

	var seen models.Team
	if status := p2.call(http.MethodGet, fmt.Sprintf("/teams/%d", team.ID), nil, &seen); status != http.StatusOK {
		t.Fatalf("get team status = %d", status)
	}
	if got := strings.Join(seen.ParticipantIDs(), ","); got != "p1" {
		t.Fatalf("participants = %s, want p1", got)
	}
	if seen.Password != nil {
		t.Fatalf("password disclosed to non-captain")
	}
	if err := seen.Validate(); err != nil {
		t.Fatalf("roster invariant broken: %v", err)
	}

	if status := captain.call(http.MethodPost, fmt.Sprintf("/teams/%d/leave", team.ID), nil, nil); status != http.StatusConflict {
		t.Fatalf("captain leave status = %d, want 409", status)
	}
	if status := p1.call(http.MethodPost, fmt.Sprintf("/teams/%d/remove-participant/p1", team.ID), nil, nil); status != http.StatusForbidden {
		t.Fatalf("non-captain remove status = %d, want 403", status)
	}
	if status := captain.call(http.MethodPost, fmt.Sprintf("/teams/%d/remove-participant/p2", team.ID), nil, nil); status != http.StatusNotFound {
		t.Fatalf("remove non-member status = %d, want 404", status)
	}
	if status := p1.call(http.MethodPost, fmt.Sprintf("/teams/%d/leave", team.ID), nil, nil); status != http.StatusOK {
		t.Fatalf("leave status = %d", status)
	}

	var entered models.Team
	if status := p2.call(http.MethodPost, fmt.Sprintf("/teams/%d/enter", team.ID), map[string]string{"password": "wrong"}, nil); status != http.StatusForbidden {
		t.Fatalf("wrong password status = %d, want 403", status)
	}
	if status := p2.call(http.MethodPost, fmt.Sprintf("/teams/%d/enter", team.ID), map[string]string{"password": *team.Password}, &entered); status != http.StatusOK {
		t.Fatalf("enter status = %d", status)
	}
	if !entered.HasParticipant("p2") {
		t.Fatalf("p2 not on roster after enter: %+v", entered.ParticipantIDs())
	}

	if status := captain.call(http.MethodDelete, fmt.Sprintf("/teams/%d", team.ID), nil, nil); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if status := p2.call(http.MethodGet, fmt.Sprintf("/teams/%d", team.ID), nil, nil); status != http.StatusNotFound {
		t.Fatalf("deleted team status = %d, want 404", status)
	}
}

func TestOneTeamPerHackathon(t *testing.T) {
	t.Parallel()
	srv, ts := StartTest(t)
	hack, _ := srv.SeedHackathon("Hack", 4)

	a := newClient(t, ts.URL)
	a.login(srv, "a", "A")
	b := newClient(t, ts.URL)
	b.login(srv, "b", "B")

	var first, second models.Team
	a.call(http.MethodPost, "/teams/create", models.CreateTeamRequest{Title: "A", HackathonID: hack.ID}, &first)
	b.call(http.MethodPost, "/teams/create", models.CreateTeamRequest{Title: "B", HackathonID: hack.ID}, &second)

	if status := a.call(http.MethodPost, fmt.Sprintf("/teams/%d/request-join", second.ID), nil, nil); status != http.StatusConflict {
		t.Fatalf("captain of another team joining status = %d, want 409", status)
	}
	if status := a.call(http.MethodPost, "/teams/create", models.CreateTeamRequest{Title: "A2", HackathonID: hack.ID}, nil); status != http.StatusConflict {
		t.Fatalf("second team in hackathon status = %d, want 409", status)
	}
	if status := a.call(http.MethodPost, "/teams/create", models.CreateTeamRequest{Title: "  ", HackathonID: hack.ID}, nil); status != http.StatusUnprocessableEntity {
		t.Fatalf("blank title status = %d, want 422", status)
	}

	var summaries []models.TeamSummary
	if status := a.call(http.MethodGet, fmt.Sprintf("/teams?hackathon_id=%d", hack.ID), nil, &summaries); status != http.StatusOK || len(summaries) != 2 {
		t.Fatalf("list teams status = %d, teams = %v", status, summaries)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	_, ts := StartTest(t)
	c := newClient(t, ts.URL)

	var health map[string]string
	if status := c.call(http.MethodGet, "/health", nil, &health); status != http.StatusOK || health["status"] != "ok" {
		t.Fatalf("health = %d %v", status, health)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "hackmatch_stub_http_requests_total") {
		t.Fatalf("metrics output missing request counter")
	}
}

func TestSeedDemo(t *testing.T) {
	t.Parallel()
	srv, ts := StartTest(t)
	codes, err := srv.SeedDemo()
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	c := newClient(t, ts.URL)
	var resp struct {
		TelegramID string `json:"telegram_id"`
	}
	if status := c.call(http.MethodPost, "/login-by-code", map[string]string{"code": codes["1002"]}, &resp); status != http.StatusOK || resp.TelegramID != "1002" {
		t.Fatalf("demo login = %d %+v", status, resp)
	}
	var hacks []models.Hackathon
	if status := c.call(http.MethodGet, "/hackathons", nil, &hacks); status != http.StatusOK || len(hacks) != 1 {
		t.Fatalf("hackathons = %d %v", status, hacks)
	}
	if hacks[0].ParticipantsCount != 1 {
		t.Fatalf("participants count = %d, want 1", hacks[0].ParticipantsCount)
	}
}

func TestBotCodesProvisionParticipants(t *testing.T) {
	t.Parallel()
	_, ts := StartTest(t)
	c := newClient(t, ts.URL)

	var issued struct {
		Code       string `json:"code"`
		TelegramID string `json:"telegram_id"`
	}
	req := map[string]any{"telegram_id": "u7", "fullname": "Seven", "provision": true}
	if status := c.call(http.MethodPost, "/bot/codes", req, &issued); status != http.StatusCreated || issued.Code == "" {
		t.Fatalf("bot code = %d %+v", status, issued)
	}

	var people []models.Profile
	if status := c.call(http.MethodGet, "/participants", nil, &people); status != http.StatusOK {
		t.Fatalf("participants status = %d", status)
	}
	if len(people) != 1 || people[0].TelegramID != "u7" || people[0].FullName != "Seven" {
		t.Fatalf("participants = %+v", people)
	}

	if status := c.call(http.MethodPost, "/login-by-code", map[string]string{"code": issued.Code}, nil); status != http.StatusOK {
		t.Fatalf("login with bot code status = %d", status)
	}
	if status := c.call(http.MethodGet, "/profile/u7", nil, nil); status != http.StatusOK {
		t.Fatalf("provisioned profile status = %d", status)
	}
}

func TestAdminHackathonLifecycle(t *testing.T) {
	t.Parallel()
	srv, ts := StartTest(t)
	if _, err := srv.CreateAdmin("ops@example.test", "hunter2"); err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if _, err := srv.CreateAdmin(" OPS@example.test", "other"); err == nil {
		t.Fatalf("duplicate admin email must be rejected")
	}

	in := models.HackathonInput{Title: "Autumn", StartDate: models.NewDate(2026, 10, 1), EndDate: models.NewDate(2026, 10, 3)}

	participant := newClient(t, ts.URL)
	participant.login(srv, "c", "Captain")
	if status := participant.call(http.MethodPost, "/hackathons/create_hack", in, nil); status != http.StatusUnauthorized {
		t.Fatalf("participant create status = %d, want 401", status)
	}

	admin := newClient(t, ts.URL)
	if status := admin.call(http.MethodPost, "/hackathons/create_hack", in, nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous create status = %d, want 401", status)
	}
	if status := admin.call(http.MethodPost, "/admin/login", models.AdminLoginRequest{Email: "ops@example.test", Password: "wrong"}, nil); status != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", status)
	}
	if status := admin.call(http.MethodPost, "/admin/login", models.AdminLoginRequest{Email: " Ops@Example.test ", Password: "hunter2"}, nil); status != http.StatusOK {
		t.Fatalf("admin login status = %d", status)
	}
	// The admin credential is not a participant session.
	if status := admin.call(http.MethodGet, "/teams/invitations/my", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("admin as participant status = %d, want 401", status)
	}

	var hack models.Hackathon
	if status := admin.call(http.MethodPost, "/hackathons/create_hack", in, &hack); status != http.StatusOK {
		t.Fatalf("create status = %d", status)
	}
	if hack.ID == 0 || hack.EventDate.String() != "2026-10-01" {
		t.Fatalf("created hackathon = %+v", hack)
	}
	bad := in
	bad.EndDate = models.NewDate(2026, 9, 1)
	if status := admin.call(http.MethodPost, "/hackathons/create_hack", bad, nil); status != http.StatusUnprocessableEntity {
		t.Fatalf("reversed dates status = %d, want 422", status)
	}

	update := in
	update.Title = "Autumn Jam"
	var updated models.Hackathon
	if status := admin.call(http.MethodPost, fmt.Sprintf("/hackathons/%d/update_hack", hack.ID), update, &updated); status != http.StatusOK {
		t.Fatalf("update status = %d", status)
	}
	if updated.Title != "Autumn Jam" || updated.ID != hack.ID {
		t.Fatalf("updated = %+v", updated)
	}
	if status := admin.call(http.MethodPost, "/hackathons/999/update_hack", update, nil); status != http.StatusNotFound {
		t.Fatalf("update missing status = %d, want 404", status)
	}

	var team models.Team
	if status := participant.call(http.MethodPost, "/teams/create", models.CreateTeamRequest{Title: "T", HackathonID: hack.ID}, &team); status != http.StatusOK {
		t.Fatalf("team create status = %d", status)
	}
	joiner := newClient(t, ts.URL)
	joiner.login(srv, "p1", "First")
	if status := joiner.call(http.MethodPost, fmt.Sprintf("/teams/%d/request-join", team.ID), nil, nil); status != http.StatusOK {
		t.Fatalf("request-join status = %d", status)
	}

	if status := admin.call(http.MethodPost, fmt.Sprintf("/hackathons/%d/delete_hack", hack.ID), nil, nil); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if status := admin.call(http.MethodPost, fmt.Sprintf("/hackathons/%d/delete_hack", hack.ID), nil, nil); status != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", status)
	}
	if status := participant.call(http.MethodGet, fmt.Sprintf("/teams/%d", team.ID), nil, nil); status != http.StatusNotFound {
		t.Fatalf("team after hackathon delete status = %d, want 404", status)
	}
	if pending, err := srv.Invitations.ListMyInvitations("p1", 0); err != nil || len(pending) != 0 {
		t.Fatalf("invitations after hackathon delete = %v, %v", pending, err)
	}

	if status := admin.call(http.MethodPost, "/admin/logout", nil, nil); status != http.StatusOK {
		t.Fatalf("admin logout status = %d", status)
	}
	if status := admin.call(http.MethodPost, "/hackathons/create_hack", in, nil); status != http.StatusUnauthorized {
		t.Fatalf("create after logout status = %d, want 401", status)
	}
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/stanstork/hackmatch/internal/apierr"
	"github.com/stanstork/hackmatch/internal/gateway"
	"github.com/stanstork/hackmatch/internal/membership"
	"github.com/stanstork/hackmatch/internal/models"
	"github.com/stanstork/hackmatch/internal/session"
)

func (app *application) commands() []*cli.Command {
	hackathonFlag := &cli.Int64Flag{Name: "hackathon", Aliases: []string{"H"}, Usage: "hackathon id"}

	return []*cli.Command{
		{
			Name:   "shell",
			Usage:  "run commands interactively within one session",
			Action: app.shell,
		},
		{
			Name:      "login",
			Usage:     "sign in with a one-time code from the bot",
			ArgsUsage: "<code>",
			Action:    app.login,
		},
		{
			Name:   "logout",
			Usage:  "sign out",
			Action: app.logout,
		},
		{
			Name:   "whoami",
			Usage:  "show the current session",
			Flags:  []cli.Flag{&cli.BoolFlag{Name: "avatar", Usage: "also print the profile picture as a data URL"}},
			Action: app.whoami,
		},
		{
			Name:  "profile",
			Usage: "manage your profile",
			Subcommands: []*cli.Command{
				{
					Name:  "update",
					Usage: "update profile fields; omitted fields stay unchanged",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "username"},
						&cli.StringFlag{Name: "role"},
						&cli.StringFlag{Name: "description"},
						&cli.StringSliceFlag{Name: "tag"},
					},
					Action: app.updateProfile,
				},
			},
		},
		{
			Name:      "hackathons",
			Usage:     "list hackathons or show one",
			ArgsUsage: "[id]",
			Action:    app.hackathons,
		},
		{
			Name:   "participants",
			Usage:  "list registered participants",
			Action: app.participants,
		},
		{
			Name:  "teams",
			Usage: "browse and manage teams",
			Subcommands: []*cli.Command{
				{Name: "list", Flags: []cli.Flag{hackathonFlag}, Action: app.listTeams},
				{Name: "show", ArgsUsage: "<team-id>", Action: app.showTeam},
				{
					Name: "create",
					Flags: []cli.Flag{
						&cli.Int64Flag{Name: "hackathon", Aliases: []string{"H"}, Required: true},
						&cli.StringFlag{Name: "title", Required: true},
						&cli.StringFlag{Name: "description"},
					},
					Action: app.createTeam,
				},
				{
					Name:      "update",
					ArgsUsage: "<team-id>",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "title", Required: true},
						&cli.StringFlag{Name: "description"},
					},
					Action: app.withView(func(c *cli.Context, v *membership.TeamView) error {
						return v.Update(c.Context, c.String("title"), c.String("description"))
					}),
				},
				{Name: "delete", ArgsUsage: "<team-id>", Action: app.withView(func(c *cli.Context, v *membership.TeamView) error {
					return v.Delete(c.Context)
				})},
				{Name: "join", Usage: "ask the captain to let you in", ArgsUsage: "<team-id>", Action: app.withView(func(c *cli.Context, v *membership.TeamView) error {
					_, err := v.RequestJoin(c.Context)
					return err
				})},
				{
					Name:      "enter",
					Usage:     "join directly with the team password",
					ArgsUsage: "<team-id>",
					Flags:     []cli.Flag{&cli.StringFlag{Name: "password", Required: true}},
					Action: app.withView(func(c *cli.Context, v *membership.TeamView) error {
						return v.Enter(c.Context, c.String("password"))
					}),
				},
				{Name: "leave", ArgsUsage: "<team-id>", Action: app.withView(func(c *cli.Context, v *membership.TeamView) error {
					return v.Leave(c.Context)
				})},
				{Name: "remove", ArgsUsage: "<team-id> <participant-id>", Action: app.withView(func(c *cli.Context, v *membership.TeamView) error {
					participant := strings.TrimSpace(c.Args().Get(1))
					if participant == "" {
						return apierr.New(apierr.KindValidation, "participant id is required")
					}
					return v.RemoveParticipant(c.Context, participant)
				})},
			},
		},
		{
			Name:  "invitations",
			Usage: "review join requests for your team",
			Subcommands: []*cli.Command{
				{Name: "list", ArgsUsage: "<team-id>", Action: app.listInvitations},
				{
					Name:      "approve",
					ArgsUsage: "<team-id> <invitation-id>",
					Action: app.withView(func(c *cli.Context, v *membership.TeamView) error {
						id, err := int64Arg(c, 1, "invitation id")
						if err != nil {
							return err
						}
						return v.Approve(c.Context, id)
					}),
				},
				{
					Name:      "decline",
					ArgsUsage: "<team-id> <invitation-id>",
					Action: app.withView(func(c *cli.Context, v *membership.TeamView) error {
						id, err := int64Arg(c, 1, "invitation id")
						if err != nil {
							return err
						}
						return v.Decline(c.Context, id)
					}),
				},
			},
		},
		{
			Name:   "notifications",
			Usage:  "show invitations waiting on you",
			Flags:  []cli.Flag{hackathonFlag},
			Action: app.notifications,
		},
		{
			Name:   "stats",
			Usage:  "show API call counts and latencies for this process",
			Action: app.stats,
		},
		app.adminCommand(),
	}
}

// restore loads and verifies the remembered identity once per process.
func (app *application) restore(c *cli.Context) error {
	if app.restored {
		return nil
	}
	app.restored = true
	if err := app.session.Init(c.Context); err != nil {
		app.logger.Warn().Err(err).Msg("Could not verify session")
	}
	return nil
}

// shell runs commands against one restored session, so the identity is
// verified once instead of per command.
func (app *application) shell(c *cli.Context) error {
	if err := app.restore(c); err != nil {
		return err
	}
	out := c.App.Writer
	scanner := bufio.NewScanner(c.App.Reader)
	for {
		fmt.Fprint(out, "hackmatch> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
			fmt.Fprintln(out, "already in a shell")
			continue
		}
		if err := c.App.RunContext(c.Context, append([]string{c.App.Name}, args...)); err != nil {
			fmt.Fprintln(c.App.ErrWriter, err)
		}
	}
}

func fail(err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(apierr.UserMessage(err), 1)
}

func int64Arg(c *cli.Context, i int, name string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(c.Args().Get(i)), 10, 64)
	if err != nil || v <= 0 {
		return 0, cli.Exit(fmt.Sprintf("a positive %s is required", name), 2)
	}
	return v, nil
}

func (app *application) login(c *cli.Context) error {
	code := c.Args().First()
	id, err := app.session.LoginByCode(c.Context, code)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.App.Writer, "Signed in as %s\n", id)
	if cur := app.session.Current(); cur.State == session.Pending {
		fmt.Fprintln(c.App.Writer, "Your profile is not set up yet. Run `hackmatch profile update` to create it.")
	}
	return nil
}

func (app *application) logout(c *cli.Context) error {
	if err := app.restore(c); err != nil {
		return err
	}
	if err := app.session.Logout(c.Context); err != nil {
		app.logger.Warn().Err(err).Msg("Server logout failed")
	}
	fmt.Fprintln(c.App.Writer, "Signed out")
	return nil
}

func (app *application) whoami(c *cli.Context) error {
	if err := app.restore(c); err != nil {
		return err
	}
	cur := app.session.Current()
	switch cur.State {
	case session.Anonymous:
		fmt.Fprintln(c.App.Writer, "Not signed in")
	case session.Pending:
		fmt.Fprintf(c.App.Writer, "%s (profile not confirmed yet)\n", cur.Identity)
	default:
		printProfile(c.App.Writer, *cur.Profile)
		if c.Bool("avatar") {
			avatar := cur.Profile.AvatarURL()
			if avatar == "" {
				avatar = "none"
			}
			fmt.Fprintf(c.App.Writer, "Avatar: %s\n", avatar)
		}
	}
	if app.gw.HasCookie(gateway.AdminCookie) {
		fmt.Fprintln(c.App.Writer, "Admin session active")
	}
	return nil
}

func (app *application) updateProfile(c *cli.Context) error {
	if err := app.restore(c); err != nil {
		return err
	}
	var patch models.ProfilePatch
	for _, name := range []string{"username", "role", "description"} {
		if !c.IsSet(name) {
			continue
		}
		v := c.String(name)
		switch name {
		case "username":
			patch.Username = &v
		case "role":
			patch.Role = &v
		case "description":
			patch.Description = &v
		}
	}
	if c.IsSet("tag") {
		patch.Tags = c.StringSlice("tag")
	}
	if err := app.session.UpdateProfile(c.Context, patch); err != nil {
		return fail(err)
	}
	if cur := app.session.Current(); cur.Profile != nil {
		printProfile(c.App.Writer, *cur.Profile)
	}
	return nil
}

func (app *application) hackathons(c *cli.Context) error {
	if c.Args().Len() > 0 {
		id, err := int64Arg(c, 0, "hackathon id")
		if err != nil {
			return err
		}
		h, err := app.gw.GetHackathon(c.Context, id)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(c.App.Writer, "%s (#%d)\n%s\n", h.Title, h.ID, h.Description)
		fmt.Fprintf(c.App.Writer, "Dates: %s to %s\n", h.StartDate, h.EndDate)
		if h.Location != "" {
			fmt.Fprintf(c.App.Writer, "Location: %s\n", h.Location)
		}
		fmt.Fprintf(c.App.Writer, "Participants: %d\n", h.ParticipantsCount)
		fmt.Fprintf(c.App.Writer, "Status: %s\n", hackathonStatus(h, time.Now()))
		return nil
	}

	list, err := app.gw.ListHackathons(c.Context)
	if err != nil {
		return fail(err)
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTART\tPARTICIPANTS\tSTATUS")
	now := time.Now()
	for _, h := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", h.ID, h.Title, h.StartDate, h.ParticipantsCount, hackathonStatus(h, now))
	}
	return w.Flush()
}

func hackathonStatus(h models.Hackathon, now time.Time) string {
	if h.IsOpen(now) {
		return "open"
	}
	return "closed"
}

func (app *application) participants(c *cli.Context) error {
	if err := app.restore(c); err != nil {
		return err
	}
	list, err := app.gw.ListParticipants(c.Context)
	if err != nil {
		return fail(err)
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tTAGS")
	for _, p := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.TelegramID, p.DisplayName(), p.Role, strings.Join(p.Tags, ","))
	}
	return w.Flush()
}

func (app *application) listTeams(c *cli.Context) error {
	list, err := app.teams.ListTeams(c.Context, c.Int64("hackathon"))
	if err != nil {
		return fail(err)
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tDESCRIPTION")
	for _, t := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, t.Title, t.Description)
	}
	return w.Flush()
}

func (app *application) showTeam(c *cli.Context) error {
	return app.withView(func(*cli.Context, *membership.TeamView) error { return nil })(c)
}

func (app *application) createTeam(c *cli.Context) error {
	if err := app.restore(c); err != nil {
		return err
	}
	var description *string
	if c.IsSet("description") {
		d := c.String("description")
		description = &d
	}
	team, err := app.teams.CreateTeam(c.Context, c.String("title"), description, c.Int64("hackathon"))
	if err != nil {
		return fail(err)
	}
	view, err := app.teams.Open(c.Context, team.ID)
	if err != nil {
		return fail(err)
	}
	defer view.Close()
	printTeam(c.App.Writer, view.Snapshot())
	return nil
}

func (app *application) listInvitations(c *cli.Context) error {
	if err := app.restore(c); err != nil {
		return err
	}
	teamID, err := int64Arg(c, 0, "team id")
	if err != nil {
		return err
	}
	list, err := app.teams.ListInvitations(c.Context, teamID)
	if err != nil {
		return fail(err)
	}
	printInvitations(c.App.Writer, list)
	return nil
}

func (app *application) notifications(c *cli.Context) error {
	if err := app.restore(c); err != nil {
		return err
	}
	items, err := app.feed.Refresh(c.Context, c.Int64("hackathon"))
	if err != nil {
		return fail(err)
	}
	if len(items) == 0 {
		fmt.Fprintln(c.App.Writer, "Nothing waiting on you")
		return nil
	}
	for _, n := range items {
		fmt.Fprintf(c.App.Writer, "[%d] %s: %s\n", n.InvitationID, n.Title, n.Message)
	}
	return nil
}

// withView restores the session, opens the team named by the first argument,
// runs fn and prints the re-fetched team.
func (app *application) withView(fn func(*cli.Context, *membership.TeamView) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := app.restore(c); err != nil {
			return err
		}
		teamID, err := int64Arg(c, 0, "team id")
		if err != nil {
			return err
		}
		view, err := app.teams.Open(c.Context, teamID)
		if err != nil {
			return fail(err)
		}
		defer view.Close()

		if err := fn(c, view); err != nil {
			return fail(err)
		}
		printTeam(c.App.Writer, view.Snapshot())
		return nil
	}
}

func printProfile(w io.Writer, p models.Profile) {
	fmt.Fprintf(w, "%s (%s)\n", p.DisplayName(), p.TelegramID)
	if p.Role != "" {
		fmt.Fprintf(w, "Role: %s\n", p.Role)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(w, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if p.Description != "" {
		fmt.Fprintln(w, p.Description)
	}
	if p.Team != nil {
		fmt.Fprintf(w, "Team: %s (#%d)\n", p.Team.Title, p.Team.ID)
	}
}

func printTeam(w io.Writer, snap membership.Snapshot) {
	if snap.Gone {
		fmt.Fprintln(w, "This team no longer exists")
		return
	}
	t := snap.Team
	size := strconv.Itoa(t.Size())
	if t.Capacity != nil {
		size += "/" + strconv.Itoa(*t.Capacity)
	}
	fmt.Fprintf(w, "%s (#%d) [%s]\n", t.Title, t.ID, size)
	if t.Description != "" {
		fmt.Fprintln(w, t.Description)
	}
	fmt.Fprintf(w, "Captain: %s (%s)\n", t.Captain.DisplayName(), t.Captain.TelegramID)
	for _, p := range t.Participants {
		fmt.Fprintf(w, "  - %s (%s)\n", p.DisplayName(), p.TelegramID)
	}
	if t.Password != nil {
		fmt.Fprintf(w, "Password: %s\n", *t.Password)
	}
	if pending := snap.Pending(); len(pending) > 0 {
		fmt.Fprintln(w, "Join requests:")
		printInvitations(w, pending)
	}

	a := snap.Actions
	if !a.CanRequestJoin && a.RequestJoinReason != "" && a.RequestJoinReason != membership.ReasonAlreadyMember {
		fmt.Fprintf(w, "Join: %s\n", a.RequestJoinReason)
	}
	if !a.CanLeave && a.LeaveReason == membership.ReasonCaptainLeave {
		fmt.Fprintf(w, "Leave: %s\n", a.LeaveReason)
	}
}

func printInvitations(w io.Writer, list []models.Invitation) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPARTICIPANT\tSTATUS\tREQUESTED BY\tCREATED")
	for _, inv := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", inv.ID, inv.ParticipantID, inv.Status, inv.RequestedBy, inv.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

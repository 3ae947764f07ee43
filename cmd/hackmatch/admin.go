package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/stanstork/hackmatch/internal/apierr"
	"github.com/stanstork/hackmatch/internal/models"
)

func (app *application) adminCommand() *cli.Command {
	hackathonFlags := func(required bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "title", Required: required},
			&cli.StringFlag{Name: "description"},
			&cli.StringFlag{Name: "pic", Usage: "base64 picture"},
			&cli.StringFlag{Name: "start", Usage: "start date, YYYY-MM-DD", Required: required},
			&cli.StringFlag{Name: "end", Usage: "end date, YYYY-MM-DD", Required: required},
			&cli.StringFlag{Name: "event-date", Usage: "announced date, YYYY-MM-DD; defaults to the start date"},
			&cli.StringFlag{Name: "location"},
			&cli.IntFlag{Name: "max-participants"},
		}
	}

	return &cli.Command{
		Name:  "admin",
		Usage: "operator commands",
		Subcommands: []*cli.Command{
			{
				Name:  "login",
				Usage: "sign in as an operator",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"HACKMATCH_ADMIN_PASSWORD"}},
				},
				Action: app.adminLogin,
			},
			{
				Name:   "logout",
				Usage:  "drop the operator session",
				Action: app.adminLogout,
			},
			{
				Name:  "hackathons",
				Usage: "create, edit and delete hackathons",
				Subcommands: []*cli.Command{
					{Name: "create", Flags: hackathonFlags(true), Action: app.createHackathon},
					{Name: "update", ArgsUsage: "<hackathon-id>", Usage: "change the given fields; others stay as they are", Flags: hackathonFlags(false), Action: app.updateHackathon},
					{Name: "delete", ArgsUsage: "<hackathon-id>", Usage: "delete a hackathon with its teams and invitations", Action: app.deleteHackathon},
				},
			},
		},
	}
}

func (app *application) adminLogin(c *cli.Context) error {
	email := models.NormalizeEmail(c.String("email"))
	if err := app.gw.AdminLogin(c.Context, email, c.String("password")); err != nil {
		if apierr.KindOf(err) == apierr.KindUnauthorized {
			return cli.Exit("Invalid credentials", 1)
		}
		return fail(err)
	}
	fmt.Fprintf(c.App.Writer, "Signed in as admin %s\n", email)
	return nil
}

func (app *application) adminLogout(c *cli.Context) error {
	if err := app.gw.AdminLogout(c.Context); err != nil {
		app.logger.Warn().Err(err).Msg("Server admin logout failed")
	}
	fmt.Fprintln(c.App.Writer, "Signed out of admin")
	return nil
}

func (app *application) createHackathon(c *cli.Context) error {
	in, err := hackathonInput(c, models.HackathonInput{})
	if err != nil {
		return err
	}
	h, err := app.gw.CreateHackathon(c.Context, in)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.App.Writer, "Created %s (#%d)\n", h.Title, h.ID)
	return nil
}

func (app *application) updateHackathon(c *cli.Context) error {
	id, err := int64Arg(c, 0, "hackathon id")
	if err != nil {
		return err
	}
	current, err := app.gw.GetHackathon(c.Context, id)
	if err != nil {
		return fail(err)
	}
	in, err := hackathonInput(c, models.InputFrom(current))
	if err != nil {
		return err
	}
	h, err := app.gw.UpdateHackathon(c.Context, id, in)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.App.Writer, "Updated %s (#%d)\n", h.Title, h.ID)
	return nil
}

func (app *application) deleteHackathon(c *cli.Context) error {
	id, err := int64Arg(c, 0, "hackathon id")
	if err != nil {
		return err
	}
	if err := app.gw.DeleteHackathon(c.Context, id); err != nil {
		return fail(err)
	}
	fmt.Fprintf(c.App.Writer, "Deleted hackathon #%d\n", id)
	return nil
}

// hackathonInput overlays the flags the user set onto base.
func hackathonInput(c *cli.Context, base models.HackathonInput) (models.HackathonInput, error) {
	in := base
	if c.IsSet("title") {
		in.Title = c.String("title")
	}
	if c.IsSet("description") {
		in.Description = c.String("description")
	}
	if c.IsSet("pic") {
		in.Pic = c.String("pic")
	}
	if c.IsSet("location") {
		location := c.String("location")
		in.Location = &location
	}
	if c.IsSet("max-participants") {
		limit := c.Int("max-participants")
		in.MaxParticipants = &limit
	}
	for flag, dst := range map[string]*models.Date{
		"start":      &in.StartDate,
		"end":        &in.EndDate,
		"event-date": &in.EventDate,
	} {
		if !c.IsSet(flag) {
			continue
		}
		day, err := time.Parse("2006-01-02", strings.TrimSpace(c.String(flag)))
		if err != nil {
			return in, cli.Exit(fmt.Sprintf("--%s must be a date like 2026-05-01", flag), 2)
		}
		*dst = models.Date{Time: day}
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return in, cli.Exit(err.Error(), 2)
	}
	return in, nil
}

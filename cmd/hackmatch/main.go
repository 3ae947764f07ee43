package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/stanstork/hackmatch/internal/config"
	"github.com/stanstork/hackmatch/internal/gateway"
	"github.com/stanstork/hackmatch/internal/identity"
	"github.com/stanstork/hackmatch/internal/membership"
	"github.com/stanstork/hackmatch/internal/notification"
	"github.com/stanstork/hackmatch/internal/session"
)

// application holds the wired components for one CLI invocation.
type application struct {
	config   *config.Config
	logger   zerolog.Logger
	metrics  *prometheus.Registry
	gw       *gateway.Client
	store    identity.Store
	session  *session.Store
	teams    *membership.Engine
	feed     *notification.Feed
	unsubFns []func()

	// runs counts nested invocations from the shell; only the outermost tears down.
	runs     int
	restored bool
}

func main() {
	if err := newApp(&application{}).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newApp(app *application) *cli.App {
	return &cli.App{
		Name:  "hackmatch",
		Usage: "find a hackathon team from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "path to hackmatch.yaml", EnvVars: []string{"HACKMATCH_CONFIG"}},
			&cli.StringFlag{Name: "base-url", Usage: "override api.base_url"},
			&cli.StringFlag{Name: "log-level", Usage: "override log.level"},
		},
		Before:   app.setup,
		After:    app.teardown,
		Commands: app.commands(),
		// Exit codes are decided in main so the shell survives failed commands.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

func (app *application) setup(c *cli.Context) error {
	app.runs++
	if app.session != nil {
		return nil
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("base-url"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	app.config = cfg
	app.logger = newLogger(cfg.Log)

	// The store opens first: it also holds the cookies the gateway restores.
	app.store, err = identity.Open(cfg.State.Backend, cfg.State.Path, app.logger)
	if err != nil {
		return err
	}
	app.metrics = prometheus.NewRegistry()
	app.gw, err = gateway.New(gateway.Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		MaxAttempts:     cfg.API.Retry.MaxAttempts,
		InitialInterval: cfg.API.Retry.InitialInterval,
		RatePerSecond:   cfg.API.RateLimit.PerSecond,
		Burst:           cfg.API.RateLimit.Burst,
		Registerer:      app.metrics,
		Cookies:         app.store,
	}, app.logger)
	if err != nil {
		app.store.Close()
		return err
	}
	app.session = session.New(app.gw, app.store, app.logger)
	app.teams = membership.New(app.gw, app.session, app.logger)
	app.feed = notification.NewFeed(app.gw, app.session, app.logger, notification.NewLogNotifier(app.logger))
	app.unsubFns = append(app.unsubFns,
		app.session.Subscribe(app.feed.OnSession),
		app.teams.Subscribe(app.feed.Handle),
	)
	return nil
}

func (app *application) teardown(c *cli.Context) error {
	app.runs--
	if app.runs > 0 {
		return nil
	}
	for _, fn := range app.unsubFns {
		fn()
	}
	if app.store != nil {
		return app.store.Close()
	}
	return nil
}

// newLogger writes to stderr so command output on stdout stays clean.
func newLogger(cfg config.LogConfig) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	logger = logger.With().Timestamp().Logger()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.SetFlags(0)
	log.SetOutput(logger)
	return logger
}

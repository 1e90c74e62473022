package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/asearcher-monitor/internal/config"
	"github.com/agent-protocol/asearcher-monitor/internal/logging"
	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
	"github.com/agent-protocol/asearcher-monitor/pkg/monitor"
)

// Version information - will be set during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const envPrefix = "ASEARCHER_"

// state is shared by the commands of one application run. It is filled in
// by the Before hook.
type state struct {
	cfg    *config.Config
	logger zerolog.Logger
	// monitorOptions are appended to every monitor the commands build.
	monitorOptions []monitor.Option
}

// NewApp creates and configures the CLI application
func NewApp() *cli.App {
	return newApp(&state{})
}

func newApp(st *state) *cli.App {
	app := &cli.App{
		Name:    "asearcher-monitor",
		Usage:   "Submit queries to an ASearcher agent service and follow their progress",
		Version: Version,
		Commands: []*cli.Command{
			runCommand(st),
			healthCommand(st),
			submitCommand(st),
			watchCommand(st),
			mockServerCommand(st),
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{envPrefix + "CONFIG"},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Value: ".env",
				Usage: "Path to a .env file loaded before reading the environment",
			},
			&cli.StringFlag{
				Name:    "server-url",
				Aliases: []string{"s"},
				Value:   config.DefaultServerURL,
				Usage:   "Base URL of the ASearcher service",
				EnvVars: []string{envPrefix + "SERVER_URL"},
			},
			&cli.DurationFlag{
				Name:    "request-timeout",
				Value:   config.DefaultRequestTimeout,
				Usage:   "Timeout of a single HTTP request",
				EnvVars: []string{envPrefix + "REQUEST_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Logging level (trace, debug, info, warn, error)",
				EnvVars: []string{envPrefix + "LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "console",
				Usage:   "Log output format (console, json)",
				EnvVars: []string{envPrefix + "LOG_FORMAT"},
			},
			&cli.BoolFlag{
				Name:    "strict",
				Usage:   "Exit with status 1 when the run does not complete successfully",
				EnvVars: []string{envPrefix + "STRICT"},
			},
		},
		Before: st.before,
	}

	// Custom help template
	cli.AppHelpTemplate = `NAME:
   {{.Name}} - {{.Usage}}

USAGE:
   {{.HelpName}} {{if .VisibleFlags}}[global options]{{end}}{{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}
   {{if .Commands}}
COMMANDS:
{{range .Commands}}{{if not .HideHelp}}   {{join .Names ", "}}{{ "\t"}}{{.Usage}}{{ "\n" }}{{end}}{{end}}{{end}}{{if .VisibleFlags}}
GLOBAL OPTIONS:
   {{range .VisibleFlags}}{{.}}
   {{end}}{{end}}{{if .Version}}
VERSION:
   {{.Version}}
   {{end}}
`

	return app
}

// before loads configuration in order: defaults, YAML file, .env, then
// environment and flags.
func (st *state) before(c *cli.Context) error {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.IsSet("server-url") {
		cfg.ServerURL = c.String("server-url")
	}
	if c.IsSet("request-timeout") {
		cfg.RequestTimeout = c.Duration("request-timeout")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("strict") {
		cfg.Strict = c.Bool("strict")
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	st.cfg = cfg
	st.logger = logging.NewWithWriter(cfg.Log, c.App.ErrWriter)
	st.logger.Debug().
		Str("server_url", cfg.ServerURL).
		Dur("poll_interval", cfg.PollInterval).
		Dur("poll_timeout", cfg.PollTimeout).
		Msg("configuration loaded")
	return nil
}

func (st *state) newClient() (*asearcher.Client, error) {
	logger := st.logger
	return asearcher.NewClient(st.cfg.ServerURL, &asearcher.ClientConfig{
		Timeout: st.cfg.RequestTimeout,
		Logger:  &logger,
	})
}

func (st *state) newMonitor(client monitor.Service, out io.Writer) *monitor.Monitor {
	opts := append([]monitor.Option{monitor.WithLogger(st.logger)}, st.monitorOptions...)
	return monitor.New(client, out, st.cfg.MonitorConfig(), opts...)
}

// finish turns the result of a run into the command's return value. Failures
// were already printed by the monitor; they only change the exit status in
// strict mode.
func (st *state) finish(renderer *monitor.Renderer, outcome *monitor.Outcome, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			renderer.Interrupted()
			st.logger.Info().Msg("interrupted by user")
			return nil
		}
		st.logger.Error().Err(err).Msg("run aborted")
		return st.failure(err)
	}

	if outcomeErr := outcome.Err(); outcomeErr != nil {
		st.logger.Warn().Err(outcomeErr).Str("state", string(outcome.State)).Msg("query did not complete")
		return st.failure(outcomeErr)
	}
	if outcome.State == monitor.OutcomeCancelled {
		return st.failure(fmt.Errorf("query %s was cancelled", outcome.QueryID))
	}
	return nil
}

func (st *state) failure(err error) error {
	if !st.cfg.Strict {
		return nil
	}
	return cli.Exit(err.Error(), 1)
}

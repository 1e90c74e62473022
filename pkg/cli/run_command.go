package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/asearcher-monitor/pkg/asearcher"
	"github.com/agent-protocol/asearcher-monitor/pkg/monitor"
)

// queryFlags are the job descriptor fields accepted by run and submit
func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "max-turns",
			Value: asearcher.DefaultMaxTurns,
			Usage: "Maximum number of agent turns",
		},
		&cli.StringFlag{
			Name:  "search-client-type",
			Value: asearcher.DefaultSearchClientType,
			Usage: "Search backend used by the agent",
		},
		&cli.BoolFlag{
			Name:  "use-jina",
			Value: asearcher.DefaultUseJina,
			Usage: "Fetch web pages through Jina",
		},
		&cli.Float64Flag{
			Name:  "temperature",
			Value: asearcher.DefaultTemperature,
			Usage: "Sampling temperature",
		},
		&cli.IntFlag{
			Name:  "max-tokens-per-call",
			Value: asearcher.DefaultMaxTokensPerCall,
			Usage: "Token limit of a single model call",
		},
		&cli.StringFlag{
			Name:  "agent-type",
			Value: asearcher.DefaultAgentType,
			Usage: "Agent implementation to run",
		},
		&cli.StringFlag{
			Name:  "prompt-type",
			Value: asearcher.DefaultPromptType,
			Usage: "Prompt variant used by the agent",
		},
	}
}

// pollFlags control the progress poller
func pollFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:    "poll-interval",
			Value:   monitor.DefaultPollInterval,
			Usage:   "Delay between two polls",
			EnvVars: []string{envPrefix + "POLL_INTERVAL"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Value:   monitor.DefaultPollTimeout,
			Usage:   "Give up monitoring after this long",
			EnvVars: []string{envPrefix + "POLL_TIMEOUT"},
		},
	}
}

// runCommand creates the 'run' command
func runCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Checks service health, submits a query and follows it to the end",
		ArgsUsage: "[QUERY]",
		Flags:     append(queryFlags(), pollFlags()...),
		Action:    st.runCommandAction,
	}
}

func (st *state) runCommandAction(c *cli.Context) error {
	st.applyPollFlags(c)
	req := st.queryRequest(c)

	ctx, stop := signalContext(c.Context)
	defer stop()

	client, err := st.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	m := st.newMonitor(client, c.App.Writer)
	outcome, err := m.Run(ctx, req)
	return st.finish(m.Renderer(), outcome, err)
}

// queryRequest builds the job descriptor from configuration, flags and the
// optional positional argument. Values are not validated here.
func (st *state) queryRequest(c *cli.Context) *asearcher.QueryRequest {
	req := st.cfg.Query

	if query := strings.Join(c.Args().Slice(), " "); query != "" {
		req.Query = query
	}
	if c.IsSet("max-turns") {
		req.MaxTurns = c.Int("max-turns")
	}
	if c.IsSet("search-client-type") {
		req.SearchClientType = c.String("search-client-type")
	}
	if c.IsSet("use-jina") {
		req.UseJina = c.Bool("use-jina")
	}
	if c.IsSet("temperature") {
		req.Temperature = c.Float64("temperature")
	}
	if c.IsSet("max-tokens-per-call") {
		req.MaxTokensPerCall = c.Int("max-tokens-per-call")
	}
	if c.IsSet("agent-type") {
		req.AgentType = c.String("agent-type")
	}
	if c.IsSet("prompt-type") {
		req.PromptType = c.String("prompt-type")
	}

	return &req
}

func (st *state) applyPollFlags(c *cli.Context) {
	if c.IsSet("poll-interval") {
		st.cfg.PollInterval = c.Duration("poll-interval")
	}
	if c.IsSet("timeout") {
		st.cfg.PollTimeout = c.Duration("timeout")
	}
}

// signalContext is cancelled on interrupt or SIGTERM. No cancel request is
// sent to the service; the remote query keeps running.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

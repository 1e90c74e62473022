package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/asearcher-monitor/internal/mockserver"
)

// mockServerCommand creates the 'mock-server' command
func mockServerCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:  "mock-server",
		Usage: "Starts a local stand-in for the ASearcher service with scripted progress",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Address to listen on (default from config, 127.0.0.1:8080)",
				EnvVars: []string{envPrefix + "MOCK_ADDR"},
			},
			&cli.StringFlag{
				Name:    "scenario",
				Usage:   "YAML file describing the scripted steps",
				EnvVars: []string{envPrefix + "MOCK_SCENARIO"},
			},
			&cli.StringSliceFlag{
				Name:  "allow-origins",
				Usage: "CORS origins allowed to call the mock (default: any)",
			},
		},
		Action: st.mockServerCommandAction,
	}
}

func (st *state) mockServerCommandAction(c *cli.Context) error {
	mock := st.cfg.Mock
	if c.IsSet("addr") {
		mock.Addr = c.String("addr")
	}
	if c.IsSet("scenario") {
		mock.ScenarioPath = c.String("scenario")
	}
	if c.IsSet("allow-origins") {
		mock.AllowOrigins = c.StringSlice("allow-origins")
	}

	scenario := mockserver.DefaultScenario()
	if mock.ScenarioPath != "" {
		loaded, err := mockserver.LoadScenario(mock.ScenarioPath)
		if err != nil {
			return err
		}
		scenario = loaded
	}

	ctx, stop := signalContext(c.Context)
	defer stop()

	logger := st.logger
	server := mockserver.New(mockserver.Config{
		Scenario:     scenario,
		AllowOrigins: mock.AllowOrigins,
		Logger:       &logger,
	})

	fmt.Fprintf(c.App.Writer, "🚀 Mock ASearcher service listening on http://%s\n", mock.Addr)
	fmt.Fprintf(c.App.Writer, "   Scripted steps: %d, revealed %d per poll\n", len(scenario.Steps), scenario.StepsPerPoll)
	return server.ListenAndServe(ctx, mock.Addr)
}

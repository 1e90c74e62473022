package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/agent-protocol/asearcher-monitor/pkg/monitor"
)

// healthCommand creates the 'health' command
func healthCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Checks that the service and its model backend are ready",
		Action: st.healthCommandAction,
	}
}

func (st *state) healthCommandAction(c *cli.Context) error {
	ctx, stop := signalContext(c.Context)
	defer stop()

	client, err := st.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	renderer := monitor.NewRenderer(c.App.Writer)
	renderer.Phase(1, "Health check")
	if _, err := monitor.Probe(ctx, client, renderer); err != nil {
		return st.finish(renderer, nil, err)
	}
	return nil
}

// submitCommand creates the 'submit' command
func submitCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Submits a query without following it and prints its id",
		ArgsUsage: "[QUERY]",
		Flags:     queryFlags(),
		Action:    st.submitCommandAction,
	}
}

func (st *state) submitCommandAction(c *cli.Context) error {
	req := st.queryRequest(c)

	ctx, stop := signalContext(c.Context)
	defer stop()

	client, err := st.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	renderer := monitor.NewRenderer(c.App.Writer)
	renderer.Phase(1, "Submitting query")
	handle, err := monitor.Submit(ctx, client, renderer, req)
	if err != nil {
		return st.finish(renderer, nil, err)
	}

	st.logger.Info().Str("query_id", handle.QueryID).Msg("query submitted")
	fmt.Fprintln(c.App.Writer, handle.QueryID)
	return nil
}

// watchCommand creates the 'watch' command
func watchCommand(st *state) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Follows a previously submitted query until it finishes",
		ArgsUsage: "QUERY_ID",
		Flags:     pollFlags(),
		Action:    st.watchCommandAction,
	}
}

func (st *state) watchCommandAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("watch requires exactly one QUERY_ID argument")
	}
	st.applyPollFlags(c)

	ctx, stop := signalContext(c.Context)
	defer stop()

	client, err := st.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	m := st.newMonitor(client, c.App.Writer)
	outcome, err := m.Watch(ctx, c.Args().First())
	return st.finish(m.Renderer(), outcome, err)
}

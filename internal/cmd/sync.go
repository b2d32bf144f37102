package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/clintrovert/taskbridge/internal/config"
	"github.com/clintrovert/taskbridge/internal/leader"
	"github.com/clintrovert/taskbridge/internal/report"
	"github.com/clintrovert/taskbridge/pkg/types"
)

type eventRunner interface {
	Run(ctx context.Context, event *types.TaskEvent) (*leader.Result, error)
}

type runnerFactory func() (eventRunner, func(), error)

// NewSyncCommand creates and returns the sync subcommand
func NewSyncCommand() *cobra.Command {
	return newSyncCommand(engineFromEnv)
}

func newSyncCommand(newRunner runnerFactory) *cobra.Command {
	var eventPath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one webhook payload through the sync engine",
		Long: `Process a saved webhook payload exactly as the server would: create
branches and issues in every referenced repository and update the tracker
item. Configuration is read from the same environment variables as the
server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := readEvent(eventPath)
			if err != nil {
				return err
			}

			runner, cleanup, err := newRunner()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := runner.Run(cmd.Context(), event)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&eventPath, "event", "e", "", "path to the webhook payload (- for stdin)")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func engineFromEnv() (eventRunner, func(), error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}
	logger, err := env.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	engine, err := leader.NewEngineFromEnv(env, logger)
	if err != nil {
		return nil, nil, err
	}
	return engine, func() { _ = logger.Sync() }, nil
}

func printResult(output io.Writer, result *leader.Result) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	if len(result.Outcomes) == 0 {
		gray.Fprintln(output, result.Message)
		return
	}

	cyan.Fprintf(output, "Processed %d repositories:\n", len(result.Outcomes))
	for _, o := range result.Outcomes {
		c := gray
		switch {
		case o.Succeeded():
			c = green
		case o.Partial():
			c = yellow
		case o.Kind == types.OutcomeFailed:
			c = red
		}
		c.Fprintf(output, "  %s %s\n", report.Icon(o), o.Item.FullName())
		fmt.Fprintf(output, "      %s\n", report.Describe(o))
	}
}

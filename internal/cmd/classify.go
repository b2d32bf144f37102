package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clintrovert/taskbridge/internal/classifier"
	"github.com/clintrovert/taskbridge/internal/github"
)

type classifyOptions struct {
	eventPath        string
	apiURL           string
	statusInProgress string
	statusDone       string
}

// NewClassifyCommand creates and returns the classify subcommand
func NewClassifyCommand() *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Print the repository work items derived from a webhook payload",
		Long: `Parse a saved webhook payload and print, as YAML, one work item per
GitHub repository URL found in the task description. No remote calls are
made.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(opts, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.eventPath, "event", "e", "", "path to the webhook payload (- for stdin)")
	cmd.Flags().StringVar(&opts.apiURL, "api-url", github.DefaultAPIURL, "GitHub API root repository URLs are matched against")
	cmd.Flags().StringVar(&opts.statusInProgress, "status-in-progress", classifier.DefaultStatusInProgress, "status that starts development")
	cmd.Flags().StringVar(&opts.statusDone, "status-done", classifier.DefaultStatusDone, "status that closes issues")
	_ = cmd.MarkFlagRequired("event")

	return cmd
}

func runClassify(opts *classifyOptions, output io.Writer) error {
	event, err := readEvent(opts.eventPath)
	if err != nil {
		return err
	}

	c := classifier.New(opts.apiURL, opts.statusInProgress, opts.statusDone)
	items, err := c.Classify(event)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(output)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("failed to encode work items: %w", err)
	}
	return enc.Close()
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/clintrovert/taskbridge/pkg/types"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for taskbridge
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taskbridge",
		Short: "Synchronize tracker tasks with GitHub branches and issues",
		Long: `Taskbridge reacts to project tracker webhooks by creating branches and
issues in every GitHub repository referenced by a task, then reports the
consolidated result back to the task.

The classify and sync commands run a single saved webhook payload, which is
useful for replaying deliveries and checking configuration.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewClassifyCommand())
	cmd.AddCommand(NewSyncCommand())

	return cmd
}

// readEvent loads a webhook payload from path, or stdin when path is "-"
func readEvent(path string) (*types.TaskEvent, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}

	var event types.TaskEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	return &event, nil
}

package main

import (
	"fmt"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/internal/activities"
	"github.com/clintrovert/taskbridge/internal/config"
	"github.com/clintrovert/taskbridge/internal/leader"
	workflows "github.com/clintrovert/taskbridge/internal/temporal/workflows"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if !env.Async() {
		fmt.Fprintln(os.Stderr, "configuration error: TEMPORAL_ADDRESS is required for the worker")
		os.Exit(1)
	}

	logger, err := env.NewLogger()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  env.TemporalAddress,
		Namespace: env.TemporalNamespace,
	})
	if err != nil {
		logger.Fatal("failed to create temporal client", zap.Error(err))
	}
	defer c.Close()

	engine, err := leader.NewEngineFromEnv(env, logger)
	if err != nil {
		logger.Fatal("failed to create sync engine", zap.Error(err))
	}

	// Initialize activities
	activities.SetSyncActivities(activities.NewSyncActivities(engine))

	w := worker.New(c, env.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: env.MaxConcurrency,
	})
	w.RegisterWorkflow(workflows.TaskSyncWorkflow)
	w.RegisterActivity(activities.SyncEventActivity)

	logger.Info("starting worker",
		zap.String("task_queue", env.TaskQueue),
		zap.String("namespace", env.TemporalNamespace),
	)

	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("worker failed", zap.Error(err))
	}

	logger.Info("worker stopped")
}

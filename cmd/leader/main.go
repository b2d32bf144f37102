package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	grpcapi "github.com/clintrovert/taskbridge/internal/api/grpc"
	"github.com/clintrovert/taskbridge/internal/api/rest"
	"github.com/clintrovert/taskbridge/internal/classifier"
	"github.com/clintrovert/taskbridge/internal/config"
	"github.com/clintrovert/taskbridge/internal/leader"
	"github.com/clintrovert/taskbridge/internal/temporal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := env.NewLogger()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	defer logger.Sync()

	// Events are processed in the request unless Temporal is configured
	var restHandler *rest.Handler
	if env.Async() {
		temporalClient, err := temporal.NewClient(env.TemporalAddress, env.TemporalNamespace, env.TaskQueue, logger)
		if err != nil {
			logger.Fatal("failed to create temporal client", zap.Error(err))
		}
		defer temporalClient.Close()

		validator := classifier.New(env.APIURL, env.StatusInProgress, env.StatusDone)
		restHandler = rest.NewAsyncHandler(validator, temporalClient, logger)
		logger.Info("dispatching events to temporal",
			zap.String("address", env.TemporalAddress),
			zap.String("task_queue", env.TaskQueue),
		)
	} else {
		engine, err := leader.NewEngineFromEnv(env, logger)
		if err != nil {
			logger.Fatal("failed to create sync engine", zap.Error(err))
		}
		restHandler = rest.NewHandler(engine, logger)
	}

	// Setup REST API
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	restHandler.RegisterRoutes(router)

	restAddr := fmt.Sprintf(":%s", env.RESTPort)
	restServer := &http.Server{
		Addr:              restAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting REST API server", zap.String("address", restAddr))
		if err := restServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start REST server", zap.Error(err))
		}
	}()

	// Start gRPC health server
	grpcAddr := fmt.Sprintf(":%s", env.GRPCPort)
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Fatal("failed to listen on gRPC port", zap.Error(err))
	}

	healthServer := grpcapi.NewServer(logger)
	grpcSrv := grpc.NewServer()
	healthServer.Register(grpcSrv)

	go func() {
		logger.Info("starting gRPC server", zap.String("address", grpcAddr))
		if err := grpcSrv.Serve(grpcListener); err != nil {
			logger.Fatal("failed to start gRPC server", zap.Error(err))
		}
	}()
	healthServer.SetServing()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("REST server shutdown", zap.Error(err))
	}
	grpcSrv.GracefulStop()

	logger.Info("shutdown complete")
}

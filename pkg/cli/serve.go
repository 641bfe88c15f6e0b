package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/prospector/pkg/cli/config"
	controller "github.com/m-mizutani/prospector/pkg/controller/http"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	githubinfra "github.com/m-mizutani/prospector/pkg/infra/github"
	"github.com/m-mizutani/prospector/pkg/infra/memory"
	"github.com/m-mizutani/prospector/pkg/infra/postgres"
	"github.com/m-mizutani/prospector/pkg/infra/serper"
	"github.com/m-mizutani/prospector/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg   config.Server
		githubCfg   config.GitHub
		geminiCfg   config.Gemini
		serperCfg   config.Serper
		databaseCfg config.Database
		workerCfg   config.Worker
	)

	flags := serverCfg.Flags()
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, geminiCfg.Flags()...)
	flags = append(flags, serperCfg.Flags()...)
	flags = append(flags, databaseCfg.Flags()...)
	flags = append(flags, workerCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the scheduler and HTTP API",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting prospector server",
				slog.String("addr", serverCfg.Addr),
				slog.Duration("check_interval", workerCfg.CheckInterval),
				slog.Int64("max_concurrent_jobs", workerCfg.MaxConcurrentJobs),
			)

			// Storage: PostgreSQL when configured, in-memory otherwise
			var store interfaces.Store
			if databaseCfg.URL != "" {
				pg, err := postgres.New(ctx, databaseCfg.URL)
				if err != nil {
					return goerr.Wrap(err, "failed to connect to database")
				}
				defer pg.Close()
				store = pg
				logger.Info("Using PostgreSQL store")
			} else {
				store = memory.New()
				logger.Warn("No database URL configured, state is lost on restart")
			}

			githubClient, err := githubinfra.NewClient(githubCfg.Token)
			if err != nil {
				return goerr.Wrap(err, "failed to create GitHub client")
			}

			var searchClient interfaces.SearchClient
			if serperCfg.Enabled() {
				searchClient, err = serper.NewClient(serperCfg.APIKey)
				if err != nil {
					return goerr.Wrap(err, "failed to create search client")
				}
			} else {
				logger.Warn("No Serper API key configured, social profile search is disabled")
			}

			var llmClient gollem.LLMClient
			if geminiCfg.Enabled() {
				llmClient, err = gemini.New(ctx, geminiCfg.Location, geminiCfg.ProjectID,
					gemini.WithModel(geminiCfg.Model),
				)
				if err != nil {
					return goerr.Wrap(err, "failed to create Gemini client")
				}
			} else {
				logger.Warn("No Gemini project configured, using rule-based classification")
			}

			classifier, err := usecase.NewClassifier(llmClient)
			if err != nil {
				return goerr.Wrap(err, "failed to create classifier")
			}

			executor := usecase.NewExecutor(store, githubClient, searchClient, classifier,
				usecase.WithContributorLimit(workerCfg.ContributorLimit),
				usecase.WithStargazerLimit(workerCfg.StargazerLimit),
				usecase.WithAuthoredCounts(workerCfg.FetchPRIssueCounts),
			)
			admitter := usecase.NewAdmitter(store, workerCfg.MaxConcurrentJobs)
			scheduler := usecase.NewScheduler(store, admitter, executor,
				usecase.WithInterval(workerCfg.CheckInterval),
			)
			jobUC := usecase.NewJobs(store, usecase.WithWaker(scheduler))

			server, err := controller.NewServer(
				ctx,
				jobUC,
				controller.WithAddr(serverCfg.Addr),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Run the scheduler until shutdown
			schedCtx, stopScheduler := context.WithCancel(ctx)
			defer stopScheduler()
			schedDone := make(chan error, 1)
			go func() {
				schedDone <- scheduler.Run(schedCtx)
			}()

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			stopScheduler()
			if err := <-schedDone; err != nil {
				logger.Error("Scheduler exited with error", slog.Any("error", err))
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}

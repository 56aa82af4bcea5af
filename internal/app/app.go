// Package app initializes and runs the bot process: configuration, logger,
// database with migrations, services, the long-poll loop and the admin HTTP
// server, all shut down together on a signal.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/neuronai/neuronbot/internal/access"
	"github.com/neuronai/neuronbot/internal/adminapi"
	"github.com/neuronai/neuronbot/internal/config"
	"github.com/neuronai/neuronbot/internal/convstate"
	"github.com/neuronai/neuronbot/internal/dispatch"
	"github.com/neuronai/neuronbot/internal/flows"
	"github.com/neuronai/neuronbot/internal/interview"
	"github.com/neuronai/neuronbot/internal/logging"
	"github.com/neuronai/neuronbot/internal/n8n"
	"github.com/neuronai/neuronbot/internal/repositories/repomanager"
	"github.com/neuronai/neuronbot/internal/telegram"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	poller *telegram.Poller
	admin  *adminapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	accessService := access.NewService(db, repos, cfg.AccessWindow)
	collab := n8n.NewClient(logger, cfg.CollaboratorTimeout, cfg.UnreadyRetryAttempts, cfg.UnreadyRetryInterval)
	interviewService := interview.NewService(db, repos, collab, cfg.InterviewWebhookURL, logger)

	bot := telegram.NewClient(cfg.BotAPIBaseURL, cfg.BotToken)
	tracker := convstate.NewTracker()

	gate := dispatch.NewGate(accessService, cfg.DisplayTimezone, logger)
	dispatcher := dispatch.NewDispatcher(gate, tracker, bot, logger)

	allFlows := flows.New(bot, tracker, accessService, interviewService, collab, flows.Webhooks{
		Interview: cfg.InterviewWebhookURL,
		Sales:     cfg.SalesWebhookURL,
		CVScan:    cfg.CVScanWebhookURL,
		Ticket:    cfg.TicketWebhookURL,
		Safety:    cfg.SafetyWebhookURL,
		Knowledge: cfg.KnowledgeWebhookURL,
	}, cfg.ManagerChatID, logger)
	allFlows.Register(dispatcher)

	poller := telegram.NewPoller(bot, dispatcher, logger)

	admin := adminapi.NewServer(accessService, cfg.AdminUser, cfg.AdminPasswordHash,
		[]byte(cfg.AdminJWTSecret), cfg.AdminTokenValidity, logger)

	return &App{config: cfg, logger: logger, db: db, poller: poller, admin: admin}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startPoller(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.poller.Run(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startAdminServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{Addr: app.config.AdminAddr, Handler: app.admin.Router()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "admin api listening", "addr", app.config.AdminAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startPoller(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startAdminServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}

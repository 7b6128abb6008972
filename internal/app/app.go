package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"supermock/internal/auth"
	"supermock/internal/config"
	"supermock/internal/pendingauth"
	"supermock/internal/scheduler"
	"supermock/internal/service"
	"supermock/internal/storage"
	"supermock/internal/telegram"
	"supermock/internal/worker"
)

// Application holds all the major components of the service.
type Application struct {
	Config        *config.Config
	Logger        logrus.FieldLogger
	Storage       *storage.SQLiteStorage
	Bot           *telegram.Service
	Registry      *pendingauth.Registry
	Auth          *auth.Service
	Users         *service.UserService
	Interviews    *service.InterviewService
	WorkerPool    *worker.WorkerPool
	Scheduler     *scheduler.Scheduler
	HTTPServer    *http.Server
	MetricsServer *http.Server

	validate *validator.Validate
	handler  http.Handler
	cancel   context.CancelFunc
}

// Option customises New.
type Option func(*options)

type options struct {
	botEndpoint string
	httpClient  *http.Client
}

// WithBotAPI points the bot at another Bot API endpoint (format
// "https://host/bot%s/%s").
func WithBotAPI(endpoint string, client *http.Client) Option {
	return func(o *options) {
		o.botEndpoint = endpoint
		o.httpClient = client
	}
}

// New creates and initializes a new Application instance.
func New(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, opts ...Option) (*Application, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	// Setup: Database
	dbCfg := storage.Config{
		Path:            cfg.DB.Path,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime.Duration,
		BusyTimeout:     cfg.DB.BusyTimeout.Duration,
	}
	store, err := storage.OpenDatabase(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Setup: Telegram bot
	var bot *telegram.Service
	if o.botEndpoint != "" {
		bot, err = telegram.NewServiceWithEndpoint(cfg.Telegram.BotToken, o.botEndpoint, o.httpClient, logger.WithField("component", "bot"))
	} else {
		bot, err = telegram.NewService(cfg.Telegram.BotToken, logger.WithField("component", "bot"))
	}
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	// Setup: WorkerPool
	pool := worker.NewWorkerPool(cfg.NumWorkers, worker.Options{
		MaxRetries:   3,
		OnDeadLetter: service.NotificationDeadLetter,
	}, logger.WithField("component", "worker"))

	// Setup: Auth
	var prober pendingauth.Prober
	if cfg.Telegram.ProbeFallback {
		prober = bot
		logger.Warn("Bot login probe fallback enabled")
	}
	registry := pendingauth.NewRegistry(
		pendingauth.NewInMemoryStore(cfg.Telegram.PendingAuthTTL.Duration),
		prober,
		logger.WithField("component", "pendingauth"),
	)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL.Duration)
	verifier := telegram.NewVerifier(cfg.Telegram.BotToken, cfg.Telegram.AuthMaxAge.Duration)
	authService := auth.NewService(store, tokens, verifier, registry, cfg.Telegram.BotUsername, logger.WithField("component", "auth"))
	bot.SetStartHandler(authService.HandleBotStart)

	// Setup: Services
	notifier := service.NewBotNotifier(pool, bot, logger.WithField("component", "notifier"))
	users := service.NewUserService(store, logger.WithField("component", "users"))
	interviews := service.NewInterviewService(store, notifier, logger.WithField("component", "interviews"))

	// Setup: Scheduler
	sched := scheduler.NewScheduler(ctx, logger.WithField("component", "scheduler"))
	if err := scheduler.RegisterHousekeeping(sched, registry, store); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	app := &Application{
		Config:     cfg,
		Logger:     logger,
		Storage:    store,
		Bot:        bot,
		Registry:   registry,
		Auth:       authService,
		Users:      users,
		Interviews: interviews,
		WorkerPool: pool,
		Scheduler:  sched,
		validate:   validator.New(),
	}
	app.handler = app.routes()

	// Setup: HTTP Server for metrics
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	app.MetricsServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Setup: Main HTTP Server
	app.HTTPServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return app, nil
}

// Handler returns the HTTP handler of the API.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Start begins the application's services. Listener failures are reported
// on the returned channel.
func (a *Application) Start(ctx context.Context) <-chan error {
	errs := make(chan error, 2)
	ctx, a.cancel = context.WithCancel(ctx)

	a.WorkerPool.Start()
	a.Scheduler.Start()

	if a.Config.Telegram.Polling {
		go a.Bot.StartPolling(ctx)
		a.Logger.Info("Telegram polling started")
	}

	serve := func(name string, srv *http.Server) {
		a.Logger.WithField("addr", srv.Addr).Infof("Starting %s server", name)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go serve("metrics", a.MetricsServer)
	go serve("HTTP", a.HTTPServer)

	return errs
}

// Stop gracefully shuts down the application's services.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.Info("Stopping application services")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.WithError(err).Warn("HTTP server shutdown error")
	}
	if err := a.MetricsServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.WithError(err).Warn("Metrics server shutdown error")
	}

	a.Scheduler.Stop(shutdownCtx)

	// Stops bot polling.
	if a.cancel != nil {
		a.cancel()
	}

	a.WorkerPool.Stop(shutdownCtx)

	if err := a.Storage.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	a.Logger.Info("Application stopped gracefully")
	return nil
}

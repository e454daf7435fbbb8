package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/learnquest/learnquest/internal/api"
	"github.com/learnquest/learnquest/internal/app/coach"
	"github.com/learnquest/learnquest/internal/app/engagement"
	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/health"
	"github.com/learnquest/learnquest/internal/infra/sqlstore"
	"github.com/learnquest/learnquest/internal/logging"
)

// Version is stamped at build time.
var Version = "dev"

// Daemon is the core learnquest runtime. It wires together all services.
type Daemon struct {
	Config     Config
	Logger     *logging.Logger
	Store      *sqlstore.DB
	Engagement *engagement.Service
	Coach      *coach.Service
	Health     *health.Checker
	Server     *api.Server
	cancel     context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, _ := cfg.Location()

	logger, err := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxFiles:   cfg.Logging.MaxFiles,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Stderr:     cfg.Logging.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	store, err := OpenStore(cfg)
	if err != nil {
		logger.Close()
		return nil, err
	}

	engage := NewEngagement(cfg, store, loc, logger.Component("engagement"))

	coachSvc, err := NewCoach(cfg, logger.Component("coach"))
	if err != nil {
		store.Close()
		logger.Close()
		return nil, err
	}

	checker := health.NewChecker(store, cfg.Storage.Dir, coachSvc)

	srv := api.NewServer(engage, coachSvc, checker, api.Config{
		DefaultUser:     domain.UserID(cfg.User.DefaultID),
		DefaultUsername: cfg.User.DefaultName,
		CORSOrigins:     cfg.API.CORSOrigins,
		RequestTimeout:  parseDuration(cfg.API.RequestTimeout, api.DefaultRequestTimeout),
		Metrics:         cfg.Telemetry.Prometheus,
		Version:         Version,
		Logger:          logger.Component("api"),
	})

	logger.Info("daemon initialized",
		"driver", store.Dialect(),
		"coach", coachSvc.Backend(),
		"timezone", loc.String(),
	)

	return &Daemon{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Engagement: engage,
		Coach:      coachSvc,
		Health:     checker,
		Server:     srv,
	}, nil
}

// OpenStore opens the configured database.
func OpenStore(cfg Config) (*sqlstore.DB, error) {
	switch cfg.Storage.Driver {
	case DriverPostgres:
		dsn, err := cfg.ResolveDSN()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		db, err := sqlstore.OpenPostgres(dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	default:
		dir := cfg.Storage.Dir
		if dir == "" {
			dir = learnquestHome()
		}
		db, err := sqlstore.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return db, nil
	}
}

// NewEngagement builds the progression engine over store.
func NewEngagement(cfg Config, store domain.Store, loc *time.Location, logger *log.Logger) *engagement.Service {
	return engagement.NewService(store, engagement.Options{
		Location:      loc,
		SeedPlan:      cfg.Plan.SeedDefault,
		WeakThreshold: cfg.Plan.WeakThreshold,
		Logger:        logger,
	})
}

// NewCoach builds the configured coach backend wrapped in its timeouts.
func NewCoach(cfg Config, logger *log.Logger) (*coach.Service, error) {
	var backend domain.Coach
	switch cfg.Coach.Backend {
	case CoachScript:
		backend = coach.NewScriptCoach(cfg.Coach.Interpreter, cfg.Coach.Script)
	case CoachOllama:
		backend = coach.NewOllamaCoach(coach.OllamaConfig{
			Endpoint:      cfg.Coach.OllamaEndpoint,
			Model:         cfg.Coach.OllamaModel,
			MaxRetries:    cfg.Coach.OllamaRetries,
			WeakThreshold: cfg.Plan.WeakThreshold,
		})
	case CoachLocal, "":
		backend = coach.NewLocalCoach(cfg.Plan.WeakThreshold)
	default:
		return nil, fmt.Errorf("unknown coach backend %q", cfg.Coach.Backend)
	}
	name := cfg.Coach.Backend
	if name == "" {
		name = CoachLocal
	}
	return coach.NewService(backend, name, coach.Config{
		AnalyzeTimeout:    parseDuration(cfg.Coach.AnalyzeTimeout, coach.DefaultAnalyzeTimeout),
		SuggestionTimeout: parseDuration(cfg.Coach.SuggestionTimeout, coach.DefaultSuggestionTimeout),
		Logger:            logger,
	}), nil
}

// Addr is the listen address.
func (d *Daemon) Addr() string {
	return fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	defer cancel()

	// Health checker (always runs)
	go d.Health.Run(ctx)

	addr := d.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-sigCh:
			d.Logger.Info("shutting down", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			d.Logger.Warn("http shutdown", "err", err)
		}
	}()

	fmt.Printf("learnquest serving on http://%s\n", addr)
	fmt.Printf("  Storage: %s  Coach: %s\n", d.Store.Dialect(), d.Coach.Backend())
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}
	d.Logger.Info("serving", "addr", addr)

	err := httpServer.ListenAndServe()
	cancel()
	<-done
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Store != nil {
		_ = d.Store.Close()
	}
	if d.Logger != nil {
		_ = d.Logger.Close()
	}
}

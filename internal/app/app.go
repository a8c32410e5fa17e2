package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/TWRT/sprint-manager/internal/api"
	"github.com/TWRT/sprint-manager/internal/client/calendar"
	"github.com/TWRT/sprint-manager/internal/client/identity"
	"github.com/TWRT/sprint-manager/internal/config"
	"github.com/TWRT/sprint-manager/internal/metrics"
	"github.com/TWRT/sprint-manager/internal/repository"
	"github.com/TWRT/sprint-manager/internal/service"
)

// App is the set of components built once at startup and shared by every
// request. Nothing in the service reaches for process-wide state.
type App struct {
	Config  config.Config
	DB      *sql.DB
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Journal *repository.DivergenceRepository
	Sync    *service.SyncService
	Handler http.Handler
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	m := metrics.New()

	calendarClient := calendar.NewCalendarClient(cfg.CalendarBaseURL, cfg.SessionCookie, cfg.ClientTimeout)
	identityClient := identity.NewIdentityClient(cfg.IdentityBaseURL, cfg.SessionCookie, cfg.ClientTimeout)
	taskRepo := repository.NewTaskRepository(db)
	journal := repository.NewDivergenceRepository(db)

	syncService := service.NewSyncService(calendarClient, taskRepo, m, logger, service.WithJournal(journal))

	handler := api.SetupRouter(api.RouterDeps{
		SyncService:   syncService,
		Identity:      identityClient,
		SessionCookie: cfg.SessionCookie,
		Logger:        logger,
		Metrics:       m,
	})

	return &App{
		Config:  cfg,
		DB:      db,
		Logger:  logger,
		Metrics: m,
		Journal: journal,
		Sync:    syncService,
		Handler: handler,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

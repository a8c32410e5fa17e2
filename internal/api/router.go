package api

import (
	"log/slog"
	"net/http"

	"github.com/TWRT/sprint-manager/internal/api/handlers"
	"github.com/TWRT/sprint-manager/internal/api/middleware"
	"github.com/TWRT/sprint-manager/internal/client"
	"github.com/TWRT/sprint-manager/internal/metrics"
	"github.com/TWRT/sprint-manager/internal/service"
)

type RouterDeps struct {
	SyncService   *service.SyncService
	Identity      client.IdentityResolver
	SessionCookie string
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

func SetupRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	taskHandler := handlers.NewTaskHandler(deps.SyncService, deps.Logger)
	requireIdentity := middleware.RequireIdentity(deps.Identity, deps.SessionCookie, deps.Logger, deps.Metrics)

	mux.HandleFunc("GET /{$}", handlers.Health)

	mux.Handle("GET /all", requireIdentity(http.HandlerFunc(taskHandler.ListTasks)))
	mux.Handle("POST /add", requireIdentity(http.HandlerFunc(taskHandler.AddTask)))
	mux.Handle("DELETE /delete", requireIdentity(http.HandlerFunc(taskHandler.DeleteTask)))
	mux.Handle("PUT /update-task", requireIdentity(http.HandlerFunc(taskHandler.UpdateTask)))
	mux.Handle("PATCH /update-task", requireIdentity(http.HandlerFunc(taskHandler.UpdateTask)))

	return middleware.RequestLogging(deps.Logger, deps.Metrics)(mux)
}

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/garnizeh/mockinterview/internal/config"
	"github.com/garnizeh/mockinterview/internal/interview"
	"github.com/garnizeh/mockinterview/pkg/repository"
)

// Deps are the collaborators the routes are built from.
type Deps struct {
	Store     repository.Store
	Interview *interview.Service
	Checks    []HealthCheck
	// Audio serves stored clips under /audio/; nil disables the route.
	Audio http.Handler
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	systemHandler := NewSystemHandler(deps.Checks...)
	authHandler := NewAuthHandler(cfg.Operator.Username, cfg.Operator.PasswordHash, cfg.JWTSecret, cfg.TokenDuration)
	sessionsHandler := NewSessionsHandler(deps.Interview, deps.Store)
	historyHandler := NewHistoryHandler(deps.Store)
	rolesHandler := NewRolesHandler(deps.Store)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST", "OPTIONS")
	if deps.Audio != nil {
		r.PathPrefix("/audio/").Handler(deps.Audio).Methods("GET")
	}

	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.HandleFunc("/roles", rolesHandler.ListRoles).Methods("GET")

	sessions := apiV1.PathPrefix("/sessions").Subrouter()
	sessions.HandleFunc("", sessionsHandler.CreateSession).Methods("POST", "OPTIONS")
	sessions.HandleFunc("/{id}", sessionsHandler.GetSession).Methods("GET")
	sessions.HandleFunc("/{id}/end", sessionsHandler.EndSession).Methods("POST", "OPTIONS")
	sessions.HandleFunc("/{id}/messages", sessionsHandler.SendMessage).Methods("POST", "OPTIONS")
	sessions.HandleFunc("/{id}/audio", sessionsHandler.SendAudio).Methods("POST", "OPTIONS")
	sessions.HandleFunc("/{id}/evaluation", sessionsHandler.Evaluate).Methods("POST", "OPTIONS")
	sessions.HandleFunc("/{id}/evaluation", sessionsHandler.GetEvaluation).Methods("GET")
	sessions.HandleFunc("/{id}/report", sessionsHandler.Report).Methods("GET")

	apiV1.HandleFunc("/history/sessions", historyHandler.ListSessions).Methods("GET")
	apiV1.HandleFunc("/history/sessions/{id}", historyHandler.GetSession).Methods("GET")

	// Operator routes
	admin := apiV1.PathPrefix("/admin").Subrouter()
	admin.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))
	admin.HandleFunc("/roles/{id}", rolesHandler.UpsertRole).Methods("PUT")
	admin.HandleFunc("/roles/{id}", rolesHandler.DeleteRole).Methods("DELETE")

	return r
}

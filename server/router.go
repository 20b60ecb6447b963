// Package server exposes the chat service and memory engine over HTTP.
package server

import (
	"net/http"

	"github.com/youssefsiam38/memorykeep"
	"github.com/youssefsiam38/memorykeep/chat"
	"github.com/youssefsiam38/memorykeep/domain"
)

// Config holds router configuration.
type Config struct {
	// MaxBodyBytes bounds request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// Logger for structured logging.
	Logger memorykeep.Logger
}

const defaultMaxBodyBytes = 1 << 20

// router holds the API router state.
type router struct {
	chat   *chat.Service
	engine *memorykeep.Engine
	domain *domain.Service
	config *Config
}

// NewRouter creates the HTTP API handler.
func NewRouter(chatSvc *chat.Service, engine *memorykeep.Engine, domainSvc *domain.Service, cfg *Config) http.Handler {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	r := &router{
		chat:   chatSvc,
		engine: engine,
		domain: domainSvc,
		config: cfg,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", r.handleHealth)

	// Conversation turns
	mux.HandleFunc("POST /api/chat", r.handleChat)
	mux.HandleFunc("GET /api/tokens/{conversation_id}", r.handleTokens)

	// Conversation state
	mux.HandleFunc("GET /api/conversations/{conversation_id}/context", r.handleContext)
	mux.HandleFunc("GET /api/conversations/{conversation_id}/facts", r.handleListFacts)
	mux.HandleFunc("PUT /api/conversations/{conversation_id}/facts/{key}", r.handlePutFact)
	mux.HandleFunc("POST /api/conversations/{conversation_id}/consolidate", r.handleConsolidate)

	return withMiddleware(mux, cfg)
}

// withMiddleware wraps the handler with common middleware.
func withMiddleware(handler http.Handler, cfg *Config) http.Handler {
	handler = jsonMiddleware(handler)
	handler = recoveryMiddleware(handler, cfg.Logger)
	return handler
}

// jsonMiddleware sets JSON content type for all responses.
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware recovers from panics and returns 500.
func recoveryMiddleware(next http.Handler, logger memorykeep.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if logger != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				}
				http.Error(w, `{"error":{"code":"internal_error","message":"internal server error"}}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

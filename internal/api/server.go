// Package api exposes the procurement engine over HTTP: procurement
// intake, workflow inspection and approval, the transcript webhook, and
// supplier registry management.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/procuroid/procurement-engine/internal/config"
	"github.com/procuroid/procurement-engine/internal/reconcile"
	"github.com/procuroid/procurement-engine/internal/store"
	"github.com/procuroid/procurement-engine/internal/workflow"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	store       store.Store
	coordinator *workflow.Coordinator
	reconciler  *reconcile.Reconciler
}

// NewServer creates an API server.
func NewServer(st store.Store, coordinator *workflow.Coordinator, reconciler *reconcile.Reconciler) *Server {
	return &Server{store: st, coordinator: coordinator, reconciler: reconciler}
}

// Router builds the chi route tree.
func (s *Server) Router(cfg config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Post("/procurements", s.handleCreateProcurement)

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.handleListWorkflows)
		r.Get("/{workflowID}", s.handleGetWorkflow)
		r.Post("/{workflowID}/approve", s.handleApprove)
		r.Get("/{workflowID}/comparison", s.handleComparison)
	})

	r.Post("/webhook/transcript", s.handleTranscriptWebhook)

	r.Route("/meetings", func(r chi.Router) {
		r.Get("/", s.handleListMeetings)
		r.Post("/schedule", s.handleScheduleMeeting)
	})

	r.Route("/suppliers", func(r chi.Router) {
		r.Get("/", s.handleListSuppliers)
		r.Post("/", s.handleUpsertSupplier)
		r.Delete("/{supplierID}", s.handleDeleteSupplier)
	})

	return r
}

// requestLogger logs each request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

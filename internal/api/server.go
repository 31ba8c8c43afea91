package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/soochol/stateflow/internal/engine"
	"github.com/soochol/stateflow/internal/services"
)

type Server struct {
	workflowSvc    *services.WorkflowService
	instanceSvc    *services.InstanceService
	eventBus       *engine.EventBus
	metricsHandler http.Handler
	// streamResync is how often an open event stream re-reads its instance.
	streamResync time.Duration
}

func NewServer(workflowSvc *services.WorkflowService, instanceSvc *services.InstanceService, eventBus *engine.EventBus) *Server {
	return &Server{
		workflowSvc:  workflowSvc,
		instanceSvc:  instanceSvc,
		eventBus:     eventBus,
		streamResync: 2 * time.Second,
	}
}

// SetMetricsHandler mounts h at /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metricsHandler = h
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))
	r.Route("/api", func(r chi.Router) {
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", s.createWorkflow)
			r.Get("/", s.listWorkflows)
			r.Get("/{id}", s.getWorkflow)
			r.Put("/{id}", s.updateWorkflow)
			r.Delete("/{id}", s.deleteWorkflow)
			r.Post("/{id}/instances", s.startInstance)
			r.Get("/{id}/instances", s.listWorkflowInstances)
		})
		r.Route("/instances", func(r chi.Router) {
			r.Get("/", s.listInstances)
			r.Get("/{id}", s.getInstance)
			r.Get("/{id}/transitions", s.listAvailableTransitions)
			r.Post("/{id}/transitions", s.executeTransition)
			r.Get("/{id}/events", s.streamInstanceEvents)
		})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}
	return r
}

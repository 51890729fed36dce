// Package api exposes the HTTP interface for the shopper service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/synthmart/shopagent/internal/config"
	"github.com/synthmart/shopagent/internal/dispatcher"
	"github.com/synthmart/shopagent/internal/shopper"
)

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	router     chi.Router
	agentStore shopper.AgentStore
	taskStore  shopper.TaskStore
	traceStore shopper.TraceStore
	dispatcher *dispatcher.Dispatcher
	idGen      shopper.IDGenerator
	clock      shopper.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	agentStore shopper.AgentStore,
	taskStore shopper.TaskStore,
	traceStore shopper.TraceStore,
	dispatch *dispatcher.Dispatcher,
	idGen shopper.IDGenerator,
	clock shopper.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		agentStore: agentStore,
		taskStore:  taskStore,
		traceStore: traceStore,
		dispatcher: dispatch,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/agents", func(r chi.Router) {
			r.Post("/", s.createAgent)
			r.Get("/", s.listAgents)
			r.Route("/{agent_id}", func(r chi.Router) {
				r.Get("/", s.getAgent)
				r.Delete("/", s.deleteAgent)
				r.Post("/dispatch", s.dispatchTask)
			})
		})
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasks)
			r.Route("/{task_id}", func(r chi.Router) {
				r.Get("/", s.getTask)
				r.Get("/trace", s.getTrace)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type profileData struct {
	Gender      string   `json:"gender"`
	AgeFrom     int      `json:"age_from"`
	AgeTo       int      `json:"age_to"`
	Location    string   `json:"location"`
	Interests   []string `json:"interests"`
	Description string   `json:"description,omitempty"`
}

type agentCreateRequest struct {
	Name    string      `json:"name"`
	Profile profileData `json:"profile"`
}

type dispatchRequest struct {
	Goal string `json:"goal"`
	Seed string `json:"seed,omitempty"`
}

type traceActionResponse struct {
	Step      int    `json:"step"`
	ID        string `json:"id"`
	Type      string `json:"type"`
	Context   string `json:"context"`
	TargetURL string `json:"target_url,omitempty"`
}

func (s *Server) createAgent(w http.ResponseWriter, r *http.Request) {
	var req agentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "agent name required")
		return
	}
	agentID, err := s.idGen.NewID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "generate agent id failed")
		return
	}
	agent := shopper.Agent{
		ID:   agentID,
		Name: req.Name,
		Profile: shopper.Profile{
			Gender:      req.Profile.Gender,
			AgeFrom:     req.Profile.AgeFrom,
			AgeTo:       req.Profile.AgeTo,
			Location:    req.Profile.Location,
			Interests:   req.Profile.Interests,
			Description: req.Profile.Description,
		},
	}
	if err := s.agentStore.CreateAgent(r.Context(), agent); err != nil {
		writeError(w, http.StatusInternalServerError, "create agent failed")
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.agentStore.ListAgents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list agents failed")
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agentStore.GetAgent(r.Context(), chi.URLParam(r, "agent_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) deleteAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agentStore.DeleteAgent(r.Context(), chi.URLParam(r, "agent_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) dispatchTask(w http.ResponseWriter, r *http.Request) {
	agent, err := s.agentStore.GetAgent(r.Context(), chi.URLParam(r, "agent_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Goal == "" {
		writeError(w, http.StatusBadRequest, "missing task goal")
		return
	}
	taskID, err := s.enqueueTask(r.Context(), agent, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (s *Server) enqueueTask(ctx context.Context, agent shopper.Agent, req dispatchRequest) (string, error) {
	taskID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate task id: %w", err)
	}
	seed := req.Seed
	if seed == "" {
		if seed, err = s.idGen.NewID(); err != nil {
			return "", fmt.Errorf("generate task seed: %w", err)
		}
	}
	task := shopper.Task{
		ID:        taskID,
		AgentID:   agent.ID,
		Goal:      req.Goal,
		Seed:      seed,
		Status:    shopper.TaskStatusNotStarted,
		Submitted: s.clock.Now(),
	}
	if err := s.taskStore.CreateTask(ctx, task); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.dispatcher.Enqueue(queueCtx, shopper.QueueItem{Task: task, Agent: agent}); err != nil {
		return "", fmt.Errorf("enqueue task: %w", err)
	}
	return taskID, nil
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.taskStore.ListTasks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list tasks failed")
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.GetTask(r.Context(), chi.URLParam(r, "task_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) getTrace(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "task_id")
	if _, err := s.taskStore.GetTask(r.Context(), taskID); err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	entries, err := s.traceStore.Load(r.Context(), taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load trace failed")
		return
	}
	out := make([]traceActionResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, traceActionResponse{
			Step:      entry.Step,
			ID:        entry.Action.ID,
			Type:      string(entry.Action.Type),
			Context:   entry.Action.Context,
			TargetURL: entry.Action.TargetURL,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

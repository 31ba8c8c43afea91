package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soochol/stateflow/internal/stateflow"
)

type startInstanceRequest struct {
	InstanceID string `json:"instance_id"`
}

type executeTransitionRequest struct {
	TransitionID string `json:"transition_id"`
}

type transitionResponse struct {
	Success       bool      `json:"success"`
	InstanceID    string    `json:"instance_id"`
	PreviousState string    `json:"previous_state"`
	CurrentState  string    `json:"current_state"`
	ExecutedAt    time.Time `json:"executed_at"`
	IsCompleted   bool      `json:"is_completed"`
}

func (s *Server) startInstance(w http.ResponseWriter, r *http.Request) {
	var req startInstanceRequest
	// The body is optional.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	inst, err := s.instanceSvc.Start(r.Context(), chi.URLParam(r, "id"), req.InstanceID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (s *Server) listWorkflowInstances(w http.ResponseWriter, r *http.Request) {
	insts, err := s.instanceSvc.ListByDefinition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeInstances(w, insts)
}

// listInstances returns every instance, or those matching ?filter=<expr>.
func (s *Server) listInstances(w http.ResponseWriter, r *http.Request) {
	insts, err := s.instanceSvc.Query(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeInstances(w, insts)
}

func (s *Server) getInstance(w http.ResponseWriter, r *http.Request) {
	inst, err := s.instanceSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) listAvailableTransitions(w http.ResponseWriter, r *http.Request) {
	transitions, err := s.instanceSvc.AvailableTransitions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitions)
}

func (s *Server) executeTransition(w http.ResponseWriter, r *http.Request) {
	var req executeTransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.TransitionID == "" {
		badRequest(w, "transition_id is required")
		return
	}
	res, err := s.instanceSvc.ExecuteTransition(r.Context(), chi.URLParam(r, "id"), req.TransitionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transitionResponse{
		Success:       true,
		InstanceID:    res.Instance.ID,
		PreviousState: res.PreviousState,
		CurrentState:  res.Instance.CurrentState,
		ExecutedAt:    res.ExecutedAt(),
		IsCompleted:   res.Instance.IsCompleted,
	})
}

func writeInstances(w http.ResponseWriter, insts []*stateflow.WorkflowInstance) {
	if insts == nil {
		insts = []*stateflow.WorkflowInstance{}
	}
	writeJSON(w, http.StatusOK, insts)
}

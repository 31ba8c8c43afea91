package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soochol/stateflow/internal/stateflow"
)

func (s *Server) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var wf stateflow.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	created, err := s.workflowSvc.Create(r.Context(), &wf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.workflowSvc.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if workflows == nil {
		workflows = []*stateflow.WorkflowDefinition{}
	}
	writeJSON(w, http.StatusOK, workflows)
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflowSvc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

func (s *Server) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var wf stateflow.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	updated, err := s.workflowSvc.Update(r.Context(), id, &wf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.workflowSvc.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"fmt"
	"net/http"

	"github.com/manojnerkar/viep/internal/domain"
	"github.com/manojnerkar/viep/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

var errPlanNotFound = fmt.Errorf("%w: plan", domain.ErrNotFound)

func (s *Server) listActivePlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.d.Plans.ListActive(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

// getPlan hides inactive plans from the public catalog.
func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.d.Plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.IsActive {
		writeError(w, errPlanNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listAllPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.d.Plans.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var in model.PlanInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.d.Plans.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusCreated, "plan created", p)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	var in model.PlanInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.d.Plans.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "plan updated", p)
}

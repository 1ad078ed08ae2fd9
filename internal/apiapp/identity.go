package apiapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phillip-england/payrollsync/internal/identity"
	"github.com/phillip-england/payrollsync/internal/store"
)

type matchRequest struct {
	Names               []string `json:"names"`
	RequireConfirmation *bool    `json:"require_confirmation"`
}

type confirmationRequest struct {
	InputName  string `json:"input_name"`
	EmployeeID string `json:"employee_id"`
}

func (s *Server) roster(w http.ResponseWriter, r *http.Request) {
	roster := s.pipeline.Matcher().Roster()
	if roster == nil {
		roster = []identity.Employee{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": roster})
}

// match resolves names without running a reconciliation.
func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Names) == 0 {
		writeError(w, http.StatusBadRequest, "names are required")
		return
	}
	if len(s.pipeline.Matcher().Roster()) == 0 {
		writeError(w, http.StatusConflict, "no employee roster loaded")
		return
	}
	requireConfirmation := true
	if req.RequireConfirmation != nil {
		requireConfirmation = *req.RequireConfirmation
	}

	s.confirmMu.RLock()
	defer s.confirmMu.RUnlock()
	confirmations, err := s.confirmationMap(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load confirmations")
		return
	}
	m := s.pipeline.Matcher()
	for name, id := range confirmations {
		m.Confirm(name, id)
	}
	results := make([]identity.MatchResult, 0, len(req.Names))
	for _, name := range req.Names {
		results = append(results, m.Match(name, requireConfirmation))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":    results,
		"statistics": m.Statistics(req.Names),
	})
}

func (s *Server) confirmationMap(r *http.Request) (map[string]string, error) {
	list, err := s.store.Confirmations(r.Context())
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, c := range list {
		out[c.InputName] = c.EmployeeID
	}
	return out, nil
}

func (s *Server) listConfirmations(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.Confirmations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list confirmations")
		return
	}
	if list == nil {
		list = []store.Confirmation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmations": list})
}

// createConfirmation records that a source name is a roster employee. The
// decision applies to every later run.
func (s *Server) createConfirmation(w http.ResponseWriter, r *http.Request) {
	var req confirmationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.InputName = strings.TrimSpace(req.InputName)
	req.EmployeeID = strings.TrimSpace(req.EmployeeID)
	if req.InputName == "" || req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "input_name and employee_id are required")
		return
	}

	m := s.pipeline.Matcher()
	emp, ok := m.Employee(req.EmployeeID)
	if !ok {
		writeError(w, http.StatusBadRequest, "employee_id is not on the roster")
		return
	}
	saved, err := s.store.SaveConfirmation(r.Context(), store.Confirmation{
		InputName:    req.InputName,
		EmployeeID:   emp.ID,
		EmployeeName: emp.Name,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save confirmation")
		return
	}
	m.Confirm(saved.InputName, saved.EmployeeID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) deleteConfirmation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.confirmMu.Lock()
	defer s.confirmMu.Unlock()
	if err := s.store.DeleteConfirmation(r.Context(), name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "confirmation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete confirmation")
		return
	}
	s.pipeline.Matcher().Forget(name)
	w.WriteHeader(http.StatusNoContent)
}

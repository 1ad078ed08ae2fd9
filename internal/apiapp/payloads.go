package apiapp

import (
	"net/http"

	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payload"
	"github.com/phillip-england/payrollsync/internal/store"
)

// payloads previews the timesheet requests of a run with ?dry_run=1, or
// sends them to the payroll API and records each outcome.
func (s *Server) payloads(w http.ResponseWriter, r *http.Request) {
	run, data, ok := s.loadRunData(w, r)
	if !ok {
		return
	}
	ctx := logging.WithRun(r.Context(), run.ID)

	if parseBoolQueryValue(r.URL.Query().Get("dry_run")) {
		preview := s.builder.DryRun(ctx, data, s.mappings)
		writeJSON(w, http.StatusOK, map[string]any{
			"run_id":  run.ID,
			"ok":      preview.OK(),
			"preview": preview,
		})
		return
	}

	if s.submitter == nil {
		writeError(w, http.StatusServiceUnavailable, "payroll API is not configured")
		return
	}
	outcomes, err := s.builder.Submit(ctx, data, s.mappings, s.submitter)
	for _, o := range outcomes {
		if _, recErr := s.store.RecordSubmission(ctx, store.Submission{
			RunID:        run.ID,
			EmployeeName: o.Employee,
			EmployeeID:   o.EmployeeID,
			TimesheetID:  o.TimesheetID,
			Status:       o.Status,
			Error:        o.Error,
		}); recErr != nil {
			logging.FromContext(ctx).Error().Err(recErr).Str("employee", o.Employee).Msg("failed to record submission")
		}
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "submission interrupted: "+err.Error())
		return
	}
	if outcomes == nil {
		outcomes = []payload.Outcome{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   run.ID,
		"outcomes": outcomes,
		"counts":   payload.Counts(outcomes),
	})
}

func (s *Server) listSubmissions(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	subs, err := s.store.Submissions(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list submissions")
		return
	}
	if subs == nil {
		subs = []store.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": subs})
}

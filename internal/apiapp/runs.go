package apiapp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phillip-england/payrollsync/internal/consolidate"
	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/pipeline"
	"github.com/phillip-england/payrollsync/internal/sheets"
	"github.com/phillip-england/payrollsync/internal/store"
)

// uploadFields maps multipart field names to the file kind they carry.
// Files under "files" are classified by detection.
var uploadFields = []struct {
	name string
	kind sheets.Kind
}{
	{"site", sheets.KindSite},
	{"travel", sheets.KindTravel},
	{"overtime", sheets.KindOvertime},
	{"files", ""},
}

type runResponse struct {
	Run    store.Run        `json:"run"`
	Result *pipeline.Result `json:"result,omitempty"`
}

type runDetail struct {
	Run    store.Run       `json:"run"`
	Report json.RawMessage `json:"report,omitempty"`
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.FromContext(ctx)

	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	dir, err := os.MkdirTemp("", "payrollsync-upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}
	defer os.RemoveAll(dir)

	var (
		files []pipeline.File
		names = map[string]string{}
	)
	for _, field := range uploadFields {
		for _, fh := range r.MultipartForm.File[field.name] {
			path, err := s.stageUpload(dir, len(files), fh)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			files = append(files, pipeline.File{Path: path, Kind: field.kind})
			names[path] = filepath.Base(fh.Filename)
		}
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no spreadsheet files uploaded")
		return
	}
	sources := make([]string, len(files))
	for i, f := range files {
		sources[i] = names[f.Path]
	}

	s.confirmMu.RLock()
	confirmations, err := s.confirmationMap(r)
	if err != nil {
		s.confirmMu.RUnlock()
		writeError(w, http.StatusInternalServerError, "failed to load confirmations")
		return
	}
	res, err := s.pipeline.Run(ctx, pipeline.Input{Files: files, Confirmations: confirmations})
	s.confirmMu.RUnlock()
	if err != nil {
		msg := relabel(err.Error(), names)
		log.Warn().Err(err).Strs("sources", sources).Msg("run failed")
		run, storeErr := s.store.CreateRun(ctx, store.Run{Status: store.RunFailed, Sources: sources, Error: msg}, nil)
		if storeErr != nil {
			writeError(w, http.StatusInternalServerError, "failed to record run")
			return
		}
		writeJSON(w, pipelineStatus(err), map[string]any{"error": msg, "run": run})
		return
	}
	relabelResult(res, names)

	data, err := json.Marshal(res.Data.Document())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode payroll data")
		return
	}
	report, err := json.Marshal(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode run report")
		return
	}
	run, err := s.store.CreateRun(ctx, store.Run{
		Status:       store.RunCompleted,
		PayPeriodEnd: res.Summary.PayPeriodEnd,
		Sources:      sources,
		Employees:    res.Summary.TotalEmployees,
		Entries:      res.Summary.TotalEntries,
		Warnings:     res.Warnings,
		Data:         data,
		Report:       report,
	}, res.UnknownRegions.Entries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record run")
		return
	}
	writeJSON(w, http.StatusCreated, runResponse{Run: run, Result: res})
}

// stageUpload copies one uploaded file into dir, keeping its extension so
// the workbook reader can pick a format.
func (s *Server) stageUpload(dir string, index int, fh *multipart.FileHeader) (string, error) {
	base := filepath.Base(fh.Filename)
	ext := filepath.Ext(base)
	if !sheets.SupportedExtension(ext, s.pipeline.Extensions()) {
		return "", fmt.Errorf("%s: unsupported file extension %q", base, ext)
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%s: could not read upload", base)
	}
	defer src.Close()

	path := filepath.Join(dir, strconv.Itoa(index)+ext)
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("%s: could not stage upload", base)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("%s: could not stage upload", base)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("%s: could not stage upload", base)
	}
	return path, nil
}

// relabel replaces staged paths with the uploaded file names.
func relabel(msg string, names map[string]string) string {
	for path, name := range names {
		msg = strings.ReplaceAll(msg, path, name)
	}
	return msg
}

func relabelResult(res *pipeline.Result, names map[string]string) {
	for i, d := range res.Detections {
		if name, ok := names[d.Source]; ok {
			res.Detections[i].Source = name
		}
	}
	for i, d := range res.Diagnostics {
		if name, ok := names[d.Source]; ok {
			res.Diagnostics[i].Source = name
		}
	}
}

func pipelineStatus(err error) int {
	switch {
	case errors.Is(err, payroll.ErrStructural), errors.Is(err, payroll.ErrBusinessRule):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (store.Run, bool) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return store.Run{}, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return store.Run{}, false
	}
	return run, true
}

// loadRunData rebuilds the payroll data of a completed run.
func (s *Server) loadRunData(w http.ResponseWriter, r *http.Request) (store.Run, *payroll.PayrollData, bool) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return store.Run{}, nil, false
	}
	if run.Status != store.RunCompleted || len(run.Data) == 0 {
		writeError(w, http.StatusConflict, "run did not complete")
		return store.Run{}, nil, false
	}
	doc, err := payroll.DecodeDocument(bytes.NewReader(run.Data))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored payroll data is unreadable")
		return store.Run{}, nil, false
	}
	data, err := payroll.FromDocument(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stored payroll data is invalid")
		return store.Run{}, nil, false
	}
	return run, data, true
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, runDetail{Run: run, Report: run.Report})
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete run")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportRun downloads the downstream JSON document.
func (s *Server) exportRun(w http.ResponseWriter, r *http.Request) {
	run, data, ok := s.loadRunData(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payroll-%s.json"`, run.PayPeriodEnd))
	writeJSON(w, http.StatusOK, consolidate.Export(data))
}

func (s *Server) unknownRegions(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	entries, err := s.store.UnknownEntries(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load unknown region entries")
		return
	}
	report := consolidate.NewUnknownRegionReport(entries)

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		if report.Regions == nil {
			report.Regions = []string{}
		}
		if report.Entries == nil {
			report.Entries = []consolidate.UnknownRegionEntry{}
		}
		writeJSON(w, http.StatusOK, report)
	case "csv":
		var buf bytes.Buffer
		if err := report.WriteCSV(&buf); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render csv")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="unknown-regions-%s.csv"`, run.ID))
		_, _ = w.Write(buf.Bytes())
	case "xlsx":
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to render workbook")
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="unknown-regions-%s.xlsx"`, run.ID))
		_, _ = w.Write(buf.Bytes())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
	}
}

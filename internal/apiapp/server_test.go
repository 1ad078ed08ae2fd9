package apiapp

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/phillip-england/payrollsync/internal/consolidate"
	"github.com/phillip-england/payrollsync/internal/identity"
	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payload"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/pipeline"
	"github.com/phillip-england/payrollsync/internal/sheets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	testUser     = "admin"
	testPassword = "correct-horse-battery"
)

type fakeSubmitter struct {
	sent []payload.Timesheet
	err  error
}

func (f *fakeSubmitter) CreateTimesheet(_ context.Context, t payload.Timesheet) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, t)
	return "ts-" + t.EmployeeID, nil
}

type client struct {
	t    *testing.T
	base string
	http *http.Client
	csrf string
}

func newTestServer(t *testing.T, submitter payload.TimesheetCreator) *client {
	t.Helper()
	p := pipeline.New(pipeline.Options{
		Settings:            sheets.DefaultSettings(),
		Rules:               consolidate.DefaultRules(),
		Identity:            identity.DefaultOptions(),
		RequireConfirmation: true,
		Roster: []identity.Employee{
			{ID: "emp-1", Name: "Jane Citizen", PayrollCalendarID: "cal-1"},
			{ID: "emp-2", Name: "Bob Bulder", PayrollCalendarID: "cal-1"},
		},
		Regions: []string{"Northside", "Depot"},
	})
	north := "trk-north"
	cfg := Config{
		DBPath:        ":memory:",
		AdminUsername: testUser,
		AdminPassword: testPassword,
		Pipeline:      p,
		Mappings: payload.Mappings{
			Tracking: map[string]*string{"Northside": &north, "Depot": nil},
			Earnings: map[payroll.HourType]string{
				payroll.Regular:  "er-regular",
				payroll.Overtime: "er-overtime",
				payroll.Holiday:  "er-holiday",
				payroll.Travel:   "er-travel",
			},
		},
		Logger: &logging.Nop,
	}
	if submitter != nil {
		cfg.Submitter = submitter
	}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body io.Reader, contentType string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.csrf != "" {
		req.Header.Set(csrfHeaderName, c.csrf)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (c *client) json(method, path string, in any, out any) int {
	c.t.Helper()
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		require.NoError(c.t, err)
		body = bytes.NewReader(data)
	}
	resp := c.do(method, path, body, "application/json")
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *client) login() {
	c.t.Helper()
	status := c.json(http.MethodPost, "/api/auth/login", loginRequest{Username: testUser, Password: testPassword}, nil)
	require.Equal(c.t, http.StatusOK, status)
	var tok map[string]string
	require.Equal(c.t, http.StatusOK, c.json(http.MethodGet, "/api/auth/csrf", nil, &tok))
	c.csrf = tok["csrfToken"]
	require.NotEmpty(c.t, c.csrf)
}

func (c *client) upload(files map[string]string) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, path := range files {
		data, err := os.ReadFile(path)
		require.NoError(c.t, err)
		part, err := mw.CreateFormFile(field, filepath.Base(path))
		require.NoError(c.t, err)
		_, err = part.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())
	return c.do(http.MethodPost, "/api/runs", &buf, mw.FormDataContentType())
}

func writeWorkbook(t *testing.T, dir, filename, sheet string, cells map[string]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for axis, value := range cells {
		require.NoError(t, f.SetCellValue(sheet, axis, value))
	}
	path := filepath.Join(dir, filename)
	require.NoError(t, f.SaveAs(path))
	return path
}

func fixtureFiles(t *testing.T) map[string]string {
	t.Helper()
	dir := t.TempDir()
	return map[string]string{
		"site": writeWorkbook(t, dir, "site.xlsx", "Northside", map[string]any{
			"A1": "Region", "B1": "Northside",
			"A3": "Week Ending", "B3": "2024-03-10",
			"C9": "2024-03-04", "D9": "2024-03-05", "E9": "2024-03-06", "F9": "2024-03-07",
			"G9": "2024-03-08", "H9": "2024-03-09", "I9": "2024-03-10",
			"B11": "EMPLOYEE NAME",
			"B12": "Jane Citizen", "C12": 8, "D12": "HOL", "K12": 5,
			"B13": "Bob Builder", "C13": 7.5, "E13": "Southside",
		}),
		"travel": writeWorkbook(t, dir, "travel.xlsx", "Travel", map[string]any{
			"A1": "Travel Time Log",
			"A2": "Jane Citizen", "B2": "Depot", "D2": 2.5,
		}),
		"files": writeWorkbook(t, dir, "overtime.xlsx", "Rates", map[string]any{
			"A1": "Overtime rate for employees",
			"A2": "Jane Citizen", "C2": "Yes", "D2": 45.5,
		}),
	}
}

type createdRun struct {
	Run struct {
		ID           string   `json:"id"`
		Status       string   `json:"status"`
		PayPeriodEnd string   `json:"pay_period_end_date"`
		Sources      []string `json:"sources"`
		Employees    int      `json:"employees"`
		Error        string   `json:"error"`
	} `json:"run"`
	Result struct {
		Pending    []identity.MatchResult `json:"pending_confirmation"`
		Detections []pipeline.Detection   `json:"detections"`
	} `json:"result"`
	Error string `json:"error"`
}

func TestHealthIsPublic(t *testing.T) {
	c := newTestServer(t, nil)
	var body map[string]any
	assert.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["roster_size"])
	assert.Equal(t, false, body["submission_ready"])
}

func TestAuthFlow(t *testing.T) {
	c := newTestServer(t, nil)

	assert.Equal(t, http.StatusUnauthorized, c.json(http.MethodGet, "/api/runs", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, c.json(http.MethodPost, "/api/auth/login", loginRequest{Username: testUser, Password: "wrong-password-here"}, nil))
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/auth/login", loginRequest{}, nil))

	c.login()
	var me map[string]any
	assert.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/auth/me", nil, &me))
	assert.Equal(t, testUser, me["username"])

	csrf := c.csrf
	c.csrf = ""
	assert.Equal(t, http.StatusForbidden, c.json(http.MethodPost, "/api/auth/logout", nil, nil))
	c.csrf = csrf
	assert.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/auth/logout", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, c.json(http.MethodGet, "/api/auth/me", nil, nil))
}

func TestRunLifecycle(t *testing.T) {
	api := &fakeSubmitter{}
	c := newTestServer(t, api)
	c.login()

	resp := c.upload(fixtureFiles(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createdRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "completed", created.Run.Status)
	assert.Equal(t, "2024-03-10", created.Run.PayPeriodEnd)
	assert.Equal(t, 1, created.Run.Employees)
	assert.ElementsMatch(t, []string{"site.xlsx", "travel.xlsx", "overtime.xlsx"}, created.Run.Sources)
	require.Len(t, created.Result.Pending, 1)
	assert.Equal(t, "Bob Builder", created.Result.Pending[0].Input)
	for _, d := range created.Result.Detections {
		assert.NotContains(t, d.Source, string(filepath.Separator))
	}
	runID := created.Run.ID

	var listed struct {
		Runs []map[string]any `json:"runs"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/runs", nil, &listed))
	require.Len(t, listed.Runs, 1)

	var detail struct {
		Report map[string]any `json:"report"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/runs/"+runID, nil, &detail))
	assert.NotNil(t, detail.Report["summary"])

	var doc payroll.Document
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/runs/"+runID+"/export", nil, &doc))
	require.Len(t, doc.Employees, 1)
	assert.Equal(t, "emp-1", doc.Employees[0].EmployeeID)

	var preview struct {
		OK      bool            `json:"ok"`
		Preview payload.Preview `json:"preview"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/runs/"+runID+"/payloads?dry_run=1", nil, &preview))
	assert.True(t, preview.OK)
	require.Len(t, preview.Preview.Batch.Timesheets, 1)
	assert.Empty(t, api.sent)

	var submitted struct {
		Outcomes []payload.Outcome `json:"outcomes"`
		Counts   map[string]int    `json:"counts"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/runs/"+runID+"/payloads", nil, &submitted))
	assert.Equal(t, 1, submitted.Counts[payload.OutcomeCreated])
	require.Len(t, api.sent, 1)

	var subs struct {
		Submissions []map[string]any `json:"submissions"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/runs/"+runID+"/submissions", nil, &subs))
	require.Len(t, subs.Submissions, 1)
	assert.Equal(t, "ts-emp-1", subs.Submissions[0]["timesheet_id"])

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/runs/"+runID, nil, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, c.json(http.MethodGet, "/api/runs/"+runID, nil, nil))
}

func TestConfirmationsFeedLaterRuns(t *testing.T) {
	c := newTestServer(t, nil)
	c.login()

	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPost, "/api/confirmations", confirmationRequest{InputName: "Bob Builder", EmployeeID: "emp-404"}, nil))

	var saved map[string]any
	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/api/confirmations", confirmationRequest{InputName: "Bob Builder", EmployeeID: "emp-2"}, &saved))
	assert.Equal(t, "Bob Bulder", saved["employee_name"])

	var matched struct {
		Results []identity.MatchResult `json:"results"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/match", matchRequest{Names: []string{"Bob Builder"}}, &matched))
	require.Len(t, matched.Results, 1)
	assert.True(t, matched.Results[0].Automatic())

	resp := c.upload(fixtureFiles(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createdRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Empty(t, created.Result.Pending)
	assert.Equal(t, 2, created.Run.Employees)

	var report consolidate.UnknownRegionReport
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/runs/"+created.Run.ID+"/unknown-regions", nil, &report))
	assert.Equal(t, []string{"Southside"}, report.Regions)

	csvResp := c.do(http.MethodGet, "/api/runs/"+created.Run.ID+"/unknown-regions?format=csv", nil, "")
	require.Equal(t, http.StatusOK, csvResp.StatusCode)
	rows, err := csv.NewReader(csvResp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Bob Bulder", "Southside", "2024-03-06", "8"}, rows[1])

	xlsxResp := c.do(http.MethodGet, "/api/runs/"+created.Run.ID+"/unknown-regions?format=xlsx", nil, "")
	require.Equal(t, http.StatusOK, xlsxResp.StatusCode)
	f, err := excelize.OpenReader(xlsxResp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Unknown Entries", "Regions"}, f.GetSheetList())

	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodGet, "/api/runs/"+created.Run.ID+"/unknown-regions?format=pdf", nil, nil))

	var list struct {
		Confirmations []map[string]any `json:"confirmations"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodGet, "/api/confirmations", nil, &list))
	require.Len(t, list.Confirmations, 1)
	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/confirmations/Bob%20Builder", nil, "").StatusCode)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodDelete, "/api/confirmations/Bob%20Builder", nil, "").StatusCode)
}

func TestDeletedConfirmationStopsMatching(t *testing.T) {
	c := newTestServer(t, nil)
	c.login()

	require.Equal(t, http.StatusCreated, c.json(http.MethodPost, "/api/confirmations", confirmationRequest{InputName: "Bob Builder", EmployeeID: "emp-2"}, nil))
	var matched struct {
		Results []identity.MatchResult `json:"results"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/match", matchRequest{Names: []string{"Bob Builder", "Jane Citizen"}}, &matched))
	require.Len(t, matched.Results, 2)
	assert.True(t, matched.Results[0].Automatic())

	require.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/confirmations/Bob%20Builder", nil, "").StatusCode)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/match", matchRequest{Names: []string{"Bob Builder", "Jane Citizen"}}, &matched))
	require.Len(t, matched.Results, 2)
	assert.False(t, matched.Results[0].Automatic())
	assert.True(t, matched.Results[0].RequiresConfirmation)
	assert.True(t, matched.Results[1].Automatic())
}

func TestFailedRunIsRecorded(t *testing.T) {
	c := newTestServer(t, nil)
	c.login()
	files := fixtureFiles(t)
	delete(files, "travel")

	resp := c.upload(files)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var failed createdRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&failed))
	assert.Contains(t, failed.Error, "travel time")
	assert.Equal(t, "failed", failed.Run.Status)

	assert.Equal(t, http.StatusConflict, c.json(http.MethodPost, "/api/runs/"+failed.Run.ID+"/payloads?dry_run=1", nil, nil))
	assert.Equal(t, http.StatusConflict, c.json(http.MethodGet, "/api/runs/"+failed.Run.ID+"/export", nil, nil))
}

func TestUploadValidation(t *testing.T) {
	c := newTestServer(t, nil)
	c.login()

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))
	resp := c.upload(map[string]string{"files": path})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = c.upload(map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitWithoutAPIConfigured(t *testing.T) {
	c := newTestServer(t, nil)
	c.login()
	resp := c.upload(fixtureFiles(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createdRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	assert.Equal(t, http.StatusServiceUnavailable, c.json(http.MethodPost, "/api/runs/"+created.Run.ID+"/payloads", nil, nil))
}

func TestSubmitRecordsFailures(t *testing.T) {
	api := &fakeSubmitter{err: errors.New("status 400: unknown employee")}
	c := newTestServer(t, api)
	c.login()
	resp := c.upload(fixtureFiles(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created createdRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	var submitted struct {
		Counts map[string]int `json:"counts"`
	}
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/runs/"+created.Run.ID+"/payloads", nil, &submitted))
	assert.Equal(t, 1, submitted.Counts[payload.OutcomeFailed])
}

func TestNewRequiresAdminCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{DBPath: ":memory:", Pipeline: pipeline.New(pipeline.Options{Settings: sheets.DefaultSettings()})})
	assert.Error(t, err)
}

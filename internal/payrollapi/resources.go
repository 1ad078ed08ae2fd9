package payrollapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/phillip-england/payrollsync/internal/identity"
	"github.com/phillip-england/payrollsync/internal/payload"
	"github.com/phillip-england/payrollsync/internal/payroll"
)

type employeeRecord struct {
	EmployeeID        string `json:"employeeID"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	PayrollCalendarID string `json:"payrollCalendarID"`
}

func (e employeeRecord) employee() identity.Employee {
	return identity.Employee{
		ID:                e.EmployeeID,
		Name:              strings.TrimSpace(e.FirstName + " " + e.LastName),
		PayrollCalendarID: e.PayrollCalendarID,
	}
}

// Employees pages through the whole roster.
func (c *Client) Employees(ctx context.Context) ([]identity.Employee, error) {
	var out []identity.Employee
	for page := 1; ; page++ {
		var body struct {
			Employees []employeeRecord `json:"employees"`
		}
		if err := c.do(ctx, http.MethodGet, fmt.Sprintf("payroll.xro/2.0/Employees?page=%d", page), nil, &body); err != nil {
			return nil, fmt.Errorf("list employees: %w", err)
		}
		for _, rec := range body.Employees {
			emp := rec.employee()
			if emp.ID != "" && emp.Name != "" {
				out = append(out, emp)
			}
		}
		if len(body.Employees) < pageSize {
			break
		}
	}
	return out, nil
}

// Employee fetches one employee, including the pay calendar.
func (c *Client) Employee(ctx context.Context, id string) (identity.Employee, error) {
	var body struct {
		Employee employeeRecord `json:"employee"`
	}
	if err := c.do(ctx, http.MethodGet, "payroll.xro/2.0/Employees/"+url.PathEscape(id), nil, &body); err != nil {
		return identity.Employee{}, fmt.Errorf("get employee %s: %w", id, err)
	}
	return body.Employee.employee(), nil
}

type TrackingOption struct {
	ID   string `json:"TrackingOptionID"`
	Name string `json:"Name"`
}

type TrackingCategory struct {
	ID      string           `json:"TrackingCategoryID"`
	Name    string           `json:"Name"`
	Options []TrackingOption `json:"Options"`
}

func (c *Client) TrackingCategories(ctx context.Context) ([]TrackingCategory, error) {
	var body struct {
		TrackingCategories []TrackingCategory `json:"TrackingCategories"`
	}
	if err := c.do(ctx, http.MethodGet, "api.xro/2.0/TrackingCategories", nil, &body); err != nil {
		return nil, fmt.Errorf("list tracking categories: %w", err)
	}
	return body.TrackingCategories, nil
}

// TrackingOptions maps option names to IDs across every category whose name
// contains category, case-insensitively.
func (c *Client) TrackingOptions(ctx context.Context, category string) (map[string]string, error) {
	cats, err := c.TrackingCategories(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(category))
	out := map[string]string{}
	for _, cat := range cats {
		if needle != "" && !strings.Contains(strings.ToLower(cat.Name), needle) {
			continue
		}
		for _, opt := range cat.Options {
			if opt.Name != "" && opt.ID != "" {
				out[opt.Name] = opt.ID
			}
		}
	}
	return out, nil
}

// EarningsRates maps earnings rate names to IDs.
func (c *Client) EarningsRates(ctx context.Context) (map[string]string, error) {
	var body struct {
		EarningsRates []struct {
			ID   string `json:"earningsRateID"`
			Name string `json:"name"`
		} `json:"earningsRates"`
	}
	if err := c.do(ctx, http.MethodGet, "payroll.xro/2.0/EarningsRates", nil, &body); err != nil {
		return nil, fmt.Errorf("list earnings rates: %w", err)
	}
	out := map[string]string{}
	for _, r := range body.EarningsRates {
		if r.Name != "" && r.ID != "" {
			out[r.Name] = r.ID
		}
	}
	return out, nil
}

// earningsNames lists the rate names each hour type is known by, most
// specific first.
var earningsNames = map[payroll.HourType][]string{
	payroll.Regular:  {"Regular Hours", "Regular", "Ordinary Hours", "Standard Hours"},
	payroll.Overtime: {"Overtime Hours", "Overtime", "OT Hours", "Time and a Half"},
	payroll.Holiday:  {"Holiday", "Holiday Hours", "Public Holiday", "Holiday Pay"},
	payroll.Travel:   {"Travel Hours", "Travel", "Travel Time", "Travel Pay"},
}

// HourTypeMapping picks an earnings rate for each hour type by name.
func HourTypeMapping(rates map[string]string) map[payroll.HourType]string {
	lower := make(map[string]string, len(rates))
	for name, id := range rates {
		lower[strings.ToLower(name)] = id
	}
	out := map[payroll.HourType]string{}
	for _, ht := range payroll.HourTypes {
		for _, name := range earningsNames[ht] {
			if id, ok := rates[name]; ok {
				out[ht] = id
				break
			}
			if id, ok := lower[strings.ToLower(name)]; ok {
				out[ht] = id
				break
			}
		}
	}
	return out
}

// Mappings builds payload mappings from the API. Regions without a tracking
// option are left out so the builder reports them; untracked lists regions
// that are known but deliberately sent without one.
func (c *Client) Mappings(ctx context.Context, category string, untracked []string) (payload.Mappings, error) {
	options, err := c.TrackingOptions(ctx, category)
	if err != nil {
		return payload.Mappings{}, err
	}
	rates, err := c.EarningsRates(ctx)
	if err != nil {
		return payload.Mappings{}, err
	}
	m := payload.Mappings{Tracking: map[string]*string{}, Earnings: HourTypeMapping(rates)}
	names := make([]string, 0, len(options))
	for name := range options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		id := options[name]
		m.Tracking[name] = &id
	}
	for _, name := range untracked {
		if _, ok := m.Tracking[name]; !ok {
			m.Tracking[name] = nil
		}
	}
	return m, nil
}

type timesheetLine struct {
	Date           string   `json:"date"`
	EarningsRateID string   `json:"earningsRateID"`
	TrackingItemID string   `json:"trackingItemID,omitempty"`
	NumberOfUnits  float64  `json:"numberOfUnits"`
	RatePerUnit    *float64 `json:"ratePerUnit,omitempty"`
}

type timesheetRequest struct {
	PayrollCalendarID string          `json:"payrollCalendarID,omitempty"`
	EmployeeID        string          `json:"employeeID"`
	StartDate         string          `json:"startDate"`
	EndDate           string          `json:"endDate"`
	Status            string          `json:"status"`
	TimesheetLines    []timesheetLine `json:"timesheetLines"`
}

func toRequest(t payload.Timesheet) timesheetRequest {
	req := timesheetRequest{
		PayrollCalendarID: t.PayrollCalendarID,
		EmployeeID:        t.EmployeeID,
		StartDate:         t.StartDate,
		EndDate:           t.EndDate,
		Status:            t.Status,
		TimesheetLines:    make([]timesheetLine, len(t.TimesheetLines)),
	}
	for i, l := range t.TimesheetLines {
		req.TimesheetLines[i] = timesheetLine{
			Date:           l.Date,
			EarningsRateID: l.EarningsRateID,
			TrackingItemID: l.TrackingItemID,
			NumberOfUnits:  l.NumberOfUnits,
			RatePerUnit:    l.RatePerUnit,
		}
	}
	return req
}

// CreateTimesheet sends one timesheet and returns the ID the API assigned.
func (c *Client) CreateTimesheet(ctx context.Context, t payload.Timesheet) (string, error) {
	var body struct {
		Timesheet *struct {
			ID string `json:"timesheetID"`
		} `json:"timesheet"`
		Timesheets []struct {
			ID string `json:"TimesheetID"`
		} `json:"Timesheets"`
	}
	if err := c.do(ctx, http.MethodPost, "payroll.xro/2.0/Timesheets", toRequest(t), &body); err != nil {
		return "", fmt.Errorf("create timesheet for %s: %w", t.EmployeeID, err)
	}
	switch {
	case body.Timesheet != nil && body.Timesheet.ID != "":
		return body.Timesheet.ID, nil
	case len(body.Timesheets) > 0 && body.Timesheets[0].ID != "":
		return body.Timesheets[0].ID, nil
	}
	return "", fmt.Errorf("create timesheet for %s: no timesheet id in response", t.EmployeeID)
}

type Connection struct {
	TenantID   string `json:"tenantId"`
	TenantName string `json:"tenantName"`
	TenantType string `json:"tenantType"`
}

// Connections lists the organisations the credentials can reach.
func (c *Client) Connections(ctx context.Context) ([]Connection, error) {
	var out []Connection
	if err := c.do(ctx, http.MethodGet, "connections", nil, &out); err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return out, nil
}

// Package pipeline runs ingestion, identity resolution and consolidation as
// one step.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/phillip-england/payrollsync/internal/consolidate"
	"github.com/phillip-england/payrollsync/internal/identity"
	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/registry"
	"github.com/phillip-england/payrollsync/internal/sheets"
)

type Options struct {
	Settings sheets.Settings
	Rules    consolidate.Rules
	Identity identity.Options
	// RequireConfirmation holds fuzzy HIGH matches back until a human
	// confirms them.
	RequireConfirmation bool
	Roster              []identity.Employee
	// Regions is the region register. Empty disables region validation.
	Regions []string
}

// Pipeline is safe for concurrent Runs; the matcher cache is shared.
type Pipeline struct {
	settings            sheets.Settings
	rules               consolidate.Rules
	requireConfirmation bool
	matcher             *identity.Matcher
	regions             map[string]struct{}
}

func New(opts Options) *Pipeline {
	return &Pipeline{
		settings:            opts.Settings,
		rules:               opts.Rules,
		requireConfirmation: opts.RequireConfirmation,
		matcher:             identity.NewMatcher(opts.Roster, opts.Identity, nil),
		regions:             registry.RegionSet(opts.Regions),
	}
}

func (p *Pipeline) Matcher() *identity.Matcher { return p.matcher }

// Extensions lists the accepted spreadsheet file extensions.
func (p *Pipeline) Extensions() []string { return p.settings.Extensions }

// Input is one reconciliation request. Confirmations maps source names to
// employee IDs a human has already approved.
type Input struct {
	Files         []File
	Confirmations map[string]string
}

type Result struct {
	Data        *payroll.PayrollData        `json:"-"`
	Document    payroll.Document            `json:"document"`
	Summary     consolidate.Summary         `json:"summary"`
	Detections  []Detection                 `json:"detections"`
	Diagnostics []sheets.Diagnostic         `json:"diagnostics"`
	Duplicates  []sheets.Duplicate          `json:"duplicate_overtime_rows"`
	Adjustments []consolidate.CapAdjustment `json:"cap_adjustments"`
	// Matches is empty when no roster is configured.
	Matches []identity.MatchResult `json:"matches"`
	// Pending lists names held back for confirmation.
	Pending        []identity.MatchResult          `json:"pending_confirmation"`
	Unmatched      []string                        `json:"unmatched"`
	UnknownRegions consolidate.UnknownRegionReport `json:"unknown_regions"`
	Warnings       []string                        `json:"warnings"`
	Excluded       []string                        `json:"excluded_employees"`
	Extended       bool                            `json:"pay_period_extended"`
}

// Run loads the files, caps regular hours, resolves names and consolidates.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	log := logging.FromContext(ctx)
	loaded, err := p.Load(ctx, in.Files)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Detections:  loaded.Detections,
		Diagnostics: loaded.Diagnostics,
	}
	if loaded.Overtime != nil {
		res.Duplicates = loaded.Overtime.Report.Duplicates
	}
	res.Adjustments = consolidate.CapRegularHours(ctx, loaded.Site, p.rules.RegularHoursCap)

	var (
		mapper    consolidate.NameMapper = consolidate.ExactNames
		employees map[string]identity.Employee
	)
	if len(p.matcher.Roster()) == 0 {
		log.Warn().Msg("no employee roster loaded, keeping source names without employee IDs")
	} else {
		res.Warnings = append(res.Warnings, p.confirm(ctx, in.Confirmations)...)
		mapper, employees = p.resolve(loaded.Names(), res)
	}

	out, err := consolidate.NewConsolidator(p.rules).Consolidate(ctx, consolidate.Input{
		Site:         loaded.Site,
		Travel:       loaded.Travel,
		Overtime:     loaded.Overtime,
		ValidRegions: p.regions,
		Names:        mapper,
	})
	if err != nil {
		return nil, err
	}

	data := out.Data
	if employees != nil {
		data, err = attachIdentities(out.Data, employees)
		if err != nil {
			return nil, err
		}
	}

	res.Data = data
	res.Document = consolidate.Export(data)
	res.Summary = consolidate.Summarize(data)
	res.UnknownRegions = out.UnknownRegions
	res.Warnings = append(res.Warnings, out.Warnings...)
	res.Excluded = out.Excluded
	res.Extended = out.Extended

	log.Info().
		Int("employees", res.Summary.TotalEmployees).
		Int("entries", res.Summary.TotalEntries).
		Int("pending", len(res.Pending)).
		Int("unmatched", len(res.Unmatched)).
		Int("unknown_region_entries", len(res.UnknownRegions.Entries)).
		Msg("reconciliation finished")
	return res, nil
}

// confirm replays stored confirmations into the matcher.
func (p *Pipeline) confirm(ctx context.Context, confirmations map[string]string) []string {
	names := make([]string, 0, len(confirmations))
	for name := range confirmations {
		names = append(names, name)
	}
	sort.Strings(names)

	var warnings []string
	for _, name := range names {
		id := confirmations[name]
		if !p.matcher.Confirm(name, id) {
			msg := fmt.Sprintf("confirmation for %s points at employee %s, which is not on the roster", name, id)
			logging.FromContext(ctx).Warn().Str("name", name).Str("employee_id", id).Msg("stale confirmation ignored")
			warnings = append(warnings, msg)
		}
	}
	return warnings
}

// resolve matches every source name and returns a mapper that only admits
// names safe to use without a human, plus the roster record for each
// canonical name.
func (p *Pipeline) resolve(names []string, res *Result) (consolidate.NameMapper, map[string]identity.Employee) {
	mapped := consolidate.MapNames{}
	employees := map[string]identity.Employee{}
	for _, name := range names {
		m := p.matcher.Match(name, p.requireConfirmation)
		res.Matches = append(res.Matches, m)
		switch {
		case m.Automatic():
			emp, ok := p.matcher.Employee(m.MatchedID)
			if !ok {
				continue
			}
			mapped[name] = emp.Name
			employees[emp.Name] = emp
		case m.Confidence == identity.NoMatch && !m.HasSuggestions():
			res.Unmatched = append(res.Unmatched, name)
		default:
			res.Pending = append(res.Pending, m)
		}
	}
	return mapped, employees
}

func attachIdentities(data *payroll.PayrollData, employees map[string]identity.Employee) (*payroll.PayrollData, error) {
	timesheets := data.Timesheets()
	for i, ts := range timesheets {
		if emp, ok := employees[ts.Name()]; ok {
			timesheets[i] = ts.WithIdentity(emp.ID, emp.PayrollCalendarID)
		}
	}
	return payroll.NewPayrollData(data.PayPeriodEnd(), timesheets)
}

package payrollsynccli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/phillip-england/payrollsync/internal/config"
	"github.com/phillip-england/payrollsync/internal/consolidate"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/pipeline"
	"github.com/phillip-england/payrollsync/internal/sheets"
	"github.com/phillip-england/payrollsync/internal/store"
)

type runOptions struct {
	site        []string
	travel      []string
	overtime    []string
	outPath     string
	exportPath  string
	unknownPath string
	record      bool
}

func newRunCommand(a *app) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:     "run [FILE...]",
		Aliases: []string{"consolidate"},
		Short:   "Reconcile the three spreadsheets into one payroll document",
		Long: `Run reads the site timesheet, travel time log and overtime register, resolves
employee names against the roster and consolidates everything into one payroll
document. Files passed with --site, --travel or --overtime skip detection;
positional files are classified automatically.

Stored confirmations are applied and the run is recorded in the run store
unless --record=false is given.`,
		Example: `  payrollsync run --site site.xlsx --travel travel.xlsx --overtime overtime.xls --out payroll.json
  payrollsync run *.xlsx --unknown-regions unknown.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(a, cmd, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&opts.site, "site", nil, "site timesheet files")
	f.StringSliceVar(&opts.travel, "travel", nil, "travel time files")
	f.StringSliceVar(&opts.overtime, "overtime", nil, "overtime register files")
	f.StringVarP(&opts.outPath, "out", "o", "", "write the full payroll document JSON here")
	f.StringVar(&opts.exportPath, "export", "", "write the display export JSON here")
	f.StringVar(&opts.unknownPath, "unknown-regions", "", "write quarantined entries here (.csv or .xlsx)")
	f.BoolVar(&opts.record, "record", true, "record the run in the run store")
	return cmd
}

func inputFiles(opts runOptions, args []string) []pipeline.File {
	var files []pipeline.File
	for _, labelled := range []struct {
		kind  sheets.Kind
		paths []string
	}{
		{sheets.KindSite, opts.site},
		{sheets.KindTravel, opts.travel},
		{sheets.KindOvertime, opts.overtime},
	} {
		for _, p := range labelled.paths {
			files = append(files, pipeline.File{Path: p, Kind: labelled.kind})
		}
	}
	for _, p := range args {
		files = append(files, pipeline.File{Path: p})
	}
	return files
}

func runReconcile(a *app, cmd *cobra.Command, opts runOptions, args []string) error {
	files := inputFiles(opts, args)
	if len(files) == 0 {
		return usageError("no spreadsheets given")
	}
	if opts.unknownPath != "" {
		switch strings.ToLower(filepath.Ext(opts.unknownPath)) {
		case ".csv", ".xlsx":
		default:
			return usageError("--unknown-regions must end in .csv or .xlsx")
		}
	}

	cfg, err := a.config()
	if err != nil {
		return err
	}
	ctx := a.context(cmd)
	p, err := a.pipeline(cfg)
	if err != nil {
		return err
	}

	var st *store.Store
	confirmations := map[string]string{}
	if opts.record {
		st, err = a.openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		if confirmations, err = confirmationMap(ctx, st); err != nil {
			return err
		}
	}

	sources := make([]string, len(files))
	for i, f := range files {
		sources[i] = f.Path
	}

	res, err := p.Run(ctx, pipeline.Input{Files: files, Confirmations: confirmations})
	if err != nil {
		if st != nil {
			if _, recErr := st.CreateRun(ctx, store.Run{Status: store.RunFailed, Sources: sources, Error: err.Error()}, nil); recErr != nil {
				fmt.Fprintf(a.stderr, "failed to record run: %v\n", recErr)
			}
		}
		return err
	}

	var run store.Run
	if st != nil {
		if run, err = recordRun(ctx, st, res, sources); err != nil {
			return err
		}
	}

	if opts.outPath != "" {
		if err := writeJSONFile(opts.outPath, res.Data.Document()); err != nil {
			return err
		}
	}
	if opts.exportPath != "" {
		if err := writeJSONFile(opts.exportPath, res.Document); err != nil {
			return err
		}
	}
	if opts.unknownPath != "" && !res.UnknownRegions.Empty() {
		if err := writeUnknownReport(opts.unknownPath, res.UnknownRegions); err != nil {
			return err
		}
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, res)
	}
	return printResult(a, res, run)
}

func recordRun(ctx context.Context, st *store.Store, res *pipeline.Result, sources []string) (store.Run, error) {
	data, err := json.Marshal(res.Data.Document())
	if err != nil {
		return store.Run{}, fmt.Errorf("encode payroll data: %w", err)
	}
	report, err := json.Marshal(res)
	if err != nil {
		return store.Run{}, fmt.Errorf("encode run report: %w", err)
	}
	return st.CreateRun(ctx, store.Run{
		Status:       store.RunCompleted,
		PayPeriodEnd: res.Summary.PayPeriodEnd,
		Sources:      sources,
		Employees:    res.Summary.TotalEmployees,
		Entries:      res.Summary.TotalEntries,
		Warnings:     res.Warnings,
		Data:         data,
		Report:       report,
	}, res.UnknownRegions.Entries)
}

func writeUnknownReport(path string, report consolidate.UnknownRegionReport) error {
	if err := ensureParentDirs(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		err = report.WriteXLSX(f)
	} else {
		err = report.WriteCSV(f)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func printResult(a *app, res *pipeline.Result, run store.Run) error {
	w := a.stdout
	s := res.Summary
	if run.ID != "" {
		fmt.Fprintf(w, "run %s\n", run.ID)
	}
	fmt.Fprintf(w, "pay period ending %s (%s to %s)\n", s.PayPeriodEnd, s.DateRange.Start, s.DateRange.End)
	fmt.Fprintf(w, "%d employees, %d entries, %s hours\n\n", s.TotalEmployees, s.TotalEntries, hours(s.TotalHours))

	t := tableData{
		Headers: []string{"Employee", "Employee ID", "Entries", "Hours", "Overtime", "Regions"},
		Align:   []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignLeft},
	}
	for _, ts := range res.Data.Timesheets() {
		t.add(ts.Name(), orDash(ts.EmployeeID()),
			fmt.Sprint(ts.Len()),
			hours(ts.TotalHours()),
			hours(ts.TotalHours(payroll.Overtime)),
			strings.Join(ts.Regions(), ", "))
	}
	if err := renderTable(w, t); err != nil {
		return err
	}

	if len(res.Pending) > 0 {
		pending := tableData{Headers: []string{"Source name", "Suggested", "Employee ID", "Confidence", "Score"}}
		for _, m := range res.Pending {
			name, id := suggested(m)
			pending.add(m.Input, orDash(name), orDash(id), string(m.Confidence), score(m.Score))
		}
		fmt.Fprintln(w, "\nAwaiting confirmation:")
		if err := renderTable(w, pending); err != nil {
			return err
		}
	}
	printList(w, "Unmatched names", res.Unmatched)
	printList(w, "Excluded employees", res.Excluded)
	if !res.UnknownRegions.Empty() {
		fmt.Fprintf(w, "\n%d entries quarantined in unknown regions: %s\n",
			len(res.UnknownRegions.Entries), strings.Join(res.UnknownRegions.Regions, ", "))
	}
	for _, adj := range res.Adjustments {
		fmt.Fprintf(w, "capped %s: removed %s regular hours\n", adj.Employee, hours(adj.Removed))
	}
	printList(w, "Warnings", res.Warnings)
	return nil
}

// loadDocument reads a payroll document written by run --out.
func loadDocument(path string) (*payroll.PayrollData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	doc, err := payroll.DecodeDocument(f)
	if err != nil {
		return nil, err
	}
	return payroll.FromDocument(doc)
}

// configuredPipeline loads configuration and builds the pipeline.
func configuredPipeline(a *app) (*config.Config, *pipeline.Pipeline, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	p, err := a.pipeline(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, p, nil
}

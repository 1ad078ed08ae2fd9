package payrollsynccli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/phillip-england/payrollsync/internal/config"
	"github.com/phillip-england/payrollsync/internal/payload"
	"github.com/phillip-england/payrollsync/internal/payroll"
	"github.com/phillip-england/payrollsync/internal/payrollapi"
	"github.com/phillip-england/payrollsync/internal/registry"
	"github.com/phillip-england/payrollsync/internal/sheets"
	"github.com/phillip-england/payrollsync/internal/store"
)

var errAPIDisabled = errors.New("payroll API credentials are not configured (XERO_CLIENT_ID and XERO_CLIENT_SECRET)")

func apiClient(ctx context.Context, cfg *config.Config) (*payrollapi.Client, error) {
	if !cfg.API.Enabled() {
		return nil, errAPIDisabled
	}
	if cfg.API.TokenFile != "" {
		if err := ensureParentDirs(cfg.API.TokenFile); err != nil {
			return nil, err
		}
	}
	return payrollapi.New(ctx, payrollapi.Config{
		BaseURL:      cfg.API.BaseURL,
		TokenURL:     cfg.API.TokenURL,
		ClientID:     cfg.API.ClientID,
		ClientSecret: cfg.API.ClientSecret,
		TenantID:     cfg.API.TenantID,
		Scopes:       cfg.API.Scopes,
		TokenFile:    cfg.API.TokenFile,
		Timeout:      cfg.API.Timeout,
		MaxRetries:   cfg.API.MaxRetries,
	})
}

// loadRunOrDocument reads payroll data from a stored run or a document file.
func (a *app) loadRunOrDocument(ctx context.Context, cfg *config.Config, runID string, args []string) (*payroll.PayrollData, error) {
	switch {
	case runID != "" && len(args) > 0:
		return nil, usageError("give either --run or a document file, not both")
	case runID != "":
		st, err := a.openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		run, err := st.GetRun(ctx, runID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("run %s not found", runID)
			}
			return nil, err
		}
		if run.Status != store.RunCompleted {
			return nil, fmt.Errorf("run %s did not complete: %s", run.ID, run.Error)
		}
		doc, err := payroll.DecodeDocument(bytes.NewReader(run.Data))
		if err != nil {
			return nil, err
		}
		return payroll.FromDocument(doc)
	case len(args) == 1:
		return loadDocument(args[0])
	default:
		return nil, usageError("expected a document file or --run")
	}
}

func newPayloadCommand(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "payload [DOCUMENT]",
		Short: "Preview the timesheet requests a payroll document would produce",
		Long: `Payload builds every timesheet request without sending anything and reports
missing mappings and structural problems. It exits non-zero when any timesheet
would be rejected.`,
		Example: `  payrollsync payload payroll.json
  payrollsync payload --run 6c1d...`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageError("expected at most one document")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			data, err := a.loadRunOrDocument(ctx, cfg, runID, args)
			if err != nil {
				return err
			}
			m, err := a.mappings(cfg)
			if err != nil {
				return err
			}
			preview := cfg.Builder().DryRun(ctx, data, m)
			if err := writeJSON(a.stdout, preview); err != nil {
				return err
			}
			if !preview.OK() {
				return fmt.Errorf("%d timesheets have problems", len(preview.Problems)+len(preview.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "use the payroll data of a stored run")
	return cmd
}

func newSubmitCommand(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "submit [DOCUMENT]",
		Short: "Send draft timesheets to the payroll API",
		Long: `Submit creates one draft timesheet per employee. Employees without an
employee ID or with only quarantined hours are skipped; a failure for one
employee does not stop the others. Outcomes are recorded against the run
when --run is given.`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageError("expected at most one document")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			data, err := a.loadRunOrDocument(ctx, cfg, runID, args)
			if err != nil {
				return err
			}
			m, err := a.mappings(cfg)
			if err != nil {
				return err
			}
			client, err := apiClient(ctx, cfg)
			if err != nil {
				return err
			}

			outcomes, submitErr := cfg.Builder().Submit(ctx, data, m, client)
			if runID != "" {
				if err := recordOutcomes(ctx, a, cfg, runID, outcomes); err != nil {
					return err
				}
			}

			if a.jsonOutput {
				if err := writeJSON(a.stdout, map[string]any{"outcomes": outcomes, "counts": payload.Counts(outcomes)}); err != nil {
					return err
				}
			} else {
				t := tableData{Headers: []string{"Employee", "Employee ID", "Status", "Timesheet ID", "Error"}}
				for _, o := range outcomes {
					t.add(o.Employee, orDash(o.EmployeeID), o.Status, orDash(o.TimesheetID), o.Error)
				}
				if err := renderTable(a.stdout, t); err != nil {
					return err
				}
			}
			if submitErr != nil {
				return fmt.Errorf("submission interrupted: %w", submitErr)
			}
			if n := payload.Counts(outcomes)[payload.OutcomeFailed]; n > 0 {
				return fmt.Errorf("%d timesheets failed", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "submit the payroll data of a stored run and record the outcomes")
	return cmd
}

func recordOutcomes(ctx context.Context, a *app, cfg *config.Config, runID string, outcomes []payload.Outcome) error {
	st, err := a.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	for _, o := range outcomes {
		if _, err := st.RecordSubmission(ctx, store.Submission{
			RunID:        runID,
			EmployeeName: o.Employee,
			EmployeeID:   o.EmployeeID,
			TimesheetID:  o.TimesheetID,
			Status:       o.Status,
			Error:        o.Error,
		}); err != nil {
			return err
		}
	}
	return nil
}

func newRosterCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Work with the employee roster",
	}
	var outPath string
	sync := &cobra.Command{
		Use:   "sync",
		Short: "Download the employee roster from the payroll API",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = cfg.Registry.RosterFile
			}
			if outPath == "" {
				return usageError("--out is required when registry.roster_file is not set")
			}
			ctx := a.context(cmd)
			client, err := apiClient(ctx, cfg)
			if err != nil {
				return err
			}
			roster, err := client.Employees(ctx)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := registry.WriteRoster(&buf, roster); err != nil {
				return err
			}
			if err := ensureParentDirs(outPath); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write roster: %w", err)
			}
			fmt.Fprintf(a.stdout, "wrote %d employees to %s\n", len(roster), outPath)
			return nil
		},
	}
	sync.Flags().StringVarP(&outPath, "out", "o", "", "roster CSV to write (default registry.roster_file)")
	cmd.AddCommand(sync)
	return cmd
}

func newMappingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Work with region and earnings rate mappings",
	}
	var (
		outPath   string
		category  string
		untracked []string
	)
	sync := &cobra.Command{
		Use:     "sync",
		Short:   "Build the mappings file from tracking categories and earnings rates",
		Example: `  payrollsync mappings sync --category Region --untracked Travel,Unknown`,
		Args:    exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = cfg.Registry.MappingsFile
			}
			if outPath == "" {
				return usageError("--out is required when registry.mappings_file is not set")
			}
			ctx := a.context(cmd)
			client, err := apiClient(ctx, cfg)
			if err != nil {
				return err
			}
			m, err := client.Mappings(ctx, category, untracked)
			if err != nil {
				return err
			}
			data, err := registry.MarshalMappings(m)
			if err != nil {
				return err
			}
			if err := ensureParentDirs(outPath); err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("write mappings: %w", err)
			}
			fmt.Fprintf(a.stdout, "wrote %d regions and %d earnings rates to %s\n", len(m.Tracking), len(m.Earnings), outPath)
			return nil
		},
	}
	sync.Flags().StringVarP(&outPath, "out", "o", "", "mappings YAML to write (default registry.mappings_file)")
	sync.Flags().StringVar(&category, "category", "Region", "tracking category holding the regions")
	sync.Flags().StringSliceVar(&untracked, "untracked", []string{sheets.DefaultTravelRegion, payroll.UnknownRegion}, "regions sent without a tracking option")
	cmd.AddCommand(sync)
	return cmd
}

func newTenantsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tenants",
		Short: "List the organisations the API credentials can reach",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			client, err := apiClient(ctx, cfg)
			if err != nil {
				return err
			}
			conns, err := client.Connections(ctx)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(a.stdout, conns)
			}
			t := tableData{Headers: []string{"Tenant ID", "Name", "Type"}}
			for _, c := range conns {
				t.add(c.TenantID, c.TenantName, c.TenantType)
			}
			return renderTable(a.stdout, t)
		},
	}
}

func newTokenCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the cached API access token",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the cached access token",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if cfg.API.TokenFile == "" {
				return errors.New("api.token_file is not set")
			}
			if err := payrollapi.ClearToken(cfg.API.TokenFile); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "removed %s\n", cfg.API.TokenFile)
			return nil
		},
	})
	return cmd
}

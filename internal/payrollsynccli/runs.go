package payrollsynccli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/phillip-england/payrollsync/internal/store"
)

func newRunsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			st, err := a.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(a.stdout, runs)
			}
			t := tableData{
				Headers: []string{"ID", "Created", "Status", "Period end", "Employees", "Entries", "Warnings"},
				Align:   []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight},
			}
			for _, r := range runs {
				t.add(r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Status, orDash(r.PayPeriodEnd),
					fmt.Sprint(r.Employees), fmt.Sprint(r.Entries), fmt.Sprint(len(r.Warnings)))
			}
			return renderTable(a.stdout, t)
		},
	}
	list.Flags().IntVar(&limit, "limit", 25, "maximum runs to list (0 for all)")

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show a run with its submissions",
		Args:  exactArgs(1, "a run ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			st, err := a.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			run, err := st.GetRun(ctx, args[0])
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("run %s not found", args[0])
				}
				return err
			}
			subs, err := st.Submissions(ctx, run.ID)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(a.stdout, map[string]any{"run": run, "submissions": subs})
			}

			w := a.stdout
			fmt.Fprintf(w, "run %s (%s)\n", run.ID, run.Status)
			fmt.Fprintf(w, "created:    %s\n", run.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintf(w, "sources:    %s\n", strings.Join(run.Sources, ", "))
			if run.Status == store.RunFailed {
				fmt.Fprintf(w, "error:      %s\n", run.Error)
				return nil
			}
			fmt.Fprintf(w, "period end: %s\n", run.PayPeriodEnd)
			fmt.Fprintf(w, "employees:  %d, entries: %d\n", run.Employees, run.Entries)
			printList(w, "Warnings", run.Warnings)
			if len(subs) > 0 {
				fmt.Fprintln(w, "\nSubmissions:")
				t := tableData{Headers: []string{"Employee", "Status", "Timesheet ID", "Error", "At"}}
				for _, s := range subs {
					t.add(s.EmployeeName, s.Status, orDash(s.TimesheetID), s.Error, s.CreatedAt.Local().Format(time.DateTime))
				}
				return renderTable(w, t)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a run and everything recorded with it",
		Args:  exactArgs(1, "a run ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			ctx := a.context(cmd)
			st, err := a.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.DeleteRun(ctx, args[0]); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("run %s not found", args[0])
				}
				return err
			}
			fmt.Fprintf(a.stdout, "deleted run %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  exactArgs(0, "no arguments"),
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			if cfg.File != "" {
				fmt.Fprintf(a.stdout, "# %s\n", cfg.File)
			}
			_, err = a.stdout.Write(out)
			return err
		},
	})
	return cmd
}

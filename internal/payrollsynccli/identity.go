package payrollsynccli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/phillip-england/payrollsync/internal/identity"
	"github.com/phillip-england/payrollsync/internal/store"
)

// suggested returns the matched employee, or the best suggestion when the
// score was too low to count as a match.
func suggested(m identity.MatchResult) (string, string) {
	if m.MatchedID != "" {
		return m.MatchedName, m.MatchedID
	}
	if len(m.Suggestions) > 0 {
		return m.Suggestions[0].Name, m.Suggestions[0].ID
	}
	return "", ""
}

func newMatchCommand(a *app) *cobra.Command {
	var showAll bool
	cmd := &cobra.Command{
		Use:   "match NAME...",
		Short: "Resolve source names against the employee roster",
		Example: `  payrollsync match "Bob Builder" "J. Smith"
  payrollsync match --suggestions "Jon Smyth"`,
		Args: minArgs(1, "at least one name"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, p, err := configuredPipeline(a)
			if err != nil {
				return err
			}
			m := p.Matcher()
			if len(m.Roster()) == 0 {
				return errors.New("no employee roster configured (set registry.roster_file or run 'payrollsync roster sync')")
			}

			ctx := a.context(cmd)
			st, err := a.openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			confirmed, err := confirmationMap(ctx, st)
			if err != nil {
				return err
			}
			for name, id := range confirmed {
				m.Confirm(name, id)
			}

			results := make([]identity.MatchResult, len(args))
			for i, name := range args {
				results[i] = m.Match(name, cfg.Identity.RequireConfirmation)
			}
			stats := m.Statistics(args)

			if a.jsonOutput {
				return writeJSON(a.stdout, map[string]any{"results": results, "statistics": stats})
			}

			t := tableData{
				Headers: []string{"Source name", "Employee", "Employee ID", "Confidence", "Score", "Confirm"},
				Align:   []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignCenter},
			}
			for _, res := range results {
				name, id := suggested(res)
				confirm := ""
				if res.RequiresConfirmation {
					confirm = "yes"
				}
				t.add(res.Input, orDash(name), orDash(id), string(res.Confidence), score(res.Score), confirm)
				if showAll {
					for _, s := range res.Suggestions {
						t.add("", "  "+s.Name, s.ID, "", score(s.Score), "")
					}
				}
			}
			if err := renderTable(a.stdout, t); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "\n%d names: %d exact, %d fuzzy, %d unmatched, %.1f%% matched\n",
				stats.Total, stats.Exact, stats.Fuzzy, stats.None, stats.MatchRate)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showAll, "suggestions", false, "list every suggestion under each name")
	return cmd
}

func newConfirmationsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "confirmations",
		Aliases: []string{"confirm"},
		Short:   "Manage confirmed name matches",
		Long: `Confirmations record that a name from a spreadsheet is a particular roster
employee. Every later run and match uses them.`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List confirmed matches",
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
				list, err := st.Confirmations(ctx)
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return writeJSON(a.stdout, list)
				}
				t := tableData{Headers: []string{"Source name", "Employee", "Employee ID", "Confirmed"}}
				for _, c := range list {
					t.add(c.InputName, orDash(c.EmployeeName), c.EmployeeID, c.ConfirmedAt.Local().Format(time.DateTime))
				}
				return renderTable(a.stdout, t)
			},
		},
		&cobra.Command{
			Use:   "add NAME EMPLOYEE_ID",
			Short: "Confirm that NAME is the roster employee EMPLOYEE_ID",
			Args:  exactArgs(2, "NAME and EMPLOYEE_ID"),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, p, err := configuredPipeline(a)
				if err != nil {
					return err
				}
				emp, ok := p.Matcher().Employee(strings.TrimSpace(args[1]))
				if !ok {
					return fmt.Errorf("employee %s is not on the roster", args[1])
				}
				ctx := a.context(cmd)
				st, err := a.openStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer st.Close()
				c, err := st.SaveConfirmation(ctx, store.Confirmation{
					InputName:    args[0],
					EmployeeID:   emp.ID,
					EmployeeName: emp.Name,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "confirmed %q as %s (%s)\n", c.InputName, c.EmployeeName, c.EmployeeID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete NAME",
			Short: "Forget a confirmed match",
			Args:  exactArgs(1, "NAME"),
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
				if err := st.DeleteConfirmation(ctx, args[0]); err != nil {
					if errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("no confirmation for %q", args[0])
					}
					return err
				}
				fmt.Fprintf(a.stdout, "deleted confirmation for %q\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

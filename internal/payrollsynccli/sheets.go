package payrollsynccli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phillip-england/payrollsync/internal/sheets"
)

type detector interface {
	Detector() sheets.Detector
}

type pageDetection struct {
	Page   string                 `json:"page"`
	Scores map[sheets.Kind]string `json:"scores"`
}

type fileDetection struct {
	Source   string          `json:"source"`
	Kind     sheets.Kind     `json:"file_type,omitempty"`
	Pages    []pageDetection `json:"pages"`
	Problems []string        `json:"problems,omitempty"`
}

func newDetectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE...",
		Short: "Show which reader accepts each spreadsheet and how every page scored",
		Args:  minArgs(1, "at least one spreadsheet"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			readers := sheets.Readers(cfg.Sheets)

			var out []fileDetection
			for _, path := range args {
				fd := fileDetection{Source: path}
				wb, err := sheets.OpenWorkbook(path, cfg.Sheets.Extensions)
				if err != nil {
					fd.Problems = append(fd.Problems, err.Error())
					out = append(out, fd)
					continue
				}
				for _, d := range wb.Unreadable {
					fd.Problems = append(fd.Problems, fmt.Sprintf("%s: %s", d.Page, d.Reason))
				}
				for _, page := range wb.Pages {
					pd := pageDetection{Page: page.Name, Scores: map[sheets.Kind]string{}}
					for _, r := range readers {
						if d, ok := r.(detector); ok {
							pd.Scores[r.Kind()] = scoreLabel(d.Detector().Evaluate(page))
						}
					}
					fd.Pages = append(fd.Pages, pd)
				}
				if r, ok := sheets.Detect(wb, readers...); ok {
					fd.Kind = r.Kind()
				}
				out = append(out, fd)
			}

			if a.jsonOutput {
				return writeJSON(a.stdout, out)
			}
			return printDetections(a, out)
		},
	}
}

// scoreLabel renders an evaluation as matched/total, marking a pass.
func scoreLabel(ev sheets.Evaluation) string {
	label := fmt.Sprintf("%d/%d", ev.Score(), len(ev.Matched)+len(ev.Missed))
	if ev.Passed() {
		label += " pass"
	}
	return label
}

func printDetections(a *app, out []fileDetection) error {
	t := tableData{Headers: []string{"File", "Page", "Site", "Overtime", "Travel", "Detected"}}
	for _, fd := range out {
		detected := string(fd.Kind)
		if detected == "" {
			detected = "unrecognised"
		}
		name := filepath.Base(fd.Source)
		if len(fd.Pages) == 0 {
			t.add(name, "-", "-", "-", "-", detected)
		}
		for i, pd := range fd.Pages {
			label := ""
			if i == 0 {
				label = detected
			}
			t.add(name, pd.Page,
				orDash(pd.Scores[sheets.KindSite]),
				orDash(pd.Scores[sheets.KindOvertime]),
				orDash(pd.Scores[sheets.KindTravel]),
				label)
		}
	}
	if err := renderTable(a.stdout, t); err != nil {
		return err
	}
	for _, fd := range out {
		printList(a.stdout, filepath.Base(fd.Source), fd.Problems)
	}
	return nil
}

func newParseCommand(a *app) *cobra.Command {
	var (
		kind    string
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse one spreadsheet into its intermediate JSON form",
		Example: `  payrollsync parse site.xlsx
  payrollsync parse --kind travel_time travel.csv --out travel.json`,
		Args: exactArgs(1, "one spreadsheet"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			readers := sheets.Readers(cfg.Sheets)

			var reader sheets.Reader
			if kind != "" {
				for _, r := range readers {
					if string(r.Kind()) == kind {
						reader = r
					}
				}
				if reader == nil {
					return usageError("unknown kind %q (site_timesheet, travel_time or overtime_rates)", kind)
				}
			} else {
				wb, err := sheets.OpenWorkbook(args[0], cfg.Sheets.Extensions)
				if err != nil {
					return err
				}
				r, ok := sheets.Detect(wb, readers...)
				if !ok {
					return fmt.Errorf("%s: not recognised as any known spreadsheet", args[0])
				}
				reader = r
			}

			result, err := sheets.Parse(reader, args[0], cfg.Sheets.Extensions)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := writeJSONFile(outPath, result); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "wrote %s (%s, %d employees, %d entries)\n", outPath, result.Kind, len(result.Employees), result.EntryCount())
				return nil
			}
			return writeJSON(a.stdout, result)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "reader to use instead of detection")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write JSON to this file")
	return cmd
}

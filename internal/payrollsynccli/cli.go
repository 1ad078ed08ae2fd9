// Package payrollsynccli implements the payrollsync command line.
package payrollsynccli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phillip-england/payrollsync/internal/config"
	"github.com/phillip-england/payrollsync/internal/logging"
	"github.com/phillip-england/payrollsync/internal/payload"
	"github.com/phillip-england/payrollsync/internal/pipeline"
	"github.com/phillip-england/payrollsync/internal/registry"
	"github.com/phillip-england/payrollsync/internal/store"
)

var ErrUsage = errors.New("usage")

// Execute runs the command line with args, cancelling on SIGINT or SIGTERM.
func Execute(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return execute(ctx, args, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if args == nil {
		args = []string{}
	}
	root := newRootCommand(&app{stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

// PrintUsage writes the command summary.
func PrintUsage(w io.Writer) {
	root := newRootCommand(&app{stdout: w, stderr: w})
	root.SetOut(w)
	_ = root.Usage()
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// app carries global flags and the lazily loaded configuration.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configFile string
	envFiles   []string
	jsonOutput bool

	cfg *config.Config
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "payrollsync",
		Short: "Reconcile payroll timesheet spreadsheets and send them to the payroll API",
		Long: `payrollsync reads the site timesheet, travel time log and overtime register,
matches employee names against the payroll roster and produces one consolidated
payroll document per pay period. Documents can be previewed as timesheet
payloads or submitted to the payroll API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError("unknown command %q", args[0])
			}
			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return usageError("missing command")
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})

	root.AddGroup(
		&cobra.Group{ID: "core", Title: "Reconciliation Commands:"},
		&cobra.Group{ID: "payroll", Title: "Payroll API Commands:"},
		&cobra.Group{ID: "management", Title: "Management Commands:"},
	)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./payrollsync.yaml when present)")
	flags.StringSliceVar(&a.envFiles, "env-file", []string{".env", ".env.local"}, "dotenv files loaded before the environment is read")
	flags.BoolVar(&a.jsonOutput, "json", false, "print JSON instead of tables")

	core := []*cobra.Command{
		newDetectCommand(a),
		newParseCommand(a),
		newMatchCommand(a),
		newRunCommand(a),
		newPayloadCommand(a),
	}
	payroll := []*cobra.Command{
		newSubmitCommand(a),
		newRosterCommand(a),
		newMappingsCommand(a),
		newTenantsCommand(a),
		newTokenCommand(a),
	}
	management := []*cobra.Command{
		newSetupCommand(a),
		newServeCommand(a),
		newRunsCommand(a),
		newConfirmationsCommand(a),
		newConfigCommand(a),
	}
	for group, cmds := range map[string][]*cobra.Command{"core": core, "payroll": payroll, "management": management} {
		for _, cmd := range cmds {
			cmd.GroupID = group
			root.AddCommand(cmd)
		}
	}
	return root
}

// config loads configuration once and installs the configured logger.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := config.Load(config.Options{ConfigFile: a.configFile, EnvFiles: a.envFiles})
	if err != nil {
		return nil, err
	}
	logging.Configure(cfg.Log)
	a.cfg = cfg
	return cfg, nil
}

// context returns the command context carrying the default logger.
func (a *app) context(cmd *cobra.Command) context.Context {
	return logging.WithLogger(cmd.Context(), logging.Default())
}

// pipeline builds a pipeline from the configured registers. Missing register
// files disable the matching feature.
func (a *app) pipeline(cfg *config.Config) (*pipeline.Pipeline, error) {
	opts := pipeline.Options{
		Settings:            cfg.Sheets,
		Rules:               cfg.Rules,
		Identity:            cfg.Identity.Options,
		RequireConfirmation: cfg.Identity.RequireConfirmation,
	}
	if cfg.Registry.RosterFile != "" {
		roster, err := registry.LoadRoster(cfg.Registry.RosterFile)
		if err != nil {
			return nil, err
		}
		opts.Roster = roster
	}
	if cfg.Registry.RegionsFile != "" {
		regions, err := registry.LoadRegions(cfg.Registry.RegionsFile)
		if err != nil {
			return nil, err
		}
		opts.Regions = regions
	}
	return pipeline.New(opts), nil
}

func (a *app) mappings(cfg *config.Config) (payload.Mappings, error) {
	if cfg.Registry.MappingsFile == "" {
		return payload.Mappings{}, nil
	}
	return registry.LoadMappings(cfg.Registry.MappingsFile)
}

func (a *app) openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if err := ensureParentDirs(cfg.Store.Path); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store.Path)
}

// confirmationMap returns the stored source name to employee ID decisions.
func confirmationMap(ctx context.Context, st *store.Store) (map[string]string, error) {
	list, err := st.Confirmations(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, c := range list {
		out[c.InputName] = c.EmployeeID
	}
	return out, nil
}

func exactArgs(n int, names string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return usageError("expected %s", names)
		}
		return nil
	}
}

func minArgs(n int, names string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return usageError("expected %s", names)
		}
		return nil
	}
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

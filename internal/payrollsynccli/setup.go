package payrollsynccli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phillip-england/payrollsync/internal/envutil"
	"github.com/phillip-england/payrollsync/internal/security"
)

type setupOptions struct {
	adminUser    string
	adminPass    string
	envPath      string
	dbPath       string
	addr         string
	clientID     string
	clientSecret string
	tenantID     string
	force        bool
}

func newSetupCommand(a *app) *cobra.Command {
	var opts setupOptions
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write a .env file with admin credentials and service settings",
		Example: `  payrollsync setup --admin-password 'correct horse battery'
  payrollsync setup --admin-password '...' --xero-client-id ID --xero-client-secret SECRET --force`,
		Args: exactArgs(0, "no arguments"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(a, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.adminUser, "admin-username", "admin", "initial admin username")
	f.StringVar(&opts.adminPass, "admin-password", "", "initial admin password (min 12 chars)")
	f.StringVar(&opts.envPath, "env-path", ".env", "path to the .env file to write")
	f.StringVar(&opts.dbPath, "db-path", "data/payrollsync.db", "run store database path")
	f.StringVar(&opts.addr, "addr", ":8080", "API listen address")
	f.StringVar(&opts.clientID, "xero-client-id", "", "payroll API client id")
	f.StringVar(&opts.clientSecret, "xero-client-secret", "", "payroll API client secret")
	f.StringVar(&opts.tenantID, "xero-tenant-id", "", "payroll API tenant id")
	f.BoolVar(&opts.force, "force", false, "overwrite existing env file")
	return cmd
}

func runSetup(a *app, opts setupOptions) error {
	if opts.adminPass == "" {
		return errors.New("--admin-password is required")
	}
	if _, err := security.HashPassword(opts.adminPass); err != nil {
		return fmt.Errorf("invalid admin password: %w", err)
	}
	if (opts.clientID == "") != (opts.clientSecret == "") {
		return errors.New("--xero-client-id and --xero-client-secret must be given together")
	}

	values := map[string]string{
		"ADMIN_USERNAME": opts.adminUser,
		"ADMIN_PASSWORD": opts.adminPass,
		"AUTH_DB_PATH":   opts.dbPath,
		"API_ADDR":       opts.addr,
	}
	for key, value := range map[string]string{
		"XERO_CLIENT_ID":     opts.clientID,
		"XERO_CLIENT_SECRET": opts.clientSecret,
		"XERO_TENANT_ID":     opts.tenantID,
	} {
		if value != "" {
			values[key] = value
		}
	}

	if err := ensureParentDirs(opts.envPath); err != nil {
		return err
	}
	if err := envutil.WriteDotEnv(opts.envPath, values, opts.force); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s\n", opts.envPath)
	return nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/famwealth/internal/buildinfo"
	"github.com/dmitrijs2005/famwealth/internal/client/config"
	"github.com/dmitrijs2005/famwealth/internal/logging"
)

// Execute loads configuration, runs the command named by args and returns
// the process exit code.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintln(errOut, errStyle.Render("Error: "+err.Error()))
		return 2
	}

	root := NewRootCmd(cfg, in, out, errOut)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, errStyle.Render("Error: "+err.Error()))
		return 1
	}
	return 0
}

type runner struct {
	cfg    *config.Config
	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

// withApp validates the final configuration, builds an App for one command
// and releases it afterwards.
func (r *runner) withApp(fn func(ctx context.Context, a *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := r.cfg.Validate(); err != nil {
			return err
		}
		log := logging.New(r.cfg.LogLevel, r.errOut)

		ctx := cmd.Context()
		a, err := NewApp(ctx, r.cfg, log, r.in, r.out)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}

// NewRootCmd builds the command tree. Flags default to the values already
// in cfg, so they override the JSON file and the environment.
func NewRootCmd(cfg *config.Config, in io.Reader, out, errOut io.Writer) *cobra.Command {
	r := &runner{cfg: cfg, in: in, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "famwealth",
		Short: "Client for the family holdings service",
		Long: `famwealth signs in to the family holdings service, keeps the session
across restarts and renews it transparently while you work.

Environment Variables:
  FAMWEALTH_SERVER_URL        Base URL of the holdings service
  FAMWEALTH_STORE_BACKEND     Credential store backend (sqlite|redis)
  FAMWEALTH_STORE_PATH        SQLite database file
  FAMWEALTH_REDIS_ADDR        Redis host:port
  FAMWEALTH_REDIS_KEY_PREFIX  Redis key prefix
  FAMWEALTH_REQUEST_TIMEOUT   Network timeout, e.g. 10s
  FAMWEALTH_LOG_LEVEL         debug|info|warn|error`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	config.BindFlags(root.PersistentFlags(), cfg)

	var email string
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the session",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Login(ctx, email)
		}),
	}
	loginCmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when empty)")

	var familyID int64
	dashboardCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the holdings summary of a family",
		Args:  cobra.NoArgs,
		RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
			return a.Dashboard(ctx, familyID)
		}),
	}
	dashboardCmd.Flags().Int64VarP(&familyID, "family", "f", 0, "family id")
	_ = dashboardCmd.MarkFlagRequired("family")

	root.AddCommand(
		loginCmd,
		&cobra.Command{
			Use:   "logout",
			Short: "Sign out and forget the stored session",
			Args:  cobra.NoArgs,
			RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
				return a.Logout(ctx)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the local session state",
			Args:  cobra.NoArgs,
			RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
				return a.Status(ctx)
			}),
		},
		&cobra.Command{
			Use:   "whoami",
			Short: "Fetch the profile of the signed-in user",
			Args:  cobra.NoArgs,
			RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
				return a.Whoami(ctx)
			}),
		},
		dashboardCmd,
		&cobra.Command{
			Use:   "passwd",
			Short: "Change the account password",
			Args:  cobra.NoArgs,
			RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
				return a.ChangePassword(ctx)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				buildinfo.PrintBuildData(cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "shell",
			Short: "Start an interactive session",
			Args:  cobra.NoArgs,
			RunE: r.withApp(func(ctx context.Context, a *App, _ []string) error {
				fmt.Fprintln(a.out, titleStyle.Render("famwealth shell")+" (type 'help' for commands)")
				runREPL(ctx, a, a.statusLine, a.reader, a.out)
				return nil
			}),
		},
	)
	return root
}

// Main is the entry point used by cmd/cli.
func Main(ctx context.Context) int {
	return Execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

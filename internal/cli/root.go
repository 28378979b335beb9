// Package cli provides the command-line interface for ipdata.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ipdata/ipdata/internal/config"
	"github.com/ipdata/ipdata/internal/logging"
	"github.com/ipdata/ipdata/internal/version"
)

var (
	envFile      string
	settingsPath string
	verbose      bool
	debug        bool
	quiet        bool

	logger *logging.Logger
	// app is built per invocation once flags and config are known.
	app *App
)

// logLevel maps the verbosity flags. Reset on every run so an earlier
// invocation in the same process cannot leak its level.
func logLevel() zerolog.Level {
	switch {
	case verbose || debug:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	}
	return zerolog.InfoLevel
}

func setup(cmd *cobra.Command) error {
	logger = logging.NewDefaultCLILogger()
	logging.SetGlobalLevel(logLevel())

	cfg, err := config.Load(config.LoadOptions{EnvFile: envFile, SettingsPath: settingsPath})
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := promptProxyPassword(cmd, cfg); err != nil {
		return err
	}
	app, err = NewApp(cfg, logger)
	return err
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ipdata",
		Short: "Upload datasets to object storage and register them as IP assets",
		Long: `ipdata ` + version.Version + ` - Built: ` + version.BuildTime + `

Uploads dataset files to S3 (directly or through presigned URLs) or to an
alternate backend (minio, gcs), then hands the resulting URLs to the IP-asset
registration service.

Credentials come from IPDATA_AWS_ACCESS_KEY_ID, IPDATA_AWS_SECRET_ACCESS_KEY,
IPDATA_AWS_REGION and IPDATA_S3_BUCKET. When any required variable is missing
the override saved with 'ipdata credentials save' is used instead.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				app.Close()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file to load (process environment wins)")
	pf.StringVar(&settingsPath, "settings", "", "settings file (default ~/.config/ipdata/settings)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "show debug messages")
	pf.BoolVar(&debug, "debug", false, "alias for --verbose")
	pf.BoolVarP(&quiet, "quiet", "q", false, "print only warnings, errors and results")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion script",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		// Completion must work without a valid configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			default:
				return rootCmd.GenPowerShellCompletion(out)
			}
		},
	}
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.ExecuteContext(ctx)
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "\nInterrupted")
	}
	return err
}

// AddCommands registers every subcommand on rootCmd.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		newCredentialsCmd(),
		newConnectionCmd(),
		newCorsCmd(),
		newUploadCmd(),
		newRegisterCmd(),
		newServeCmd(),
	)
}

// GetLogger returns the CLI logger, creating one outside a command run.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// commandContext returns the command's context, cancelled on Ctrl+C.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Package cli provides the command-line interface for imghub.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rescale/imghub/internal/config"
	"github.com/rescale/imghub/internal/http"
	"github.com/rescale/imghub/internal/logging"
	"github.com/rescale/imghub/internal/version"
)

// EnvLogFile sets the default for --log-file.
const EnvLogFile = "IMGHUB_LOG_FILE"

var (
	// Global flags
	cfgFile string
	verbose bool
	debug   bool
	quiet   bool
	logFile string

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imghub",
		Short: "imghub - submit vehicle images for analysis",
		Long: `imghub ` + version.Version + ` - Built: ` + version.BuildTime + `
Select images, send them to the analysis endpoint in one multipart request
and browse the persisted history of results.

Quick start:
  imghub upload front.jpg rear.png      One-shot submission
  imghub session                        Interactive selection and submission
  imghub history list                   Past results, newest first`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// stdout carries command output; logs always go to stderr
			logger = logging.New(cmd.ErrOrStderr())
			logging.SetGlobalLevel(logging.LevelFor(verbose || debug, quiet))
			if logFile != "" {
				logger.EnableFile(logging.DefaultFileConfig(logFile))
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.CloseFile()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default: "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", os.Getenv(EnvLogFile), "Also write JSON logs to this file, rotated at 10 MB (env "+EnvLogFile+")")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.ExecuteContext(rootContext)
	if logger != nil {
		// PersistentPostRun is skipped when a command fails.
		logger.CloseFile()
	}

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the command context, falling back to the signal-aware
// root context.
func GetContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// loadConfig reads --config (or the default path) and validates it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if http.NeedsProxyPassword(cfg) {
		promptProxyPassword(cfg)
	}
	return cfg, nil
}

// promptProxyPassword asks for the proxy password on an interactive
// terminal. Without one the proxy is used unauthenticated.
func promptProxyPassword(cfg *config.Config) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		GetLogger().Warn().Msgf("Proxy user %s has no password; set %s to authenticate", cfg.ProxyUser, config.EnvProxyPass)
		return
	}
	fmt.Fprintf(os.Stderr, "Proxy password for %s@%s: ", cfg.ProxyUser, cfg.ProxyHost)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		GetLogger().Warn().Err(err).Msg("Failed to read proxy password")
		return
	}
	cfg.ProxyPassword = string(pw)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "imghub %s (built %s)\n", version.Version, version.BuildTime)
		},
	}
}

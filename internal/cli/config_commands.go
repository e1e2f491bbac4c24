package cli

import (
	"bufio"
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rescale/imghub/internal/config"
	"github.com/rescale/imghub/internal/http"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage imghub configuration",
		Long: `Configuration management commands for imghub.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Check that the upload endpoint is reachable
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for imghub.

Press Enter to accept the value shown in brackets.
Use --force to overwrite an existing configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Fprintln(out, "imghub Configuration Setup")
			fmt.Fprintln(out, "==========================")
			fmt.Fprintln(out)

			cfg := config.NewConfig()
			reader := bufio.NewReader(cmd.InOrStdin())

			var err error
			if cfg.UploadBaseURL, err = promptString(reader, out, "Upload base URL", cfg.UploadBaseURL); err != nil {
				return err
			}
			if cfg.AssetBaseURL, err = promptString(reader, out, "Asset base URL", cfg.AssetBaseURL); err != nil {
				return err
			}

			timeout, err := promptString(reader, out, "Timeout (seconds)", strconv.Itoa(int(cfg.Timeout/time.Second)))
			if err != nil {
				return err
			}
			secs, err := strconv.Atoi(timeout)
			if err != nil {
				return fmt.Errorf("invalid timeout %q: %w", timeout, err)
			}
			cfg.Timeout = time.Duration(secs) * time.Second

			if cfg.HistoryBackend, err = promptString(reader, out, "History backend (file/sqlite)", cfg.HistoryBackend); err != nil {
				return err
			}
			if cfg.HistoryPath, err = promptString(reader, out, "History directory", cfg.HistoryPath); err != nil {
				return err
			}
			if cfg.ProxyMode, err = promptString(reader, out, "Proxy mode (no-proxy/system/basic/ntlm)", cfg.ProxyMode); err != nil {
				return err
			}
			if mode := strings.ToLower(cfg.ProxyMode); mode == "basic" || mode == "ntlm" {
				if cfg.ProxyHost, err = promptString(reader, out, "Proxy host", ""); err != nil {
					return err
				}
				port, err := promptString(reader, out, "Proxy port", strconv.Itoa(cfg.ProxyPort))
				if err != nil {
					return err
				}
				if cfg.ProxyPort, err = strconv.Atoi(port); err != nil {
					return fmt.Errorf("invalid proxy port %q: %w", port, err)
				}
				if cfg.ProxyUser, err = promptString(reader, out, "Proxy user (optional)", ""); err != nil {
					return err
				}
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Configuration saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the current configuration settings.

This command shows the merged configuration from:
  1. Configuration file (see 'config path')
  2. Environment variables (IMGHUB_UPLOAD_URL, IMGHUB_ASSET_URL, IMGHUB_HISTORY_PATH)

Priority: environment > config file > defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "Current Configuration")
			fmt.Fprintln(out, "=====================")
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Endpoint:")
			fmt.Fprintf(out, "  Upload URL:  %s\n", cfg.UploadURL())
			fmt.Fprintf(out, "  Asset URL:   %s\n", cfg.AssetBaseURL)
			fmt.Fprintf(out, "  Timeout:     %s\n", cfg.Timeout)
			fmt.Fprintf(out, "  Max Retries: %d\n", cfg.MaxRetries)
			fmt.Fprintln(out)

			fmt.Fprintln(out, "Proxy Settings:")
			fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
				fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
			}
			if cfg.ProxyPassword != "" {
				fmt.Fprintln(out, "  Password:   <set>")
			}
			if cfg.NoProxy != "" {
				fmt.Fprintf(out, "  No Proxy:   %s\n", cfg.NoProxy)
			}
			fmt.Fprintln(out)

			fmt.Fprintln(out, "History:")
			fmt.Fprintf(out, "  Backend:     %s\n", cfg.HistoryBackend)
			fmt.Fprintf(out, "  Path:        %s\n", cfg.HistoryPath)
			if cfg.HistoryMaxEntries > 0 {
				fmt.Fprintf(out, "  Max Entries: %d\n", cfg.HistoryMaxEntries)
			} else {
				fmt.Fprintln(out, "  Max Entries: unlimited")
			}
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Notifications: %t\n", cfg.NotificationsEnabled)
			fmt.Fprintln(out)

			fmt.Fprintf(out, "Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "  (file does not exist - using defaults)")
			}
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(out, "  Warning: %v\n", err)
			}
			return nil
		},
	}

	return cmd
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Check that the upload endpoint is reachable",
		Long: `Send a HEAD request to the upload base URL through the configured proxy.

Any response below 500 counts as reachable; the endpoint is not required to
implement HEAD.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client, err := http.CreateUploadClient(cfg)
			if err != nil {
				return fmt.Errorf("failed to create HTTP client: %w", err)
			}

			ctx, cancel := context.WithTimeout(GetContext(cmd), 10*time.Second)
			defer cancel()

			fmt.Fprintf(out, "Endpoint: %s\n", cfg.UploadBaseURL)
			req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodHead, cfg.UploadBaseURL, nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				GetLogger().Error().Err(err).Msg("Connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				fmt.Fprintf(out, "  Error: %v\n", err)
				return fmt.Errorf("connection test failed")
			}
			resp.Body.Close()

			if resp.StatusCode >= 500 {
				fmt.Fprintf(out, "✗ Server error: %s\n", resp.Status)
				return fmt.Errorf("connection test failed")
			}
			fmt.Fprintf(out, "✓ Reachable (%s)\n", resp.Status)
			return nil
		},
	}

	return cmd
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Long:  `Display the path to the configuration file.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()
			if cfgFile == "" {
				fmt.Fprintln(out, "Default configuration path:")
			} else {
				fmt.Fprintln(out, "Configuration path (from --config flag):")
			}
			fmt.Fprintf(out, "  %s\n", path)
			fmt.Fprintln(out)

			if info, err := os.Stat(path); err == nil {
				fmt.Fprintln(out, "Status: ✓ File exists")
				fmt.Fprintf(out, "Size:   %d bytes\n", info.Size())
				fmt.Fprintf(out, "Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Fprintln(out, "Status: File does not exist")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Create a configuration file with: imghub config init")
			}
			return nil
		},
	}

	return cmd
}

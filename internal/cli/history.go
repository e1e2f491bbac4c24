package cli

import (
	"bufio"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescale/imghub/internal/constants"
	"github.com/rescale/imghub/internal/export"
	"github.com/rescale/imghub/internal/http"
)

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse and manage past submissions",
		Long: `History commands for imghub.

Commands:
  list    - List past submissions, newest first
  show    - Show the result images and detected views of one entry
  clear   - Remove every entry
  export  - Write the history to a file, s3:// or azblob:// destination`,
	}

	historyCmd.AddCommand(newHistoryListCmd())
	historyCmd.AddCommand(newHistoryShowCmd())
	historyCmd.AddCommand(newHistoryClearCmd())
	historyCmd.AddCommand(newHistoryExportCmd())

	return historyCmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		output string
		limit  int
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List past submissions, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(output); err != nil {
				return err
			}
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			entries := a.store.Load()
			if limit > 0 && len(entries) > limit {
				entries = entries[:limit]
			}
			return renderList(cmd.OutOrStdout(), output, entries, a.resolver)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatText, "Output format: text, json, yaml")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n entries (0 = all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(output); err != nil {
				return err
			}
			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			entry, ok := a.store.Get(args[0])
			if !ok {
				return fmt.Errorf("no history entry with id %s", args[0])
			}
			return renderEntry(cmd.OutOrStdout(), output, entry, a.resolver)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatText, "Output format: text, json, yaml")
	return cmd
}

func newHistoryClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all history entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{withOrchestrator: true, notifyOut: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}
			defer a.Close()

			n := len(a.orch.History())
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is already empty.")
				return nil
			}
			if !yes {
				reader := bufio.NewReader(cmd.InOrStdin())
				ok, err := promptConfirm(reader, cmd.OutOrStdout(), fmt.Sprintf("Remove %d history entries?", n))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			a.orch.ClearHistory()
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries.\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "export --to <destination>",
		Short: "Export the history as a JSON array",
		Long: `Write the full history, newest first, as a JSON array.

Destinations:
  ./history.json                 Local file
  s3://bucket/key.json           S3 object (default AWS credential chain)
  azblob://container/blob.json   Azure blob (AZURE_STORAGE_CONNECTION_STRING)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if to == "" {
				return errors.New("--to is required")
			}
			dest, err := export.ParseDestination(to)
			if err != nil {
				return err
			}

			a, err := newApp(appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := GetContext(cmd)
			sink, err := export.Open(ctx, dest, a.cfg)
			if err != nil {
				return err
			}

			entries := a.store.Load()
			retry := http.Config{
				MaxRetries:   constants.MaxRetries,
				InitialDelay: constants.RetryInitialDelay,
				MaxDelay:     constants.RetryMaxDelay,
				OnRetry: func(attempt int, err error, errType http.ErrorType) {
					GetLogger().Warn().Err(err).Int("attempt", attempt).Str("error_type", http.ErrorTypeName(errType)).Msg("Export failed, retrying")
				},
			}
			if err := export.Write(ctx, sink, entries, retry); err != nil {
				return fmt.Errorf("export to %s failed: %w", dest, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(entries), dest)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Destination path or URL")
	return cmd
}

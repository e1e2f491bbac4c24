package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rescale/imghub/internal/assets"
	"github.com/rescale/imghub/internal/core"
	"github.com/rescale/imghub/internal/events"
	"github.com/rescale/imghub/internal/localfs"
	"github.com/rescale/imghub/internal/logging"
	"github.com/rescale/imghub/internal/progress"
	"github.com/rescale/imghub/internal/selection"
	ustrings "github.com/rescale/imghub/internal/util/strings"
)

func newSessionCmd() *cobra.Command {
	var (
		progressMode string
		previewDir   string
	)

	cmd := &cobra.Command{
		Use:   "session [image...]",
		Short: "Interactive selection, submission and history browsing",
		Long: `Start an interactive session. Images given as arguments are added to the
selection. Type 'help' at the prompt for the list of commands.

Each selected image gets a local preview copy that is removed when it leaves
the selection and when the session ends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validProgressMode(progressMode); err != nil {
				return err
			}

			previews, err := selection.NewDirPreviews(previewDir)
			if err != nil {
				return err
			}
			defer previews.Close()

			a, err := newApp(appOptions{
				withOrchestrator: true,
				progressMode:     progress.Mode(progressMode),
				previews:         previews,
				notifyOut:        cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer a.Close()

			go logEvents(GetLogger(), a.bus.SubscribeAll())

			s := &session{
				orch:     a.orch,
				resolver: a.resolver,
				out:      cmd.OutOrStdout(),
			}
			if len(args) > 0 {
				s.add(args)
			}
			return s.run(GetContext(cmd), cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&progressMode, "progress", string(progress.ModeAuto), "Progress display: auto, bar, files, events, none")
	cmd.Flags().StringVar(&previewDir, "preview-dir", "", "Parent directory for preview copies (default: system temp)")
	return cmd
}

// logEvents mirrors bus traffic into the debug log until the bus closes.
func logEvents(log *logging.Logger, ch <-chan events.Event) {
	for ev := range ch {
		switch e := ev.(type) {
		case *events.SelectionChangedEvent:
			log.Debug().Str("action", e.Action).Strs("ids", e.IDs).Msg("Selection changed")
		case *events.SubmitEvent:
			log.Debug().Str("event", string(e.Type())).Int("files", e.FileCount).Strs("entries", e.EntryIDs).Msg("Submission state")
		case *events.HistoryChangedEvent:
			log.Debug().Bool("cleared", e.Cleared).Int("total", e.Total).Msg("History changed")
		}
	}
}

var errQuit = errors.New("quit")

// session is the read-eval-print loop behind 'imghub session'.
type session struct {
	orch     *core.Orchestrator
	resolver *assets.Resolver
	out      io.Writer
}

const sessionHelp = `Commands:
  add <path...>        Add images to the selection
  remove <id>          Remove one image from the selection
  clear                Empty the selection
  list                 Show the selection
  submit               Send the selection in one request
  history [n]          List past submissions, newest first
  show <id>            Show one history entry
  reload               Re-read history from disk
  clear-history        Remove every history entry
  help                 Show this help
  quit                 Leave the session`

func (s *session) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "imghub session. Type 'help' for commands.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprintf(s.out, "imghub (%d selected)> ", s.orch.Selection().Len())
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := s.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *session) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "add":
		if len(args) == 0 {
			return errors.New("usage: add <path...>")
		}
		s.add(args)
	case "remove", "rm":
		if len(args) != 1 {
			return errors.New("usage: remove <id>")
		}
		if !s.orch.Selection().Remove(args[0]) {
			return fmt.Errorf("no selected image with id %s", args[0])
		}
		fmt.Fprintf(s.out, "removed %s\n", args[0])
	case "clear":
		n := s.orch.Selection().Clear()
		fmt.Fprintf(s.out, "cleared %d %s\n", n, ustrings.Pluralize("image", int64(n)))
	case "list", "ls":
		s.list()
	case "submit", "send":
		return s.submit(ctx)
	case "history":
		return s.history(args)
	case "show":
		if len(args) != 1 {
			return errors.New("usage: show <id>")
		}
		for _, e := range s.orch.History() {
			if e.ID == args[0] {
				return renderEntry(s.out, formatText, e, s.resolver)
			}
		}
		return fmt.Errorf("no history entry with id %s", args[0])
	case "reload":
		n := len(s.orch.Refresh())
		fmt.Fprintf(s.out, "history reloaded (%d total)\n", n)
	case "clear-history":
		s.orch.ClearHistory()
		fmt.Fprintln(s.out, "history cleared")
	case "help", "?":
		fmt.Fprintln(s.out, sessionHelp)
	case "quit", "exit", "q":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (type 'help')", cmd)
	}
	return nil
}

func (s *session) add(paths []string) {
	added := addPaths(s.orch.Selection(), paths, localfs.CollectOptions{}, s.out)
	for _, e := range added {
		fmt.Fprintf(s.out, "added %s  %s\n", e.ID, e.Blob.Name())
	}
}

func (s *session) list() {
	entries := s.orch.Selection().Snapshot()
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "selection is empty")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tPREVIEW")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.Blob.Name(), e.Blob.MediaType(), e.Blob.Size(), e.Preview)
	}
	tw.Flush()
}

func (s *session) submit(ctx context.Context) error {
	outcome, err := s.orch.Submit(ctx)
	if err != nil {
		return err
	}
	return renderOutcome(s.out, formatText, outcome.Result, outcome.Entries, s.resolver)
}

func (s *session) history(args []string) error {
	entries := s.orch.History()
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		if n > 0 && n < len(entries) {
			entries = entries[:n]
		}
	}
	return renderList(s.out, formatText, entries, s.resolver)
}

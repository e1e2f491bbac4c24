package cli

import (
	"fmt"
	"io"

	"github.com/rescale/imghub/internal/assets"
	"github.com/rescale/imghub/internal/config"
	"github.com/rescale/imghub/internal/constants"
	"github.com/rescale/imghub/internal/core"
	"github.com/rescale/imghub/internal/events"
	"github.com/rescale/imghub/internal/history"
	"github.com/rescale/imghub/internal/localfs"
	"github.com/rescale/imghub/internal/notify"
	"github.com/rescale/imghub/internal/progress"
	"github.com/rescale/imghub/internal/selection"
	"github.com/rescale/imghub/internal/storage"
	"github.com/rescale/imghub/internal/transfer"
)

// app holds the components one command invocation works with.
type app struct {
	cfg      *config.Config
	kv       storage.KV
	store    *history.Store
	bus      *events.EventBus
	resolver *assets.Resolver
	orch     *core.Orchestrator
}

type appOptions struct {
	// withOrchestrator builds the transfer client and orchestrator; history
	// commands only need the store.
	withOrchestrator bool
	progressMode     progress.Mode
	previews         selection.PreviewAllocator
	notifyOut        io.Writer
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := GetLogger()

	kv, err := storage.Open(cfg.HistoryBackend, cfg.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history storage: %w", err)
	}
	log.Debug().Str("backend", cfg.HistoryBackend).Str("path", cfg.HistoryPath).Msg("History storage opened")

	a := &app{
		cfg: cfg,
		kv:  kv,
		store: history.NewStore(kv,
			history.WithMaxEntries(cfg.HistoryMaxEntries),
			history.WithLogger(log),
		),
		bus:      events.NewEventBus(constants.EventBusDefaultBuffer),
		resolver: assets.NewResolver(cfg.AssetBaseURL),
	}

	if !opts.withOrchestrator {
		return a, nil
	}

	mode := opts.progressMode
	client, err := transfer.NewClient(cfg,
		transfer.WithLogger(log),
		transfer.WithProgress(func(n int) (progress.Reporter, progress.FileTracker) {
			return progress.New(mode, a.bus, n)
		}),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create upload client: %w", err)
	}

	bufOpts := []selection.Option{selection.WithEventBus(a.bus), selection.WithLogger(log)}
	if opts.previews != nil {
		bufOpts = append(bufOpts, selection.WithPreviews(opts.previews))
	}

	notifier := notify.NewConsole(&notify.Config{Enabled: cfg.NotificationsEnabled}, log, opts.notifyOut)

	a.orch = core.NewOrchestrator(selection.NewBuffer(bufOpts...), client, a.store,
		core.WithEventBus(a.bus),
		core.WithNotifier(notifier),
		core.WithLogger(log),
	)
	return a, nil
}

// Close releases storage and the event bus.
func (a *app) Close() {
	a.bus.Close()
	if err := storage.Close(a.kv); err != nil {
		GetLogger().Warn().Err(err).Msg("Failed to close history storage")
	}
}

// addPaths expands directory arguments, turns the resulting paths into blobs
// and adds them to the selection.
// Unreadable paths and non-images are reported on w and skipped.
func addPaths(sel *selection.Buffer, args []string, opts localfs.CollectOptions, w io.Writer) []selection.Entry {
	paths, err := localfs.Collect(args, opts)
	if err != nil {
		fmt.Fprintf(w, "skipped: %v\n", err)
		return nil
	}
	blobs := make([]selection.Blob, 0, len(paths))
	for _, p := range paths {
		b, err := selection.NewFileBlob(p)
		if err != nil {
			fmt.Fprintf(w, "skipped %s: %v\n", notify.ShortenPath(p), err)
			continue
		}
		blobs = append(blobs, b)
	}
	added, skipped := sel.Add(blobs...)
	for _, s := range skipped {
		fmt.Fprintf(w, "skipped %s: not an image (%s)\n", s.Name(), s.MediaType())
	}
	return added
}

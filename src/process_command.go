package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/contre95/song-classifier/src/features/classifying"
	"github.com/contre95/song-classifier/src/features/config"
	"github.com/contre95/song-classifier/src/features/syncing"
	"github.com/contre95/song-classifier/src/infra/confirm"
	"github.com/contre95/song-classifier/src/infra/files"
	"github.com/contre95/song-classifier/src/infra/git"
	"github.com/contre95/song-classifier/src/infra/inference"
	"github.com/contre95/song-classifier/src/infra/tag"
	"github.com/contre95/song-classifier/src/infra/watcher"
)

// processInput feeds the confirmation form.
var processInput = os.Stdin

// configuredHost is what a bare --webdav resolves to: the host stored in config.json.
const configuredHost = "configured"

type processFlags struct {
	webdavHost      string
	webdavUser      string
	webdavPassword  string
	noSkipProcessed bool
	noSkipInStore   bool
	noSync          bool
	dryRun          bool
	watch           bool
	yes             bool
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags processFlags

	cmd := &cobra.Command{
		Use:   "process [path]",
		Short: "Infer, confirm and write tags for every audio file under path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return runProcess(cmd, ctx, root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.webdavHost, "webdav", "", "Process files on a WebDAV server (bare flag uses the configured host)")
	cmd.Flags().Lookup("webdav").NoOptDefVal = configuredHost
	cmd.Flags().StringVar(&flags.webdavUser, "webdav-user", "", "WebDAV username (overrides WEBDAV_USERNAME and config)")
	cmd.Flags().StringVar(&flags.webdavPassword, "webdav-password", "", "WebDAV password (overrides WEBDAV_PASSWORD and config)")
	cmd.Flags().BoolVar(&flags.noSkipProcessed, "no-skip-processed", false, "Reprocess files that already carry the processed marker")
	cmd.Flags().BoolVar(&flags.noSkipInStore, "no-skip-in-metadata", false, "Reprocess files already present in the metadata table")
	cmd.Flags().BoolVar(&flags.noSync, "no-sync", false, "Do not pull or push the shared metadata repository")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Run inference only, without confirming or writing anything")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Accept every proposed record unchanged instead of showing the form")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Keep running and process new audio files as they appear (local paths only)")
	return cmd
}

func runProcess(cmd *cobra.Command, ctx *commandContext, root string, flags processFlags) error {
	manager, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	kind := files.KindLocal
	opts := files.Options{}
	if flags.webdavHost != "" {
		kind = files.KindWebDAV
		opts.Host = flags.webdavHost
		if opts.Host == configuredHost {
			opts.Host = manager.Get().WebDAV.Host
		}
		if opts.Host == "" {
			return &exitError{code: exitFailure, err: errors.New("no WebDAV host given and none configured (use --webdav HOST or config set-webdav --host)")}
		}
		opts.Username, opts.Password = manager.WebDAVCredentials(flags.webdavUser, flags.webdavPassword)
		if flags.watch {
			return &exitError{code: exitFailure, err: errors.New("--watch only works with local paths")}
		}
		if opts.TempDir, err = manager.TempDir(); err != nil {
			return err
		}
	} else {
		if root, err = resolveLocalRoot(root); err != nil {
			return &exitError{code: exitFailure, err: err}
		}
	}

	settings, apiKey := manager.InferenceSettings()
	if apiKey == "" && !flags.dryRun {
		return &exitError{code: exitFailure, err: errors.New("OPENAI_API_KEY is not set")}
	}

	library, err := ctx.library()
	if err != nil {
		return err
	}
	// A dry run never confirms, so it needs no terminal.
	confirmer, err := confirm.New(library, processInput, cmd.OutOrStdout(), flags.yes || flags.dryRun)
	if err != nil {
		return &exitError{code: exitFailure, err: fmt.Errorf("%w: pass --yes to accept proposals unchanged", err)}
	}

	transport, err := files.NewTransport(kind, opts)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	inferrer := inference.NewClient(inference.Config{
		APIKey:         apiKey,
		BaseURL:        settings.BaseURL,
		Model:          settings.Model,
		TimeoutSeconds: settings.TimeoutSeconds,
	}, library)

	var syncer classifying.Syncer
	if !flags.noSync {
		syncer = syncing.NewService(manager, git.NewCLI(""))
	}

	service := classifying.NewService(
		library,
		transport,
		tag.NewTagReader(),
		tag.NewTagWriter(),
		inferrer,
		confirmer,
		syncer,
	)

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := classifying.BatchRequest{
		Root: root,
		Options: classifying.Options{
			SkipIfInStore:   !flags.noSkipInStore,
			SkipIfProcessed: !flags.noSkipProcessed,
			DryRun:          flags.dryRun,
		},
		Sync: !flags.noSync,
	}
	written := make(map[string]struct{})
	runBatch := func() error {
		summary, err := service.Run(runCtx, req)
		printSummary(cmd, manager, summary, flags.dryRun)
		for _, o := range summary.Outcomes {
			if o.Persisted {
				written[o.Key] = struct{}{}
			}
		}
		if err != nil {
			return err
		}
		if summary.Interrupted {
			return &exitError{code: exitInterrupt, err: errors.New("interrupted")}
		}
		return nil
	}

	if !flags.watch {
		return runBatch()
	}

	w, err := watcher.New(root, watcher.DefaultDebounce)
	if err != nil {
		return err
	}
	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Run(runCtx) }()

	if err := runBatch(); err != nil {
		return err
	}
	for {
		select {
		case keys := <-w.Changes():
			keys = dropOwnWrites(keys, written)
			if len(keys) == 0 {
				continue
			}
			slog.Info("New audio files detected", "count", len(keys), "first", keys[0])
			if err := runBatch(); err != nil {
				return err
			}
		case err := <-watchErr:
			if runCtx.Err() != nil {
				return &exitError{code: exitInterrupt, err: errors.New("interrupted")}
			}
			return err
		}
	}
}

// dropOwnWrites removes keys whose change was the tag write of an earlier
// batch. Each recorded write is consumed once so a later edit still counts.
func dropOwnWrites(keys []string, written map[string]struct{}) []string {
	fresh := keys[:0:0]
	for _, key := range keys {
		if _, ok := written[key]; ok {
			delete(written, key)
			continue
		}
		fresh = append(fresh, key)
	}
	if dropped := len(keys) - len(fresh); dropped > 0 {
		slog.Debug("Ignoring changes from our own tag writes", "count", dropped)
	}
	return fresh
}

// resolveLocalRoot checks that root is an existing directory and resolves symlinks.
func resolveLocalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("path does not exist: %s", root)
		}
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", root)
	}
	return resolved, nil
}

func printSummary(cmd *cobra.Command, manager *config.Manager, summary classifying.Summary, dryRun bool) {
	out := cmd.OutOrStdout()
	if dryRun && len(summary.Outcomes) > 0 {
		rows := make([][]string, 0, len(summary.Outcomes))
		for _, o := range summary.Outcomes {
			if o.Status != classifying.StatusWouldProcess || o.Track == nil {
				continue
			}
			rows = append(rows, []string{o.Key, o.Track.Title, o.Track.Artist, o.Track.Album.Name, o.Track.Album.Artist, o.Track.Genre, o.Track.DateString()})
		}
		if len(rows) > 0 {
			fmt.Fprintln(out, renderTable([]string{"Key", "Track", "Artist", "Album", "Album artist", "Genre", "Date"}, rows, nil))
		}
	}

	counts := [][]string{
		{"Total", strconv.Itoa(summary.Total)},
		{"Processed", strconv.Itoa(summary.Processed)},
		{"Skipped", strconv.Itoa(summary.Skipped)},
		{"Would process", strconv.Itoa(summary.WouldProcess)},
		{"Failed", strconv.Itoa(summary.Failed)},
	}
	fmt.Fprintln(out, renderTable([]string{"Outcome", "Assets"}, counts, []columnAlignment{alignLeft, alignRight}))

	var failed []string
	for _, o := range summary.Outcomes {
		if o.Status == classifying.StatusFailed && o.Err != nil {
			failed = append(failed, fmt.Sprintf("  %s: %v", o.Key, o.Err))
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(out, "Failed assets:")
		fmt.Fprintln(out, strings.Join(failed, "\n"))
	}
	if summary.Interrupted {
		fmt.Fprintln(out, "Interrupted.")
	}
	if summary.Pushed == syncing.ResultFailed {
		fmt.Fprintf(out, "Metadata was not pushed. Local changes remain in %s; run again to retry.\n", manager.RepoDir())
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/graaaaa/vrcphoto-companion/internal/api"
	"github.com/graaaaa/vrcphoto-companion/internal/ingest"
	"github.com/graaaaa/vrcphoto-companion/internal/photoindex"
	"github.com/graaaaa/vrcphoto-companion/internal/singleinstance"
	"github.com/graaaaa/vrcphoto-companion/internal/version"
	"github.com/graaaaa/vrcphoto-companion/internal/watch"
)

type logSyncer interface {
	Sync(ctx context.Context, mode ingest.Mode) (*ingest.Result, error)
}

type photoScanner interface {
	Scan(ctx context.Context, roots []string) (photoindex.Result, error)
}

// syncRunner couples a log sync with a photo rescan and broadcasts the
// lifecycle over the SSE hub. It implements api.SyncUsecase.
type syncRunner struct {
	syncer    logSyncer
	indexer   photoScanner
	photoDirs []string
	hub       *api.Hub
	logger    *slog.Logger
}

func (r *syncRunner) RunSync(ctx context.Context, mode ingest.Mode) (*ingest.Result, error) {
	// The started signal goes out before the sync so subscribers see it
	// while a long run is still in progress. The run ID is only known once
	// the sync returns; the completed event carries it.
	if r.hub != nil {
		r.hub.Publish(&api.SyncEvent{
			Phase: api.PhaseStarted,
			At:    time.Now(),
		})
	}

	res, err := r.syncer.Sync(ctx, mode)
	if err != nil {
		if r.hub != nil {
			r.hub.Publish(&api.SyncEvent{
				Phase: api.PhaseFailed,
				Error: err.Error(),
				At:    time.Now(),
			})
		}
		return nil, err
	}

	// The photo index is refreshed alongside the logs so the grouped view
	// sees both sides move together. A scan failure does not void the log
	// sync that already completed.
	if scanRes, scanErr := r.indexer.Scan(ctx, r.photoDirs); scanErr != nil {
		r.logger.Warn("photo scan failed after sync", "error", scanErr)
	} else {
		r.logger.Info("photo scan completed",
			"files_seen", scanRes.FilesSeen,
			"upserted", scanRes.Upserted,
			"missing_roots", len(scanRes.MissingRoots),
		)
	}

	if r.hub != nil {
		r.hub.Publish(&api.SyncEvent{
			Phase:  api.PhaseCompleted,
			RunID:  res.RunID,
			Result: res,
			At:     time.Now(),
		})
	}
	return res, nil
}

func newServeCommand(cctx *commandContext) *cobra.Command {
	var portFlag int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			release, ok, err := singleinstance.AcquireLock()
			if err != nil {
				return fmt.Errorf("acquire instance lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another instance is already running")
			}
			defer release()

			e, err := cctx.openEnv()
			if err != nil {
				return err
			}
			defer e.Close()

			logger := slog.Default()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if done, err := e.db.VacuumIfNeeded(ctx); err != nil {
				logger.Warn("vacuum check failed", "error", err)
			} else if done {
				logger.Info("database vacuumed")
			}

			hub := api.NewHub()
			go hub.Run()

			runner := &syncRunner{
				syncer:    e.syncer,
				indexer:   e.indexer,
				photoDirs: e.cfg.PhotoDirs,
				hub:       hub,
				logger:    logger,
			}

			// Initial sync so the API serves fresh data from the start.
			go func() {
				if _, err := runner.RunSync(ctx, ingest.ModeIncremental); err != nil {
					logger.Warn("startup sync failed", "error", err)
				}
			}()

			if e.cfg.WatchEnabled {
				watcher := watch.New(e.cfg.ResolveLogDir(), func() {
					if _, err := runner.RunSync(ctx, ingest.ModeIncremental); err != nil {
						logger.Warn("watch-triggered sync failed", "error", err)
					}
				})
				go func() {
					if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
						logger.Warn("log watcher stopped", "error", err)
					}
				}()
			}

			port := e.cfg.Port
			if portFlag != 0 {
				port = portFlag
			}
			addr := fmt.Sprintf("127.0.0.1:%d", port)

			server := api.NewServer(addr, version.String(),
				api.WithQueryUsecase(e.queries),
				api.WithSyncUsecase(runner),
				api.WithHub(hub),
				api.WithBasicAuth(e.cfg.AuthUser, e.cfg.AuthPassword),
			)

			done := make(chan os.Signal, 1)
			signal.Notify(done, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", "version", version.String(), "addr", addr)
				if err := server.Start(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case <-done:
				logger.Info("shutting down")
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			}

			cancel()
			hub.Stop()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("server shutdown error", "error", err)
			}

			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&portFlag, "port", 0, "Override the configured HTTP port")

	return cmd
}

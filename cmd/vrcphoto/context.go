package main

import (
	"fmt"
	"path/filepath"

	"github.com/graaaaa/vrcphoto-companion/internal/appinfo"
	"github.com/graaaaa/vrcphoto-companion/internal/config"
	"github.com/graaaaa/vrcphoto-companion/internal/ingest"
	"github.com/graaaaa/vrcphoto-companion/internal/logstore"
	"github.com/graaaaa/vrcphoto-companion/internal/photoindex"
	"github.com/graaaaa/vrcphoto-companion/internal/query"
	"github.com/graaaaa/vrcphoto-companion/internal/reconcile"
	"github.com/graaaaa/vrcphoto-companion/internal/store"
)

// commandContext carries lazily-loaded configuration shared by commands.
type commandContext struct {
	configFlag *string
	cfg        *config.Config
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads configuration once, from the --config path when given.
func (c *commandContext) ensureConfig() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}

	var (
		cfg config.Config
		err error
	)
	if c.configFlag != nil && *c.configFlag != "" {
		cfg, err = config.LoadFrom(*c.configFlag)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}
	c.cfg = &cfg
	return cfg, nil
}

// env bundles the opened stores and services for one command invocation.
type env struct {
	cfg     config.Config
	db      *store.Store
	ledger  *logstore.Store
	syncer  *ingest.Syncer
	indexer *photoindex.Indexer
	queries *query.Service
}

// openEnv opens the database and ledger and wires the pipeline services.
// Callers must Close.
func (c *commandContext) openEnv() (*env, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	dataDir, err := config.EnsureDataDir()
	if err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	db, err := store.Open(filepath.Join(dataDir, appinfo.DatabaseFileName))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ledger, err := logstore.Open(filepath.Join(dataDir, appinfo.LogStoreDirName))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open log store: %w", err)
	}

	syncLockPath := filepath.Join(dataDir, appinfo.SyncLockFileName)
	syncer := ingest.New(
		cfg.ResolveLogDir(),
		ledger,
		db,
		reconcile.New(db),
		ingest.WithLockFile(syncLockPath),
	)

	indexer := photoindex.New(db, photoindex.WithBatchSize(cfg.ScanBatchSize))

	return &env{
		cfg:     cfg,
		db:      db,
		ledger:  ledger,
		syncer:  syncer,
		indexer: indexer,
		queries: query.New(db),
	}, nil
}

// Close releases the environment's resources.
func (e *env) Close() error {
	return e.db.Close()
}

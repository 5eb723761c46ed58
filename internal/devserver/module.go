// Package devserver is a local DM backend serving the REST API the client
// talks to, backed by SQLite.
package devserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/lock"
	"github.com/nicedig/ndm/internal/logging"
	"github.com/nicedig/ndm/internal/store"
)

// Params holds the devserver configuration passed to the fx module.
type Params struct {
	DataDir   string
	Addr      string
	PublicURL string // base of attachment URLs; empty = http://<Addr>
	Secret    string
	Seed      bool
	LogPath   string // empty = <DataDir>/ndmd.log
}

// DBPath returns the database file inside dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "ndm.db")
}

// FilesDir returns the attachment directory inside dataDir.
func FilesDir(dataDir string) string {
	return filepath.Join(dataDir, "files")
}

// Module returns the fx module for the devserver, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("devserver",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideLock,
			provideStore,
			provideIssuer,
			provideHandlers,
			newRouter,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	path := p.LogPath
	if path == "" {
		path = filepath.Join(p.DataDir, "ndmd.log")
	}
	return logging.New(path, "ndmd", true)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring data dir lock", zap.String("dir", p.DataDir))
	l, err := lock.Acquire(p.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("data dir lock acquired")
	return l, nil
}

// OpenStore opens and migrates the database in dataDir.
func OpenStore(dataDir string, logger *zap.Logger) (*store.DB, error) {
	if err := os.MkdirAll(FilesDir(dataDir), 0700); err != nil {
		return nil, err
	}
	dbPath := DBPath(dataDir)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// provideStore depends on the lock so the database is opened only by the
// lock holder.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	return OpenStore(p.DataDir, logger)
}

func provideIssuer(p Params) (*Issuer, error) {
	return NewIssuer(p.Secret)
}

func provideHandlers(p Params, db *store.DB, logger *zap.Logger) *handlers {
	public := p.PublicURL
	if public == "" {
		public = "http://" + p.Addr
	}
	return &handlers{
		db:        db,
		filesDir:  FilesDir(p.DataDir),
		publicURL: strings.TrimRight(public, "/"),
		logger:    logger.Named("http"),
		now:       time.Now,
	}
}

func registerLifecycle(lc fx.Lifecycle, p Params, srv *Server, lk *lock.Lock, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if p.Seed {
				users, err := Seed(db, time.Now())
				if err != nil {
					return err
				}
				for _, u := range users {
					logger.Info("seeded user", zap.Int64("id", u.ID), zap.String("email", u.Email))
				}
			}

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("devserver stopped")
			_ = logger.Sync()
			return nil
		},
	})
}

// Package app opens a workspace: config, database, migrations, logger and
// the decision backend, and hands back a ready engine.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"opsdesk/internal/config"
	"opsdesk/internal/db"
	"opsdesk/internal/decisions"
	"opsdesk/internal/engine"
	"opsdesk/internal/logging"
	"opsdesk/internal/migrate"
)

// Workspace is an opened opsdesk workspace. Close releases the database and
// any Redis connection.
type Workspace struct {
	Dir    string
	Config *config.Config
	DB     *sql.DB
	Engine engine.Engine
	Log    *logrus.Logger
	redis  *redis.Client
}

// Options controls how a workspace is opened.
type Options struct {
	Dir string
	// ConfigFile overrides <Dir>/opsdesk.yml.
	ConfigFile string
	// Logger is used as-is when set; otherwise one is built from the log section.
	Logger *logrus.Logger
}

// ResolveConfig loads the workspace config, falling back to defaults when the
// workspace has no opsdesk.yml yet.
func ResolveConfig(opts Options) (*config.Config, error) {
	if opts.ConfigFile != "" {
		return config.FromFile(opts.ConfigFile)
	}
	cfg, err := config.LoadOptional(opts.Dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("")
	}
	return cfg, nil
}

// Open resolves config, migrates the database and wires the engine to the
// configured decision backend.
func Open(ctx context.Context, opts Options) (*Workspace, error) {
	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		if log, err = logging.New(cfg.Log); err != nil {
			return nil, err
		}
	}
	conn, err := db.Open(db.Config{Workspace: opts.Dir})
	if err != nil {
		return nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	w := &Workspace{Dir: opts.Dir, Config: cfg, DB: conn, Log: log}
	e := engine.New(conn, cfg)
	e.Log = log
	switch cfg.Backend() {
	case config.BackendMemory:
		e.Decisions = decisions.NewMemoryPersistence()
	case config.BackendRedis:
		client, err := decisions.ConnectRedis(cfg.Decisions.RedisURL)
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			conn.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		w.redis = client
		e.Decisions = decisions.NewRedisPersistence(client, cfg.Decisions.RedisPrefix)
	}
	w.Engine = e
	log.WithFields(logrus.Fields{"workspace": opts.Dir, "backend": cfg.Backend()}).Debug("workspace opened")
	return w, nil
}

func (w *Workspace) Close() error {
	if w.redis != nil {
		w.redis.Close()
	}
	return w.DB.Close()
}

package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the Postgres channel a write announces its key on.
const NotifyChannel = "explorer_kv_changed"

const (
	schemaSQL = `
		CREATE TABLE IF NOT EXISTS explorer_kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	// The upsert and the notification run in one statement, so a watcher is
	// never told about a write that did not commit.
	setSQL = `
		WITH upsert AS (
			INSERT INTO explorer_kv (key, value, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
			RETURNING key
		)
		SELECT pg_notify('` + NotifyChannel + `', key) FROM upsert`

	getSQL = `SELECT value FROM explorer_kv WHERE key = $1`
)

// relistenDelay is how long the listener waits before reconnecting.
var relistenDelay = time.Second

// PostgresKV stores values in the explorer_kv table. Watchers are driven by
// LISTEN/NOTIFY, so writes from other processes reach local views too.
type PostgresKV struct {
	pool     *pgxpool.Pool
	logger   *slog.Logger
	watchers watchers

	listenOnce sync.Once
	listenErr  error
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewPool opens and pings a connection pool.
func NewPool(ctx context.Context, databaseURL string, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	logger.Info("Connected to database", "host", poolCfg.ConnConfig.Host, "database", poolCfg.ConnConfig.Database)
	return pool, nil
}

// NewPostgresKV creates the table if needed. The pool stays owned by the caller.
func NewPostgresKV(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresKV, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("create explorer_kv: %w", err)
	}
	return &PostgresKV{pool: pool, logger: logger, done: make(chan struct{})}, nil
}

func (p *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, getSQL, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query %s: %w", key, err)
	}
	return value, true, nil
}

func (p *PostgresKV) Set(ctx context.Context, key, value string) error {
	if _, err := p.pool.Exec(ctx, setSQL, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Watch starts the shared listener on first use. The first LISTEN happens
// before Watch returns, so no later write is missed.
func (p *PostgresKV) Watch(ctx context.Context, key string, fn func()) (func(), error) {
	p.listenOnce.Do(func() {
		conn, err := p.listen(ctx)
		if err != nil {
			p.listenErr = err
			close(p.done)
			return
		}
		listenCtx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go p.run(listenCtx, conn)
	})
	if p.listenErr != nil {
		return nil, p.listenErr
	}
	return p.watchers.add(key, fn), nil
}

// Close stops the listener and waits for it to release its connection.
func (p *PostgresKV) Close() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

func (p *PostgresKV) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen on %s: %w", NotifyChannel, err)
	}
	return conn, nil
}

// run delivers notifications until ctx is canceled, reconnecting after
// connection failures.
func (p *PostgresKV) run(ctx context.Context, conn *pgxpool.Conn) {
	defer close(p.done)
	for {
		err := p.wait(ctx, conn)
		conn.Release()
		if ctx.Err() != nil {
			return
		}

		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeTags("component", "wishlist", "backend", "postgres"),
			Level: sentry.LevelWarning,
		})
		p.logger.Error("Wishlist listener lost its connection", "error", err)

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(relistenDelay):
			}
			conn, err = p.listen(ctx)
			if err == nil {
				break
			}
			p.logger.Error("Failed to re-establish wishlist listener", "error", err)
		}
		// Writes may have happened while disconnected.
		p.notifyAll()
	}
}

func (p *PostgresKV) wait(ctx context.Context, conn *pgxpool.Conn) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		p.watchers.notify(n.Payload)
	}
}

func (p *PostgresKV) notifyAll() {
	p.watchers.mu.Lock()
	keys := make([]string, 0, len(p.watchers.byKey))
	for k := range p.watchers.byKey {
		keys = append(keys, k)
	}
	p.watchers.mu.Unlock()
	for _, k := range keys {
		p.watchers.notify(k)
	}
}

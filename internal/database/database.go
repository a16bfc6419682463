package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"swarmsync/internal/migrations"

	_ "github.com/mattn/go-sqlite3"
)

const memoryPath = ":memory:"

type Database struct {
	db      *sql.DB
	effects *effectQueue
}

// New opens (creating if needed) the sqlite database at dbPath and applies
// pending migrations. ":memory:" opens a private in-memory database.
func New(dbPath string) (*Database, error) {
	d, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := d.Migrate(context.Background()); err != nil {
		if closeErr := d.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return d, nil
}

// Open connects without migrating.
func Open(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == memoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db, effects: newEffectQueue()}, nil
}

func dsn(dbPath string) string {
	params := "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if dbPath != memoryPath {
		params += "&_journal_mode=WAL"
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return "file:" + dbPath + sep + params
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate applies every migration newer than the recorded schema version and
// returns the resulting version.
func (d *Database) Migrate(ctx context.Context) (int, error) {
	all, err := migrations.All()
	if err != nil {
		return 0, err
	}
	if _, err := d.db.ExecContext(ctx, createSchemaMigrationsQuery); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := d.SchemaVersion(ctx)
	if err != nil {
		return 0, err
	}
	for _, m := range all {
		if m.Version <= current {
			continue
		}
		err := retryableDBOperationNoReturn(ctx, func() error {
			tx, err := d.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %03d_%s: %w", m.Version, m.Name, err)
			}
			if _, err := tx.ExecContext(ctx, insertSchemaMigrationQuery, m.Version, m.Name, time.Now().UnixMilli()); err != nil {
				_ = tx.Rollback()
				return err
			}
			return tx.Commit()
		}, "migrate")
		if err != nil {
			return current, err
		}
		current = m.Version
	}
	return current, nil
}

// SchemaVersion returns the highest applied migration, zero for a fresh database.
func (d *Database) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := d.db.QueryRowContext(ctx, selectSchemaVersionQuery).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

// Write runs fn inside one read-write transaction. Effects registered with
// Tx.AfterCommit run once the transaction commits and never on rollback.
// fn may be invoked again when sqlite reports the database busy.
func (d *Database) Write(ctx context.Context, fn func(tx *Tx) error) error {
	var committed *Tx
	err := retryableDBOperationNoReturn(ctx, func() error {
		sqlTx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		tx := newTx(ctx, sqlTx)
		if err := fn(tx); err != nil {
			_ = sqlTx.Rollback()
			return err
		}
		if err := sqlTx.Commit(); err != nil {
			return err
		}
		committed = tx
		return nil
	}, "write transaction")
	if err != nil {
		return err
	}

	for _, effect := range committed.effects {
		d.effects.run(ctx, effect.key, effect.fn)
	}
	return nil
}

// Read runs fn against the database without opening a transaction.
func (d *Database) Read(ctx context.Context, fn func(tx *Tx) error) error {
	tx := newTx(ctx, d.db)
	if err := fn(tx); err != nil {
		return err
	}
	for _, effect := range tx.effects {
		d.effects.run(ctx, effect.key, effect.fn)
	}
	return nil
}

// effectQueue coalesces after-commit effects by key across concurrent
// transactions: while an effect runs, further requests for the same key
// collapse into a single rerun.
type effectQueue struct {
	mu      sync.Mutex
	pending map[string]*effectState
}

type effectState struct {
	rerun bool
	fn    func(ctx context.Context)
}

func newEffectQueue() *effectQueue {
	return &effectQueue{pending: make(map[string]*effectState)}
}

func (q *effectQueue) run(ctx context.Context, key string, fn func(ctx context.Context)) {
	q.mu.Lock()
	if st, ok := q.pending[key]; ok {
		st.rerun = true
		st.fn = fn
		q.mu.Unlock()
		return
	}
	st := &effectState{}
	q.pending[key] = st
	q.mu.Unlock()

	for {
		fn(ctx)

		q.mu.Lock()
		if !st.rerun {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		st.rerun = false
		fn = st.fn
		q.mu.Unlock()
	}
}

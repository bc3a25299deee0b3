package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/talkdb/talkdb/internal/database"
)

const defaultMaxRows = 200

type Config struct {
	URL             string
	ReadOnly        bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	MaxRows         int
}

// Handle implements database.Handle over database/sql for sqlite, duckdb and
// postgres.
type Handle struct {
	db      *sql.DB
	dialect database.Dialect
	maxRows int

	mu      sync.Mutex
	workDir string
}

var _ database.Handle = (*Handle)(nil)

func Open(ctx context.Context, cfg Config) (*Handle, error) {
	source, err := database.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(source.Driver, driverDSN(source, cfg.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", source.Dialect, err)
	}

	if source.Memory && source.Dialect == database.DialectSQLite {
		// Every sqlite connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxIdleTime > 0 {
			db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
		}
		if cfg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", source.Dialect, err)
	}

	return New(db, source.Dialect, cfg.MaxRows)
}

// New wraps an already opened pool.
func New(db *sql.DB, dialect database.Dialect, maxRows int) (*Handle, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	switch dialect {
	case database.DialectSQLite, database.DialectDuckDB, database.DialectPostgres:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	return &Handle{db: db, dialect: dialect, maxRows: maxRows}, nil
}

func (h *Handle) Dialect() database.Dialect {
	return h.dialect
}

// DB exposes the pool for callers that need to write, such as the demo seeder.
func (h *Handle) DB() *sql.DB {
	return h.db
}

func (h *Handle) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func (h *Handle) Close() error {
	err := h.db.Close()

	h.mu.Lock()
	workDir := h.workDir
	h.workDir = ""
	h.mu.Unlock()
	if workDir != "" {
		if removeErr := os.RemoveAll(workDir); removeErr != nil && err == nil {
			err = fmt.Errorf("remove dataset dir: %w", removeErr)
		}
	}
	return err
}

func driverDSN(source database.Source, readOnly bool) string {
	switch source.Dialect {
	case database.DialectSQLite:
		if source.Memory {
			return ":memory:"
		}
		if readOnly {
			return "file:" + source.DSN + "?mode=ro&_busy_timeout=5000"
		}
		return source.DSN + "?_journal_mode=WAL&_busy_timeout=5000"
	case database.DialectDuckDB:
		if source.Memory {
			return ""
		}
		if readOnly {
			return source.DSN + "?access_mode=read_only"
		}
		return source.DSN
	case database.DialectPostgres:
		if !readOnly {
			return source.DSN
		}
		separator := "?"
		if strings.Contains(source.DSN, "?") {
			separator = "&"
		}
		return source.DSN + separator + "default_transaction_read_only=on"
	default:
		return source.DSN
	}
}

package db

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var ErrPoolNotInitialized = errors.New("db: pool not initialized")

type Options struct {
	Driver   string
	DSN      string
	MaxConns int
	MinConns int
}

// Pool is the process-wide connection pool. It is created empty, opened once by
// Init and released by Close; callers borrow connections per query.
type Pool struct {
	opts Options
	log  *zap.SugaredLogger

	mu  sync.RWMutex
	gdb *gorm.DB
}

func NewPool(opts Options, log *zap.SugaredLogger) *Pool {
	if opts.MaxConns <= 0 {
		opts.MaxConns = 10
	}
	if opts.MinConns <= 0 {
		opts.MinConns = 1
	}
	return &Pool{opts: opts, log: log}
}

// Init opens the pool. Calling it again while open only logs a warning.
func (p *Pool) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gdb != nil {
		p.log.Warnw("connection pool already initialized", "driver", p.opts.Driver)
		return nil
	}

	d, err := dialector(p.opts.Driver, p.opts.DSN)
	if err != nil {
		return err
	}

	gdb, err := gorm.Open(d, &gorm.Config{
		Logger: newGormLogger(p.log),
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", p.opts.Driver, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(p.opts.MaxConns)
	sqlDB.SetMaxIdleConns(p.opts.MinConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("ping %s: %w", p.opts.Driver, err)
	}

	p.gdb = gdb
	p.log.Infow("connection pool created",
		"driver", p.opts.Driver,
		"max_conns", p.opts.MaxConns,
		"min_conns", p.opts.MinConns,
	)
	return nil
}

// DB returns the open handle, or nil before Init and after Close.
func (p *Pool) DB() *gorm.DB {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gdb
}

func (p *Pool) Ping(ctx context.Context) error {
	gdb := p.DB()
	if gdb == nil {
		return ErrPoolNotInitialized
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gdb == nil {
		return nil
	}
	sqlDB, err := p.gdb.DB()
	p.gdb = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		return err
	}
	p.log.Infow("connection pool closed", "driver", p.opts.Driver)
	return nil
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

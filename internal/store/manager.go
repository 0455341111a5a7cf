// Package store exports resolved germination sets to MySQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"go.trai.ch/zerr"

	"github.com/dbsmedya/germinate/internal/config"
	"github.com/dbsmedya/germinate/internal/logger"
)

// ErrNotConnected is returned when the store is used before Connect.
var ErrNotConnected = zerr.New("store not connected")

const (
	maxRetries     = 3
	initialBackoff = time.Second
)

// Manager owns the connection to the result database.
type Manager struct {
	DB *sql.DB

	config  *config.StoreConfig
	log     *logger.Logger
	open    func(dsn string) (*sql.DB, error)
	backoff time.Duration
}

// NewManager creates a manager for cfg. Nothing is dialled until Connect.
func NewManager(cfg *config.StoreConfig, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		config:  cfg,
		log:     log,
		open:    func(dsn string) (*sql.DB, error) { return sql.Open("mysql", dsn) },
		backoff: initialBackoff,
	}
}

// Connect opens and verifies the connection, retrying with exponential
// backoff.
func (m *Manager) Connect(ctx context.Context) error {
	db, err := m.connectWithRetry(ctx)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to connect to store database"), "host", m.config.Host)
	}
	m.DB = db
	return nil
}

func (m *Manager) connectWithRetry(ctx context.Context) (*sql.DB, error) {
	var err error
	backoff := m.backoff

	for i := 0; i < maxRetries; i++ {
		var db *sql.DB
		db, err = m.connect()
		if err == nil {
			pingErr := db.PingContext(ctx)
			if pingErr == nil {
				return db, nil
			}
			db.Close() //nolint:errcheck,gosec // ping error takes precedence
			err = pingErr
		}

		m.log.Warnw("Store connection attempt failed", "attempt", i+1, "error", err)

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, zerr.With(err, "retries", maxRetries)
}

func (m *Manager) connect() (*sql.DB, error) {
	db, err := m.open(BuildDSN(m.config))
	if err != nil {
		return nil, err
	}

	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	return db, nil
}

// BuildDSN constructs a MySQL DSN from configuration.
func BuildDSN(cfg *config.StoreConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	params := "?parseTime=true"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return ErrNotConnected
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return zerr.Wrap(err, "store ping failed")
	}
	return nil
}

// Close closes the connection if one is open.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	err := m.DB.Close()
	m.DB = nil
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return zerr.Wrap(err, "store close failed")
	}
	return nil
}

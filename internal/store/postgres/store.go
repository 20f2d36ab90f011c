// Package postgres provides the PostgreSQL implementation of the store interfaces.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/relohub/platform/internal/store"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger

	agents      *AgentStore
	clients     *ClientStore
	invitations *InvitationStore
	tasks       *TaskStore
	housing     *HousingStore
	messages    *MessageStore
	listings    *ListingStore
	documents   *DocumentStore
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(dsn string) *Config {
	return &Config{
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
	}
}

// NewPostgresStore creates a new PostgreSQL store with the given configuration.
func NewPostgresStore(cfg *Config, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &PostgresStore{
		db:     db,
		logger: logger,
	}

	s.agents = &AgentStore{db: db, logger: logger}
	s.clients = &ClientStore{db: db, logger: logger}
	s.invitations = &InvitationStore{db: db, logger: logger}
	s.tasks = &TaskStore{db: db, logger: logger}
	s.housing = &HousingStore{db: db, logger: logger}
	s.messages = &MessageStore{db: db, logger: logger}
	s.listings = &ListingStore{db: db, logger: logger}
	s.documents = &DocumentStore{db: db, logger: logger}

	logger.Info("connected to PostgreSQL database")
	return s, nil
}

// Agents returns the AgentStore.
func (s *PostgresStore) Agents() store.AgentStore {
	return s.agents
}

// Clients returns the ClientStore.
func (s *PostgresStore) Clients() store.ClientStore {
	return s.clients
}

// Invitations returns the InvitationStore.
func (s *PostgresStore) Invitations() store.InvitationStore {
	return s.invitations
}

// Tasks returns the TaskStore.
func (s *PostgresStore) Tasks() store.TaskStore {
	return s.tasks
}

// Housing returns the HousingStore.
func (s *PostgresStore) Housing() store.HousingStore {
	return s.housing
}

// Messages returns the MessageStore.
func (s *PostgresStore) Messages() store.MessageStore {
	return s.messages
}

// Listings returns the ListingStore.
func (s *PostgresStore) Listings() store.ListingStore {
	return s.listings
}

// Documents returns the DocumentStore.
func (s *PostgresStore) Documents() store.DocumentStore {
	return s.documents
}

// WithTx executes the given function within a database transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txs := &txStore{
		tx:     tx,
		logger: s.logger,
	}

	if err := fn(txs); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Ping verifies database connectivity. Used by the health checker.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	s.logger.Info("closing PostgreSQL connection")
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// txStore wraps a transaction and implements the Store interface.
type txStore struct {
	tx     *sql.Tx
	logger *slog.Logger

	agents      *AgentStore
	clients     *ClientStore
	invitations *InvitationStore
	tasks       *TaskStore
	housing     *HousingStore
	messages    *MessageStore
	listings    *ListingStore
	documents   *DocumentStore
}

func (s *txStore) Agents() store.AgentStore {
	if s.agents == nil {
		s.agents = &AgentStore{tx: s.tx, logger: s.logger}
	}
	return s.agents
}

func (s *txStore) Clients() store.ClientStore {
	if s.clients == nil {
		s.clients = &ClientStore{tx: s.tx, logger: s.logger}
	}
	return s.clients
}

func (s *txStore) Invitations() store.InvitationStore {
	if s.invitations == nil {
		s.invitations = &InvitationStore{tx: s.tx, logger: s.logger}
	}
	return s.invitations
}

func (s *txStore) Tasks() store.TaskStore {
	if s.tasks == nil {
		s.tasks = &TaskStore{tx: s.tx, logger: s.logger}
	}
	return s.tasks
}

func (s *txStore) Housing() store.HousingStore {
	if s.housing == nil {
		s.housing = &HousingStore{tx: s.tx, logger: s.logger}
	}
	return s.housing
}

func (s *txStore) Messages() store.MessageStore {
	if s.messages == nil {
		s.messages = &MessageStore{tx: s.tx, logger: s.logger}
	}
	return s.messages
}

func (s *txStore) Listings() store.ListingStore {
	if s.listings == nil {
		s.listings = &ListingStore{tx: s.tx, logger: s.logger}
	}
	return s.listings
}

func (s *txStore) Documents() store.DocumentStore {
	if s.documents == nil {
		s.documents = &DocumentStore{tx: s.tx, logger: s.logger}
	}
	return s.documents
}

func (s *txStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	// Already in a transaction, just execute the function
	return fn(s)
}

func (s *txStore) Close() error {
	// No-op for transaction store
	return nil
}

// queryable is an interface that both *sql.DB and *sql.Tx implement.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

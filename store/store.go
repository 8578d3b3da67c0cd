// Package store persists channel and security definitions in SQLite.
//
// The store is the admin-facing side of the gateway: channels created or
// edited here are exported to the same shape the runtime configuration uses.
// Secrets are sealed before they reach this package and stored opaque.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rpcgate/rpcgate/channel"
)

// ErrNotFound is returned when a named record does not exist.
var ErrNotFound = errors.New("store: not found")

// DefaultSecurityHeader is the request header a security definition checks
// when none is configured.
const DefaultSecurityHeader = "X-API-Key"

// Store wraps the SQLite database holding channel configuration.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			url_path TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			data_format TEXT NOT NULL DEFAULT 'json',
			security_name TEXT,
			service_whitelist TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS security_defs (
			id INTEGER PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			header TEXT NOT NULL DEFAULT 'X-API-Key',
			sealed_secret TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	}
	for _, t := range tables {
		if _, err := db.Exec(t); err != nil {
			return err
		}
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ChannelRecord is a stored channel definition plus its persistence metadata.
type ChannelRecord struct {
	ID int64
	channel.Channel
	CreatedAt string
	UpdatedAt string
}

// CreateChannel inserts a new channel definition.
func (s *Store) CreateChannel(ctx context.Context, ch channel.Channel) (*ChannelRecord, error) {
	if err := ch.Validate(); err != nil {
		return nil, err
	}

	whitelist, err := json.Marshal(ch.ServiceWhitelist)
	if err != nil {
		return nil, err
	}

	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO channels (name, url_path, is_active, data_format, security_name, service_whitelist, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ch.Name, ch.URLPath, ch.IsActive, ch.Format(), ch.Security, string(whitelist), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel %q: %w", ch.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &ChannelRecord{ID: id, Channel: ch, CreatedAt: ts, UpdatedAt: ts}, nil
}

// EditChannel replaces the stored definition of the named channel.
func (s *Store) EditChannel(ctx context.Context, ch channel.Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}

	whitelist, err := json.Marshal(ch.ServiceWhitelist)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE channels
		 SET url_path = ?, is_active = ?, data_format = ?, security_name = ?, service_whitelist = ?, updated_at = ?
		 WHERE name = ?`,
		ch.URLPath, ch.IsActive, ch.Format(), ch.Security, string(whitelist), now(), ch.Name)
	if err != nil {
		return fmt.Errorf("failed to edit channel %q: %w", ch.Name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChannel removes the named channel.
func (s *Store) DeleteChannel(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete channel %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetChannel returns the named channel.
func (s *Store) GetChannel(ctx context.Context, name string) (*ChannelRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, url_path, is_active, data_format, security_name, service_whitelist, created_at, updated_at
		 FROM channels WHERE name = ?`, name)
	return scanChannel(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*ChannelRecord, error) {
	var (
		rec       ChannelRecord
		security  sql.NullString
		whitelist string
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.URLPath, &rec.IsActive, &rec.DataFormat,
		&security, &whitelist, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Security = security.String
	if err := json.Unmarshal([]byte(whitelist), &rec.ServiceWhitelist); err != nil {
		return nil, fmt.Errorf("channel %q: corrupt service_whitelist: %w", rec.Name, err)
	}
	return &rec, nil
}

// SecurityDef is an API-key security definition. SealedSecret is the opaque
// sealed form produced by the secret codec.
type SecurityDef struct {
	ID           int64
	Name         string
	Header       string
	SealedSecret string
	CreatedAt    string
	UpdatedAt    string
}

// CreateSecurityDef inserts a new security definition.
func (s *Store) CreateSecurityDef(ctx context.Context, def SecurityDef) (*SecurityDef, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("security definition has no name")
	}
	if def.SealedSecret == "" {
		return nil, fmt.Errorf("security definition %q has no sealed secret", def.Name)
	}
	if def.Header == "" {
		def.Header = DefaultSecurityHeader
	}

	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO security_defs (name, header, sealed_secret, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		def.Name, def.Header, def.SealedSecret, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create security definition %q: %w", def.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	def.ID = id
	def.CreatedAt = ts
	def.UpdatedAt = ts
	return &def, nil
}

// GetSecurityDef returns the named security definition.
func (s *Store) GetSecurityDef(ctx context.Context, name string) (*SecurityDef, error) {
	var def SecurityDef
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, header, sealed_secret, created_at, updated_at
		 FROM security_defs WHERE name = ?`, name).
		Scan(&def.ID, &def.Name, &def.Header, &def.SealedSecret, &def.CreatedAt, &def.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// DeleteSecurityDef removes the named security definition.
func (s *Store) DeleteSecurityDef(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM security_defs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete security definition %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExportConfig materializes the stored channels as a runtime configuration.
func (s *Store) ExportConfig(ctx context.Context) (*channel.Config, error) {
	result, err := s.SearchChannels(ctx, Query{PageSize: maxPageSize})
	if err != nil {
		return nil, err
	}

	cfg := &channel.Config{Channels: make([]channel.Channel, 0, len(result.Items))}
	for _, rec := range result.Items {
		cfg.Channels = append(cfg.Channels, rec.Channel)
	}
	return cfg, nil
}

// Package sqlite persists subscribers, notification channels and run
// snapshots in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/wildfire-alert-service/internal/domain"
)

// Store implements the subscriber list, channel registry and object store
// on top of modernc.org/sqlite.
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// Object is a stored snapshot body.
type Object struct {
	Key         string
	Body        []byte
	ContentType string
	UpdatedAt   time.Time
}

// NewStore opens the database at dsn and configures WAL mode. A nil clock
// uses real time.
func NewStore(dsn string, clock clockwork.Clock) (*Store, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single connection keeps per-connection pragmas in force and
	// serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: exec %s: %w", pragma, err)
		}
	}
	return &Store{db: db, clock: clock}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS subscribers (
	contact        TEXT NOT NULL,
	area_code      TEXT NOT NULL,
	channel_handle TEXT NOT NULL DEFAULT '',
	registered_on  TEXT NOT NULL,
	PRIMARY KEY (contact, area_code)
);

CREATE TABLE IF NOT EXISTS channels (
	area_code  TEXT PRIMARY KEY,
	handle     TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS channel_members (
	handle        TEXT NOT NULL REFERENCES channels(handle),
	contact       TEXT NOT NULL,
	subscribed_at TEXT NOT NULL,
	PRIMARY KEY (handle, contact)
);

CREATE TABLE IF NOT EXISTS objects (
	object_key   TEXT PRIMARY KEY,
	body         BLOB NOT NULL,
	content_type TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) now() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}

// ListSubscribers returns every stored subscriber in registration order.
// Records are returned as stored; validation is left to the caller.
func (s *Store) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact, area_code, channel_handle, registered_on FROM subscribers ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list subscribers: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Subscriber, 0)
	for rows.Next() {
		var sub domain.Subscriber
		if err := rows.Scan(&sub.Contact, &sub.AreaCode, &sub.ChannelHandle, &sub.RegisteredOn); err != nil {
			return nil, fmt.Errorf("sqlite: scan subscriber: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list subscribers: %w", err)
	}
	return subs, nil
}

// SaveSubscriber inserts sub or, when (contact, area_code) already exists,
// replaces its channel handle and registration date.
func (s *Store) SaveSubscriber(ctx context.Context, sub domain.Subscriber) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (contact, area_code, channel_handle, registered_on)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (contact, area_code) DO UPDATE SET
			channel_handle = excluded.channel_handle,
			registered_on  = excluded.registered_on`,
		sub.Contact, sub.AreaCode, sub.ChannelHandle, sub.RegisteredOn,
	)
	if err != nil {
		return fmt.Errorf("sqlite: save subscriber %s/%s: %w", sub.Contact, sub.AreaCode, err)
	}
	return nil
}

// EnsureChannel returns the channel handle for areaCode, creating it on first
// use. Repeated calls return the same handle.
func (s *Store) EnsureChannel(ctx context.Context, areaCode string) (string, error) {
	if err := domain.ValidateAreaCode(areaCode); err != nil {
		return "", err
	}
	area := strings.TrimSpace(areaCode)

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channels (area_code, handle, created_at) VALUES (?, ?, ?)`,
		area, domain.ChannelHandleFor(area), s.now(),
	); err != nil {
		return "", fmt.Errorf("sqlite: create channel %s: %w", areaCode, err)
	}

	var stored string
	err := s.db.QueryRowContext(ctx,
		`SELECT handle FROM channels WHERE area_code = ?`, area,
	).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("sqlite: read channel %s: %w", areaCode, err)
	}
	return stored, nil
}

// Subscribe adds contact to the channel identified by handle. Subscribing
// twice is a no-op. An unknown handle yields domain.ErrNotFound.
func (s *Store) Subscribe(ctx context.Context, contact, handle string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM channels WHERE handle = ?`, handle).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: channel %s: %w", handle, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("sqlite: read channel %s: %w", handle, err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO channel_members (handle, contact, subscribed_at) VALUES (?, ?, ?)`,
		handle, contact, s.now(),
	); err != nil {
		return fmt.Errorf("sqlite: subscribe %s to %s: %w", contact, handle, err)
	}
	return nil
}

// ChannelMembers lists the contacts subscribed to handle in subscription order.
func (s *Store) ChannelMembers(ctx context.Context, handle string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact FROM channel_members WHERE handle = ? ORDER BY rowid`, handle)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list members of %s: %w", handle, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("sqlite: scan member: %w", err)
		}
		members = append(members, c)
	}
	return members, rows.Err()
}

// PutObject stores body under key, replacing any previous body.
func (s *Store) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO objects (object_key, body, content_type, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (object_key) DO UPDATE SET
			body         = excluded.body,
			content_type = excluded.content_type,
			updated_at   = excluded.updated_at`,
		key, body, contentType, s.now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put object %s: %w", key, err)
	}
	return nil
}

// GetObject returns the object stored under key or domain.ErrNotFound.
func (s *Store) GetObject(ctx context.Context, key string) (Object, error) {
	obj := Object{Key: key}
	var updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT body, content_type, updated_at FROM objects WHERE object_key = ?`, key,
	).Scan(&obj.Body, &obj.ContentType, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Object{}, fmt.Errorf("sqlite: object %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return Object{}, fmt.Errorf("sqlite: get object %s: %w", key, err)
	}
	if obj.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return Object{}, fmt.Errorf("sqlite: object %s: bad timestamp %q: %w", key, updated, err)
	}
	return obj, nil
}

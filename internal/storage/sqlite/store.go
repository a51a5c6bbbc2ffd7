// Package sqlite implements the Storage Engine: the embedded issues.db
// file, schema, CRUD, transactional writes, and BUSY retry. Writes go
// through a dedicated connection with a raw BEGIN IMMEDIATE and a deferred
// rollback-if-not-committed; the cgo-free ncruces/go-sqlite3 driver keeps
// the build free of a C toolchain dependency.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/ncruces/go-sqlite3/driver" // registers the "sqlite3" database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // bundles a pure-Go sqlite3 VFS, no cgo required

	"github.com/wk-dev/wk/internal/ids"
	"github.com/wk-dev/wk/internal/werr"
)

// busyTimeoutMillis is the sqlite-native busy timeout; the application
// backoff ladder in beginImmediateWithRetry layers on top of it for cases where the
// native timeout alone isn't enough under contention.
const busyTimeoutMillis = 500

// Store is a handle on the embedded issues.db file.
type Store struct {
	db     *sql.DB
	Path   string
	SiteID uint64
	Prefix string
}

// Open opens (but does not create) the store file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path, busyTimeoutMillis)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline; reads share the WAL snapshot

	s := &Store{db: db, Path: path}
	if err := s.loadMeta(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Init creates a fresh store at path with the given id prefix, minting a
// new site id.
func Init(ctx context.Context, path, prefix string) (*Store, error) {
	if !ids.ValidPrefix(prefix) {
		return nil, werr.New(werr.InvalidInput, fmt.Sprintf("invalid id prefix %q", prefix))
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path, busyTimeoutMillis)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("create store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	siteID := ids.NewSiteID()
	if err := setMeta(ctx, db, "site_id", fmt.Sprintf("%d", siteID)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := setMeta(ctx, db, "prefix", prefix); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := setMeta(ctx, db, "schema_version", fmt.Sprintf("%d", SchemaVersion)); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, Path: path, SiteID: siteID, Prefix: prefix}, nil
}

func (s *Store) loadMeta(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	siteStr, err := getMeta(ctx, s.db, "site_id")
	if err != nil {
		return err
	}
	if siteStr == "" {
		return werr.New(werr.IntegrityFailure, "store is missing site_id metadata")
	}
	var siteID uint64
	if _, err := fmt.Sscanf(siteStr, "%d", &siteID); err != nil {
		return werr.Wrap(werr.IntegrityFailure, fmt.Errorf("malformed site_id: %w", err))
	}
	s.SiteID = siteID

	prefix, err := getMeta(ctx, s.db, "prefix")
	if err != nil {
		return err
	}
	s.Prefix = prefix
	return nil
}

func getMeta(ctx context.Context, db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, nil
}

func setMeta(ctx context.Context, db *sql.DB, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}

// AdoptSiteID overwrites the store's persisted site id, used when a
// rebuild replays an existing store's log into a fresh file that must
// keep the original site identity.
func (s *Store) AdoptSiteID(ctx context.Context, siteID uint64) error {
	if err := setMeta(ctx, s.db, "site_id", fmt.Sprintf("%d", siteID)); err != nil {
		return err
	}
	s.SiteID = siteID
	return nil
}

// Close releases the store's connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// IntegrityCheck runs sqlite's own PRAGMA integrity_check.
func (s *Store) IntegrityCheck(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return werr.Wrap(werr.IntegrityFailure, err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return werr.Wrap(werr.IntegrityFailure, err)
		}
		results = append(results, line)
	}
	if err := rows.Err(); err != nil {
		return werr.Wrap(werr.IntegrityFailure, err)
	}
	if len(results) != 1 || results[0] != "ok" {
		return werr.New(werr.IntegrityFailure, "integrity check failed: "+strings.Join(results, "; "))
	}
	return nil
}

// tx is the handle passed to a withTx callback: a dedicated connection
// already inside a BEGIN IMMEDIATE transaction.
type tx struct {
	*sql.Conn
}

// withTx runs fn inside a single write transaction, acquiring a dedicated
// connection (so the raw BEGIN IMMEDIATE/COMMIT pair lands on the same
// underlying connection) and retrying BEGIN on SQLITE_BUSY with an
// exponential backoff ladder (50, 100, 200, 400 ms, then fail).
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, t *tx) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if err := beginImmediateWithRetry(ctx, conn); err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(ctx, &tx{conn}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// busyBackoffSchedule is the BUSY retry ladder: 50, 100, 200, 400 ms,
// then fail.
func busyBackoffSchedule() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     50 * time.Millisecond,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         400 * time.Millisecond,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, 4)
}

func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn) error {
	op := func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err != nil && isBusy(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	if err := backoff.Retry(op, busyBackoffSchedule()); err != nil {
		if isBusy(err) {
			return werr.Wrap(werr.Busy, err)
		}
		return fmt.Errorf("begin immediate: %w", err)
	}
	return nil
}

// isBusy reports whether err is sqlite's SQLITE_BUSY / SQLITE_LOCKED
// signal, regardless of which driver wrapper produced it.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "busy") || strings.Contains(msg, "locked")
}

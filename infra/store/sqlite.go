package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kilianp07/walletfactory/core/model"
	"github.com/kilianp07/walletfactory/core/module"
	"github.com/kilianp07/walletfactory/core/registry"
)

func init() {
	registry.Backends.MustRegister("sqlite", func(conf map[string]any) (registry.Store, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := module.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("sqlite registry: path is required")
		}
		return NewSQLiteStore(c.Path)
	})
}

const schema = `
CREATE TABLE IF NOT EXISTS wallets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL UNIQUE,
    wallet TEXT NOT NULL UNIQUE,
    owner TEXT NOT NULL,
    salt TEXT NOT NULL,
    implementation TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS implementations (
    version INTEGER PRIMARY KEY,
    address TEXT NOT NULL UNIQUE,
    logic TEXT NOT NULL,
    deployed_at INTEGER NOT NULL
);`

// SQLiteStore persists the registry in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Insert adds e. The UNIQUE constraints on user_id and wallet reject a
// second mapping for either side, including one written by another process.
func (s *SQLiteStore) Insert(ctx context.Context, e registry.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wallets (user_id, wallet, owner, salt, implementation, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.User.String(), e.Wallet.String(), e.Owner.String(), e.Salt.String(), e.Implementation.String(), e.CreatedAt.UnixNano())
	return entryConstraintError(err, e)
}

// entryConstraintError maps a UNIQUE violation on the wallets table to the
// registry error for the offending column.
func entryConstraintError(err error, e registry.Entry) error {
	if !isConstraint(err) {
		return err
	}
	switch {
	case strings.Contains(err.Error(), "wallets.user_id"):
		return fmt.Errorf("%w: user %s", model.ErrAlreadyExists, e.User)
	case strings.Contains(err.Error(), "wallets.wallet"):
		return fmt.Errorf("%w: %s", registry.ErrWalletTaken, e.Wallet)
	default:
		return fmt.Errorf("%w: %v", model.ErrAlreadyExists, err)
	}
}

func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

const entryColumns = `user_id, wallet, owner, salt, implementation, created_at`

func (s *SQLiteStore) Lookup(ctx context.Context, user model.UserID) (registry.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM wallets WHERE user_id = ?`, user.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("%w: user %s", model.ErrNotFound, user)
	}
	return e, err
}

func (s *SQLiteStore) ReverseLookup(ctx context.Context, wallet model.Address) (registry.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM wallets WHERE wallet = ?`, wallet.String())
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("%w: wallet %s", model.ErrNotFound, wallet)
	}
	return e, err
}

func (s *SQLiteStore) Exists(ctx context.Context, user model.UserID) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallets WHERE user_id = ?`, user.String()).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]registry.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM wallets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []registry.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) RecordImplementation(ctx context.Context, impl model.Implementation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO implementations (version, address, logic, deployed_at) VALUES (?, ?, ?, ?)`,
		impl.Version, impl.Address.String(), impl.Logic, impl.DeployedAt.UnixNano())
	if isConstraint(err) {
		return fmt.Errorf("%w: implementation v%d", model.ErrAlreadyExists, impl.Version)
	}
	return err
}

func (s *SQLiteStore) Implementations(ctx context.Context) ([]model.Implementation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, address, logic, deployed_at FROM implementations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Implementation
	for rows.Next() {
		var (
			impl model.Implementation
			addr string
			ts   int64
		)
		if err := rows.Scan(&impl.Version, &addr, &impl.Logic, &ts); err != nil {
			return nil, err
		}
		if impl.Address, err = model.ParseAddress(addr); err != nil {
			return nil, err
		}
		impl.DeployedAt = time.Unix(0, ts).UTC()
		res = append(res, impl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (registry.Entry, error) {
	var (
		e                                   registry.Entry
		user, wallet, owner, salt, implAddr string
		ts                                  int64
	)
	if err := row.Scan(&user, &wallet, &owner, &salt, &implAddr, &ts); err != nil {
		return e, err
	}
	var err error
	if e.User, err = model.ParseUserID(user); err != nil {
		return e, err
	}
	if e.Wallet, err = model.ParseAddress(wallet); err != nil {
		return e, err
	}
	if e.Owner, err = model.ParseAddress(owner); err != nil {
		return e, err
	}
	if e.Salt, err = model.ParseSalt(salt); err != nil {
		return e, err
	}
	if e.Implementation, err = model.ParseAddress(implAddr); err != nil {
		return e, err
	}
	e.CreatedAt = time.Unix(0, ts).UTC()
	return e, nil
}

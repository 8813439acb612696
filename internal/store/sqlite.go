package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ndemidov/presenced/internal/domain"
	"github.com/ndemidov/presenced/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS invites (
		id TEXT PRIMARY KEY,
		from_user_id TEXT NOT NULL,
		to_user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_invites_from ON invites(from_user_id);
	CREATE INDEX IF NOT EXISTS idx_invites_to ON invites(to_user_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateInvite stores a new invite.
func (s *SQLiteStore) CreateInvite(ctx context.Context, invite *domain.Invite) error {
	query := `
	INSERT INTO invites (id, from_user_id, to_user_id, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.execWithRetry(ctx, query,
		invite.ID, invite.FromUserID, invite.ToUserID, string(invite.Status),
		invite.CreatedAt.Unix(), invite.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create invite: %w", err)
	}
	return nil
}

// GetInvite retrieves an invite by ID.
func (s *SQLiteStore) GetInvite(ctx context.Context, id string) (*domain.Invite, error) {
	query := `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM invites WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	invite, err := scanInvite(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan invite row: %w", err)
	}
	return invite, nil
}

// ListInvitesForUser returns every invite involving the user, newest first.
func (s *SQLiteStore) ListInvitesForUser(ctx context.Context, userID string) ([]*domain.Invite, error) {
	query := `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM invites WHERE from_user_id = ? OR to_user_id = ?
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query invites: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close invite rows", "error", closeErr)
		}
	}()

	var invites []*domain.Invite
	for rows.Next() {
		invite, err := scanInvite(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan invite row: %w", err)
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invites: %w", err)
	}
	return invites, nil
}

// UpdateInviteStatus transitions a pending invite to a new status. The
// pending guard lives in the UPDATE itself, so two concurrent resolves
// cannot both succeed.
func (s *SQLiteStore) UpdateInviteStatus(ctx context.Context, id string, status domain.InviteStatus) (*domain.Invite, error) {
	query := `UPDATE invites SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	result, err := s.execWithRetry(ctx, query, string(status), time.Now().Unix(), id, string(domain.InvitePending))
	if err != nil {
		return nil, fmt.Errorf("update invite status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the invite never existed or someone else resolved it.
		if _, getErr := s.GetInvite(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrAlreadyResolved
	}

	return s.GetInvite(ctx, id)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// execWithRetry runs a write with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var result sql.Result
	var err error
	for i := 0; i < maxRetries; i++ {
		result, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return result, nil
		}
		if !shared.IsSQLiteConflictError(err) || i == maxRetries-1 {
			return nil, err
		}
		delay := baseDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying write", "attempt", i+1, "delay", delay)
		time.Sleep(delay)
	}
	return nil, err
}

func scanInvite(scan func(dest ...any) error) (*domain.Invite, error) {
	var invite domain.Invite
	var status string
	var createdAt, updatedAt int64

	if err := scan(&invite.ID, &invite.FromUserID, &invite.ToUserID, &status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	invite.Status = domain.InviteStatus(status)
	invite.CreatedAt = time.Unix(createdAt, 0)
	invite.UpdatedAt = time.Unix(updatedAt, 0)
	return &invite, nil
}

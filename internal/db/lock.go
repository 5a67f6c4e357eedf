package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// lockNamespace keeps payetl's advisory keys apart from other users of
// hashtext-based locks on the same server.
const lockNamespace = "payetl:"

// DateLock is a session-level advisory lock for one processing date.
// It lives on a dedicated pooled connection so per-batch commits on other
// connections do not release it.
type DateLock struct {
	conn *pgxpool.Conn
	key  string
}

// TryLockDate attempts to take the lock for date without waiting.
// It returns (nil, nil) when another session already holds it.
func TryLockDate(ctx context.Context, pool *pgxpool.Pool, date string) (*DateLock, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock connection: %w", err)
	}

	key := lockNamespace + date
	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to take advisory lock for %s: %w", date, err)
	}
	if !acquired {
		conn.Release()
		return nil, nil
	}
	return &DateLock{conn: conn, key: key}, nil
}

// Release drops the advisory lock and returns the connection to the pool.
// If the unlock fails the connection is destroyed instead, which also ends
// the session and with it the lock.
func (l *DateLock) Release(ctx context.Context) error {
	if l == nil || l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtext($1))`, l.key); err != nil {
		_ = conn.Conn().Close(ctx)
		conn.Release()
		return fmt.Errorf("failed to release advisory lock: %w", err)
	}
	conn.Release()
	return nil
}

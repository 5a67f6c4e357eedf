// Package testing holds helpers shared by integration tests that need a
// warehouse database.
package testing

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/payetl/internal/testinfra"
)

// TestConnEnvVar points tests at an existing server instead of a container.
const TestConnEnvVar = "PAYETL_TEST_CONN"

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		container, err := testinfra.StartPostgres(context.Background())
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns the test database connection string.
// Priority: PAYETL_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv(TestConnEnvVar); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", TestConnEnvVar, err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// NewTestDB creates a uniquely named database, returns its connection
// string and drops it when the test ends.
func NewTestDB(t *testing.T) string {
	t.Helper()

	connString := RequireDatabase(t)
	ctx := context.Background()

	dbName := fmt.Sprintf("payetl_test_%d", time.Now().UnixNano())

	admin, err := pgxpool.New(ctx, connString)
	if err != nil {
		t.Fatalf("Failed to connect for test DB creation: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE DATABASE "+dbName); err != nil {
		admin.Close()
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}
	admin.Close()

	t.Cleanup(func() {
		cleanup, err := pgxpool.New(ctx, connString)
		if err != nil {
			t.Logf("Warning: Failed to connect for cleanup: %v", err)
			return
		}
		defer cleanup.Close()
		_, _ = cleanup.Exec(ctx, `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`, dbName)
		if _, err := cleanup.Exec(ctx, "DROP DATABASE IF EXISTS "+dbName); err != nil {
			t.Logf("Warning: Failed to drop test database %s: %v", dbName, err)
		}
	})

	return replaceDatabase(connString, dbName)
}

// NewTestPool opens a pool on a fresh test database.
func NewTestPool(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	connString := NewTestDB(t)
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool, connString
}

// replaceDatabase swaps the path component of a postgres URI.
func replaceDatabase(connString, dbName string) string {
	rest := connString
	query := ""
	if i := strings.Index(rest, "?"); i >= 0 {
		rest, query = rest[:i], rest[i:]
	}
	schemeEnd := strings.Index(rest, "://")
	if schemeEnd < 0 {
		return connString
	}
	if slash := strings.Index(rest[schemeEnd+3:], "/"); slash >= 0 {
		rest = rest[:schemeEnd+3+slash]
	}
	return rest + "/" + dbName + query
}

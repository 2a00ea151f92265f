package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/omarcisse97/sopo/internal/db"
)

var testDatabaseURL string

func init() {
	loadTestEnv()
}

// loadTestEnv loads the .env file and picks up the test database URL
func loadTestEnv() {
	_, filename, _, _ := runtime.Caller(0)
	// project root is 2 levels up from this file
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		godotenv.Load()
	}

	testDatabaseURL = os.Getenv("DATABASE_URL_TEST")
	if testDatabaseURL == "" {
		testDatabaseURL = os.Getenv("DATABASE_URL")
	}
}

// SetupTestDB connects to the test Postgres database, applies the schema and
// empties the listings table. The test is skipped when no database is configured.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testDatabaseURL == "" {
		t.Skip("DATABASE_URL_TEST not set, skipping Postgres test")
	}

	pg, err := db.ConnectPostgres(testDatabaseURL)
	require.NoError(t, err, "Failed to connect to Postgres")
	require.NoError(t, db.EnsureSchema(context.Background(), pg))

	_, err = pg.Exec(`TRUNCATE listings RESTART IDENTITY`)
	require.NoError(t, err)

	t.Cleanup(func() { db.DisconnectPostgres(pg) })
	return pg
}

// GetTestDatabaseURL returns the test Postgres URL for direct use if needed
func GetTestDatabaseURL() string {
	if testDatabaseURL == "" {
		loadTestEnv()
	}
	return testDatabaseURL
}

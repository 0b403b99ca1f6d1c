// Package integration runs the service against real PostgreSQL and Redis
// instances started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/leadflow/backend/internal/infrastructure/migration"
	"github.com/leadflow/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB is a migrated PostgreSQL database in its own container
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a PostgreSQL container and applies the embedded
// migrations. The container is terminated when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("leadflow_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	db, sqlDB := connectToDatabase(t, dsn)
	runMigrations(t, sqlDB)

	testDB := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: container,
		DSN:       dsn,
		t:         t,
	}
	t.Cleanup(testDB.Close)

	return testDB
}

// Close closes the connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// CleanTables truncates every application table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	for _, table := range []string{"campaigns", "usage_limits", "users"} {
		err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error
		require.NoError(tdb.t, err, "Failed to truncate %s", table)
	}
}

// CreateUser inserts a user on the given subscription tier
func (tdb *TestDB) CreateUser(id, tier string) {
	tdb.t.Helper()

	err := tdb.DB.Exec(`
		INSERT INTO users (id, email, subscription_tier)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET subscription_tier = EXCLUDED.subscription_tier
	`, id, id+"@example.com", tier).Error
	require.NoError(tdb.t, err, "Failed to create test user")
}

// UsageCount reads the stored count for one month, 0 when no row exists
func (tdb *TestDB) UsageCount(userID string, year, month int) int64 {
	tdb.t.Helper()

	var count int64
	err := tdb.DB.Raw(`
		SELECT COALESCE(SUM(count), 0) FROM usage_limits
		WHERE user_id = ? AND year = ? AND month = ?
	`, userID, year, month).Scan(&count).Error
	require.NoError(tdb.t, err)
	return count
}

// UsageRows counts the ledger rows of one month
func (tdb *TestDB) UsageRows(userID string, year, month int) int64 {
	tdb.t.Helper()

	var rows int64
	err := tdb.DB.Raw(`
		SELECT COUNT(*) FROM usage_limits
		WHERE user_id = ? AND year = ? AND month = ?
	`, userID, year, month).Scan(&rows).Error
	require.NoError(tdb.t, err)
	return rows
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	// enough connections for the concurrent ledger tests to contend
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	m, err := migration.NewFromFS(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
}

//go:build integration

package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-engine-go/internal/pkg/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *database.DB

// TestMain starts one postgres container for the package, migrates it and shares the
// pool. TEST_DATABASE_URL skips the container and uses an existing database.
func TestMain(m *testing.M) {
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_URL")
	var container *postgres.PostgresContainer
	if dsn == "" {
		var err error
		container, err = postgres.Run(ctx, "postgres:16-alpine",
			postgres.WithDatabase("payroll_test"),
			postgres.WithUsername("postgres"),
			postgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			fmt.Println("failed to start postgres container:", err)
			os.Exit(1)
		}
		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Println("failed to read connection string:", err)
			os.Exit(1)
		}
	}

	if err := database.Migrate(dsn); err != nil {
		fmt.Println("failed to migrate:", err)
		os.Exit(1)
	}
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.DefaultPoolOptions())
	if err != nil {
		fmt.Println("failed to connect to test database:", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	db.Close()
	if container != nil {
		_ = container.Terminate(ctx)
	}
	os.Exit(code)
}

// truncateAll empties every engine table between tests.
func truncateAll(t *testing.T, ctx context.Context) {
	t.Helper()
	tables := []string{
		"payroll_ledger_entries", "payroll_ledgers",
		"debt_transactions", "employee_debts",
		"payslip_lines", "payslips", "payroll_adjustments", "payroll_runs",
		"advance_requests", "cost_center_allocations", "salary_structure_items", "salary_assignments", "employees",
		"statutory_configs", "statutory_legal_rates",
		"payroll_components", "payroll_periods",
	}
	for _, table := range tables {
		if _, err := testDB.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}

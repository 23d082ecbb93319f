package core_test

import (
	"context"
	"os"
	"testing"

	"purchase-request-expense/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE expenses, expense_sheets, purchase_request_lines, purchase_requests,
		               sequences, picking_types, products, product_categories, employees, companies CASCADE;

		INSERT INTO companies (id, company_code, name, base_currency) VALUES
		  (1, '1000', 'Test Company', 'IDR'),
		  (2, '2000', 'Other Company', 'IDR');

		INSERT INTO employees (id, company_id, code, name) VALUES
		  (1, 1, 'EMP-001', 'Dewi Lestari'),
		  (2, 1, 'EMP-002', 'Budi Santoso'),
		  (3, 2, 'EMP-003', 'Siti Rahma');

		INSERT INTO product_categories (id, company_id, name, expense_account_code) VALUES
		  (1, 1, 'General Expenses', '5400'),
		  (2, 1, 'Employee Advances', '1250');

		INSERT INTO products (id, company_id, code, name, type, category_id, can_be_expensed, unit, expense_account_code) VALUES
		  (1, 1, 'EXP-GEN', 'General Expense', 'service', 1, true, 'unit', '5400'),
		  (2, 1, 'ADV', 'Employee Advance', 'service', 2, true, 'unit', NULL),
		  (3, 1, 'HW-LAPTOP', 'Laptop', 'goods', NULL, false, 'unit', NULL),
		  (4, 2, 'EXP-GEN', 'General Expense', 'service', NULL, true, 'unit', '5400');

		INSERT INTO picking_types (id, company_id, code, name) VALUES
		  (1, 1, 'INC', 'Incoming Shipments'),
		  (2, 1, 'INT', 'Internal Transfers'),
		  (3, 2, 'INC', 'Incoming Shipments');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// createApprovedRequest walks a request through DRAFT -> TO_APPROVE ->
// APPROVED for company 1, employee 1, and returns it with its lines.
func createApprovedRequest(t *testing.T, requests core.RequestService, pickingTypeID int, lines []core.RequestLineInput) *core.PurchaseRequest {
	t.Helper()
	ctx := context.Background()

	pr, err := requests.CreateRequest(ctx, 1, 1, "Office purchases", &pickingTypeID, "", lines)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if err := requests.SubmitRequest(ctx, pr.ID); err != nil {
		t.Fatalf("Failed to submit request: %v", err)
	}
	if err := requests.ApproveRequest(ctx, pr.ID); err != nil {
		t.Fatalf("Failed to approve request: %v", err)
	}

	pr, err = requests.GetRequest(ctx, pr.ID)
	if err != nil {
		t.Fatalf("Failed to reload request: %v", err)
	}
	return pr
}

func countExpenses(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM expenses").Scan(&n); err != nil {
		t.Fatalf("Failed to count expenses: %v", err)
	}
	return n
}

func qty(v int64) decimal.Decimal  { return decimal.NewFromInt(v) }
func cost(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

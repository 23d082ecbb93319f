package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanyService provides company and master-data lookups.
type CompanyService interface {
	// GetCompanyByCode returns a company by its company code.
	GetCompanyByCode(ctx context.Context, companyCode string) (*Company, error)

	// GetDefaultCompany returns the company named by COMPANY_CODE when set,
	// otherwise the single company in the database.
	GetDefaultCompany(ctx context.Context, companyCode string) (*Company, error)

	// ListEmployees returns the active employees of a company.
	ListEmployees(ctx context.Context, companyID int) ([]Employee, error)

	// ListProducts returns the active products of a company.
	ListProducts(ctx context.Context, companyID int) ([]Product, error)

	// ListPickingTypes returns the picking types of a company.
	ListPickingTypes(ctx context.Context, companyID int) ([]PickingType, error)
}

type companyService struct {
	pool *pgxpool.Pool
}

// NewCompanyService constructs a CompanyService backed by PostgreSQL.
func NewCompanyService(pool *pgxpool.Pool) CompanyService {
	return &companyService{pool: pool}
}

func (s *companyService) GetCompanyByCode(ctx context.Context, companyCode string) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx,
		"SELECT id, company_code, name, base_currency FROM companies WHERE company_code = $1",
		companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("company %s not found", companyCode)
	}
	if err != nil {
		return nil, fmt.Errorf("get company %s: %w", companyCode, err)
	}
	return c, nil
}

func (s *companyService) GetDefaultCompany(ctx context.Context, companyCode string) (*Company, error) {
	if companyCode != "" {
		return s.GetCompanyByCode(ctx, companyCode)
	}

	rows, err := s.pool.Query(ctx, "SELECT id, company_code, name, base_currency FROM companies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, c)
	}
	if len(companies) == 0 {
		return nil, errors.New("no companies found — run the seed first")
	}
	if len(companies) > 1 {
		return nil, errors.New("multiple companies found — set COMPANY_CODE to pick one")
	}
	return &companies[0], nil
}

func (s *companyService) ListEmployees(ctx context.Context, companyID int) ([]Employee, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, company_id, code, name, is_active FROM employees WHERE company_id = $1 AND is_active = true ORDER BY code",
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.Code, &e.Name, &e.IsActive); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, nil
}

func (s *companyService) ListProducts(ctx context.Context, companyID int) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, description, type, category_id,
		       can_be_expensed, standard_price, unit, expense_account_code, is_active
		FROM products
		WHERE company_id = $1 AND is_active = true
		ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Description, &p.Type, &p.CategoryID,
			&p.CanBeExpensed, &p.StandardPrice, &p.Unit, &p.ExpenseAccountCode, &p.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *companyService) ListPickingTypes(ctx context.Context, companyID int) ([]PickingType, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, company_id, code, name FROM picking_types WHERE company_id = $1 ORDER BY code",
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list picking types: %w", err)
	}
	defer rows.Close()

	var types []PickingType
	for rows.Next() {
		var pt PickingType
		if err := rows.Scan(&pt.ID, &pt.CompanyID, &pt.Code, &pt.Name); err != nil {
			return nil, fmt.Errorf("scan picking type: %w", err)
		}
		types = append(types, pt)
	}
	return types, nil
}

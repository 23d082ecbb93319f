// seed loads demo master data (company, employees, products, picking types)
// from a YAML file into the database. Safe to re-run: every insert upserts.
//
// Usage: go run ./cmd/seed [seed.yaml]
package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"purchase-request-expense/internal/db"
)

type seedFile struct {
	Company struct {
		Code         string `yaml:"code"`
		Name         string `yaml:"name"`
		BaseCurrency string `yaml:"base_currency"`
	} `yaml:"company"`
	Employees []struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"employees"`
	Categories []struct {
		Name               string `yaml:"name"`
		ExpenseAccountCode string `yaml:"expense_account_code"`
	} `yaml:"categories"`
	Products []struct {
		Code               string  `yaml:"code"`
		Name               string  `yaml:"name"`
		Type               string  `yaml:"type"`
		Category           string  `yaml:"category"`
		CanBeExpensed      bool    `yaml:"can_be_expensed"`
		StandardPrice      float64 `yaml:"standard_price"`
		Unit               string  `yaml:"unit"`
		ExpenseAccountCode string  `yaml:"expense_account_code"`
	} `yaml:"products"`
	PickingTypes []struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	} `yaml:"picking_types"`
}

func main() {
	_ = godotenv.Load()

	path := "seed.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read seed file %s: %v", path, err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		log.Fatalf("Failed to parse seed file: %v", err)
	}
	if seed.Company.Code == "" {
		log.Fatal("Seed file has no company.code")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Printf("Seeding company %s...", seed.Company.Code)
	currency := seed.Company.BaseCurrency
	if currency == "" {
		currency = "IDR"
	}
	var companyID int
	err = tx.QueryRow(ctx, `
		INSERT INTO companies (company_code, name, base_currency)
		VALUES ($1, $2, $3)
		ON CONFLICT (company_code) DO UPDATE
		  SET name = EXCLUDED.name,
		      base_currency = EXCLUDED.base_currency
		RETURNING id`,
		seed.Company.Code, seed.Company.Name, currency).Scan(&companyID)
	if err != nil {
		log.Fatalf("Failed to seed company: %v", err)
	}

	log.Printf("Seeding %d employees...", len(seed.Employees))
	for _, e := range seed.Employees {
		_, err = tx.Exec(ctx, `
			INSERT INTO employees (company_id, code, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (company_id, code) DO UPDATE SET name = EXCLUDED.name`,
			companyID, e.Code, e.Name)
		if err != nil {
			log.Fatalf("Failed to seed employee %s: %v", e.Code, err)
		}
	}

	log.Printf("Seeding %d product categories...", len(seed.Categories))
	categoryIDs := make(map[string]int)
	for _, c := range seed.Categories {
		var id int
		err = tx.QueryRow(ctx, `
			INSERT INTO product_categories (company_id, name, expense_account_code)
			VALUES ($1, $2, NULLIF($3, ''))
			ON CONFLICT (company_id, name) DO UPDATE
			  SET expense_account_code = EXCLUDED.expense_account_code
			RETURNING id`,
			companyID, c.Name, c.ExpenseAccountCode).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to seed category %s: %v", c.Name, err)
		}
		categoryIDs[c.Name] = id
	}

	log.Printf("Seeding %d products...", len(seed.Products))
	for _, p := range seed.Products {
		var categoryID *int
		if p.Category != "" {
			id, ok := categoryIDs[p.Category]
			if !ok {
				log.Fatalf("Product %s references unknown category %s", p.Code, p.Category)
			}
			categoryID = &id
		}
		productType := p.Type
		if productType == "" {
			productType = "service"
		}
		unit := p.Unit
		if unit == "" {
			unit = "unit"
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO products (company_id, code, name, type, category_id,
			                      can_be_expensed, standard_price, unit, expense_account_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
			ON CONFLICT (company_id, code) DO UPDATE
			  SET name = EXCLUDED.name,
			      type = EXCLUDED.type,
			      category_id = EXCLUDED.category_id,
			      can_be_expensed = EXCLUDED.can_be_expensed,
			      standard_price = EXCLUDED.standard_price,
			      unit = EXCLUDED.unit,
			      expense_account_code = EXCLUDED.expense_account_code`,
			companyID, p.Code, p.Name, productType, categoryID,
			p.CanBeExpensed, p.StandardPrice, unit, p.ExpenseAccountCode)
		if err != nil {
			log.Fatalf("Failed to seed product %s: %v", p.Code, err)
		}
	}

	log.Printf("Seeding %d picking types...", len(seed.PickingTypes))
	for _, pt := range seed.PickingTypes {
		_, err = tx.Exec(ctx, `
			INSERT INTO picking_types (company_id, code, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (company_id, code) DO UPDATE SET name = EXCLUDED.name`,
			companyID, pt.Code, pt.Name)
		if err != nil {
			log.Fatalf("Failed to seed picking type %s: %v", pt.Code, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data loaded successfully.")
}

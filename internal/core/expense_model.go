package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a reimbursable cost entry attributed to an employee. When an
// expense originates from a purchase request line it carries the line
// reference, which is restricted from deletion while the expense exists.
type Expense struct {
	ID                    int
	CompanyID             int
	EmployeeID            int
	EmployeeName          string
	ProductID             int
	ProductCode           string
	ProductName           string
	Description           string
	Quantity              decimal.Decimal
	UnitAmount            decimal.Decimal
	Unit                  string
	Reference             string
	PurchaseRequestLineID *int
	Advance               bool
	AccountCode           *string
	SheetID               *int
	CreatedAt             time.Time
}

// TotalAmount is quantity × unit amount.
func (e *Expense) TotalAmount() decimal.Decimal {
	return e.Quantity.Mul(e.UnitAmount)
}

// ExpenseSheet is a batch container grouping expenses for approval.
type ExpenseSheet struct {
	ID                int
	CompanyID         int
	SheetNumber       *string
	EmployeeID        int
	EmployeeName      string
	Name              string
	PurchaseRequestID *int
	CreatedAt         time.Time
	Expenses          []Expense
}

// TotalAmount sums the sheet's expense totals.
func (s *ExpenseSheet) TotalAmount() decimal.Decimal {
	var total decimal.Decimal
	for i := range s.Expenses {
		total = total.Add(s.Expenses[i].TotalAmount())
	}
	return total
}

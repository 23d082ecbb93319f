package core

import "github.com/shopspring/decimal"

// ProductType distinguishes services from physical goods. Only service
// products are eligible as fallback expense products.
type ProductType string

const (
	ProductService ProductType = "service"
	ProductGoods   ProductType = "goods"
)

type Company struct {
	ID           int    `json:"id"`
	CompanyCode  string `json:"company_code"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
}

type Employee struct {
	ID        int    `json:"id"`
	CompanyID int    `json:"company_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
}

type ProductCategory struct {
	ID                 int     `json:"id"`
	CompanyID          int     `json:"company_id"`
	Name               string  `json:"name"`
	ExpenseAccountCode *string `json:"expense_account_code,omitempty"`
}

type Product struct {
	ID                 int             `json:"id"`
	CompanyID          int             `json:"company_id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Type               ProductType     `json:"type"`
	CategoryID         *int            `json:"category_id,omitempty"`
	CanBeExpensed      bool            `json:"can_be_expensed"`
	StandardPrice      decimal.Decimal `json:"standard_price"`
	Unit               string          `json:"unit"`
	ExpenseAccountCode *string         `json:"expense_account_code,omitempty"`
	IsActive           bool            `json:"is_active"`
}

// PickingType is a warehouse/operation classification inherited by a
// request and its lines. Conversion only groups lines that share one.
type PickingType struct {
	ID        int    `json:"id"`
	CompanyID int    `json:"company_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
}

// ViewAction tells the caller how to present a set of records: a single
// record opens directly in a form view, several open as a filtered list.
type ViewAction struct {
	Name      string `json:"name"`
	Entity    string `json:"entity"`
	ViewMode  string `json:"view_mode"` // "form" or "list,form"
	ResID     int    `json:"res_id,omitempty"`
	RecordIDs []int  `json:"record_ids,omitempty"`
}

// viewActionFor shapes the one-vs-many branch shared by the converter
// result and the request expense summary.
func viewActionFor(name, entity string, ids []int) *ViewAction {
	if len(ids) == 1 {
		return &ViewAction{Name: name, Entity: entity, ViewMode: "form", ResID: ids[0]}
	}
	return &ViewAction{Name: name, Entity: entity, ViewMode: "list,form", RecordIDs: ids}
}

package ledger

import (
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are persisted as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Transaction is one monetary record owned by exactly one company.
type Transaction struct {
	TransactionID string          `json:"transaction_id" validate:"required"`
	CompanyID     string          `json:"company_id" validate:"required"`
	Date          civil.Date      `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
}

// Company is an isolated ledger namespace. The order of Transactions is the
// positional index used by UpdateTransaction and DeleteTransaction.
type Company struct {
	ID           string        `json:"id" validate:"required"`
	Name         string        `json:"name" validate:"required"`
	Transactions []Transaction `json:"transactions"`
}

func (c Company) clone() Company {
	c.Transactions = slices.Clone(c.Transactions)
	if c.Transactions == nil {
		c.Transactions = []Transaction{}
	}
	return c
}

// CategoryTotal is the summed amount of one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// TransactionUpdate names the fields an update overwrites. Nil fields are left untouched.
type TransactionUpdate struct {
	Description *string
	Amount      *decimal.Decimal
	Category    *string
}

// IsEmpty reports whether the update changes nothing.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Description == nil && u.Amount == nil && u.Category == nil
}

func (u TransactionUpdate) apply(t *Transaction) {
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.Category != nil {
		t.Category = *u.Category
	}
}

// now is swapped in tests.
var now = time.Now

// NewTransaction builds a fresh record for companyID with a random UUID and
// today's date. It performs no validation and no I/O.
func NewTransaction(companyID, description string, amount decimal.Decimal, category string) Transaction {
	return Transaction{
		TransactionID: uuid.NewString(),
		CompanyID:     companyID,
		Date:          civil.DateOf(now()),
		Description:   description,
		Amount:        amount,
		Category:      category,
	}
}

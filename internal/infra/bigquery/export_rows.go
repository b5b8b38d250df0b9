package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/clearledger/internal/ledger"
)

// TransactionRow is one exported ledger transaction.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	CompanyID     string `bigquery:"company_id"`     // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED DATE

	Description string   `bigquery:"description"` // REQUIRED STRING
	Amount      *big.Rat `bigquery:"amount"`      // REQUIRED NUMERIC

	Category bigquery.NullString `bigquery:"category"` // NULLABLE

	ExportedTS time.Time `bigquery:"exported_ts"` // REQUIRED
}

// NewTransactionRow maps a ledger transaction to its export row.
func NewTransactionRow(t ledger.Transaction, exportedAt time.Time) *TransactionRow {
	return &TransactionRow{
		TransactionID:   t.TransactionID,
		CompanyID:       t.CompanyID,
		TransactionDate: t.Date,
		Description:     t.Description,
		Amount:          t.Amount.Rat(),
		Category:        bigquery.NullString{StringVal: t.Category, Valid: t.Category != ""},
		ExportedTS:      exportedAt,
	}
}

// Save implements bigquery.ValueSaver. The transaction id doubles as the
// insert id so re-running an export does not duplicate rows.
func (r *TransactionRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"transaction_id":   r.TransactionID,
		"company_id":       r.CompanyID,
		"transaction_date": r.TransactionDate,
		"description":      r.Description,
		"amount":           r.Amount,
		"category":         r.Category,
		"exported_ts":      r.ExportedTS,
	}, r.TransactionID, nil
}

var _ bigquery.ValueSaver = (*TransactionRow)(nil)

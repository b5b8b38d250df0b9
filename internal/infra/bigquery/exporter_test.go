package bigquery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/clearledger/internal/ledger"
)

type fakeInserter struct {
	batches [][]*TransactionRow
	failOn  int
}

func (f *fakeInserter) Put(ctx context.Context, src interface{}) error {
	rows, ok := src.([]*TransactionRow)
	if !ok {
		return fmt.Errorf("unexpected src %T", src)
	}
	if f.failOn > 0 && len(f.batches)+1 == f.failOn {
		return errors.New("quota exceeded")
	}
	f.batches = append(f.batches, rows)
	return nil
}

func transactions(n int) []ledger.Transaction {
	txs := make([]ledger.Transaction, n)
	for i := range txs {
		txs[i] = ledger.Transaction{
			TransactionID: fmt.Sprintf("t%d", i),
			CompanyID:     "acme",
			Date:          civil.Date{Year: 2026, Month: time.May, Day: 4},
			Amount:        decimal.NewFromInt(int64(i)),
			Category:      "misc",
		}
	}
	return txs
}

func TestNewTransactionRow(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	tx := ledger.Transaction{
		TransactionID: "abc",
		CompanyID:     "acme",
		Date:          civil.Date{Year: 2026, Month: time.October, Day: 1},
		Description:   "Refund",
		Amount:        decimal.RequireFromString("-19.99"),
	}

	row := NewTransactionRow(tx, at)
	assert.Equal(t, 0, row.Amount.Cmp(big.NewRat(-1999, 100)))
	assert.False(t, row.Category.Valid, "empty category is exported as NULL")

	values, insertID, err := row.Save()
	require.NoError(t, err)
	assert.Equal(t, "abc", insertID)
	assert.Equal(t, "acme", values["company_id"])
	assert.Equal(t, tx.Date, values["transaction_date"])
	assert.Equal(t, at, values["exported_ts"])
}

func TestExport_Batches(t *testing.T) {
	fake := &fakeInserter{}
	e := &Exporter{inserter: fake, now: time.Now}

	sent, err := e.Export(context.Background(), transactions(maxBatch+3))
	require.NoError(t, err)
	assert.Equal(t, maxBatch+3, sent)
	require.Len(t, fake.batches, 2)
	assert.Len(t, fake.batches[0], maxBatch)
	assert.Len(t, fake.batches[1], 3)
	assert.Equal(t, fmt.Sprintf("t%d", maxBatch), fake.batches[1][0].TransactionID)
}

func TestExport_Empty(t *testing.T) {
	fake := &fakeInserter{}
	e := &Exporter{inserter: fake, now: time.Now}

	sent, err := e.Export(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, fake.batches)
	assert.NoError(t, e.Close())
}

func TestExport_Failure(t *testing.T) {
	fake := &fakeInserter{failOn: 2}
	e := &Exporter{inserter: fake, now: time.Now}

	sent, err := e.Export(context.Background(), transactions(maxBatch+1))
	require.Error(t, err)
	assert.Equal(t, maxBatch, sent)
	assert.Contains(t, err.Error(), "quota exceeded")
}

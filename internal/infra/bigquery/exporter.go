package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/dvloznov/clearledger/internal/ledger"
)

// maxBatch bounds the rows sent in a single streaming insert.
const maxBatch = 500

// rowInserter is the part of *bigquery.Inserter the exporter uses.
type rowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Exporter streams ledger transactions into a BigQuery table.
type Exporter struct {
	client   *bigquery.Client
	inserter rowInserter
	now      func() time.Time
}

// NewExporter creates an exporter for project.dataset.table.
func NewExporter(ctx context.Context, projectID, datasetID, tableID string, opts ...option.ClientOption) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}
	return &Exporter{
		client:   client,
		inserter: client.Dataset(datasetID).Table(tableID).Inserter(),
		now:      time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Export inserts one row per transaction and returns the number of rows sent.
func (e *Exporter) Export(ctx context.Context, txs []ledger.Transaction) (int, error) {
	exportedAt := e.now().UTC()
	sent := 0
	for start := 0; start < len(txs); start += maxBatch {
		end := min(start+maxBatch, len(txs))
		rows := make([]*TransactionRow, 0, end-start)
		for _, t := range txs[start:end] {
			rows = append(rows, NewTransactionRow(t, exportedAt))
		}
		if err := e.inserter.Put(ctx, rows); err != nil {
			return sent, fmt.Errorf("Export: inserting rows %d-%d: %w", start, end-1, err)
		}
		sent += len(rows)
	}
	return sent, nil
}

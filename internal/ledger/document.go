package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// document is the in-memory form of the whole persisted ledger, keyed by
// normalized company id in stored order.
type document struct {
	companies *orderedmap.OrderedMap[string, *Company]
}

// companyRecord is the value stored under each company id.
type companyRecord struct {
	Name         string        `json:"name"`
	Transactions []Transaction `json:"transactions"`
}

// wireDocument is the persisted shape. Key order of companies is the stored
// order.
type wireDocument struct {
	Companies *orderedmap.OrderedMap[string, companyRecord] `json:"companies"`
}

func newDocument(companies ...*Company) *document {
	d := &document{companies: orderedmap.New[string, *Company]()}
	for _, c := range companies {
		d.add(c)
	}
	return d
}

func (d *document) find(id string) *Company {
	c, _ := d.companies.Get(id)
	return c
}

func (d *document) add(c *Company) {
	d.companies.Set(c.ID, c)
}

func (d *document) hasTransaction(transactionID string) bool {
	for pair := d.companies.Oldest(); pair != nil; pair = pair.Next() {
		for _, t := range pair.Value.Transactions {
			if t.TransactionID == transactionID {
				return true
			}
		}
	}
	return false
}

func (d *document) ids() []string {
	ids := make([]string, 0, d.companies.Len())
	for pair := d.companies.Oldest(); pair != nil; pair = pair.Next() {
		ids = append(ids, pair.Key)
	}
	return ids
}

// encodeDocument renders the document as indented JSON of the form
// {"companies": {"<id>": {"name": ..., "transactions": [...]}}}.
func encodeDocument(d *document) ([]byte, error) {
	wire := wireDocument{
		Companies: orderedmap.New[string, companyRecord](),
	}
	for pair := d.companies.Oldest(); pair != nil; pair = pair.Next() {
		txs := pair.Value.Transactions
		if txs == nil {
			txs = []Transaction{}
		}
		wire.Companies.Set(pair.Key, companyRecord{Name: pair.Value.Name, Transactions: txs})
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeDocument parses a persisted document. Empty input is an empty ledger
// and unknown top-level keys are ignored. Stored ids are normalized; two ids
// that normalize to the same value make the document corrupt.
func decodeDocument(data []byte) (*document, error) {
	doc := newDocument()
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}

	var wire wireDocument
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}
	if wire.Companies == nil {
		return doc, nil
	}

	for pair := wire.Companies.Oldest(); pair != nil; pair = pair.Next() {
		id := NormalizeCompanyID(pair.Key)
		if doc.find(id) != nil {
			return nil, fmt.Errorf("companies: duplicate company id %q", id)
		}
		doc.add(&Company{
			ID:           id,
			Name:         pair.Value.Name,
			Transactions: slices.Clip(pair.Value.Transactions),
		})
	}
	return doc, nil
}

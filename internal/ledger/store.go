// Package ledger owns the persisted company/transaction graph. Every Store
// operation loads the whole document, validates, applies its change to the
// loaded copy and writes the whole document back before returning.
package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Store is the single writer of a ledger document. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	log      zerolog.Logger
	validate *validator.Validate
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation events.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// NewStore creates a store on top of backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		log:      zerolog.Nop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeCompanyID trims and lower-cases a company id.
func NormalizeCompanyID(id string) string {
	// Casers hold state and must not be shared between goroutines.
	return cases.Lower(language.Und).String(strings.TrimSpace(id))
}

// ListCompanyIDs returns every company id in stored order.
func (s *Store) ListCompanyIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.view(ctx, func(doc *document) error {
		ids = doc.ids()
		return nil
	})
	return ids, err
}

// Company returns a copy of the company with the given id.
func (s *Store) Company(ctx context.Context, id string) (Company, error) {
	id = NormalizeCompanyID(id)
	var out Company
	err := s.view(ctx, func(doc *document) error {
		c, err := lookup(doc, id)
		if err != nil {
			return err
		}
		out = c.clone()
		return nil
	})
	return out, err
}

// CreateCompany registers a new company with no transactions.
func (s *Store) CreateCompany(ctx context.Context, id, name string) error {
	c := Company{ID: NormalizeCompanyID(id), Name: strings.TrimSpace(name)}
	if err := s.validate.Struct(c); err != nil {
		return fmt.Errorf("%w: company id and name are required", ErrInvalidInput)
	}

	err := s.update(ctx, func(doc *document) error {
		if doc.find(c.ID) != nil {
			return fmt.Errorf("%w: %q", ErrDuplicateCompany, c.ID)
		}
		c.Transactions = []Transaction{}
		doc.add(&c)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug().Str("company_id", c.ID).Msg("Company created")
	return nil
}

// AddTransaction appends t to the company's transactions. t.CompanyID must
// name the same company.
func (s *Store) AddTransaction(ctx context.Context, companyID string, t Transaction) error {
	companyID = NormalizeCompanyID(companyID)
	t.CompanyID = NormalizeCompanyID(t.CompanyID)
	if err := s.validate.Struct(t); err != nil {
		return fmt.Errorf("%w: transaction id and company id are required", ErrInvalidInput)
	}
	if t.CompanyID != companyID {
		return fmt.Errorf("%w: transaction belongs to %q, not %q", ErrInvalidInput, t.CompanyID, companyID)
	}

	err := s.update(ctx, func(doc *document) error {
		c, err := lookup(doc, companyID)
		if err != nil {
			return err
		}
		if doc.hasTransaction(t.TransactionID) {
			return fmt.Errorf("%w: %s", ErrDuplicateTransaction, t.TransactionID)
		}
		c.Transactions = append(c.Transactions, t)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug().
		Str("company_id", companyID).
		Str("transaction_id", t.TransactionID).
		Msg("Transaction added")
	return nil
}

// Transactions returns the company's transactions in insertion order.
func (s *Store) Transactions(ctx context.Context, companyID string) ([]Transaction, error) {
	c, err := s.Company(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return c.Transactions, nil
}

// UpdateTransaction overwrites the fields set in upd on the transaction at index.
func (s *Store) UpdateTransaction(ctx context.Context, companyID string, index int, upd TransactionUpdate) error {
	companyID = NormalizeCompanyID(companyID)
	err := s.update(ctx, func(doc *document) error {
		c, err := lookup(doc, companyID)
		if err != nil {
			return err
		}
		if err := checkIndex(c, index); err != nil {
			return err
		}
		upd.apply(&c.Transactions[index])
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug().Str("company_id", companyID).Int("index", index).Msg("Transaction updated")
	return nil
}

// UpdateTransactionByID is UpdateTransaction addressed by transaction id.
func (s *Store) UpdateTransactionByID(ctx context.Context, companyID, transactionID string, upd TransactionUpdate) error {
	companyID = NormalizeCompanyID(companyID)
	err := s.update(ctx, func(doc *document) error {
		c, err := lookup(doc, companyID)
		if err != nil {
			return err
		}
		i, err := position(c, transactionID)
		if err != nil {
			return err
		}
		upd.apply(&c.Transactions[i])
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug().
		Str("company_id", companyID).
		Str("transaction_id", transactionID).
		Msg("Transaction updated")
	return nil
}

// DeleteTransaction removes the transaction at index. Later transactions
// move down by one position.
func (s *Store) DeleteTransaction(ctx context.Context, companyID string, index int) error {
	companyID = NormalizeCompanyID(companyID)
	err := s.update(ctx, func(doc *document) error {
		c, err := lookup(doc, companyID)
		if err != nil {
			return err
		}
		if err := checkIndex(c, index); err != nil {
			return err
		}
		c.Transactions = slices.Delete(c.Transactions, index, index+1)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug().Str("company_id", companyID).Int("index", index).Msg("Transaction deleted")
	return nil
}

// DeleteTransactionByID is DeleteTransaction addressed by transaction id.
func (s *Store) DeleteTransactionByID(ctx context.Context, companyID, transactionID string) error {
	companyID = NormalizeCompanyID(companyID)
	err := s.update(ctx, func(doc *document) error {
		c, err := lookup(doc, companyID)
		if err != nil {
			return err
		}
		i, err := position(c, transactionID)
		if err != nil {
			return err
		}
		c.Transactions = slices.Delete(c.Transactions, i, i+1)
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Debug().
		Str("company_id", companyID).
		Str("transaction_id", transactionID).
		Msg("Transaction deleted")
	return nil
}

// SummarizeByCategory sums amounts per category. Categories without
// transactions are absent; a company with no transactions yields an empty map.
func (s *Store) SummarizeByCategory(ctx context.Context, companyID string) (map[string]decimal.Decimal, error) {
	totals, err := s.CategoryTotals(ctx, companyID)
	if err != nil {
		return nil, err
	}
	summary := make(map[string]decimal.Decimal, len(totals))
	for _, ct := range totals {
		summary[ct.Category] = ct.Total
	}
	return summary, nil
}

// CategoryTotals is SummarizeByCategory in the order each category first
// appears in the company's transactions.
func (s *Store) CategoryTotals(ctx context.Context, companyID string) ([]CategoryTotal, error) {
	txs, err := s.Transactions(ctx, companyID)
	if err != nil {
		return nil, err
	}
	var totals []CategoryTotal
	index := make(map[string]int)
	for _, t := range txs {
		i, ok := index[t.Category]
		if !ok {
			i = len(totals)
			index[t.Category] = i
			totals = append(totals, CategoryTotal{Category: t.Category})
		}
		totals[i].Total = totals[i].Total.Add(t.Amount)
	}
	return totals, nil
}

func lookup(doc *document, companyID string) (*Company, error) {
	c := doc.find(companyID)
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompany, companyID)
	}
	return c, nil
}

func checkIndex(c *Company, index int) error {
	if index < 0 || index >= len(c.Transactions) {
		return fmt.Errorf("%w: %d (company %q has %d transactions)", ErrInvalidIndex, index, c.ID, len(c.Transactions))
	}
	return nil
}

func position(c *Company, transactionID string) (int, error) {
	i := slices.IndexFunc(c.Transactions, func(t Transaction) bool {
		return t.TransactionID == transactionID
	})
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTransaction, transactionID)
	}
	return i, nil
}

// view runs fn against a freshly loaded document without persisting it.
func (s *Store) view(ctx context.Context, fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

// update runs fn against a freshly loaded document and persists the result
// once. If fn fails nothing is written.
func (s *Store) update(ctx context.Context, fn func(*document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.persist(ctx, doc)
}

func (s *Store) load(ctx context.Context) (*document, error) {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return doc, nil
}

func (s *Store) persist(ctx context.Context, doc *document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	return nil
}

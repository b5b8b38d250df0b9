// Package shell implements the interactive menu session over a ledger store.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/clearledger/internal/ledger"
	"github.com/dvloznov/clearledger/internal/logger"
)

// Ledger is the store surface the session drives.
type Ledger interface {
	ListCompanyIDs(ctx context.Context) ([]string, error)
	CreateCompany(ctx context.Context, id, name string) error
	AddTransaction(ctx context.Context, companyID string, t ledger.Transaction) error
	Transactions(ctx context.Context, companyID string) ([]ledger.Transaction, error)
	UpdateTransactionByID(ctx context.Context, companyID, transactionID string, upd ledger.TransactionUpdate) error
	DeleteTransactionByID(ctx context.Context, companyID, transactionID string) error
	CategoryTotals(ctx context.Context, companyID string) ([]ledger.CategoryTotal, error)
}

// errQuit ends the whole session, from any menu.
var errQuit = errors.New("quit")

// Session reads commands from in and writes prompts and results to out.
type Session struct {
	store Ledger
	in    *bufio.Scanner
	out   io.Writer
}

// New creates a session.
func New(store Ledger, in io.Reader, out io.Writer) *Session {
	return &Session{
		store: store,
		in:    bufio.NewScanner(in),
		out:   out,
	}
}

// Run shows the main menu until the user exits or input ends. It returns an
// error only for failures the user cannot correct, such as storage errors.
func (s *Session) Run(ctx context.Context) error {
	err := s.mainMenu(ctx)
	if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (s *Session) mainMenu(ctx context.Context) error {
	for {
		s.printf("\nClearLedger\n")
		s.printf("1. Select company\n")
		s.printf("2. Create company\n")
		s.printf("3. Exit\n")

		choice, err := s.prompt("Select an option: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			company, err := s.selectCompany(ctx)
			if err != nil {
				return err
			}
			if company != "" {
				if err := s.companySession(ctx, company); err != nil {
					return err
				}
			}
		case "2":
			company, err := s.createCompany(ctx)
			if err != nil {
				return err
			}
			if err := s.companySession(ctx, company); err != nil {
				return err
			}
		case "3":
			s.printf("Goodbye.\n")
			return errQuit
		default:
			s.printf("Invalid option.\n\n")
		}
	}
}

func (s *Session) selectCompany(ctx context.Context) (string, error) {
	ids, err := s.store.ListCompanyIDs(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		s.printf("No companies exist yet.\n\n")
		return "", nil
	}

	for {
		s.printf("\nAvailable companies:\n")
		for _, id := range ids {
			s.printf("- %s\n", id)
		}

		id, err := s.prompt("Select company ID: ")
		if err != nil {
			return "", err
		}
		id = ledger.NormalizeCompanyID(id)
		if slices.Contains(ids, id) {
			return id, nil
		}
		s.printf("Invalid company. Try again.\n\n")
	}
}

func (s *Session) createCompany(ctx context.Context) (string, error) {
	for {
		id, err := s.prompt("New company ID: ")
		if err != nil {
			return "", err
		}
		name, err := s.prompt("Company name: ")
		if err != nil {
			return "", err
		}

		err = s.store.CreateCompany(ctx, id, name)
		switch {
		case err == nil:
			s.printf("Company created successfully.\n\n")
			return ledger.NormalizeCompanyID(id), nil
		case errors.Is(err, ledger.ErrInvalidInput):
			s.printf("Company ID and name cannot be empty.\n\n")
		case errors.Is(err, ledger.ErrDuplicateCompany):
			s.printf("Company ID already exists. Try again.\n\n")
		default:
			return "", err
		}
	}
}

func (s *Session) companySession(ctx context.Context, company string) error {
	for {
		s.printf("\nClearLedger - %s\n", company)
		s.printf("1. Add transaction\n")
		s.printf("2. View transactions\n")
		s.printf("3. Edit transaction\n")
		s.printf("4. Delete transaction\n")
		s.printf("5. Category summary\n")
		s.printf("6. Switch company\n")
		s.printf("7. Exit\n")

		choice, err := s.prompt("Select an option: ")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = s.addTransaction(ctx, company)
		case "2":
			err = s.viewTransactions(ctx, company)
		case "3":
			err = s.editTransaction(ctx, company)
		case "4":
			err = s.deleteTransaction(ctx, company)
		case "5":
			err = s.summary(ctx, company)
		case "6":
			return nil
		case "7":
			s.printf("Goodbye.\n")
			return errQuit
		default:
			s.printf("Invalid option.\n\n")
		}
		if err != nil {
			if !ledger.IsUserError(err) {
				return err
			}
			log := logger.FromContext(ctx)
			log.Debug().Err(err).Str("company_id", company).Msg("Operation rejected")
			s.printf("%s\n\n", userMessage(err))
		}
	}
}

func (s *Session) addTransaction(ctx context.Context, company string) error {
	description, err := s.prompt("Description: ")
	if err != nil {
		return err
	}

	var amount decimal.Decimal
	for {
		raw, err := s.prompt("Amount: ")
		if err != nil {
			return err
		}
		amount, err = decimal.NewFromString(raw)
		if err == nil {
			break
		}
		s.printf("Amount must be a number.\n\n")
	}

	category, err := s.prompt("Category: ")
	if err != nil {
		return err
	}

	tx := ledger.NewTransaction(company, description, amount, category)
	if err := s.store.AddTransaction(ctx, company, tx); err != nil {
		return err
	}
	s.printf("Transaction added.\n\n")
	return nil
}

func (s *Session) viewTransactions(ctx context.Context, company string) error {
	txs, err := s.store.Transactions(ctx, company)
	if err != nil {
		return err
	}
	if len(txs) == 0 {
		s.printf("No transactions found.\n\n")
		return nil
	}
	s.printLedger(company, txs)
	return nil
}

func (s *Session) printLedger(company string, txs []ledger.Transaction) {
	s.printf("\nLedger for %s:\n\n", company)
	for i, t := range txs {
		s.printf("[%d] %s | %s | $%s | %s\n", i, t.Date, t.Description, t.Amount.String(), t.Category)
	}
	s.printf("\n")
}

// pickTransaction shows the ledger and maps the number the user types to a
// transaction id from the snapshot shown, so later changes by others cannot
// redirect the operation to a different record.
func (s *Session) pickTransaction(ctx context.Context, company, verb string) (string, bool, error) {
	txs, err := s.store.Transactions(ctx, company)
	if err != nil {
		return "", false, err
	}
	if len(txs) == 0 {
		s.printf("No transactions to %s.\n\n", verb)
		return "", false, nil
	}
	s.printLedger(company, txs)

	raw, err := s.prompt(fmt.Sprintf("Enter transaction number to %s: ", verb))
	if err != nil {
		return "", false, err
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		s.printf("Invalid input.\n\n")
		return "", false, nil
	}
	if index < 0 || index >= len(txs) {
		s.printf("Invalid transaction number.\n\n")
		return "", false, nil
	}
	return txs[index].TransactionID, true, nil
}

func (s *Session) editTransaction(ctx context.Context, company string) error {
	id, ok, err := s.pickTransaction(ctx, company, "edit")
	if err != nil || !ok {
		return err
	}

	field, err := s.prompt("Edit field (description, amount, category): ")
	if err != nil {
		return err
	}

	var upd ledger.TransactionUpdate
	switch field = strings.ToLower(field); field {
	case "description", "category":
		value, err := s.prompt("New value: ")
		if err != nil {
			return err
		}
		if field == "description" {
			upd.Description = &value
		} else {
			upd.Category = &value
		}
	case "amount":
		raw, err := s.prompt("New amount: ")
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			s.printf("Amount must be a number.\n\n")
			return nil
		}
		upd.Amount = &amount
	default:
		s.printf("Invalid field.\n\n")
		return nil
	}

	if err := s.store.UpdateTransactionByID(ctx, company, id, upd); err != nil {
		return err
	}
	s.printf("Transaction updated.\n\n")
	return nil
}

func (s *Session) deleteTransaction(ctx context.Context, company string) error {
	id, ok, err := s.pickTransaction(ctx, company, "delete")
	if err != nil || !ok {
		return err
	}

	confirm, err := s.prompt("Are you sure? (y/n): ")
	if err != nil {
		return err
	}
	if strings.ToLower(confirm) != "y" {
		s.printf("Deletion cancelled.\n\n")
		return nil
	}

	if err := s.store.DeleteTransactionByID(ctx, company, id); err != nil {
		return err
	}
	s.printf("Transaction deleted.\n\n")
	return nil
}

func (s *Session) summary(ctx context.Context, company string) error {
	totals, err := s.store.CategoryTotals(ctx, company)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		s.printf("No data to summarize.\n\n")
		return nil
	}

	s.printf("\nCategory Summary:\n\n")
	for _, ct := range totals {
		s.printf("%s: $%s\n", ct.Category, ct.Total.String())
	}
	s.printf("\n")
	return nil
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ledger.ErrUnknownTransaction), errors.Is(err, ledger.ErrInvalidIndex):
		return "Invalid transaction number."
	case errors.Is(err, ledger.ErrUnknownCompany):
		return "Company no longer exists."
	default:
		return "Invalid input."
	}
}

// prompt writes label and returns the next trimmed input line. It returns
// io.EOF when input is exhausted.
func (s *Session) prompt(label string) (string, error) {
	s.printf("%s", label)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

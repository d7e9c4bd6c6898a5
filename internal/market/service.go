package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Service executes market orders against oracle-supplied prices. All balance
// legs of one order post as a single atomic ledger operation; the audit
// record is appended only after that operation commits.
type Service struct {
	ledger  ledger.Store
	repo    Repository
	feeRate decimal.Decimal
	houseID uuid.UUID
	logger  *slog.Logger
}

// NewService builds a market order executor. houseID is the system account
// that collects fees.
func NewService(store ledger.Store, repo Repository, feeRate decimal.Decimal, houseID uuid.UUID, logger *slog.Logger) *Service {
	return &Service{ledger: store, repo: repo, feeRate: feeRate, houseID: houseID, logger: logger}
}

// ExecuteInput captures one market order request. Price comes from the price
// oracle; the executor never fetches it itself.
type ExecuteInput struct {
	AccountID uuid.UUID
	Pair      string
	Side      Side
	Amount    decimal.Decimal
	Price     decimal.Decimal
}

// Execute runs the order. Buy: debit quote spend+fee, credit base amount.
// Sell: debit base amount, credit quote proceeds−fee. The fee leg credits the
// house account in the same atomic operation. No partial execution: a failed
// leg rolls back every leg.
func (s *Service) Execute(ctx context.Context, in ExecuteInput) (Transaction, error) {
	base, quote, err := splitPair(in.Pair)
	if err != nil {
		return Transaction{}, err
	}
	if !in.Amount.IsPositive() {
		return Transaction{}, fmt.Errorf("%w: amount must be positive", ledger.ErrInvalidOperation)
	}
	if !in.Price.IsPositive() {
		return Transaction{}, fmt.Errorf("%w: price must be positive", ledger.ErrInvalidOperation)
	}

	gross := in.Amount.Mul(in.Price)
	fee := gross.Mul(s.feeRate)

	var entries []ledger.Entry
	switch in.Side {
	case SideBuy:
		entries = []ledger.Entry{
			{AccountID: in.AccountID, Currency: quote, Amount: gross.Add(fee).Neg()},
			{AccountID: in.AccountID, Currency: base, Amount: in.Amount},
			{AccountID: s.houseID, Currency: quote, Amount: fee},
		}
	case SideSell:
		entries = []ledger.Entry{
			{AccountID: in.AccountID, Currency: base, Amount: in.Amount.Neg()},
			{AccountID: in.AccountID, Currency: quote, Amount: gross.Sub(fee)},
			{AccountID: s.houseID, Currency: quote, Amount: fee},
		}
	default:
		return Transaction{}, fmt.Errorf("%w: unknown side %q", ledger.ErrInvalidOperation, in.Side)
	}

	if err := s.ledger.Apply(ctx, entries); err != nil {
		return Transaction{}, err
	}

	record := Transaction{
		ID:        uuid.New(),
		AccountID: in.AccountID,
		Pair:      fmt.Sprintf("%s/%s", base, quote),
		Side:      in.Side,
		Amount:    in.Amount,
		Price:     in.Price,
		Fee:       fee,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Record(ctx, record); err != nil {
		// The balances committed; only the audit record is missing. Failing
		// the order here would invite a resubmit and a double execution, so
		// log and report the trade as done.
		s.logger.Error("failed to record executed trade",
			slog.String("transaction_id", record.ID.String()),
			slog.String("account_id", record.AccountID.String()),
			slog.String("pair", record.Pair),
			slog.Any("error", err),
		)
	}
	return record, nil
}

// History returns the most recent executed orders for an account.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.History(ctx, accountID, limit)
}

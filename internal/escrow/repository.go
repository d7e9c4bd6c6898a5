package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// ErrNotFound occurs when no offer exists for the requested identifier.
var ErrNotFound = errors.New("offer not found")

// Repository owns trade offer rows for their full lifecycle. Every mutating
// call is a single transaction covering the balance legs, the status write
// and the settlement record, so no observer ever sees a partially settled
// offer.
type Repository interface {
	Create(ctx context.Context, offer Offer) error
	Get(ctx context.Context, offerID uuid.UUID) (Offer, error)
	Accept(ctx context.Context, offerID, acceptorID uuid.UUID) (Settlement, error)
	Cancel(ctx context.Context, offerID, creatorID uuid.UUID) (Offer, error)
	ListActive(ctx context.Context, exclude *uuid.UUID) ([]Listing, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]Offer, error)
}

// PostgresRepository stores offers in PostgreSQL, composing balance legs via
// the ledger store's transaction-scoped helpers.
type PostgresRepository struct {
	db     *pgxpool.Pool
	ledger *ledger.PostgresStore
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool, store *ledger.PostgresStore) *PostgresRepository {
	return &PostgresRepository{db: db, ledger: store}
}

const offerColumns = `id, creator_id, offering_currency, offering_amount,
    requesting_currency, requesting_amount, status, created_at, updated_at`

// Create locks the offered funds and inserts the offer in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, offer Offer) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := r.ledger.LockTx(ctx, tx, offer.CreatorID, offer.OfferingCurrency, offer.OfferingAmount); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO trade_offers
        (id, creator_id, offering_currency, offering_amount, requesting_currency, requesting_amount, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		offer.ID, offer.CreatorID, offer.OfferingCurrency, offer.OfferingAmount,
		offer.RequestingCurrency, offer.RequestingAmount, string(offer.Status), offer.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get fetches one offer.
func (r *PostgresRepository) Get(ctx context.Context, offerID uuid.UUID) (Offer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM trade_offers WHERE id = $1`, offerID)
	return scanOffer(row, offerID)
}

// Accept settles the offer: all four balance legs, the status flip and the
// settlement record commit atomically. The offer row is locked FOR UPDATE so
// a racing accept or cancel observes the terminal status and fails.
func (r *PostgresRepository) Accept(ctx context.Context, offerID, acceptorID uuid.UUID) (Settlement, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Settlement{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	offer, err := lockOffer(ctx, tx, offerID)
	if err != nil {
		return Settlement{}, err
	}
	if offer.Status != StatusActive {
		return Settlement{}, fmt.Errorf("%w: offer is %s", ledger.ErrOfferNotActive, offer.Status)
	}
	if offer.CreatorID == acceptorID {
		return Settlement{}, fmt.Errorf("%w: cannot accept your own offer", ledger.ErrInvalidOperation)
	}

	// Acceptor pays the requested leg and receives the offered leg; the
	// creator's escrowed funds settle out of locked balance and the
	// requested leg credits the creator. One ApplyTx call, one transaction.
	err = r.ledger.ApplyTx(ctx, tx, []ledger.Entry{
		{AccountID: acceptorID, Currency: offer.RequestingCurrency, Amount: offer.RequestingAmount.Neg()},
		{AccountID: acceptorID, Currency: offer.OfferingCurrency, Amount: offer.OfferingAmount},
		{AccountID: offer.CreatorID, Currency: offer.RequestingCurrency, Amount: offer.RequestingAmount},
		{AccountID: offer.CreatorID, Currency: offer.OfferingCurrency, Amount: offer.OfferingAmount.Neg(), FromLocked: true},
	})
	if err != nil {
		return Settlement{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE trade_offers SET status = $1, updated_at = now() WHERE id = $2`,
		string(StatusCompleted), offerID); err != nil {
		return Settlement{}, fmt.Errorf("complete offer: %w", err)
	}

	settlement := Settlement{
		ID:                 uuid.New(),
		OfferID:            offer.ID,
		CreatorID:          offer.CreatorID,
		AcceptorID:         acceptorID,
		OfferingCurrency:   offer.OfferingCurrency,
		OfferingAmount:     offer.OfferingAmount,
		RequestingCurrency: offer.RequestingCurrency,
		RequestingAmount:   offer.RequestingAmount,
		CreatedAt:          time.Now().UTC(),
	}
	_, err = tx.Exec(ctx, `INSERT INTO p2p_settlements
        (id, offer_id, creator_id, acceptor_id, offering_currency, offering_amount, requesting_currency, requesting_amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		settlement.ID, settlement.OfferID, settlement.CreatorID, settlement.AcceptorID,
		settlement.OfferingCurrency, settlement.OfferingAmount,
		settlement.RequestingCurrency, settlement.RequestingAmount, settlement.CreatedAt)
	if err != nil {
		return Settlement{}, fmt.Errorf("record settlement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Settlement{}, fmt.Errorf("commit: %w", err)
	}
	return settlement, nil
}

// Cancel returns the escrowed funds to the creator and marks the offer
// cancelled, atomically. Only the creator may cancel, and only while active.
func (r *PostgresRepository) Cancel(ctx context.Context, offerID, creatorID uuid.UUID) (Offer, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Offer{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	offer, err := lockOffer(ctx, tx, offerID)
	if err != nil {
		return Offer{}, err
	}
	if offer.CreatorID != creatorID {
		return Offer{}, fmt.Errorf("%w: only the creator may cancel", ledger.ErrInvalidOperation)
	}
	if offer.Status != StatusActive {
		return Offer{}, fmt.Errorf("%w: offer is %s", ledger.ErrOfferNotActive, offer.Status)
	}

	if err := r.ledger.UnlockTx(ctx, tx, offer.CreatorID, offer.OfferingCurrency, offer.OfferingAmount); err != nil {
		return Offer{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE trade_offers SET status = $1, updated_at = now() WHERE id = $2`,
		string(StatusCancelled), offerID); err != nil {
		return Offer{}, fmt.Errorf("cancel offer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Offer{}, fmt.Errorf("commit: %w", err)
	}
	offer.Status = StatusCancelled
	return offer, nil
}

// ListActive returns active offers newest first, optionally excluding one
// creator (the browsing user's own offers).
func (r *PostgresRepository) ListActive(ctx context.Context, exclude *uuid.UUID) ([]Listing, error) {
	query := `SELECT o.id, o.creator_id, o.offering_currency, o.offering_amount,
            o.requesting_currency, o.requesting_amount, o.status, o.created_at, o.updated_at,
            a.display_name
        FROM trade_offers o
        JOIN accounts a ON a.id = o.creator_id
        WHERE o.status = 'active'`
	args := []any{}
	if exclude != nil {
		query += ` AND o.creator_id != $1`
		args = append(args, *exclude)
	}
	query += ` ORDER BY o.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		var status string
		if err := rows.Scan(&l.ID, &l.CreatorID, &l.OfferingCurrency, &l.OfferingAmount,
			&l.RequestingCurrency, &l.RequestingAmount, &status, &l.CreatedAt, &l.UpdatedAt,
			&l.CreatorName); err != nil {
			return nil, err
		}
		l.Status = Status(status)
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// ListByCreator returns the creator's active offers newest first.
func (r *PostgresRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]Offer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+offerColumns+` FROM trade_offers
        WHERE creator_id = $1 AND status = 'active' ORDER BY created_at DESC`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []Offer
	for rows.Next() {
		var o Offer
		var status string
		if err := rows.Scan(&o.ID, &o.CreatorID, &o.OfferingCurrency, &o.OfferingAmount,
			&o.RequestingCurrency, &o.RequestingAmount, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func lockOffer(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) (Offer, error) {
	row := tx.QueryRow(ctx, `SELECT `+offerColumns+` FROM trade_offers WHERE id = $1 FOR UPDATE`, offerID)
	return scanOffer(row, offerID)
}

func scanOffer(row pgx.Row, offerID uuid.UUID) (Offer, error) {
	var o Offer
	var status string
	err := row.Scan(&o.ID, &o.CreatorID, &o.OfferingCurrency, &o.OfferingAmount,
		&o.RequestingCurrency, &o.RequestingAmount, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Offer{}, fmt.Errorf("%w: %s", ErrNotFound, offerID)
		}
		return Offer{}, err
	}
	o.Status = Status(status)
	return o, nil
}

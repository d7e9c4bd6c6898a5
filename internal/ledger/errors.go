package ledger

import "errors"

var (
	// ErrInsufficientFunds occurs when a debit or lock would drive the
	// spendable balance below zero. The operation is never partially applied.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPriceUnavailable indicates the price oracle returned no quote for the
	// requested pair; the order is aborted before any balance is touched.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrOfferNotActive indicates a state transition was attempted on an offer
	// that already completed or was cancelled.
	ErrOfferNotActive = errors.New("offer not active")

	// ErrInvalidOperation covers caller mistakes such as self-trades,
	// non-positive amounts, or same-currency offers.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrTooEarly indicates the bonus cooldown has not elapsed.
	ErrTooEarly = errors.New("bonus cooldown not elapsed")

	// ErrInvariantViolation signals an internal consistency failure, e.g.
	// unlocking more than is locked. It indicates a bug in a caller and must
	// be surfaced, never silently corrected.
	ErrInvariantViolation = errors.New("ledger invariant violation")

	// ErrStorageUnavailable wraps transient storage failures. Safe to retry:
	// no partial state is ever committed.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrWalletNotFound occurs when no wallet row exists for the requested
	// account and currency.
	ErrWalletNotFound = errors.New("wallet not found")
)

func storageErr(err error) error {
	return errors.Join(ErrStorageUnavailable, err)
}

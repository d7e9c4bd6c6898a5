package escrow

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a trade offer. Offers start active and
// terminate as completed (accepted) or cancelled (withdrawn by the creator).
// Terminal states never transition again.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Offer is a peer-to-peer trade proposal. The offered amount is locked out of
// the creator's spendable balance for as long as the offer stays active.
// There is no partial acceptance.
type Offer struct {
	ID                 uuid.UUID
	CreatorID          uuid.UUID
	OfferingCurrency   string
	OfferingAmount     decimal.Decimal
	RequestingCurrency string
	RequestingAmount   decimal.Decimal
	Status             Status
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Listing is an offer enriched with the creator's display name for browsing.
type Listing struct {
	Offer
	CreatorName string
}

// Settlement is the append-only audit record of one accepted offer.
type Settlement struct {
	ID                 uuid.UUID
	OfferID            uuid.UUID
	CreatorID          uuid.UUID
	AcceptorID         uuid.UUID
	OfferingCurrency   string
	OfferingAmount     decimal.Decimal
	RequestingCurrency string
	RequestingAmount   decimal.Decimal
	CreatedAt          time.Time
}

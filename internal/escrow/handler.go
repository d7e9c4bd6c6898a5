package escrow

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Handler exposes peer-offer HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an escrow HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createOfferRequest struct {
	AccountID          string `json:"account_id"`
	OfferingCurrency   string `json:"offering_currency"`
	OfferingAmount     string `json:"offering_amount"`
	RequestingCurrency string `json:"requesting_currency"`
	RequestingAmount   string `json:"requesting_amount"`
}

type actionRequest struct {
	AccountID string `json:"account_id"`
}

// Create opens a new offer, locking the offered funds.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	creatorID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	offeringAmount, err := decimal.NewFromString(req.OfferingAmount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid offering amount")
	}
	requestingAmount, err := decimal.NewFromString(req.RequestingAmount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid requesting amount")
	}

	offer, err := h.service.Create(c.UserContext(), CreateInput{
		CreatorID:          creatorID,
		OfferingCurrency:   req.OfferingCurrency,
		OfferingAmount:     offeringAmount,
		RequestingCurrency: req.RequestingCurrency,
		RequestingAmount:   requestingAmount,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(offerJSON(offer))
}

// List returns active offers, optionally excluding one account's own.
func (h *Handler) List(c *fiber.Ctx) error {
	var exclude *uuid.UUID
	if raw := c.Query("exclude"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid exclude account id")
		}
		exclude = &id
	}

	listings, err := h.service.ListActive(c.UserContext(), exclude)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(listings))
	for _, l := range listings {
		entry := offerJSON(l.Offer)
		entry["creator_name"] = l.CreatorName
		out = append(out, entry)
	}
	return c.JSON(fiber.Map{"offers": out})
}

// Mine returns the calling account's active offers.
func (h *Handler) Mine(c *fiber.Ctx) error {
	creatorID, err := uuid.Parse(c.Query("creator"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid creator account id")
	}
	offers, err := h.service.ListByCreator(c.UserContext(), creatorID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]fiber.Map, 0, len(offers))
	for _, o := range offers {
		out = append(out, offerJSON(o))
	}
	return c.JSON(fiber.Map{"offers": out})
}

// Accept settles an offer for the calling account.
func (h *Handler) Accept(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("offerId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid offer id")
	}
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acceptorID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}

	settlement, err := h.service.Accept(c.UserContext(), offerID, acceptorID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"offer_id":            settlement.OfferID,
		"received_currency":   settlement.OfferingCurrency,
		"received_amount":     settlement.OfferingAmount,
		"sent_currency":       settlement.RequestingCurrency,
		"sent_amount":         settlement.RequestingAmount,
		"settled_at":          settlement.CreatedAt,
	})
}

// Cancel withdraws an offer for its creator.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	offerID, err := uuid.Parse(c.Params("offerId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid offer id")
	}
	var req actionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	creatorID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}

	offer, err := h.service.Cancel(c.UserContext(), offerID, creatorID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(offerJSON(offer))
}

func offerJSON(o Offer) fiber.Map {
	return fiber.Map{
		"offer_id":            o.ID,
		"creator_id":          o.CreatorID,
		"offering_currency":   o.OfferingCurrency,
		"offering_amount":     o.OfferingAmount,
		"requesting_currency": o.RequestingCurrency,
		"requesting_amount":   o.RequestingAmount,
		"status":              o.Status,
		"created_at":          o.CreatedAt,
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ledger.ErrInvalidOperation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrOfferNotActive):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrStorageUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

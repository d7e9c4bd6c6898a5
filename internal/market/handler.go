package market

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
	"github.com/cryptotrade/cryptotrade/internal/pricing"
)

// Handler exposes market order HTTP endpoints.
type Handler struct {
	service *Service
	oracle  pricing.Oracle
}

// NewHandler builds a market HTTP handler. The oracle is consulted before the
// ledger transaction begins; an unpriced pair aborts the order untouched.
func NewHandler(service *Service, oracle pricing.Oracle) *Handler {
	return &Handler{service: service, oracle: oracle}
}

type orderRequest struct {
	AccountID string `json:"account_id"`
	Pair      string `json:"pair"`
	Side      string `json:"side"`
	Amount    string `json:"amount"`
}

// Execute processes a market order at the oracle's current price.
func (h *Handler) Execute(c *fiber.Ctx) error {
	var req orderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}

	price, ok, err := h.oracle.Price(c.UserContext(), req.Pair)
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	if !ok {
		return fiber.NewError(http.StatusServiceUnavailable, ledger.ErrPriceUnavailable.Error())
	}

	record, err := h.service.Execute(c.UserContext(), ExecuteInput{
		AccountID: accountID,
		Pair:      req.Pair,
		Side:      Side(req.Side),
		Amount:    amount,
		Price:     price,
	})
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "insufficient funds")
		case errors.Is(err, ledger.ErrInvalidOperation), errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrStorageUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"transaction_id": record.ID,
		"pair":           record.Pair,
		"side":           record.Side,
		"amount":         record.Amount,
		"price":          record.Price,
		"fee":            record.Fee,
		"executed_at":    record.CreatedAt,
	})
}

// History returns recent executed orders for an account.
func (h *Handler) History(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Query("account"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	limit := c.QueryInt("limit", 50)

	records, err := h.service.History(c.UserContext(), accountID, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(records))
	for _, t := range records {
		out = append(out, fiber.Map{
			"transaction_id": t.ID,
			"pair":           t.Pair,
			"side":           t.Side,
			"amount":         t.Amount,
			"price":          t.Price,
			"fee":            t.Fee,
			"executed_at":    t.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"account_id": accountID, "transactions": out})
}

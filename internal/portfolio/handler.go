package portfolio

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cryptotrade/cryptotrade/internal/account"
	"github.com/cryptotrade/cryptotrade/internal/pricing"
)

// Handler exposes the read-side endpoints. Prices come from the oracle
// before any aggregation runs; pairs the oracle cannot quote simply value
// at zero, matching the aggregation rules.
type Handler struct {
	service    *Service
	oracle     pricing.Oracle
	currencies []string
}

// NewHandler builds a portfolio HTTP handler.
func NewHandler(service *Service, oracle pricing.Oracle, currencies []string) *Handler {
	return &Handler{service: service, oracle: oracle, currencies: currencies}
}

// Value returns the account's portfolio valuation.
func (h *Handler) Value(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}

	prices, err := h.quotes(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}

	valuation, err := h.service.Value(c.UserContext(), accountID, prices)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	breakdown := make([]fiber.Map, 0, len(valuation.Breakdown))
	for _, hld := range valuation.Breakdown {
		breakdown = append(breakdown, fiber.Map{
			"currency": hld.Currency,
			"balance":  hld.Balance,
			"value":    hld.Value,
		})
	}
	return c.JSON(fiber.Map{
		"account_id":  valuation.AccountID,
		"total_value": valuation.TotalValue,
		"breakdown":   breakdown,
	})
}

// Leaderboard returns the top accounts by portfolio value.
func (h *Handler) Leaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)

	prices, err := h.quotes(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}

	entries, err := h.service.Leaderboard(c.UserContext(), prices, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"rank":        e.Rank,
			"account_id":  e.AccountID,
			"name":        e.DisplayName,
			"total_value": e.TotalValue,
		})
	}
	return c.JSON(fiber.Map{"leaderboard": out})
}

// Rank returns one account's leaderboard position and percentile.
func (h *Handler) Rank(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}

	prices, err := h.quotes(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}

	info, err := h.service.Rank(c.UserContext(), accountID, prices)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{
		"account_id":     accountID,
		"rank":           info.Rank,
		"total_accounts": info.TotalAccounts,
		"percentile":     info.Percentile,
		"total_value":    info.TotalValue,
	})
}

// CoinLeaderboard returns the top holders of one currency.
func (h *Handler) CoinLeaderboard(c *fiber.Ctx) error {
	currency := strings.ToUpper(c.Params("currency"))
	limit := c.QueryInt("limit", 100)

	entries, err := h.service.CoinLeaderboard(c.UserContext(), currency, limit)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"rank":       e.Rank,
			"account_id": e.AccountID,
			"name":       e.DisplayName,
			"balance":    e.Balance,
			"currency":   currency,
		})
	}
	return c.JSON(fiber.Map{"leaderboard": out})
}

func (h *Handler) quotes(ctx context.Context) (map[string]decimal.Decimal, error) {
	pairs := make([]string, 0, len(h.currencies))
	for _, currency := range h.currencies {
		pairs = append(pairs, h.service.Pair(currency))
	}
	return h.oracle.Prices(ctx, pairs)
}

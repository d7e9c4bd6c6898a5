package bonus

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cryptotrade/cryptotrade/internal/account"
	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Handler exposes the bonus claim endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a bonus HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type claimRequest struct {
	AccountID string `json:"account_id"`
}

// Claim credits the periodic bonus for the calling account.
func (h *Handler) Claim(c *fiber.Ctx) error {
	var req claimRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}

	result, err := h.service.Claim(c.UserContext(), accountID)
	if err != nil {
		var tooEarly *TooEarlyError
		switch {
		case errors.As(err, &tooEarly):
			return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{
				"error":             tooEarly.Error(),
				"remaining_seconds": int64(tooEarly.Remaining.Seconds()),
			})
		case errors.Is(err, account.ErrNotFound), errors.Is(err, ledger.ErrWalletNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ledger.ErrStorageUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, "storage unavailable")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.JSON(fiber.Map{
		"bonus_amount": result.Amount,
		"new_balance":  result.NewBalance,
		"claimed_at":   result.ClaimedAt,
	})
}

package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cryptotrade/cryptotrade/internal/ledger"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
	wallets ledger.Store
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service, wallets ledger.Store) *Handler {
	return &Handler{service: service, wallets: wallets}
}

type createRequest struct {
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
}

type accountResponse struct {
	ID             string     `json:"id"`
	ExternalID     string     `json:"external_id"`
	DisplayName    string     `json:"display_name"`
	LastBonusClaim *time.Time `json:"last_bonus_claim,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Create resolves or creates the account for an externally authenticated
// identity. Returns 201 when a new account was created, 200 otherwise.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	acc, created, err := h.service.ResolveOrCreate(c.UserContext(), req.ExternalID, req.DisplayName)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidOperation) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"account": toResponse(acc),
		"created": created,
	})
}

// Wallets returns every wallet for the account.
func (h *Handler) Wallets(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	if _, err := h.service.Get(c.UserContext(), accountID); err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}

	wallets, err := h.wallets.Wallets(c.UserContext(), accountID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]fiber.Map, 0, len(wallets))
	for _, w := range wallets {
		out = append(out, fiber.Map{
			"currency":       w.Currency,
			"balance":        w.Balance,
			"locked_balance": w.LockedBalance,
		})
	}
	return c.JSON(fiber.Map{"account_id": accountID, "wallets": out})
}

func toResponse(acc Account) accountResponse {
	return accountResponse{
		ID:             acc.ID.String(),
		ExternalID:     acc.ExternalID,
		DisplayName:    acc.DisplayName,
		LastBonusClaim: acc.LastBonusClaim,
		CreatedAt:      acc.CreatedAt,
	}
}

package handlers

import (
	"errors"

	"casita/internal/models"
	"casita/internal/repositories"
	"casita/internal/services/wallet"
	"casita/internal/services/withdrawal"
	"casita/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService     wallet.Service
	withdrawalService withdrawal.Service
}

func NewWalletHandler(walletService wallet.Service, withdrawalService withdrawal.Service) *WalletHandler {
	return &WalletHandler{
		walletService:     walletService,
		withdrawalService: withdrawalService,
	}
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balance, err := h.walletService.GetBalance(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return utils.NotFound(c, "Wallet not found")
		}
		return utils.InternalError(c, "Failed to get balance")
	}

	return utils.Success(c, fiber.Map{
		"balance": balance,
	})
}

func (h *WalletHandler) GetHistory(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	p := utils.GetPagination(c, 1, 20)
	entries, err := h.walletService.History(c.Context(), claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "Failed to load transaction history")
	}

	return utils.Success(c, fiber.Map{
		"transactions": entries,
		"page":         p.Page,
		"limit":        p.Limit,
	})
}

// Withdraw sends wallet money to the caller's linked payout account.
func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	result, err := h.withdrawalService.Withdraw(c.Context(), withdrawal.Request{
		UserID:      claims.UserID,
		Role:        claims.Role,
		Amount:      input.Amount,
		Description: input.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrInvalidAmount):
			return utils.BadRequest(c, "Invalid amount")
		case errors.Is(err, withdrawal.ErrInsufficientBalance):
			return utils.Respond(c, fiber.StatusUnprocessableEntity, fiber.Map{"error": "Insufficient balance"})
		case errors.Is(err, withdrawal.ErrNoLinkedIdentity):
			return utils.Respond(c, fiber.StatusPreconditionFailed, fiber.Map{"error": "No linked payout account"})
		case errors.Is(err, withdrawal.ErrUnauthenticated):
			return utils.Unauthorized(c, "unauthorized")
		}
		return utils.Respond(c, fiber.StatusBadGateway, fiber.Map{"error": "Withdrawal failed"})
	}

	return utils.Success(c, fiber.Map{
		"withdrawal": result,
	})
}

// WithdrawalStatus polls the processor for a dispatched withdrawal.
func (h *WalletHandler) WithdrawalStatus(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	id := c.Params("id")
	if id == "" {
		return utils.BadRequest(c, "Missing transaction id")
	}

	result, err := h.withdrawalService.SyncStatus(c.Context(), id)
	if err != nil {
		if errors.Is(err, withdrawal.ErrNotWithdrawal) || errors.Is(err, repositories.ErrTransactionNotFound) {
			return utils.NotFound(c, "Withdrawal not found")
		}
		return utils.InternalError(c, "Failed to check withdrawal status")
	}
	if result.UserID != claims.UserID && claims.Role != models.RoleAdmin {
		return utils.NotFound(c, "Withdrawal not found")
	}

	return utils.Success(c, fiber.Map{
		"withdrawal": result,
	})
}

package handlers

import (
	"errors"
	"strings"

	"casita/internal/models"
	"casita/internal/repositories"
	"casita/internal/services/money"
	"casita/internal/services/reconciler"
	"casita/internal/services/user"
	"casita/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	settings   repositories.SettingsRepository
	ledger     repositories.LedgerRepository
	users      user.Service
	reconciler *reconciler.Service
}

func NewAdminHandler(settings repositories.SettingsRepository, ledger repositories.LedgerRepository, users user.Service, rec *reconciler.Service) *AdminHandler {
	return &AdminHandler{
		settings:   settings,
		ledger:     ledger,
		users:      users,
		reconciler: rec,
	}
}

func (h *AdminHandler) GetPayoutRecipient(c *fiber.Ctx) error {
	email, err := h.settings.ResolvePayoutRecipient(c.Context())
	if err != nil {
		if errors.Is(err, repositories.ErrPayoutRecipientNotConfigured) {
			return utils.NotFound(c, "Payout recipient not configured")
		}
		return utils.InternalError(c, "Failed to resolve payout recipient")
	}

	return utils.Success(c, fiber.Map{
		"payout_recipient": email,
	})
}

func (h *AdminHandler) SetPayoutRecipient(c *fiber.Ctx) error {
	var input struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	email := strings.TrimSpace(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return utils.BadRequest(c, "A valid email is required")
	}

	if err := h.settings.Set(c.Context(), models.SettingPayoutRecipientEmail, email); err != nil {
		return utils.InternalError(c, "Failed to store payout recipient")
	}

	return utils.Success(c, fiber.Map{
		"payout_recipient": email,
	})
}

// FailedPayouts lists transactions whose automatic payout was rejected,
// for manual review.
func (h *AdminHandler) FailedPayouts(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 20)
	txs, err := h.ledger.ListFailedPayouts(c.Context(), p.Limit, p.Offset)
	if err != nil {
		return utils.InternalError(c, "Failed to list failed payouts")
	}

	out := make([]fiber.Map, 0, len(txs))
	for _, tx := range txs {
		out = append(out, fiber.Map{
			"transaction_id": tx.ID,
			"user_id":        tx.UserID,
			"type":           tx.Type,
			"amount":         money.ToDisplay(tx.Amount),
			"currency":       tx.Currency,
			"payout_error":   tx.PayoutError,
			"created_at":     tx.CreatedAt,
		})
	}

	return utils.Success(c, fiber.Map{
		"failed_payouts": out,
		"page":           p.Page,
		"limit":          p.Limit,
	})
}

// ListUsers returns a paginated account listing.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 20)
	users, total, err := h.users.List(p.Page, p.Limit)
	if err != nil {
		return utils.InternalError(c, "Failed to list users")
	}
	p.SetTotal(total)

	out := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		out = append(out, fiber.Map{
			"id":     u.ID,
			"name":   u.Name,
			"email":  u.Email,
			"role":   u.Role,
			"status": u.Status,
		})
	}
	return utils.Success(c, utils.NewPaginatedResponse(out, p))
}

// RunSweep triggers an immediate reconciliation sweep.
func (h *AdminHandler) RunSweep(c *fiber.Ctx) error {
	stats, err := h.reconciler.Sweep(c.Context())
	if err != nil {
		return utils.InternalError(c, "Sweep failed")
	}

	return utils.Success(c, fiber.Map{
		"earnings_paid":       stats.EarningsPaid,
		"earnings_failed":     stats.EarningsFailed,
		"deductions_applied":  stats.DeductionsApplied,
		"withdrawals_resumed": stats.WithdrawalsResumed,
		"withdrawals_settled": stats.WithdrawalsSettled,
	})
}

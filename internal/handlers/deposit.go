package handlers

import (
	"errors"

	"casita/internal/services/deposit"
	"casita/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type DepositHandler struct {
	depositService deposit.Service
}

func NewDepositHandler(depositService deposit.Service) *DepositHandler {
	return &DepositHandler{
		depositService: depositService,
	}
}

// Capture records a settled card payment against the caller's wallet.
func (h *DepositHandler) Capture(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		PaymentIntentID string `json:"payment_intent_id"`
		BookingID       uint   `json:"booking_id"`
		Description     string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	tx, err := h.depositService.Capture(c.Context(), deposit.CaptureRequest{
		HostUserID:      claims.UserID,
		BookingID:       input.BookingID,
		PaymentIntentID: input.PaymentIntentID,
		Description:     input.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, deposit.ErrInvalidCapture):
			return utils.BadRequest(c, "Invalid capture request")
		case errors.Is(err, deposit.ErrPaymentNotFound):
			return utils.NotFound(c, "Payment not found")
		case errors.Is(err, deposit.ErrPaymentNotSettled):
			return utils.Respond(c, fiber.StatusUnprocessableEntity, fiber.Map{"error": "Payment has not succeeded"})
		}
		return utils.InternalError(c, "Failed to capture payment")
	}

	return utils.Success(c, fiber.Map{
		"transaction_id": tx.ID,
		"amount":         tx.Amount,
		"status":         tx.Status,
	})
}

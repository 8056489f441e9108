package handlers

import (
	"errors"

	"casita/internal/services/identity"
	"casita/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type IdentityHandler struct {
	identityService identity.Service
}

func NewIdentityHandler(identityService identity.Service) *IdentityHandler {
	return &IdentityHandler{
		identityService: identityService,
	}
}

// Link exchanges the processor's authorization code for a linked payout
// identity. The client runs the consent flow and posts the code here.
func (h *IdentityHandler) Link(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		AuthCode    string `json:"auth_code"`
		RedirectURI string `json:"redirect_uri"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	linked, err := h.identityService.Link(c.Context(), claims.UserID, claims.Role, input.AuthCode, input.RedirectURI)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidRole):
			return utils.Forbidden(c, "This account type cannot link a payout account")
		case errors.Is(err, identity.ErrInvalidAuthCode):
			return utils.BadRequest(c, "Authorization code rejected")
		case errors.Is(err, identity.ErrNoEmail):
			return utils.Respond(c, fiber.StatusUnprocessableEntity, fiber.Map{"error": "Payout account has no email"})
		}
		return utils.InternalError(c, "Failed to link payout account")
	}

	return utils.Success(c, fiber.Map{
		"identity": fiber.Map{
			"email":    linked.Email,
			"verified": linked.Verified,
		},
	})
}

func (h *IdentityHandler) Get(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	linked, err := h.identityService.Get(c.Context(), claims.UserID, claims.Role)
	if err != nil {
		if errors.Is(err, identity.ErrNotLinked) {
			return utils.NotFound(c, "No linked payout account")
		}
		return utils.InternalError(c, "Failed to load payout account")
	}

	return utils.Success(c, fiber.Map{
		"identity": fiber.Map{
			"email":    linked.Email,
			"verified": linked.Verified,
		},
	})
}

func (h *IdentityHandler) Unlink(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	if err := h.identityService.Unlink(c.Context(), claims.UserID, claims.Role); err != nil {
		return utils.InternalError(c, "Failed to unlink payout account")
	}

	return utils.Success(c, fiber.Map{
		"message": "Payout account unlinked",
	})
}

// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"net/http"

	"casita/internal/handlers"
	"casita/internal/middleware"
	"casita/internal/models"
	"casita/internal/repositories"
	"casita/internal/services/auth"
	"casita/internal/services/deposit"
	"casita/internal/services/identity"
	"casita/internal/services/reconciler"
	"casita/internal/services/user"
	"casita/internal/services/wallet"
	"casita/internal/services/withdrawal"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
)

// Deps carries the shared services built in main. The reconciler and the
// ledger are the same instances driving the background sweep loop, so the
// admin endpoints act on live state rather than a parallel copy.
type Deps struct {
	Users       repositories.UserRepository
	Ledger      repositories.LedgerRepository
	Settings    repositories.SettingsRepository
	Auth        auth.Service
	UserSvc     user.Service
	Wallets     wallet.Service
	Identities  identity.Service
	Withdrawals withdrawal.Service
	Deposits    deposit.Service
	Reconciler  *reconciler.Service
	Metrics     http.Handler
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Auth, d.UserSvc)
	walletHandler := handlers.NewWalletHandler(d.Wallets, d.Withdrawals)
	identityHandler := handlers.NewIdentityHandler(d.Identities)
	depositHandler := handlers.NewDepositHandler(d.Deposits)
	adminHandler := handlers.NewAdminHandler(d.Settings, d.Ledger, d.UserSvc, d.Reconciler)

	app.Get("/health", handlers.HealthCheck)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics))
	}

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/register", authHandler.RegisterUser)
	api.Post("/login", authHandler.LoginUser)
	api.Post("/refresh", authHandler.RefreshToken)

	// Protected routes with auth middleware
	authMiddleware := middleware.NewAuthMiddleware(d.Users)
	protected := api.Use(authMiddleware.Handler)

	protected.Post("/logout", authHandler.LogoutUser)
	protected.Post("/change-password", authHandler.ChangePassword)

	setupWalletRoutes(protected, walletHandler)
	setupIdentityRoutes(protected, identityHandler)

	// Deposit capture is initiated by hosts confirming a card payment.
	protected.Post("/deposits/capture",
		middleware.HasPermission(models.PermissionDepositCapture), depositHandler.Capture)

	setupAdminRoutes(app, authMiddleware, adminHandler)
}

func setupWalletRoutes(router fiber.Router, h *handlers.WalletHandler) {
	wallet := router.Group("/wallet")
	wallet.Get("/", middleware.HasPermission(models.PermissionWalletRead), h.GetBalance)
	wallet.Get("/history", middleware.HasPermission(models.PermissionWalletRead), h.GetHistory)
	wallet.Post("/withdraw", middleware.HasPermission(models.PermissionWithdraw), h.Withdraw)
	wallet.Get("/withdrawals/:id", middleware.HasPermission(models.PermissionWalletRead), h.WithdrawalStatus)
}

func setupIdentityRoutes(router fiber.Router, h *handlers.IdentityHandler) {
	// Guests have no payout destination; linking starts at host.
	identity := router.Group("/identity", middleware.RequireRole(models.RoleHost))
	identity.Post("/link", middleware.HasPermission(models.PermissionIdentityWrite), h.Link)
	identity.Get("/", middleware.HasPermission(models.PermissionIdentityRead), h.Get)
	identity.Delete("/", middleware.HasPermission(models.PermissionIdentityWrite), h.Unlink)
}

func setupAdminRoutes(app *fiber.App, authMiddleware *middleware.AuthMiddleware, h *handlers.AdminHandler) {
	admin := app.Group("/api/admin", authMiddleware.Handler, middleware.AdminAuthMiddleware)

	admin.Get("/payout-recipient", middleware.HasPermission(models.PermissionReadAdmin), h.GetPayoutRecipient)
	admin.Put("/payout-recipient", middleware.HasPermission(models.PermissionWriteAdmin), h.SetPayoutRecipient)
	admin.Get("/users", middleware.HasPermission(models.PermissionReadAdmin), h.ListUsers)
	admin.Get("/payouts/failed", middleware.HasPermission(models.PermissionReadAdmin), h.FailedPayouts)
	admin.Post("/reconcile", middleware.HasPermission(models.PermissionWriteAdmin), h.RunSweep)
}

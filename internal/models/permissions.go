package models

// Permission constants
const (
	// Wallet permissions
	PermissionWalletRead  = "wallet:read"
	PermissionWalletWrite = "wallet:write"

	// Withdrawal permissions
	PermissionWithdraw = "wallet:withdraw"

	// Identity permissions
	PermissionIdentityRead  = "identity:read"
	PermissionIdentityWrite = "identity:write"

	// Deposit permissions
	PermissionDepositCapture = "deposit:capture"

	// User permissions
	PermissionChangePassword = "user:change-password"

	// Admin permissions
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"
)

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionReadAdmin,
			PermissionWriteAdmin,
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionWithdraw,
			PermissionIdentityRead,
			PermissionIdentityWrite,
			PermissionDepositCapture,
			PermissionChangePassword,
		}
	case RoleHost:
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionWithdraw,
			PermissionIdentityRead,
			PermissionIdentityWrite,
			PermissionDepositCapture,
			PermissionChangePassword,
		}
	case RoleGuest:
		return []string{
			PermissionWalletRead,
			PermissionChangePassword,
		}
	default:
		return []string{}
	}
}

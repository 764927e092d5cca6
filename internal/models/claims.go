package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionReadAdmin  = "admin:read"
	PermissionWriteAdmin = "admin:write"

	PermissionWalletRead      = "wallet:read"
	PermissionWithdrawalRead  = "withdrawal:read"
	PermissionWithdrawalWrite = "withdrawal:write"
	PermissionTransactionRead = "transaction:read"
	PermissionPaymentWrite    = "payment:write"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Phone       string   `json:"phone"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case RoleAdmin:
		return []string{
			PermissionReadAdmin,
			PermissionWriteAdmin,
			PermissionWalletRead,
			PermissionWithdrawalRead,
			PermissionWithdrawalWrite,
			PermissionTransactionRead,
			PermissionPaymentWrite,
		}
	case RoleUser:
		return []string{
			PermissionWalletRead,
			PermissionWithdrawalRead,
			PermissionWithdrawalWrite,
			PermissionTransactionRead,
			PermissionPaymentWrite,
		}
	default:
		return []string{}
	}
}

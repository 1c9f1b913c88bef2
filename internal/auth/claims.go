package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// StaffID identifies the campus staff member; there is no tenancy layer,
// the deployment serves a single campus.
type Claims struct {
	jwt.RegisteredClaims

	StaffID   string    `json:"staff_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}

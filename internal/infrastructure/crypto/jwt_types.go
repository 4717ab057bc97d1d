package crypto

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims are the claims carried by admin tokens.
// AdminClaims 管理员令牌携带的声明。
type AdminClaims struct {
	// Role must equal constants.AdminRole for admin routes.
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies admin tokens.
type TokenManager interface {
	// Issue signs a token for subject. A zero ttl uses the manager's default.
	Issue(subject, role string, ttl time.Duration) (string, error)
	// Verify parses tokenString and returns its claims when the signature, issuer and expiry are valid.
	Verify(tokenString string) (*AdminClaims, error)
}

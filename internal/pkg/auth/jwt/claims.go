package jwt

import "github.com/golang-jwt/jwt"

// Claims is the access token issued by the store's auth service. The standard
// Subject claim carries the account id.
type Claims struct {
	jwt.StandardClaims

	// Email is the account email. It may be empty for accounts created
	// without one.
	Email string `json:"email,omitempty"`

	// Role is the database role the store grants the token, e.g. "authenticated".
	Role string `json:"role,omitempty"`
}

package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the claims carried by a messenger identity token.
type Payload struct {
	// StandardClaims embeds Exp, Iat and Iss, used for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// ID is the durable user id.
	ID string `json:"id"`

	// Username is the login name at issuance time.
	Username string `json:"username"`

	// Role is the account role at issuance time ("user", "moderator" or "admin").
	// Authorization re-reads the role from the store; this copy is informational.
	Role string `json:"role"`
}

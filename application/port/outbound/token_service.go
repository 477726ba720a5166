package outbound

// TokenType discriminates the two token purposes. Every issued token
// carries its type in the claim set, and verification rejects a token
// presented where the other type is expected.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the decoded payload of a verified token.
type TokenClaims struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	Type   TokenType `json:"type"`
}

// TokenPair is produced as a unit on every issuance event; the two
// tokens share subject and email but differ in type, TTL and signing
// secret.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type TokenService interface {
	IssuePair(userID, email string) (*TokenPair, error)
	Verify(token string, expected TokenType) (*TokenClaims, error)
}

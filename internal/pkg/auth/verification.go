package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const verificationAudience = "storefront-verify"

// VerificationClaims bind a gateway order id to the user who created it.
type VerificationClaims struct {
	OrderID string `json:"oid"`
	jwt.RegisteredClaims
}

// VerificationIssuer signs short lived tokens that let the checkout return
// page verify a single order without a bearer session.
type VerificationIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewVerificationIssuer creates issuer with provided secret and options.
func NewVerificationIssuer(secret string, opts Options) *VerificationIssuer {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &VerificationIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for orderID owned by userID.
func (v *VerificationIssuer) Issue(orderID, userID string) (string, error) {
	now := v.now()
	claims := VerificationClaims{
		OrderID: orderID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{verificationAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse validates token and returns its claims.
func (v *VerificationIssuer) Parse(token string) (*VerificationClaims, error) {
	var claims VerificationClaims
	if err := parseHS256(token, v.secret, verificationAudience, v.now, &claims); err != nil {
		return nil, err
	}
	if claims.OrderID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nhangara/identity-server/internal/model"
)

// AssertionClaims are the claims the OAuth broker signs for a login.
type AssertionClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

var _ model.AssertionVerifier = (*JWT)(nil)

// JWT verifies HMAC-signed identity assertions.
type JWT struct {
	secretKey string
	issuer    string
	audience  string
}

// NewJWT creates a verifier for assertions signed with secretKey by issuer for audience.
func NewJWT(secretKey, issuer, audience string) *JWT {
	return &JWT{secretKey: secretKey, issuer: issuer, audience: audience}
}

// Sign issues an assertion. The broker signs assertions the same way.
func (j *JWT) Sign(assertion model.IdentityAssertion, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AssertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   assertion.ExternalID,
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:   assertion.Email,
		Name:    assertion.Name,
		Picture: assertion.Picture,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}
	return tokenString, nil
}

// Verify validates the signature, issuer, audience and expiry and returns the
// asserted identity. Every failure matches model.ErrInvalidIdentity.
func (j *JWT) Verify(tokenString string) (model.IdentityAssertion, error) {
	claims := &AssertionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(j.secretKey), nil
	},
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return model.IdentityAssertion{}, fmt.Errorf("%w: %w", model.ErrInvalidIdentity, err)
	}
	if !token.Valid {
		return model.IdentityAssertion{}, fmt.Errorf("%w: assertion is invalid", model.ErrInvalidIdentity)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return model.IdentityAssertion{}, fmt.Errorf("%w: %w", model.ErrInvalidIdentity, errors.New("subject is empty"))
	}

	return model.IdentityAssertion{
		ExternalID: claims.Subject,
		Email:      claims.Email,
		Name:       claims.Name,
		Picture:    claims.Picture,
	}, nil
}

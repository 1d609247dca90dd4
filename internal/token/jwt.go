package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/starter-api/internal/model"
)

// Claims represents JWT claims with token type, email and roles.
type Claims struct {
	jwt.RegisteredClaims
	Email     string       `json:"email"`
	Roles     []model.Role `json:"roles"`
	TokenType string       `json:"typ"`
}

// JWT implements model.TokenIssuer backed by symmetric HMAC.
type JWT struct {
	secretKey  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWT creates a new JWT token issuer with the provided secret key and lifetimes.
func NewJWT(secretKey string, accessTTL, refreshTTL time.Duration) *JWT {
	return &JWT{
		secretKey:  []byte(secretKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// TTL returns the configured lifetime for tokens of the given purpose.
func (j *JWT) TTL(purpose model.TokenPurpose) time.Duration {
	if purpose == model.PurposeRefresh {
		return j.refreshTTL
	}
	return j.accessTTL
}

// Issue signs a token for claims. Every token gets a fresh ID, so two
// tokens issued within the same second never collide.
func (j *JWT) Issue(claims model.TokenClaims, purpose model.TokenPurpose) (model.IssuedToken, error) {
	if claims.Subject == uuid.Nil {
		return model.IssuedToken{}, model.ErrMissingClaims
	}

	now := j.now()
	expiresAt := now.Add(j.TTL(purpose))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   claims.Subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:     claims.Email,
		Roles:     claims.Roles,
		TokenType: string(purpose),
	})

	tokenString, err := token.SignedString(j.secretKey)
	if err != nil {
		return model.IssuedToken{}, fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}

	return model.IssuedToken{Value: tokenString, ExpiresAt: expiresAt}, nil
}

// Verify validates signature, expiry and purpose and returns the embedded claims.
// For an authentic token of the right purpose that has only expired, the
// claims are returned together with model.ErrTokenExpired.
func (j *JWT) Verify(tokenString string, purpose model.TokenPurpose) (model.TokenClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// The signature is checked before the claims, so the claims
			// of an expired token are authentic.
			out, claimsErr := claimsOf(claims, purpose)
			if claimsErr != nil {
				return model.TokenClaims{}, model.ErrTokenExpired
			}
			return out, model.ErrTokenExpired
		}
		return model.TokenClaims{}, fmt.Errorf("%w: %w", model.ErrInvalidToken, err)
	}
	if !token.Valid {
		return model.TokenClaims{}, model.ErrInvalidToken
	}

	return claimsOf(claims, purpose)
}

func claimsOf(claims *Claims, purpose model.TokenPurpose) (model.TokenClaims, error) {
	if claims.TokenType != string(purpose) {
		return model.TokenClaims{}, fmt.Errorf("%w: got %q", model.ErrTokenPurpose, claims.TokenType)
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return model.TokenClaims{}, fmt.Errorf("%w: bad subject: %w", model.ErrMissingClaims, err)
	}

	out := model.TokenClaims{
		Subject: subject,
		Email:   claims.Email,
		Roles:   claims.Roles,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	return out, nil
}

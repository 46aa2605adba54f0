package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opsdeck/backoffice/internal/app/domain/admin"
	"github.com/opsdeck/backoffice/internal/errdefs"
)

// Token lifetimes used when the config leaves them unset.
const (
	DefaultAccessTTL  = 4 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// refreshSubject marks refresh tokens so they cannot authenticate requests.
const refreshSubject = "refresh"

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	IsSuperuser bool   `json:"is_superuser"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. Subject is always
// "refresh".
type RefreshClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenPair is the login and refresh response payload.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Username     string    `json:"username"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *Service) signAccess(u admin.User, now time.Time) (string, time.Time, error) {
	expires := now.Add(s.accessTTL)
	claims := AccessClaims{
		UserID:      u.ID,
		Username:    u.Username,
		IsSuperuser: u.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed, expires, err
}

func (s *Service) signRefresh(u admin.User, now time.Time) (string, error) {
	claims := RefreshClaims{
		UserID: u.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   refreshSubject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, errdefs.Auth("invalid or expired token").WithCause(err)
	}
	if claims.Subject == refreshSubject {
		return nil, errdefs.Auth("refresh token cannot authenticate requests")
	}
	return claims, nil
}

func (s *Service) parseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, errdefs.Auth("invalid or expired refresh token").WithCause(err)
	}
	if claims.Subject != refreshSubject {
		return nil, errdefs.Auth("not a refresh token")
	}
	return claims, nil
}

func (s *Service) keyFunc(*jwt.Token) (any, error) {
	return s.secret, nil
}

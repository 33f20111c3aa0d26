package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/BuzzLyutic/secure-task-manager/internal/model"
)

// sessionClaims - содержимое токена сессии
type sessionClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func (ti tokenIssuer) issue(u model.User) (string, time.Time, error) {
	issuedAt := ti.now()
	expiresAt := issuedAt.Add(ti.ttl)

	claims := sessionClaims{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (ti tokenIssuer) verify(tokenString string) (model.Identity, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return ti.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return model.Identity{}, fmt.Errorf("%w: token subject mismatch", ErrAuthentication)
	}

	return model.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}

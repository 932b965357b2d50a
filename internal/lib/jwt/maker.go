// Package jwt выпускает и проверяет токены сессии пользователя (HS256).
package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается для любого токена, который не прошёл проверку.
var ErrInvalidToken = errors.New("invalid session token")

// Claims данные сессии внутри токена.
type Claims struct {
	UserUID string `json:"uid"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Maker интерфейс выпуска и разбора токенов сессии.
type Maker interface {
	GenerateToken(userUID, email, role string) (string, time.Time, error)
	ParseToken(tokenStr string) (*Claims, error)
}

// MakerImpl подписывает токены секретным ключом.
type MakerImpl struct {
	secretKey []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: []byte(secretKey),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// GenerateToken возвращает подписанный токен и момент его истечения.
func (j *MakerImpl) GenerateToken(userUID, email, role string) (string, time.Time, error) {
	const op = "jwt.GenerateToken"
	issuedAt := j.now()
	expiresAt := issuedAt.Add(j.tokenTTL)
	claims := Claims{
		UserUID: userUID,
		Email:   email,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userUID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return token, expiresAt, nil
}

// ParseToken проверяет подпись и срок действия токена.
// Просроченный токен не принимается независимо от содержимого.
func (j *MakerImpl) ParseToken(tokenStr string) (*Claims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (any, error) {
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserUID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	return claims, nil
}

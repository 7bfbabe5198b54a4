package services

import (
	"errors"
	"time"

	"github.com/Kiril-Hr/blog-source-back/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type TokenService struct {
	jwtSecret []byte
	ttl       time.Duration
}

type Claims struct {
	UserID uint `json:"_id"`
	jwt.RegisteredClaims
}

func NewTokenService(cfg *config.Config) *TokenService {
	ttl := cfg.JWT.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &TokenService{
		jwtSecret: []byte(cfg.JWT.Secret),
		ttl:       ttl,
	}
}

// GenerateToken issues an HS256 access token for userID.
func (s *TokenService) GenerateToken(userID uint) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && claims.UserID != 0 {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

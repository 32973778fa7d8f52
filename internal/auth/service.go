package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/elskow/erlbuild/internal/config"
)

var (
	ErrInvalidSecret = errors.New("invalid client secret")
	ErrInvalidToken  = errors.New("invalid token")
)

type Service struct {
	config *config.AuthConfig
	log    *zap.Logger
}

type Claims struct {
	Client string `json:"client"`
	jwt.RegisteredClaims
}

func NewService(config *config.AuthConfig, log *zap.Logger) *Service {
	return &Service{
		config: config,
		log:    log,
	}
}

func (s *Service) HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

func (s *Service) CheckSecretHash(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}

func (s *Service) GenerateToken(client string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Client: client,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return validateToken(tokenString, s.config.JWTSecret)
}

// IssueToken exchanges the shared client secret for a signed token.
func (s *Service) IssueToken(client, secret string) (string, error) {
	if s.config.ClientSecretHash == "" {
		s.log.Warn("token requested but no client secret is configured",
			zap.String("client", client))
		return "", ErrInvalidSecret
	}
	if !s.CheckSecretHash(secret, s.config.ClientSecretHash) {
		return "", ErrInvalidSecret
	}
	return s.GenerateToken(client)
}

func validateToken(tokenString string, secretKey string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

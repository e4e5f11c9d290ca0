package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const tokenTTL = 24 * time.Hour

// Service guards the editor with one shared password. A successful login
// yields a signed token naming the editor.
type Service struct {
	passwordHash []byte
	jwtSecret    []byte
}

// NewService hashes editorPassword once at startup. An empty password
// disables login.
func NewService(jwtSecret, editorPassword string) (*Service, error) {
	if jwtSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	s := &Service{jwtSecret: []byte(jwtSecret)}
	if editorPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(editorPassword), 12)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		s.passwordHash = hash
	}
	return s, nil
}

type AuthResult struct {
	Token     string `json:"token"`
	Editor    string `json:"editor"`
	ExpiresAt int64  `json:"expiresAt"`
}

func (s *Service) Login(ctx context.Context, editor, password string) (*AuthResult, error) {
	if s.passwordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expires := time.Now().Add(tokenTTL)
	token, err := s.issueToken(editor, expires)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Editor: editor, ExpiresAt: expires.Unix()}, nil
}

// ValidateToken returns the editor name carried by a token.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	editor, ok := claims["sub"].(string)
	if !ok || editor == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return editor, nil
}

func (s *Service) issueToken(editor string, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": editor,
		"iat": time.Now().Unix(),
		"exp": expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

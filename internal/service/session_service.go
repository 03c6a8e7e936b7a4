package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"passager/internal/domain"
)

// SessionService emite y valida tokens de sesión firmados. Cada sesión
// viva queda registrada en el SessionStore por su jti, de modo que cerrar
// sesión la revoca aunque el token siga sin expirar.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	store  SessionStore
}

type SessionClaims struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrSessionInvalid = errors.New("session invalid")
	ErrSessionExpired = errors.New("session expired")
)

func NewSessionService(secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "passager",
		store:  NewMemorySessionStore(),
	}
}

func NewSessionServiceWithStore(secret string, ttl time.Duration, store SessionStore) *SessionService {
	svc := NewSessionService(secret, ttl)
	if store != nil {
		svc.store = store
	}
	return svc
}

// TTL devuelve la vida máxima configurada para una sesión.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Establish crea una sesión para el usuario y devuelve el token firmado.
func (s *SessionService) Establish(user domain.User) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSessionInvalid
	}
	now := time.Now().UTC()
	jti := uuid.NewString()
	claims := SessionClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.FullName(),
		TokenType: "session",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	if s.store != nil {
		if err := s.store.Store(jti, user.ID, s.ttl); err != nil {
			return "", err
		}
	}
	return signed, nil
}

// Destroy revoca la sesión del token. Es idempotente: tokens inválidos,
// expirados o ya revocados no producen error.
func (s *SessionService) Destroy(token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return nil
	}
	if claims.ID == "" || s.store == nil {
		return nil
	}
	return s.store.Revoke(claims.ID)
}

// Parse valida un token de sesión y comprueba que siga vivo en el store.
func (s *SessionService) Parse(token string) (SessionClaims, error) {
	if len(s.secret) == 0 {
		return SessionClaims{}, ErrSessionInvalid
	}
	if strings.TrimSpace(token) == "" {
		return SessionClaims{}, ErrSessionInvalid
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return SessionClaims{}, err
	}
	if claims.TokenType != "session" {
		return SessionClaims{}, ErrSessionInvalid
	}
	if !s.isValidClaims(claims) {
		return SessionClaims{}, ErrSessionInvalid
	}
	if claims.ID == "" || s.store == nil {
		return SessionClaims{}, ErrSessionInvalid
	}
	ok, err := s.store.Exists(claims.ID)
	if err != nil || !ok {
		return SessionClaims{}, ErrSessionInvalid
	}
	return claims, nil
}

func (s *SessionService) parseToken(tokenString string) (SessionClaims, error) {
	var claims SessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, ErrSessionInvalid
	}
	return claims, nil
}

func (s *SessionService) isValidClaims(claims SessionClaims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"passager/internal/domain"
	"passager/internal/email"
	"passager/internal/repository"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailNotConfirmed = errors.New("user email not confirmed")
	ErrLinkInvalid       = errors.New("activation link is invalid")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrPasswordMismatch  = errors.New("password doesn't match")
	ErrAgreementRequired = errors.New("agreement is required")
	ErrEmailSendFailure  = errors.New("email send failed")
	ErrRateLimited       = errors.New("rate limited")
)

// Hash fijo contra el que se compara cuando el email no existe, para
// igualar los tiempos de respuesta entre cuentas existentes y no existentes.
var timingParityHash = func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("passager-timing-parity"), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hash
}()

// AuthService coordina el ciclo de vida de cuentas: alta, inicio de
// sesión, confirmación de email y reinicio de contraseña.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	emailSender email.Sender
	limiter     EmailRateLimiter
	confirmGen  *TokenGenerator
	resetGen    *TokenGenerator
	baseURL     string
}

func NewAuthService(
	logger *zap.Logger,
	users repository.UserRepository,
	emailSender email.Sender,
	limiter EmailRateLimiter,
	confirmGen *TokenGenerator,
	resetGen *TokenGenerator,
	baseURL string,
) *AuthService {
	if limiter == nil {
		limiter = NewEmailRateLimiter(10*time.Minute, 3)
	}
	return &AuthService{
		logger:      logger,
		users:       users,
		emailSender: emailSender,
		limiter:     limiter,
		confirmGen:  confirmGen,
		resetGen:    resetGen,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Password2 string
	Agreement bool
}

// SignUp crea un usuario sin verificar y envía el correo de confirmación.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (domain.User, error) {
	emailAddr := normalizeEmail(input.Email)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if !input.Agreement {
		return domain.User{}, ErrAgreementRequired
	}
	if input.Password != input.Password2 {
		return domain.User{}, ErrPasswordMismatch
	}
	if err := validatePassword(input.Password); err != nil {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	id, err := newUserID()
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           id,
		Email:        emailAddr,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		PasswordHash: string(hashBytes),
		DateJoined:   time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}

	if err := s.sendConfirmationEmail(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// SignIn valida credenciales. Cuentas sin email confirmado se rechazan
// con un error propio, distinto del de credenciales inválidas.
func (s *AuthService) SignIn(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrUserNotFound
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Se ejecuta el hasher igualmente para no delatar por tiempos
			// si la cuenta existe o no.
			_ = bcrypt.CompareHashAndPassword(timingParityHash, []byte(password))
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}

	if !user.EmailVerified {
		_ = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
		return domain.User{}, ErrEmailNotConfirmed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// ConfirmEmail valida el enlace de confirmación y marca el email como
// verificado. El cambio de email_verified invalida el token usado, por lo
// que un segundo intento con el mismo enlace falla.
func (s *AuthService) ConfirmEmail(ctx context.Context, uid, token string) (domain.User, error) {
	user, err := s.userFromUID(ctx, uid)
	if err != nil {
		return domain.User{}, err
	}
	if !s.confirmGen.CheckToken(user, token) {
		return domain.User{}, ErrLinkInvalid
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrLinkInvalid
		}
		return domain.User{}, err
	}
	user.EmailVerified = true
	return user, nil
}

// ResendConfirmationEmail reenvía el enlace de confirmación si la cuenta
// existe. No revela si el email está registrado.
func (s *AuthService) ResendConfirmationEmail(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	if s.limiter != nil && !s.limiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	return s.sendConfirmationEmail(ctx, user)
}

// RequestPasswordReset envía el enlace de reinicio si la cuenta existe.
// No revela si el email está registrado.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidEmail
	}
	if s.limiter != nil && !s.limiter.Allow(emailAddr) {
		return ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	link := s.baseURL + "/password/reset/" + EncodeUID(user.Email) + "/" + s.resetGen.MakeToken(user)
	if err := s.emailSender.SendPasswordResetEmail(ctx, user.Email, link); err != nil {
		s.logger.Warn("send password reset email failed", zap.Error(err), zap.String("email", user.Email))
		return ErrEmailSendFailure
	}
	return nil
}

// ResetPassword valida el enlace de reinicio y guarda la nueva contraseña.
// El cambio de hash invalida el token usado.
func (s *AuthService) ResetPassword(ctx context.Context, uid, token, password, password2 string) error {
	user, err := s.userFromUID(ctx, uid)
	if err != nil {
		return err
	}
	if !s.resetGen.CheckToken(user, token) {
		return ErrLinkInvalid
	}

	if password != password2 {
		return ErrPasswordMismatch
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hashBytes)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrLinkInvalid
		}
		return err
	}
	return nil
}

func (s *AuthService) userFromUID(ctx context.Context, uid string) (domain.User, error) {
	emailAddr, err := DecodeUID(uid)
	if err != nil {
		return domain.User{}, ErrLinkInvalid
	}
	user, err := s.users.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrLinkInvalid
		}
		return domain.User{}, err
	}
	return user, nil
}

func (s *AuthService) sendConfirmationEmail(ctx context.Context, user domain.User) error {
	link := s.baseURL + "/email/confirm/" + EncodeUID(user.Email) + "/" + s.confirmGen.MakeToken(user)
	if err := s.emailSender.SendConfirmationEmail(ctx, user.Email, link); err != nil {
		s.logger.Warn("send confirmation email failed", zap.Error(err), zap.String("email", user.Email))
		return ErrEmailSendFailure
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

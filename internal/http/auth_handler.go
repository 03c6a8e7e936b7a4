package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"passager/internal/domain"
	"passager/internal/repository"
	"passager/internal/service"
)

// AuthHandler mantiene dependencias para los endpoints de cuenta.
type AuthHandler struct {
	logger       *zap.Logger
	authServ     *service.AuthService
	sessionServ  *service.SessionService
	cookieName   string
	cookieSecure bool
}

// NewAuthHandler crea una instancia de AuthHandler con dependencias necesarias.
func NewAuthHandler(
	logger *zap.Logger,
	authServ *service.AuthService,
	sessionServ *service.SessionService,
	cookieName string,
	cookieSecure bool,
) *AuthHandler {
	if cookieName == "" {
		cookieName = "sessionid"
	}
	return &AuthHandler{
		logger:       logger,
		authServ:     authServ,
		sessionServ:  sessionServ,
		cookieName:   cookieName,
		cookieSecure: cookieSecure,
	}
}

// SignUp maneja POST /sign-up.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req struct {
		FirstName string `json:"first_name" binding:"required"`
		LastName  string `json:"last_name" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required"`
		Password2 string `json:"password2" binding:"required"`
		Agreement bool   `json:"agreement"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid sign up request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authServ.SignUp(c.Request.Context(), service.SignUpInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
		Agreement: req.Agreement,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch),
			errors.Is(err, service.ErrAgreementRequired),
			errors.Is(err, service.ErrPasswordTooShort),
			errors.Is(err, service.ErrPasswordNumeric),
			errors.Is(err, service.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrDuplicateEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		case errors.Is(err, service.ErrEmailSendFailure):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
		default:
			h.logger.Error("sign up failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign up"})
		}
		return
	}

	c.JSON(http.StatusCreated, userResponse(user))
}

// SignIn maneja POST /sign-in.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req struct {
		Email      string `json:"email" binding:"required,email"`
		Password   string `json:"password" binding:"required"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid sign in request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := h.authServ.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailNotConfirmed):
			c.JSON(http.StatusForbidden, gin.H{"error": "user email not confirmed"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.logger.Error("sign in failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign in"})
		}
		return
	}

	if !h.establishSession(c, user, req.RememberMe) {
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// SignOut maneja POST /sign-out. Siempre responde 204, exista sesión o no.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if token, err := c.Cookie(h.cookieName); err == nil {
		if err := h.sessionServ.Destroy(token); err != nil {
			h.logger.Warn("destroy session failed", zap.Error(err))
		}
	}
	h.clearSessionCookie(c)
	c.Status(http.StatusNoContent)
}

// ConfirmEmail maneja GET /email/confirm/:uid/:token.
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	user, err := h.authServ.ConfirmEmail(c.Request.Context(), c.Param("uid"), c.Param("token"))
	if err != nil {
		if errors.Is(err, service.ErrLinkInvalid) {
			c.JSON(http.StatusNotFound, gin.H{"error": "activation link is invalid"})
			return
		}
		h.logger.Error("confirm email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not confirm email"})
		return
	}

	if !h.establishSession(c, user, false) {
		return
	}
	c.Status(http.StatusNoContent)
}

// ResendConfirmationEmail maneja POST /email/resend-confirmation-email.
// Responde 204 exista o no la cuenta.
func (h *AuthHandler) ResendConfirmationEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid resend confirmation request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.authServ.ResendConfirmationEmail(c.Request.Context(), req.Email); err != nil {
		h.emailRequestError(c, err, "resend confirmation email failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// SendResetPasswordEmail maneja POST /password/send-reset-email.
// Responde 204 exista o no la cuenta.
func (h *AuthHandler) SendResetPasswordEmail(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset email request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.authServ.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.emailRequestError(c, err, "send reset password email failed")
		return
	}
	c.Status(http.StatusNoContent)
}

// ResetPassword maneja PUT /password/reset/:uid/:token.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Password  string `json:"password" binding:"required"`
		Password2 string `json:"password2" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid reset password request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	err := h.authServ.ResetPassword(c.Request.Context(), c.Param("uid"), c.Param("token"), req.Password, req.Password2)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLinkInvalid):
			c.JSON(http.StatusNotFound, gin.H{"error": "activation link is invalid"})
		case errors.Is(err, service.ErrPasswordMismatch),
			errors.Is(err, service.ErrPasswordTooShort),
			errors.Is(err, service.ErrPasswordNumeric):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("reset password failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not reset password"})
		}
		return
	}
	c.Status(http.StatusNoContent)
}

// Me maneja GET /me para la sesión actual.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": claims.Email, "name": claims.Name})
}

func (h *AuthHandler) emailRequestError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	case errors.Is(err, service.ErrEmailSendFailure):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "email delivery unavailable"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not process request"})
	}
}

// establishSession crea la sesión y fija la cookie. Con remember la cookie
// persiste toda la vida de la sesión; sin remember expira al cerrar el
// navegador.
func (h *AuthHandler) establishSession(c *gin.Context, user domain.User, remember bool) bool {
	token, err := h.sessionServ.Establish(user)
	if err != nil {
		h.logger.Error("establish session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not establish session"})
		return false
	}
	maxAge := 0
	if remember {
		maxAge = int(h.sessionServ.TTL().Seconds())
	}
	c.SetCookie(h.cookieName, token, maxAge, "/", "", h.cookieSecure, true)
	return true
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	c.SetCookie(h.cookieName, "", -1, "/", "", h.cookieSecure, true)
}

func userResponse(user domain.User) gin.H {
	return gin.H{"email": user.Email, "name": user.FullName()}
}

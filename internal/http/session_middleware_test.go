package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"passager/internal/domain"
	"passager/internal/service"
)

func TestSessionAuthMiddleware_AllowsValidSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessionSvc := service.NewSessionService("secret", time.Hour)
	user := domain.User{ID: "u1", Email: "user@example.com", FirstName: "Test", EmailVerified: true}
	token, err := sessionSvc.Establish(user)
	if err != nil {
		t.Fatalf("establish session: %v", err)
	}

	r := gin.New()
	r.GET("/protected", SessionAuthMiddleware(sessionSvc, "sessionid"), func(c *gin.Context) {
		claims, ok := GetSessionClaims(c)
		if !ok || claims.UserID != "u1" {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: token})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSessionAuthMiddleware_RejectsMissingCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessionSvc := service.NewSessionService("secret", time.Hour)

	r := gin.New()
	r.GET("/protected", SessionAuthMiddleware(sessionSvc, "sessionid"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionAuthMiddleware_RejectsRevokedSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessionSvc := service.NewSessionService("secret", time.Hour)
	token, err := sessionSvc.Establish(domain.User{ID: "u1", Email: "user@example.com"})
	if err != nil {
		t.Fatalf("establish session: %v", err)
	}
	if err := sessionSvc.Destroy(token); err != nil {
		t.Fatalf("destroy session: %v", err)
	}

	r := gin.New()
	r.GET("/protected", SessionAuthMiddleware(sessionSvc, "sessionid"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: token})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

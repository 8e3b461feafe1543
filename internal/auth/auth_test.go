package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestServiceTokenRoundTrip(t *testing.T) {
	token, err := NewServiceToken("payment-service", "secret")
	if err != nil {
		t.Fatalf("NewServiceToken failed: %v", err)
	}

	service, err := VerifyServiceToken(token, "secret")
	if err != nil {
		t.Fatalf("VerifyServiceToken failed: %v", err)
	}
	if service != "payment-service" {
		t.Errorf("service = %q, want payment-service", service)
	}
}

func TestServiceTokenWrongSecret(t *testing.T) {
	token, err := NewServiceToken("payment-service", "secret")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := VerifyServiceToken(token, "other-secret"); err == nil {
		t.Error("expected verification to fail with the wrong secret")
	}
}

func TestServiceTokenGarbage(t *testing.T) {
	if _, err := VerifyServiceToken("not.a.token", "secret"); err == nil {
		t.Error("expected verification to fail for garbage input")
	}
}

func TestIdentityCanAccess(t *testing.T) {
	tests := []struct {
		name    string
		id      *Identity
		ownerID string
		want    bool
	}{
		{"owner", &Identity{UserID: "u1"}, "u1", true},
		{"other user", &Identity{UserID: "u1"}, "u2", false},
		{"admin", &Identity{UserID: "a1", IsAdmin: true}, "u2", true},
		{"service", &Identity{Service: "payment-service"}, "u2", true},
		{"nil identity", nil, "u1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.CanAccess(tt.ownerID); got != tt.want {
				t.Errorf("CanAccess = %v, want %v", got, tt.want)
			}
		})
	}
}

func middlewareRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(secret, zap.NewNop()))
	router.GET("/probe", func(c *gin.Context) {
		id := FromContext(c)
		c.JSON(http.StatusOK, gin.H{
			"userId":  id.UserID,
			"service": id.Service,
			"isAdmin": id.IsAdmin,
		})
	})
	return router
}

func TestMiddlewareUserHeaders(t *testing.T) {
	router := middlewareRouter("secret")

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderUserEmail, "u1@example.com")
	req.Header.Set(HeaderUserAdmin, "true")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestMiddlewareRejectsAnonymous(t *testing.T) {
	router := middlewareRouter("secret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestMiddlewareServiceToken(t *testing.T) {
	router := middlewareRouter("secret")

	token, err := NewServiceToken("order-service", "secret")
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderServiceToken, token)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	// Forged token is rejected outright, user headers are not consulted.
	forged, err := NewServiceToken("order-service", "wrong")
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(HeaderServiceToken, forged)
	req.Header.Set(HeaderUserID, "u1")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for forged token", w.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware("secret", zap.NewNop()))
	router.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderUserID, "u1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for non-admin", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderUserAdmin, "true")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for admin", w.Code)
	}
}

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIssueAndVerify(t *testing.T) {
	j := NewJWTIssuer("test-secret", "faceauth")
	id := uuid.New()

	token, exp, err := j.Issue(id, "doctor", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(exp) < 59*time.Minute {
		t.Errorf("expected ~1h expiry, got %v", exp)
	}

	claims, err := j.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ID != id.String() || claims.Role != "doctor" || claims.Subject != id.String() {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejects(t *testing.T) {
	j := NewJWTIssuer("test-secret", "faceauth")
	id := uuid.New()

	expired := NewJWTIssuer("test-secret", "faceauth")
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, _ := expired.Issue(id, "nurse", time.Hour)

	otherKey, _, _ := NewJWTIssuer("other-secret", "faceauth").Issue(id, "nurse", time.Hour)
	otherIssuer, _, _ := NewJWTIssuer("test-secret", "someone-else").Issue(id, "nurse", time.Hour)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{ID: id.String(), Role: "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	badSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ID:   "not-a-uuid",
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "faceauth",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))

	tests := map[string]string{
		"expired":      expiredToken,
		"wrong key":    otherKey,
		"wrong issuer": otherIssuer,
		"alg none":     none,
		"bad subject":  badSubject,
		"garbage":      "abc.def.ghi",
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := j.Verify(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func assertStatusCode(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("expected status %d, got %d: %s", expected, w.Code, w.Body.String())
	}
}

func TestJWTMiddleware(t *testing.T) {
	j := NewJWTIssuer("test-secret", "faceauth")
	id := uuid.New()
	token, _, _ := j.Issue(id, "nurse", time.Hour)

	r := gin.New()
	r.GET("/me", JWTMiddleware(j), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.ID)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"tampered", "Bearer " + token + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assertStatusCode(t, w, tt.want)
			if tt.want == http.StatusOK && !strings.Contains(w.Body.String(), id.String()) {
				t.Errorf("expected claims id in body, got %s", w.Body.String())
			}
		})
	}
}

func TestAdminMiddleware(t *testing.T) {
	j := NewJWTIssuer("test-secret", "faceauth")
	adminToken, _, _ := j.Issue(uuid.New(), RoleAdmin, time.Hour)
	nurseToken, _, _ := j.Issue(uuid.New(), "nurse", time.Hour)

	tests := []struct {
		name    string
		apiKey  string
		headers map[string]string
		want    int
	}{
		{"api key", "k", map[string]string{"X-API-Key": "k"}, http.StatusOK},
		{"wrong api key", "k", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"admin token", "k", map[string]string{"Authorization": "Bearer " + adminToken}, http.StatusOK},
		{"nurse token", "k", map[string]string{"Authorization": "Bearer " + nurseToken}, http.StatusForbidden},
		{"nothing", "k", nil, http.StatusUnauthorized},
		{"key disabled", "", map[string]string{"X-API-Key": ""}, http.StatusUnauthorized},
		{"key disabled admin token", "", map[string]string{"Authorization": "Bearer " + adminToken}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/admin", AdminMiddleware(tt.apiKey, j), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assertStatusCode(t, w, tt.want)
		})
	}
}

package httpkit

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agency_os_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type testJWTConfig struct {
	secret   string
	audience string
}

func (c testJWTConfig) GetAuthJWTSecret() string   { return c.secret }
func (c testJWTConfig) GetAuthJWTAudience() string { return c.audience }

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newAuthEngine(cfg testJWTConfig) *gin.Engine {
	engine := gin.New()
	engine.GET("/me", AuthRequired(cfg), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"sub": id.AuthUserID().String(), "email": id.Email()})
	})
	return engine
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	cfg := testJWTConfig{secret: "s3cret", audience: "authenticated"}
	sub := uuid.New()
	token := signToken(t, cfg.secret, jwt.MapClaims{
		"sub":   sub.String(),
		"email": "  Jane@Agency.io ",
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newAuthEngine(cfg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if want := `"email":"jane@agency.io"`; !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("expected normalised email in %s", rec.Body.String())
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	cfg := testJWTConfig{secret: "s3cret", audience: "authenticated"}
	sub := uuid.New().String()

	cases := map[string]string{
		"missing":      "",
		"wrong secret": "Bearer " + signToken(t, "other", jwt.MapClaims{"sub": sub, "aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()}),
		"expired":      "Bearer " + signToken(t, cfg.secret, jwt.MapClaims{"sub": sub, "aud": "authenticated", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no expiry":    "Bearer " + signToken(t, cfg.secret, jwt.MapClaims{"sub": sub, "aud": "authenticated"}),
		"wrong aud":    "Bearer " + signToken(t, cfg.secret, jwt.MapClaims{"sub": sub, "aud": "anon", "exp": time.Now().Add(time.Hour).Unix()}),
		"bad subject":  "Bearer " + signToken(t, cfg.secret, jwt.MapClaims{"sub": "nope", "aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()}),
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			newAuthEngine(cfg).ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	for _, admin := range []bool{false, true} {
		engine := gin.New()
		engine.GET("/admin", func(c *gin.Context) {
			SetProfile(c, uuid.New(), admin)
			c.Next()
		}, RequireAdmin(), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

		want := http.StatusForbidden
		if admin {
			want = http.StatusNoContent
		}
		if rec.Code != want {
			t.Fatalf("admin=%v: status = %d, want %d", admin, rec.Code, want)
		}
	}
}

func TestHandleErrorHidesUntypedErrors(t *testing.T) {
	engine := gin.New()
	engine.GET("/typed", func(c *gin.Context) { HandleError(c, apperr.Conflict("already running")) })
	engine.GET("/untyped", func(c *gin.Context) { HandleError(c, errors.New("pq: relation does not exist")) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/typed", nil))
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), "already running") {
		t.Fatalf("typed: %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/untyped", nil))
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "relation") {
		t.Fatalf("untyped: %d %s", rec.Code, rec.Body.String())
	}
}

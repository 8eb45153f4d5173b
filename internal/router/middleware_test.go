package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/courier-next/internal/authz"
	"github.com/courier-next/internal/config"
	"github.com/courier-next/internal/constants"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func decodeStatusCode(t *testing.T, w *httptest.ResponseRecorder) int {
	t.Helper()
	var resp struct {
		StatusCode int `json:"status_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp.StatusCode
}

func TestCORSPolicyAllowOrigin(t *testing.T) {
	cases := []struct {
		name   string
		cfg    config.CORSConfig
		origin string
		want   string
	}{
		{name: "default wildcard", cfg: config.CORSConfig{}, origin: "https://ops.example.com", want: "*"},
		{name: "wildcard with credentials echoes", cfg: config.CORSConfig{AllowCredentials: true}, origin: "https://ops.example.com", want: "https://ops.example.com"},
		{name: "allow list match", cfg: config.CORSConfig{AllowedOrigins: []string{"https://ops.example.com"}}, origin: "https://OPS.example.com", want: "https://OPS.example.com"},
		{name: "allow list miss", cfg: config.CORSConfig{AllowedOrigins: []string{"https://ops.example.com"}}, origin: "https://evil.example.com", want: ""},
		{name: "allow list without origin", cfg: config.CORSConfig{AllowedOrigins: []string{"https://ops.example.com"}}, origin: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := newCORSPolicy(tc.cfg).allowOrigin(tc.origin); got != tc.want {
				t.Fatalf("allow origin want %q got %q", tc.want, got)
			}
		})
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://ops.example.com"}, MaxAge: 600}))
	r.POST("/api/v1/parcel-requests", func(c *gin.Context) {
		t.Fatalf("preflight must not reach handler")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/parcel-requests", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status want 204 got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example.com" {
		t.Fatalf("allow origin got %q", got)
	}
	if got := w.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("max age got %q", got)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("default methods should include PATCH")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, getRequestID(c))
	})

	cases := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "propagated", incoming: "req-123", keep: true},
		{name: "missing", incoming: "", keep: false},
		{name: "unsafe characters", incoming: "req 1<script>", keep: false},
		{name: "too long", incoming: strings.Repeat("a", maxRequestIDLength+1), keep: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tc.incoming != "" {
				req.Header.Set(requestIDHeader, tc.incoming)
			}
			r.ServeHTTP(w, req)

			header := w.Header().Get(requestIDHeader)
			if header == "" || header != w.Body.String() {
				t.Fatalf("header %q and context %q should match", header, w.Body.String())
			}
			if tc.keep && header != tc.incoming {
				t.Fatalf("request id want %q got %q", tc.incoming, header)
			}
			if !tc.keep && header == tc.incoming {
				t.Fatalf("request id %q should have been replaced", tc.incoming)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		token   string
		wantKey string
	}{
		{header: "", wantKey: "error.auth_header_missing"},
		{header: "Basic abc", wantKey: "error.auth_header_invalid"},
		{header: "Bearer", wantKey: "error.auth_header_invalid"},
		{header: "Bearer   ", wantKey: "error.auth_header_invalid"},
		{header: "bearer abc.def", token: "abc.def"},
		{header: "Bearer  abc.def ", token: "abc.def"},
	}
	for _, tc := range cases {
		token, key := bearerToken(tc.header)
		if token != tc.token || key != tc.wantKey {
			t.Fatalf("header %q: token=%q key=%q, want token=%q key=%q", tc.header, token, key, tc.token, tc.wantKey)
		}
	}
}

func TestJWTAuthMiddlewareWithoutAuthService(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware(nil))
	r.GET("/auth/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if code := decodeStatusCode(t, w); code != 401 {
		t.Fatalf("status_code want 401 got %d", code)
	}
}

func TestRBACMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	newEngine := func(role string, userID uint) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Set(constants.ContextKeyUserID, userID)
			c.Set(constants.ContextKeyUserRole, role)
		})
		r.Use(RBACMiddleware(svc))
		r.GET("/api/v1/admin/parcels", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status_code": 0})
		})
		return r
	}

	cases := []struct {
		name   string
		role   string
		userID uint
		want   int
	}{
		{name: "admin allowed", role: constants.RoleAdmin, userID: 1, want: 0},
		{name: "user forbidden", role: constants.RoleUser, userID: 2, want: 403},
		{name: "anonymous", role: "", userID: 0, want: 401},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			newEngine(tc.role, tc.userID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/parcels", nil))
			if code := decodeStatusCode(t, w); code != tc.want {
				t.Fatalf("status_code want %d got %d", tc.want, code)
			}
		})
	}
}

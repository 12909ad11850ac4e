package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/setwear/internal/authz"
	"github.com/setwear/internal/config"
	"github.com/setwear/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testStaffSecret = "staff-secret-for-tests"
const testCustomerSecret = "customer-secret-for-tests"

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestBuildCORSConfig(t *testing.T) {
	cfg := buildCORSConfig(config.CORSConfig{})
	if !cfg.AllowAllOrigins {
		t.Fatalf("empty origin list should allow all origins")
	}

	cfg = buildCORSConfig(config.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})
	if cfg.AllowAllOrigins || cfg.AllowOriginFunc == nil || !cfg.AllowOriginFunc("https://shop.example.com") {
		t.Fatalf("wildcard with credentials should echo any origin")
	}

	cfg = buildCORSConfig(config.CORSConfig{AllowedOrigins: []string{"https://a.example.com"}, MaxAge: 600})
	if cfg.AllowOriginFunc == nil {
		t.Fatalf("allow-list should use origin func")
	}
	if !cfg.AllowOriginFunc("https://A.example.com") {
		t.Fatalf("allow-list match should be case-insensitive")
	}
	if cfg.AllowOriginFunc("https://x.example.com") {
		t.Fatalf("unmatched origin should be rejected")
	}
	if cfg.MaxAge.Seconds() != 600 {
		t.Fatalf("max age want 600s got %v", cfg.MaxAge)
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}}))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status want 204 got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("allow origin want https://shop.example.com got %s", got)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	if strings.TrimSpace(w2.Header().Get(requestIDHeader)) == "" {
		t.Fatalf("generated request id should not be empty")
	}
}

func TestCustomerJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CustomerJWTMiddleware(testCustomerSecret))
	r.GET("/cart", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0, "user_id": c.GetUint(contextUserID)})
	})

	token, _, err := service.SignCustomerToken(testCustomerSecret, 7, 1)
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	staffToken, _, err := service.SignStaffToken(testStaffSecret, 7, nil, 1)
	if err != nil {
		t.Fatalf("sign staff token failed: %v", err)
	}

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "missing header", header: "", want: 401},
		{name: "not bearer", header: "Token " + token, want: 401},
		{name: "foreign secret", header: "Bearer " + staffToken, want: 401},
		{name: "garbage", header: "Bearer not-a-jwt", want: 401},
		{name: "valid", header: "Bearer " + token, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("http status want 200 got %d", w.Code)
			}
			if resp := decodeEnvelope(t, w); resp.StatusCode != tc.want {
				t.Fatalf("status_code want %d got %d", tc.want, resp.StatusCode)
			}
		})
	}
}

func TestCustomerJWTMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CustomerJWTMiddleware(""))
	r.GET("/cart", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
	if resp := decodeEnvelope(t, w); resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

func setupRBACRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}

	r := gin.New()
	admin := r.Group("/api/v1/admin")
	admin.Use(StaffJWTAuthMiddleware(testStaffSecret), StaffRBACMiddleware(authzService))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status_code": 0}) }
	admin.GET("/orders", ok)
	admin.POST("/orders/:id/dispatch", ok)
	admin.PUT("/colors/:id/stock", ok)
	return r
}

func staffRequest(t *testing.T, r *gin.Engine, method, path string, staffID uint, roles []string) envelope {
	t.Helper()
	token, _, err := service.SignStaffToken(testStaffSecret, staffID, roles, 1)
	if err != nil {
		t.Fatalf("sign staff token failed: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	return decodeEnvelope(t, w)
}

func TestStaffRBACMiddleware(t *testing.T) {
	r := setupRBACRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		roles  []string
		want   int
	}{
		{name: "viewer reads orders", method: http.MethodGet, path: "/api/v1/admin/orders", roles: []string{"viewer"}, want: 0},
		{name: "viewer cannot dispatch", method: http.MethodPost, path: "/api/v1/admin/orders/1/dispatch", roles: []string{"viewer"}, want: 403},
		{name: "operator dispatches", method: http.MethodPost, path: "/api/v1/admin/orders/1/dispatch", roles: []string{"shipping_operator"}, want: 0},
		{name: "operator cannot edit stock", method: http.MethodPut, path: "/api/v1/admin/colors/3/stock", roles: []string{"shipping_operator"}, want: 403},
		{name: "catalog manager edits stock", method: http.MethodPut, path: "/api/v1/admin/colors/3/stock", roles: []string{"catalog_manager"}, want: 0},
		{name: "no roles", method: http.MethodGet, path: "/api/v1/admin/orders", roles: nil, want: 403},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := staffRequest(t, r, tc.method, tc.path, uint(100+i), tc.roles)
			if resp.StatusCode != tc.want {
				t.Fatalf("status_code want %d got %d (%s)", tc.want, resp.StatusCode, resp.Msg)
			}
		})
	}
}

func TestStaffRBACMiddlewareFollowsTokenRoles(t *testing.T) {
	r := setupRBACRouter(t)

	if resp := staffRequest(t, r, http.MethodPost, "/api/v1/admin/orders/9/dispatch", 5, []string{"shipping_operator"}); resp.StatusCode != 0 {
		t.Fatalf("operator dispatch want 0 got %d", resp.StatusCode)
	}
	// 角色被收回后同一员工立即失去权限
	if resp := staffRequest(t, r, http.MethodPost, "/api/v1/admin/orders/9/dispatch", 5, []string{"viewer"}); resp.StatusCode != 403 {
		t.Fatalf("downgraded staff want 403 got %d", resp.StatusCode)
	}
}

func TestStaffJWTRejectsCustomerToken(t *testing.T) {
	r := setupRBACRouter(t)
	token, _, err := service.SignCustomerToken(testCustomerSecret, 5, 1)
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if resp := decodeEnvelope(t, w); resp.StatusCode != 401 {
		t.Fatalf("status_code want 401 got %d", resp.StatusCode)
	}
}

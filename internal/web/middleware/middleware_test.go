package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v4"

	"github.com/JonMunkholm/feeduploader/internal/config"
	"github.com/JonMunkholm/feeduploader/internal/core"
	"github.com/JonMunkholm/feeduploader/internal/logging"
)

var secret = []byte("0123456789abcdef0123456789abcdef")

func TestParseToken(t *testing.T) {
	valid, err := IssueToken(secret, 7, "admin", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	expired, _ := IssueToken(secret, 7, "", -time.Minute)
	noUser, _ := IssueToken(secret, 0, "", time.Hour)
	otherKey, _ := IssueToken([]byte("another-secret-another-secret-xx"), 7, "", time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 7}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", valid, false},
		{"expired", expired, true},
		{"no user id", noUser, true},
		{"wrong key", otherKey, true},
		{"alg none", none, true},
		{"garbage", "abc.def.ghi", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseToken(tt.raw, secret)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseToken error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (claims.UserID != 7 || claims.Role != "admin") {
				t.Errorf("claims = %+v", claims)
			}
		})
	}
}

func TestJWTAuth(t *testing.T) {
	var (
		gotUser int64
		gotRole string
	)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = core.UserIDFromContext(r.Context())
		gotRole = core.RoleFromContext(r.Context())
	})
	cfg := &config.SecurityConfig{RequireAuth: true, JWTSecret: string(secret), DefaultUserID: 1}
	h := JWTAuth(cfg)(next)

	tok, _ := IssueToken(secret, 42, "", time.Hour)
	admin, _ := IssueToken(secret, 3, core.RoleAdmin, time.Hour)
	tests := []struct {
		name     string
		header   string
		want     int
		wantUser int64
		wantRole string
	}{
		{"bearer", "Bearer " + tok, http.StatusOK, 42, ""},
		{"lowercase scheme", "bearer " + tok, http.StatusOK, 42, ""},
		{"role claim", "Bearer " + admin, http.StatusOK, 3, core.RoleAdmin},
		{"missing", "", http.StatusUnauthorized, 0, ""},
		{"basic", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotRole = 0, ""
			req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %d, want %d", gotUser, tt.wantUser)
			}
			if gotRole != tt.wantRole {
				t.Errorf("role = %q, want %q", gotRole, tt.wantRole)
			}
		})
	}

	cfg.RequireAuth = false
	h = JWTAuth(cfg)(next)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	if rr.Code != http.StatusOK || gotUser != 1 {
		t.Errorf("auth disabled: status = %d user = %d, want default user", rr.Code, gotUser)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Stop()

	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	for i := 0; i < 2; i++ {
		if rr := send("10.0.0.1:5000"); rr.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rr.Code)
		}
	}
	rr := send("10.0.0.1:6000")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if rr := send("10.0.0.2:5000"); rr.Code != http.StatusOK {
		t.Errorf("other client status = %d, want its own bucket", rr.Code)
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hi"))
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d, want first WriteHeader to win", rr.Code)
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&buf, "debug", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := chimw.RequestID(Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})))
	req := httptest.NewRequest(http.MethodGet, "/api/products/9?x=1", nil)
	req.Header.Set("User-Agent", "feed-test")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{
		"level=WARN", "method=GET", "path=/api/products/9", "status=404",
		"bytes=5", "duration_ms=", "user_agent=feed-test", "request_id=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %s", out, want)
		}
	}
}

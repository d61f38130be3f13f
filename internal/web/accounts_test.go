package web

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// public sends req without an Authorization header.
func public(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestRegisterAndLogin(t *testing.T) {
	s, st := newTestServer(t, testConfig())
	register := `{"name":"Dan","surname":"Ion","email":"Dan@Example.com","password":"s3cret-pass"}`

	rr := public(s, httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(register)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d (body %s)", rr.Code, rr.Body)
	}
	var created struct {
		Message string    `json:"message"`
		User    core.User `json:"user"`
	}
	decodeBody(t, rr, &created)
	if created.User.Email != "dan@example.com" || created.User.Role != core.RoleUser {
		t.Errorf("created = %+v", created)
	}
	if strings.Contains(st.hashes[created.User.ID], "s3cret-pass") {
		t.Error("password stored in clear text")
	}

	rr = public(s, httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(register)))
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rr.Code)
	}
	var dup ErrorResponse
	decodeBody(t, rr, &dup)
	if dup.Code != "USR001" {
		t.Errorf("duplicate code = %q, want USR001", dup.Code)
	}

	bad := `{"email":"dan@example.com","password":"wrong-pass"}`
	rr = public(s, httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(bad)))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rr.Code)
	}

	good := `{"email":"dan@example.com","password":"s3cret-pass"}`
	rr = public(s, httptest.NewRequest(http.MethodPost, "/api/users/login", strings.NewReader(good)))
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d (body %s)", rr.Code, rr.Body)
	}
	var login loginResponse
	decodeBody(t, rr, &login)
	if login.Token == "" || login.User.ID != created.User.ID {
		t.Fatalf("login = %+v", login)
	}

	// The issued token opens the protected API for the new user.
	me := "/api/users/" + strconv.FormatInt(created.User.ID, 10)
	req := httptest.NewRequest(http.MethodGet, me, nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	rr = public(s, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("get self status = %d (body %s)", rr.Code, rr.Body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/users/7", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	if rr = public(s, req); rr.Code != http.StatusForbidden {
		t.Errorf("get other user status = %d, want 403", rr.Code)
	}
}

func TestRegister_Invalid(t *testing.T) {
	s, _ := newTestServer(t, testConfig())

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"short password", `{"name":"Dan","email":"dan@example.com","password":"123"}`},
		{"bad email", `{"name":"Dan","email":"dan","password":"s3cret-pass"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := public(s, httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(tt.body)))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rr.Code, rr.Body)
			}
		})
	}
}

func TestLogin_AuthDisabledHasNoToken(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAuth = false
	s, _ := newTestServer(t, cfg)

	register := `{"name":"Dan","email":"dan@example.com","password":"s3cret-pass"}`
	if rr := public(s, httptest.NewRequest(http.MethodPost, "/api/users/register", strings.NewReader(register))); rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rr.Code)
	}
	rr := public(s, httptest.NewRequest(http.MethodPost, "/api/users/login",
		strings.NewReader(`{"email":"dan@example.com","password":"s3cret-pass"}`)))
	var login loginResponse
	decodeBody(t, rr, &login)
	if login.Token != "" {
		t.Errorf("token issued with auth disabled: %q", login.Token)
	}
}

func TestUsers_AdminOnlyListing(t *testing.T) {
	s, st := newTestServer(t, testConfig())
	st.users[1] = core.User{ID: 1, Email: "admin@example.com", Role: core.RoleAdmin}

	rr := do(t, s, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	if rr.Code != http.StatusForbidden {
		t.Errorf("list as user status = %d, want 403", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+tokenWithRole(t, 1, core.RoleAdmin))
	rr = do(t, s, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("list as admin status = %d", rr.Code)
	}
	var users []core.User
	decodeBody(t, rr, &users)
	if len(users) != 2 {
		t.Errorf("got %d users, want 2", len(users))
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/users/7", nil)
	req.Header.Set("Authorization", "Bearer "+tokenWithRole(t, 1, core.RoleAdmin))
	if rr = do(t, s, req); rr.Code != http.StatusNoContent {
		t.Errorf("admin delete status = %d, want 204", rr.Code)
	}
	if _, ok := st.users[7]; ok {
		t.Error("user 7 not deleted")
	}
}

func TestUsers_DeleteSelf(t *testing.T) {
	s, st := newTestServer(t, testConfig())

	if rr := do(t, s, httptest.NewRequest(http.MethodDelete, "/api/users/1", nil)); rr.Code != http.StatusForbidden {
		t.Errorf("delete other status = %d, want 403", rr.Code)
	}
	if rr := do(t, s, httptest.NewRequest(http.MethodDelete, "/api/users/abc", nil)); rr.Code != http.StatusNotFound {
		t.Errorf("delete bad id status = %d, want 404", rr.Code)
	}
	if rr := do(t, s, httptest.NewRequest(http.MethodDelete, "/api/users/7", nil)); rr.Code != http.StatusNoContent {
		t.Errorf("delete self status = %d, want 204", rr.Code)
	}
	if len(st.users) != 0 {
		t.Errorf("users = %v, want none", st.users)
	}
}

func TestProducts(t *testing.T) {
	s, st := newTestServer(t, testConfig())
	st.products = []core.Product{
		{ID: 1, Name: "Disc", UserID: 7},
		{ID: 2, Name: "Cablu", UserID: 8},
	}

	rr := do(t, s, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var list []core.Product
	decodeBody(t, rr, &list)
	if len(list) != 1 || list[0].ID != 1 {
		t.Errorf("list = %+v, want only the caller's product", list)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"get own", http.MethodGet, "/api/products/1", http.StatusOK},
		{"get other user's", http.MethodGet, "/api/products/2", http.StatusNotFound},
		{"get bad id", http.MethodGet, "/api/products/x", http.StatusNotFound},
		{"delete other user's", http.MethodDelete, "/api/products/2", http.StatusNotFound},
		{"delete own", http.MethodDelete, "/api/products/1", http.StatusNoContent},
		{"get deleted", http.MethodGet, "/api/products/1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, s, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body)
			}
		})
	}
	if len(st.products) != 1 || st.products[0].ID != 2 {
		t.Errorf("products = %+v, want only the other user's product", st.products)
	}

	rr = do(t, s, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty list body = %q, want []", rr.Body.String())
	}
}

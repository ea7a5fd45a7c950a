package echoapi

import (
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/user"
)

func TestUserLogin(t *testing.T) {
	app := setup(t)

	createUser(t, app.usrRepo, "Active Amy", "activeamy", "amy@test.cd", "LePassword", nil, true)
	createUser(t, app.usrRepo, "Gone Gil", "gonegil", "gil@test.cd", "LePassword", nil, false)

	tests := []httpTest{
		{
			name:     "empty credentials",
			body:     marchallObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown user",
			body:     marchallObj(t, LoginRequest{Username: "nobody", Password: "LePassword"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Username: "activeamy", Password: "oops"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, LoginRequest{Username: "gonegil", Password: "LePassword"}),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "login by username",
			body:     marchallObj(t, LoginRequest{Username: "activeamy", Password: "LePassword"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login by email",
			body:     marchallObj(t, LoginRequest{Username: "amy@test.cd", Password: "LePassword"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserQueryRequiresAdmin(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app.usrRepo, "Admin", "theadmin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := createUser(t, app.usrRepo, "Teacher", "theteacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	tests := []httpTest{
		{
			name:     "anonymous is rejected",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "teacher is rejected",
			token:    getToken(t, teacher),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin gets all users",
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{admin, teacher}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserRetrieveSelfOrAdmin(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app.usrRepo, "Admin", "theadmin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	alice := createUser(t, app.usrRepo, "Alice", "aliceuser", "alice@test.cd", "", []string{user.RoleTeacher}, true)
	bob := createUser(t, app.usrRepo, "Bob", "bobuser1", "bob@test.cd", "", []string{user.RoleTeacher}, true)

	path := func(id int) string { return "/v1/users/" + itoa(id) }

	tests := []httpTest{
		{
			name:     "self",
			path:     path(alice.ID),
			token:    getToken(t, alice),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, alice),
		},
		{
			name:     "someone else is a 404",
			path:     path(bob.ID),
			token:    getToken(t, alice),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "admin sees anyone",
			path:     path(bob.ID),
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, bob),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestUserTokenRefresh(t *testing.T) {
	app := setup(t)

	usr := createUser(t, app.usrRepo, "Admin", "theadmin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("token refresh failed: code %d body %s", rec.Code, rec.Body.String())
	}
}

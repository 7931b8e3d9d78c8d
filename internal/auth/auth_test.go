package auth_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mickamy/kanboard/internal/auth"
	"github.com/mickamy/kanboard/internal/kanban"
	"github.com/mickamy/kanboard/orm"
	"github.com/mickamy/kanboard/router"
	"github.com/mickamy/kanboard/session"
)

var (
	credentialCols = []string{"uuid", "username", "email", "password"}
	accountCols    = []string{"uuid", "username", "email", "name", "surname", "image", "date_joined", "last_login"}

	insertSQL      = q("INSERT INTO authentication_user (uuid, username, email, password, name, surname, date_joined, last_login) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	credentialsSQL = q("SELECT uuid, username, email, password FROM authentication_user WHERE email = ? OR username = ?")
	touchSQL       = q("UPDATE authentication_user SET last_login = ? WHERE uuid = ?")
	updateSQL      = q("UPDATE authentication_user SET name = COALESCE(?, name), surname = COALESCE(?, surname), email = COALESCE(?, email), password = COALESCE(?, password), image = COALESCE(?, image) WHERE uuid = ?")
	detailsSQL     = q("SELECT authentication_user.uuid, authentication_user.username, authentication_user.email, authentication_user.name, authentication_user.surname, authentication_user.image, authentication_user.date_joined, authentication_user.last_login FROM authentication_user WHERE authentication_user.uuid = ?")
)

func q(s string) string { return regexp.QuoteMeta(s) }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var headerSessions = router.SessionFunc(func(r *http.Request) (string, bool) {
	u := r.Header.Get("X-User")
	return u, u != ""
})

// fakeSessions issues a cookie named after the user.
type fakeSessions struct {
	issued  []string
	revoked int
	err     error
}

func (f *fakeSessions) Issue(_ context.Context, userID string) (*http.Cookie, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.issued = append(f.issued, userID)
	return &http.Cookie{Name: session.DefaultCookieName, Value: "tok-" + userID, Path: "/"}, nil
}

func (f *fakeSessions) Revoke(*http.Request) (*http.Cookie, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.revoked++
	return &http.Cookie{Name: session.DefaultCookieName, Path: "/", MaxAge: -1}, nil
}

// hashOf matches a bcrypt hash of the password.
type hashOf string

func (h hashOf) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && bcrypt.CompareHashAndPassword([]byte(s), []byte(h)) == nil
}

func newDB(t *testing.T) (*orm.DB, sqlmock.Sqlmock) {
	t.Helper()

	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })

	reg := orm.NewRegistry()
	kanban.Register(reg, "default")
	return orm.New(raw, orm.SQLite, reg, "default"), mock
}

func setup(t *testing.T) (*router.Router, sqlmock.Sqlmock, *fakeSessions) {
	t.Helper()

	db, mock := newDB(t)
	logger, _ := logtest.NewNullLogger()
	sessions := &fakeSessions{}
	r := router.New(db, router.WithSessions(headerSessions), router.WithLogger(logger))
	require.NoError(t, auth.NewService(db, sessions, logger, auth.WithHashCost(bcrypt.MinCost)).Bind(r))
	return r, mock, sessions
}

func get(target, user string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if user != "" {
		req.Header.Set("X-User", user)
	}
	return req
}

func post(target, user string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if user != "" {
		req.Header.Set("X-User", user)
	}
	return req.WithContext(orm.WithClock(req.Context(), fixedClock{now}))
}

func hash(t *testing.T, password string) string {
	t.Helper()

	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

var registration = url.Values{
	"name":     {"Ada"},
	"surname":  {"Lovelace"},
	"username": {"ada"},
	"email":    {"ada@example.com"},
	"password": {"engine"},
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r, mock, sessions := setup(t)
	mock.ExpectQuery(insertSQL).
		WithArgs(sqlmock.AnyArg(), "ada", "ada@example.com", hashOf("engine"), "Ada", "Lovelace", now, now).
		WillReturnRows(sqlmock.NewRows(nil))

	resp := r.Forward(post("/register/submit/", "", registration))
	require.Equal(t, http.StatusCreated, resp.Code, resp.Message)
	assert.Equal(t, "Account created.", resp.Message)
	require.Len(t, sessions.issued, 1)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, sessions.issued[0], data["uuid"])
	assert.Len(t, sessions.issued[0], 36)
	require.Len(t, resp.Cookies, 1)
	assert.Equal(t, "tok-"+sessions.issued[0], resp.Cookies[0].Value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejects(t *testing.T) {
	t.Parallel()

	t.Run("missing field", func(t *testing.T) {
		t.Parallel()

		r, mock, sessions := setup(t)
		form := url.Values{"name": {"Ada"}, "surname": {"Lovelace"}, "username": {"ada"}, "password": {"engine"}}

		resp := r.Forward(post("/register/submit/", "", form))
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Missing field: email.", resp.Message)
		assert.Empty(t, sessions.issued)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong method", func(t *testing.T) {
		t.Parallel()

		r, _, _ := setup(t)
		resp := r.Forward(get("/register/submit/", ""))
		assert.Equal(t, http.StatusMethodNotAllowed, resp.Code)
	})

	t.Run("taken", func(t *testing.T) {
		t.Parallel()

		r, mock, sessions := setup(t)
		mock.ExpectQuery(insertSQL).WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})

		resp := r.Forward(post("/register/submit/", "", registration))
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, "Username or email already in use.", resp.Message)
		assert.Empty(t, sessions.issued)
		assert.Empty(t, resp.Cookies)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure", func(t *testing.T) {
		t.Parallel()

		r, mock, _ := setup(t)
		mock.ExpectQuery(insertSQL).WillReturnError(errors.New("disk full"))

		resp := r.Forward(post("/register/submit/", "", registration))
		assert.Equal(t, router.Fail("Could not create your account."), resp)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	stored := hash(t, "engine")
	tests := []struct {
		name        string
		key         string
		password    string
		found       bool
		wantCode    int
		wantMessage string
	}{
		{"by email", "ada@example.com", "engine", true, http.StatusOK, "Logged in."},
		{"by username", "ada", "engine", true, http.StatusOK, "Logged in."},
		{"unknown key", "bob", "engine", false, http.StatusUnauthorized, "Username or Email are incorrect."},
		{"bad password by email", "ADA@example.com", "steam", true, http.StatusUnauthorized, "Email or password are incorrect."},
		{"bad password by username", "ada", "steam", true, http.StatusUnauthorized, "Username or password are incorrect."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, mock, sessions := setup(t)
			rows := sqlmock.NewRows(credentialCols)
			if tt.found {
				rows.AddRow("u-1", "ada", "ada@example.com", stored)
			}
			mock.ExpectQuery(credentialsSQL).WithArgs(tt.key, tt.key).WillReturnRows(rows)
			if tt.wantCode == http.StatusOK {
				mock.ExpectQuery(touchSQL).WithArgs(now, "u-1").WillReturnRows(sqlmock.NewRows(nil))
			}

			resp := r.Forward(post("/login/submit/", "", url.Values{"key": {tt.key}, "password": {tt.password}}))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantMessage, resp.Message)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, []string{"u-1"}, sessions.issued)
				require.Len(t, resp.Cookies, 1)
			} else {
				assert.Empty(t, sessions.issued)
				assert.Empty(t, resp.Cookies)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLoginQueryFailure(t *testing.T) {
	t.Parallel()

	r, mock, sessions := setup(t)
	mock.ExpectQuery(credentialsSQL).WillReturnError(errors.New("connection reset"))

	resp := r.Forward(post("/login/submit/", "", url.Values{"key": {"ada"}, "password": {"engine"}}))
	assert.Equal(t, router.Fail("Could not log you in."), resp)
	assert.Empty(t, sessions.issued)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout(t *testing.T) {
	t.Parallel()

	r, _, sessions := setup(t)

	resp := r.Forward(post("/logout/", "", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Zero(t, sessions.revoked)

	resp = r.Forward(post("/logout/", "u-1", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Logged out.", resp.Message)
	assert.Equal(t, 1, sessions.revoked)
	require.Len(t, resp.Cookies, 1)
	assert.Equal(t, -1, resp.Cookies[0].MaxAge)

	sessions.err = errors.New("redis down")
	resp = r.Forward(post("/logout/", "u-1", nil))
	assert.Equal(t, router.Fail("Could not log you out."), resp)
}

func TestUserDetails(t *testing.T) {
	t.Parallel()

	r, mock, _ := setup(t)
	mock.ExpectQuery(detailsSQL).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("u-1", "ada", "ada@example.com", "Ada", "Lovelace", nil, now, nil))

	resp := r.Forward(get("/account/", "u-1"))
	require.Equal(t, router.Success, resp.Status, resp.Message)
	account, ok := resp.Data.(auth.Account)
	require.True(t, ok)
	assert.Equal(t, "ada", account.Username)
	assert.Equal(t, now, account.DateJoined)
	assert.Nil(t, account.LastLogin)
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery(detailsSQL).WithArgs("gone").WillReturnRows(sqlmock.NewRows(accountCols))
	resp = r.Forward(get("/account/", "gone"))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "No user found with this ID!", resp.Message)

	mock.ExpectQuery(detailsSQL).WillReturnError(errors.New("no such table"))
	resp = r.Forward(get("/account/", "u-1"))
	assert.Equal(t, router.Fail("You are not logged in."), resp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserManagement(t *testing.T) {
	t.Parallel()

	t.Run("partial update", func(t *testing.T) {
		t.Parallel()

		r, mock, _ := setup(t)
		mock.ExpectQuery(updateSQL).
			WithArgs("Augusta", nil, nil, hashOf("difference"), nil, "u-1").
			WillReturnRows(sqlmock.NewRows(nil))

		resp := r.Forward(post("/account/changes/", "u-1", url.Values{
			"name": {"Augusta"}, "surname": {" "}, "password": {"difference"},
		}))
		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "Your account details has been updated successfully.", resp.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing given", func(t *testing.T) {
		t.Parallel()

		r, mock, _ := setup(t)
		resp := r.Forward(post("/account/changes/", "u-1", url.Values{}))
		assert.Equal(t, router.Warning, resp.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("email taken", func(t *testing.T) {
		t.Parallel()

		r, mock, _ := setup(t)
		mock.ExpectQuery(updateSQL).WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})

		resp := r.Forward(post("/account/changes/", "u-1", url.Values{"email": {"taken@example.com"}}))
		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Equal(t, "Could not update your account details.", resp.Message)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("anonymous", func(t *testing.T) {
		t.Parallel()

		r, _, _ := setup(t)
		resp := r.Forward(post("/account/changes/", "", url.Values{"name": {"Augusta"}}))
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

func TestCookieSessions(t *testing.T) {
	t.Parallel()

	db, mock := newDB(t)
	logger, _ := logtest.NewNullLogger()
	cookie := session.Cookie{Store: session.NewMemory(time.Hour), TTL: time.Hour}
	r := router.New(db, router.WithSessions(cookie), router.WithLogger(logger))
	require.NoError(t, auth.NewService(db, cookie, logger, auth.WithHashCost(bcrypt.MinCost)).Bind(r))

	mock.ExpectQuery(insertSQL).WillReturnRows(sqlmock.NewRows(nil))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, post("/register/submit/", "", registration))
	require.Equal(t, http.StatusCreated, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	issued := cookies[0]
	assert.True(t, issued.HttpOnly)

	mock.ExpectQuery(detailsSQL).WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(accountCols).
			AddRow("u-1", "ada", "ada@example.com", "Ada", "Lovelace", nil, now, now))
	req := get("/account/", "")
	req.AddCookie(issued)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = post("/logout/", "", nil)
	req.AddCookie(issued)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)

	req = get("/account/", "")
	req.AddCookie(issued)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "the session must be gone after logout")
	require.NoError(t, mock.ExpectationsWereMet())
}

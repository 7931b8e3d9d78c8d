// Package auth binds the account endpoints: registration, login, logout,
// and the details and changes of the session user's account.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/mickamy/kanboard/orm"
	"github.com/mickamy/kanboard/router"
)

// Sessions starts and ends the session carried by a cookie.
// session.Cookie satisfies it.
type Sessions interface {
	Issue(ctx context.Context, userID string) (*http.Cookie, error)
	Revoke(r *http.Request) (*http.Cookie, error)
}

// Service serves the account bindings.
type Service struct {
	db       router.Executor
	sessions Sessions
	logger   logrus.FieldLogger
	cost     int
}

// Option configures a Service.
type Option func(*Service)

// WithHashCost sets the bcrypt cost of stored passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// NewService returns a Service writing through db and starting sessions
// with sessions.
func NewService(db router.Executor, sessions Sessions, logger logrus.FieldLogger, opts ...Option) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{db: db, sessions: sessions, logger: logger, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind registers every account binding on r.
func (s *Service) Bind(r *router.Router) error {
	bindings := []struct {
		name, path string
		h          router.Handler
		opts       []router.BindOption
	}{
		{"registration_submission", "register/submit/", s.register, []router.BindOption{
			router.RequireMethod(http.MethodPost),
			router.RequireParams("name", "surname", "username", "email", "password"),
		}},
		{"login_submission", "login/submit/", s.login, []router.BindOption{
			router.RequireMethod(http.MethodPost),
			router.RequireParams("key", "password"),
			router.WithQueries(router.Typed[credentials]("user", "Could not log you in.", credentialsQuery)),
		}},
		{"user_management", "account/changes/", s.manage, []router.BindOption{
			router.RequireMethod(http.MethodPost),
			router.RequireSession(),
		}},
		{"logout", "logout/", s.logout, []router.BindOption{
			router.RequireMethod(http.MethodPost),
			router.RequireSession(),
		}},
		{"user_details", "account/", s.details, []router.BindOption{
			router.RequireMethod(http.MethodGet),
			router.RequireSession(),
			router.WithQueries(router.Typed[Account]("user", "You are not logged in.", detailsQuery)),
		}},
	}
	for _, b := range bindings {
		if err := r.Bind(b.name, b.path, b.h, b.opts...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) register(req *http.Request, res *router.Results) router.Response {
	hash, err := bcrypt.GenerateFromPassword([]byte(formString(res, "password")), s.cost)
	if err != nil {
		s.logger.WithError(err).Error("hash password")
		return router.Fail("Could not create your account.")
	}
	params := orm.Params{
		"uuid":     uuid.NewString(),
		"username": formString(res, "username"),
		"email":    formString(res, "email"),
		"password": string(hash),
		"name":     formString(res, "name"),
		"surname":  formString(res, "surname"),
		"now":      orm.Now(req.Context()).UTC(),
	}
	if err := s.exec(req.Context(), insertUser, params); err != nil {
		log := s.logger.WithError(err).WithField("username", params["username"])
		if orm.IsConstraintViolation(err) {
			log.Info("registration rejected")
			return router.JSON(http.StatusConflict, router.Error, "Username or email already in use.", nil)
		}
		log.Error("registration failed")
		return router.Fail("Could not create your account.")
	}

	id := params["uuid"].(string)
	ck, err := s.sessions.Issue(req.Context(), id)
	if err != nil {
		s.logger.WithError(err).Error("issue session")
		return router.Fail("Your account was created but you could not be logged in.")
	}
	s.logger.WithFields(logrus.Fields{"uuid": id, "username": params["username"]}).Info("registered user")
	return router.JSON(http.StatusCreated, router.Success, "Account created.", map[string]any{
		"uuid":     id,
		"username": params["username"],
	}).WithCookie(ck)
}

func (s *Service) login(req *http.Request, res *router.Results) router.Response {
	key := formString(res, "key")
	users := router.Result[credentials](res, "user")
	if len(users) == 0 {
		return rejected("Username or Email are incorrect.")
	}
	user := users[0]
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(formString(res, "password"))) != nil {
		field := "Username"
		if strings.EqualFold(user.Email, key) {
			field = "Email"
		}
		return rejected(field + " or password are incorrect.")
	}

	if err := s.exec(req.Context(), touchLogin, orm.Params{"uuid": user.UUID, "now": orm.Now(req.Context()).UTC()}); err != nil {
		s.logger.WithError(err).WithField("uuid", user.UUID).Warn("last login not recorded")
	}
	ck, err := s.sessions.Issue(req.Context(), user.UUID)
	if err != nil {
		s.logger.WithError(err).Error("issue session")
		return router.Fail("Could not log you in.")
	}
	return router.JSON(http.StatusOK, router.Success, "Logged in.", map[string]any{
		"uuid":     user.UUID,
		"username": user.Username,
	}).WithCookie(ck)
}

// manageFields are the account columns user_management may change. A field
// that is absent or blank keeps its value.
var manageFields = []string{"name", "surname", "email", "password", "image"}

func (s *Service) manage(req *http.Request, res *router.Results) router.Response {
	user, _ := res.User()
	params := orm.Params{"uuid": user}
	changed := 0
	for _, f := range manageFields {
		params[f] = nil
		if v := formString(res, f); v != "" {
			params[f] = v
			changed++
		}
	}
	if changed == 0 {
		return router.Warn("No account details were given.")
	}
	if pw, ok := params["password"].(string); ok {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), s.cost)
		if err != nil {
			s.logger.WithError(err).Error("hash password")
			return router.Fail("Could not update your account details.")
		}
		params["password"] = string(hash)
	}

	if err := s.exec(req.Context(), updateUser, params); err != nil {
		log := s.logger.WithError(err).WithField("uuid", user)
		if orm.IsConstraintViolation(err) {
			log.Info("account update rejected")
			return router.JSON(http.StatusConflict, router.Error, "Could not update your account details.", nil)
		}
		log.Error("account update failed")
		return router.Fail("Could not update your account details.")
	}
	return router.JSON(http.StatusOK, router.Success, "Your account details has been updated successfully.", nil)
}

func (s *Service) logout(req *http.Request, _ *router.Results) router.Response {
	ck, err := s.sessions.Revoke(req)
	if err != nil {
		s.logger.WithError(err).Error("revoke session")
		return router.Fail("Could not log you out.")
	}
	return router.JSON(http.StatusOK, router.Success, "Logged out.", nil).WithCookie(ck)
}

func (s *Service) details(_ *http.Request, res *router.Results) router.Response {
	users := router.Result[Account](res, "user")
	if len(users) == 0 {
		return router.JSON(http.StatusNotFound, router.Error, "No user found with this ID!", nil)
	}
	return router.OK(users[0])
}

func (s *Service) exec(ctx context.Context, b *orm.Builder, params orm.Params) error {
	stmt, err := b.Build(params)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	_, err = s.db.Execute(ctx, stmt.SQL, stmt.Args...)
	return err
}

func rejected(message string) router.Response {
	return router.JSON(http.StatusUnauthorized, router.Error, message, nil)
}

func formString(res *router.Results, key string) string {
	v, ok := res.Param(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

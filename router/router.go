package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/mickamy/kanboard/orm"
)

// Executor runs resolved queries. *orm.DB satisfies it.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (orm.Rows, error)
	Select(ctx context.Context, dest any, query string, args ...any) error
}

var _ Executor = (*orm.DB)(nil)

// Handler produces the response of a binding once its queries succeeded.
type Handler func(r *http.Request, res *Results) Response

type binding struct {
	name    string
	pattern pattern
	handler Handler
	method  string
	session bool
	params  []string
	queries []Query
}

// BindOption configures a binding.
type BindOption func(*binding)

// RequireSession rejects requests without a session user.
func RequireSession() BindOption {
	return func(b *binding) { b.session = true }
}

// RequireMethod rejects requests with any other HTTP method.
func RequireMethod(method string) BindOption {
	return func(b *binding) { b.method = strings.ToUpper(method) }
}

// RequireParams rejects requests missing any of the named parameters with
// 400. A blank string counts as missing.
func RequireParams(names ...string) BindOption {
	return func(b *binding) { b.params = append(b.params, names...) }
}

// WithQueries attaches named queries, executed in order before the handler.
func WithQueries(queries ...Query) BindOption {
	return func(b *binding) { b.queries = append(b.queries, queries...) }
}

// Option configures a Router.
type Option func(*Router)

// WithSessions sets the session lookup used by RequireSession bindings and
// for the "uuid" query parameter.
func WithSessions(s SessionLookup) Option {
	return func(r *Router) { r.sessions = s }
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// Router maps bindings to handlers. Bindings are append-only; Forward and
// ServeHTTP only read them and are safe for concurrent use.
type Router struct {
	db       Executor
	sessions SessionLookup
	logger   logrus.FieldLogger
	metrics  *Metrics

	mu       sync.RWMutex
	mux      *mux.Router
	bindings map[string]*binding
	paths    map[string]string
	order    []*binding
}

// New returns a Router executing queries with db.
func New(db Executor, opts ...Option) *Router {
	r := &Router{
		db:       db,
		logger:   logrus.StandardLogger(),
		mux:      mux.NewRouter(),
		bindings: make(map[string]*binding),
		paths:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bind registers handler h under name for path.
//
//	r.Bind("board_details", "board/<int:board_id>/", boardDetails,
//	    router.RequireSession(),
//	    router.WithQueries(router.Named("board", "Board not found.", boardQuery)),
//	)
//
// Every attached query is validated here, so a malformed builder fails at
// startup instead of on the first request.
func (r *Router) Bind(name, path string, h Handler, opts ...BindOption) error {
	if name == "" {
		return errors.New("router: binding name cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("router: bind %s: nil handler", name)
	}
	p, err := compilePattern(path)
	if err != nil {
		return fmt.Errorf("router: bind %s: %w", name, err)
	}

	b := &binding{name: name, pattern: p, handler: h}
	for _, opt := range opts {
		opt(b)
	}
	seen := make(map[string]struct{}, len(b.queries))
	for _, q := range b.queries {
		if err := q.validate(); err != nil {
			return fmt.Errorf("router: bind %s: %w", name, err)
		}
		if _, dup := seen[q.name]; dup {
			return fmt.Errorf("router: bind %s: duplicate query %s", name, q.name)
		}
		seen[q.name] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.bindings[name]; dup {
		return fmt.Errorf("router: binding %s already registered", name)
	}
	if other, dup := r.paths[p.template]; dup {
		return fmt.Errorf("router: bind %s: path %s already bound to %s", name, p.path, other)
	}
	if err := r.mux.NewRoute().Name(name).Path(p.template).GetError(); err != nil {
		return fmt.Errorf("router: bind %s: %w", name, err)
	}
	r.bindings[name] = b
	r.paths[p.template] = name
	r.order = append(r.order, b)
	return nil
}

// MustBind is like Bind but panics on error.
func (r *Router) MustBind(name, path string, h Handler, opts ...BindOption) {
	if err := r.Bind(name, path, h, opts...); err != nil {
		panic(err)
	}
}

// Forward dispatches a request: resolve the binding, check the method,
// session and required parameter guards in that order, run each query,
// then call the handler.
// The first failing query ends the dispatch with its declared message.
func (r *Router) Forward(req *http.Request) Response {
	b, vars := r.match(req)
	if b == nil {
		return r.reject("", req, OutcomeNotFound, notFound)
	}
	if b.method != "" && req.Method != b.method {
		return r.reject(b.name, req, OutcomeMethodNotAllowed, methodNotAllowed)
	}

	var user string
	var authed bool
	if r.sessions != nil {
		user, authed = r.sessions.UserID(req)
	}
	if b.session && !authed {
		return r.reject(b.name, req, OutcomeUnauthorized, unauthorized)
	}

	pathValues, err := b.pattern.values(vars)
	if err != nil {
		return r.reject(b.name, req, OutcomeNotFound, notFound)
	}
	params := formParams(req)
	if authed {
		params[SessionUserKey] = user
	} else {
		params[SessionUserKey] = nil
	}
	for k, v := range pathValues {
		params[k] = v
	}
	for _, name := range b.params {
		if !present(params[name]) {
			return r.reject(b.name, req, OutcomeBadRequest, missingParam(name))
		}
	}

	res := &Results{params: params, user: user, authed: authed, values: make(map[string]any, len(b.queries))}
	for _, q := range b.queries {
		v, err := r.runQuery(req.Context(), b, q, params)
		if err != nil {
			r.entry(b.name, req).WithError(err).WithField("query", q.name).Warn("query failed")
			r.metrics.observeDispatch(b.name, OutcomeQueryFailed)
			return Fail(q.message)
		}
		res.values[q.name] = v
	}

	resp := b.handler(req, res)
	r.metrics.observeDispatch(b.name, OutcomeDispatched)
	r.entry(b.name, req).WithField("outcome", OutcomeDispatched).Debug("dispatched")
	return resp
}

// ServeHTTP writes the response of Forward as JSON.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	resp := r.Forward(req)
	code := resp.Code
	if code == 0 {
		code = http.StatusOK
	}
	for _, c := range resp.Cookies {
		http.SetCookie(w, c)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		r.logger.WithError(err).Error("write response")
	}
}

// BindingInfo describes a registered binding.
type BindingInfo struct {
	Name    string      `yaml:"name"`
	Path    string      `yaml:"path"`
	Method  string      `yaml:"method,omitempty"`
	Session bool        `yaml:"session"`
	Params  []string    `yaml:"params,omitempty"`
	Queries []QueryInfo `yaml:"queries,omitempty"`
}

// QueryInfo describes a named query of a binding.
type QueryInfo struct {
	Name     string `yaml:"name"`
	Message  string `yaml:"message"`
	Template string `yaml:"template"`
}

// Bindings lists the registered bindings in registration order.
func (r *Router) Bindings() []BindingInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]BindingInfo, 0, len(r.order))
	for _, b := range r.order {
		info := BindingInfo{Name: b.name, Path: b.pattern.path, Method: b.method, Session: b.session, Params: append([]string(nil), b.params...)}
		for _, q := range b.queries {
			tmpl, _ := q.Template()
			info.Queries = append(info.Queries, QueryInfo{Name: q.name, Message: q.message, Template: tmpl})
		}
		out = append(out, info)
	}
	return out
}

// Query returns the named query of a binding.
func (r *Router) Query(binding, name string) (Query, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[binding]
	if !ok {
		return Query{}, false
	}
	for _, q := range b.queries {
		if q.name == name {
			return q, true
		}
	}
	return Query{}, false
}

func (r *Router) match(req *http.Request) (*binding, map[string]string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var m mux.RouteMatch
	if !r.mux.Match(req, &m) || m.Route == nil {
		return nil, nil
	}
	return r.bindings[m.Route.GetName()], m.Vars
}

func (r *Router) runQuery(ctx context.Context, b *binding, q Query, params orm.Params) (any, error) {
	stmt, err := q.Build(params)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer r.metrics.observeQuery(b.name, q.name, start)
	return q.run(ctx, r.db, stmt)
}

func (r *Router) reject(name string, req *http.Request, outcome string, resp Response) Response {
	r.metrics.observeDispatch(name, outcome)
	r.entry(name, req).WithField("outcome", outcome).Info("request rejected")
	return resp
}

func (r *Router) entry(name string, req *http.Request) *logrus.Entry {
	return r.logger.WithFields(logrus.Fields{
		"binding": name,
		"path":    req.URL.Path,
		"method":  req.Method,
	})
}

func present(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	}
	return true
}

// formParams collects submitted form and query string values. Only the
// first value of each key is kept.
func formParams(req *http.Request) orm.Params {
	params := make(orm.Params)
	if err := req.ParseForm(); err != nil {
		return params
	}
	for k, vs := range req.Form {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}

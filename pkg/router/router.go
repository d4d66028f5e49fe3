// Package router layers named routes and prefix groups over chi. Route
// names feed URL generation and the routes:list command; matching is
// left entirely to chi.
package router

import (
	"fmt"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

type Middleware = func(http.Handler) http.Handler

// RouteInfo describes one registered route.
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Router is the root group plus the route table.
type Router struct {
	top *Group
	mux *chi.Mux

	mu     sync.RWMutex
	named  map[string]string
	routes []RouteInfo
}

// Group registers routes under a shared prefix and middleware stack.
type Group struct {
	root   *Router
	prefix string
	stack  chi.Middlewares
}

func New() *Router {
	r := &Router{mux: chi.NewRouter(), named: map[string]string{}}
	r.top = &Group{root: r, prefix: "/"}
	return r
}

func (r *Router) Group(prefix string, mws ...Middleware) *Group { return r.top.Group(prefix, mws...) }

func (r *Router) Get(p, name string, h http.HandlerFunc, mws ...Middleware) {
	r.top.Get(p, name, h, mws...)
}

func (r *Router) Post(p, name string, h http.HandlerFunc, mws ...Middleware) {
	r.top.Post(p, name, h, mws...)
}

func (r *Router) Put(p, name string, h http.HandlerFunc, mws ...Middleware) {
	r.top.Put(p, name, h, mws...)
}

func (r *Router) Handle(method, p, name string, h http.Handler, mws ...Middleware) {
	r.top.Handle(method, p, name, h, mws...)
}

func (r *Router) Handler() http.Handler { return r.mux }

// Use adds global middleware. Like chi, it must run before any route is
// registered.
func (r *Router) Use(mws ...Middleware) { r.mux.Use(mws...) }

func (r *Router) NotFound(h http.HandlerFunc)         { r.mux.NotFound(h) }
func (r *Router) MethodNotAllowed(h http.HandlerFunc) { r.mux.MethodNotAllowed(h) }

var param = regexp.MustCompile(`\{([^}:]+)(:[^}]*)?\}`)

// URL fills the {params} of a named route.
func (r *Router) URL(name string, params map[string]string) (string, error) {
	r.mu.RLock()
	pattern, ok := r.named[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("router: no route named %q", name)
	}

	var missing []string
	url := param.ReplaceAllStringFunc(pattern, func(m string) string {
		key := param.FindStringSubmatch(m)[1]
		v, ok := params[key]
		if !ok {
			missing = append(missing, key)
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("router: route %q needs %s", name, strings.Join(missing, ", "))
	}
	return url, nil
}

// Routes lists the table ordered by path, then method.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	out := append([]RouteInfo(nil), r.routes...)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Path == out[j].Path {
			return out[i].Method < out[j].Method
		}
		return out[i].Path < out[j].Path
	})
	return out
}

func (r *Router) record(ri RouteInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ri.Name != "" {
		if prev, dup := r.named[ri.Name]; dup {
			panic(fmt.Sprintf("router: route name %q already used by %s", ri.Name, prev))
		}
		r.named[ri.Name] = ri.Path
	}
	r.routes = append(r.routes, ri)
}

// Group nests a prefix. Its middleware runs after the parent's.
func (g *Group) Group(prefix string, mws ...Middleware) *Group {
	stack := make(chi.Middlewares, 0, len(g.stack)+len(mws))
	stack = append(append(stack, g.stack...), mws...)
	return &Group{root: g.root, prefix: clean(g.prefix, prefix), stack: stack}
}

func (g *Group) Get(p, name string, h http.HandlerFunc, mws ...Middleware) {
	g.Handle(http.MethodGet, p, name, h, mws...)
}

func (g *Group) Post(p, name string, h http.HandlerFunc, mws ...Middleware) {
	g.Handle(http.MethodPost, p, name, h, mws...)
}

func (g *Group) Put(p, name string, h http.HandlerFunc, mws ...Middleware) {
	g.Handle(http.MethodPut, p, name, h, mws...)
}

// Handle registers h for method at the group prefix joined with p. An empty
// name leaves the route out of URL lookups but not out of Routes.
func (g *Group) Handle(method, p, name string, h http.Handler, mws ...Middleware) {
	full := clean(g.prefix, p)
	stack := append(append(chi.Middlewares{}, g.stack...), mws...)
	g.root.mux.With(stack...).Method(method, full, h)
	g.root.record(RouteInfo{Method: method, Path: full, Name: name})
}

func clean(prefix, p string) string { return path.Join("/", prefix, p) }

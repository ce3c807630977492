package server

import (
	"net/http"
	"slices"
	"strings"
	"sync"
)

// BasicRouter implements [Router] on top of [http.ServeMux].
//
// Routes registered with [BasicRouter.Handle] are dispatched by method, and HEAD is
// answered by the GET handler. Middleware wraps the whole mux, so unmatched paths pass
// through it as well. The chain is built on the first request; call Use before serving.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	methods     map[string]map[string]http.Handler

	once  sync.Once
	chain http.Handler
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:     http.NewServeMux(),
		methods: map[string]map[string]http.Handler{},
	}
}

// Use appends middleware; the first one added is the outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method on path. A path may carry several methods.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	byMethod, ok := r.methods[path]
	if !ok {
		byMethod = map[string]http.Handler{}
		r.methods[path] = byMethod
		r.mux.Handle(path, dispatch(byMethod))
	}
	byMethod[strings.ToUpper(method)] = handler
}

// Handler registers h for every path in [Handler.Routes]; h checks methods itself.
func (r *BasicRouter) Handler(h Handler) {
	for _, route := range h.Routes() {
		r.mux.Handle(route, h)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.once.Do(func() {
		r.chain = r.Apply(http.HandlerFunc(r.route))
	})
	r.chain.ServeHTTP(w, req)
}

func (r *BasicRouter) route(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		writeDetail(w, http.StatusNotFound, "Not found")
		return
	}
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler with the registered middleware, first added outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler
	for _, mw := range slices.Backward(r.middlewares) {
		wrapped = mw(wrapped)
	}
	return wrapped
}

func dispatch(byMethod map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		method := req.Method
		if method == http.MethodHead {
			if _, ok := byMethod[method]; !ok {
				method = http.MethodGet
			}
		}
		if h, ok := byMethod[method]; ok {
			h.ServeHTTP(w, req)
			return
		}

		allowed := make([]string, 0, len(byMethod))
		for m := range byMethod {
			allowed = append(allowed, m)
		}
		slices.Sort(allowed)
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
}

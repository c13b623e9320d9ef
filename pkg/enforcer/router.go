package enforcer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ryan-Har/truckbook/internal/logutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Ryan-Har/truckbook/pkg/enforcer"

// Router registers routes. *http.ServeMux satisfies it.
type Router interface {
	Handle(pattern string, handler http.Handler)
}

// Handle registers handler for route, which is either
//
//	"/path"          // all methods
//	"METHOD /path"   // only METHOD
//
// Registering the same method and path twice is an error. The handler is
// wrapped with authentication and, per the policies in force at request
// time, authorization.
func (e *Enforcer) Handle(route string, handler http.Handler) error {
	e.log.Debug("enforcer handling route", "route", route)
	if handler == nil {
		return logutil.LogAndWrapErr(context.Background(), e.log, "cannot register nil handler for route",
			fmt.Errorf("nil handler"), "route", route)
	}

	method, path := parseRoute(route)

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.handlers[path]; !exists {
		e.handlers[path] = make(map[string]http.Handler)

		// One dispatching handler per path
		e.router.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := e.tracer.Start(ctx, r.Method+" "+path, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			r = r.WithContext(ctx)

			defer logutil.NewTimingLogger(r.Context(), e.log, time.Now(), "access handled",
				"method", r.Method, "path", r.URL.Path, "remote_ip", r.RemoteAddr, "user_agent", r.UserAgent())()

			h, ok := e.lookup(path, r.Method)
			if !ok {
				e.respondMethodNotAllowed(w, r)
				return
			}
			e.WrapHandler(path, r.Method, h).ServeHTTP(w, r)
		}))
	}

	if _, exists := e.handlers[path][method]; exists {
		return logutil.LogAndWrapErr(context.Background(), e.log, "attempted to add duplicate path to enforcer",
			NewDuplicatePathAndMethodError(path, method))
	}

	e.handlers[path][method] = handler
	return nil
}

// lookup prefers an exact method match over a handler registered for all methods.
func (e *Enforcer) lookup(path, method string) (http.Handler, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	methodHandlers := e.handlers[path]
	if h, ok := methodHandlers[method]; ok {
		return h, true
	}
	if method == http.MethodHead {
		if h, ok := methodHandlers[http.MethodGet]; ok {
			return h, true
		}
	}
	h, ok := methodHandlers[""]
	return h, ok
}

// HandleFunc is Handle for an http.HandlerFunc.
func (e *Enforcer) HandleFunc(route string, handlerFunc http.HandlerFunc) error {
	return e.Handle(route, handlerFunc)
}

// parseRoute splits "METHOD /path" or "/path". A missing method is returned
// as "" and means every method.
func parseRoute(route string) (method, path string) {
	parts := strings.Fields(route)
	switch len(parts) {
	case 0:
		return "", "/"
	case 1:
		if strings.HasPrefix(parts[0], "/") {
			return "", parts[0]
		}
		return "", "/"
	default:
		return strings.ToUpper(parts[0]), strings.ToLower(parts[1])
	}
}

var ErrDuplicatePathAndMethod = &DuplicatePathAndMethodError{}

type DuplicatePathAndMethodError struct {
	Method string
	Path   string
}

func NewDuplicatePathAndMethodError(path, method string) *DuplicatePathAndMethodError {
	return &DuplicatePathAndMethodError{
		Method: method,
		Path:   path,
	}
}

func (e *DuplicatePathAndMethodError) Error() string {
	return fmt.Sprintf("enforcer: duplicate path: %s and method: %s attempted", e.Path, e.Method)
}

func (e *DuplicatePathAndMethodError) Is(target error) bool {
	_, ok := target.(*DuplicatePathAndMethodError)
	return ok
}

// Package ctx gives handlers a single request context with helpers for
// params, binding, the authenticated identity and envelope responses.
//
//	router.Get("/orders", "orders.index", ctx.Wrap(func(c *ctx.Context) {
//	    c.Success(orders)
//	}))
package ctx

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/mmsi/orderdesk/pkg/auth"
	"github.com/mmsi/orderdesk/pkg/bind"
	"github.com/mmsi/orderdesk/pkg/orm"
	"github.com/mmsi/orderdesk/pkg/response"
)

type HandlerFunc func(c *Context)

// Wrap adapts a HandlerFunc to net/http.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

type Context struct {
	W http.ResponseWriter
	R *http.Request
}

var pool = sync.Pool{New: func() any { return &Context{} }}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W, c.R = w, r
	return c
}

func release(c *Context) {
	c.W, c.R = nil, nil
	pool.Put(c)
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Param returns a chi URL parameter.
func (c *Context) Param(key string) string { return chi.URLParam(c.R, key) }

func (c *Context) Query(key string) string { return c.R.URL.Query().Get(key) }

// QueryInt parses a query value, returning def when absent or malformed.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// Identity returns the caller resolved by middleware.Authenticate.
// Routes behind that middleware always have one.
func (c *Context) Identity() auth.Identity {
	id, _ := auth.FromContext(c.R.Context())
	return id
}

// BindJSON decodes and validates the body into dest. On failure it writes
// 400 or 422 and returns false.
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if len(errs) > 0 {
		c.ValidationError(errs)
		return false
	}
	return true
}

func (c *Context) Success(data any)               { response.Success(c.W, data) }
func (c *Context) Message(msg string, data any)   { response.Message(c.W, msg, data) }
func (c *Context) Created(msg string, data any)   { response.Created(c.W, msg, data) }
func (c *Context) Error(code int, message string) { response.Error(c.W, code, message) }
func (c *Context) ValidationError(errs map[string]string) {
	response.ValidationError(c.W, errs)
}

func (c *Context) Paginated(data any, p orm.Pagination) { response.Paginated(c.W, data, p) }

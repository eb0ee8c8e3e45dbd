// Package middleware loads a fresh bluequery.Parameters for every inbound
// request and makes it available to handlers through the request context.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/sfi2k7/bluequery"
)

// Separators used when building links. HTML pages need the ampersand
// escaped, AJAX responses do not.
const (
	HTMLSeparator = "&amp;"
	AjaxSeparator = "&"
)

type ctxKey int

const (
	paramsKey ctxKey = iota
	requestIDKey
)

// Separator maps the "separate for an AJAX-detecting flag" boolean of link
// builders to a concrete separator.
func Separator(ajax bool) string {
	if ajax {
		return AjaxSeparator
	}
	return HTMLSeparator
}

// Config holds what every per-request store is built from.
type Config struct {
	Registry     *bluequery.Registry
	Options      bluequery.Options
	ErrorHandler ErrorHandler
	Logger       *slog.Logger
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Config) errorHandler() ErrorHandler {
	if c.ErrorHandler != nil {
		return c.ErrorHandler
	}
	return DefaultErrorHandler
}

// FromContext returns the parameters loaded for the current request.
func FromContext(ctx context.Context) (*bluequery.Parameters, bool) {
	p, ok := ctx.Value(paramsKey).(*bluequery.Parameters)
	return p, ok
}

// RequestID returns the id assigned to the current request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *bluequery.Parameters) context.Context {
	return context.WithValue(ctx, paramsKey, p)
}

// load builds the request's parameters. A failure has already been written
// to w when it returns nil.
func (c *Config) load(w http.ResponseWriter, r *http.Request) *http.Request {
	start := time.Now()
	id := uuid.NewString()
	log := c.logger().With(slog.String("request_id", id))

	opts := c.Options
	if opts.Logger == nil {
		opts.Logger = log
	}
	p := bluequery.New(c.Registry, opts)

	ctx := context.WithValue(r.Context(), requestIDKey, id)
	if err := p.LoadFromRequest(ctx, r); err != nil {
		log.Warn("rejected query parameters",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		c.errorHandler()(w, r, err)
		return nil
	}

	log.Debug("query parameters loaded",
		slog.String("path", r.URL.Path),
		slog.Duration("took", time.Since(start)),
	)
	return r.WithContext(NewContext(ctx, p))
}

// Params returns net/http middleware that loads the parameters of every
// request before calling next.
func Params(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r = cfg.load(w, r); r == nil {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Handle wraps an httprouter handle the same way Params wraps a handler.
func Handle(cfg Config, fn httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if r = cfg.load(w, r); r == nil {
			return
		}
		fn(w, r, ps)
	}
}

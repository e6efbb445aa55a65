// Package httpmw runs onion pipelines in front of net/http and httprouter
// handlers. A pipeline handler receives the Exchange of one request; it may
// replace the request context, write a response and stop, or return an
// error that Wrap turns into an HTTP error response.
package httpmw

import (
	"context"
	"errors"
	"net/http"

	gorawronion "github.com/Keksclan/goRawrOnion"
	"github.com/julienschmidt/httprouter"
)

// Exchange is the value shared by every handler of one HTTP request.
type Exchange struct {
	W      http.ResponseWriter
	R      *http.Request
	Params httprouter.Params

	rec *statusRecorder
}

// Context returns the request context.
func (e *Exchange) Context() context.Context { return e.R.Context() }

// WithContext replaces the request with a shallow copy carrying ctx.
func (e *Exchange) WithContext(ctx context.Context) { e.R = e.R.WithContext(ctx) }

// Status returns the status code written so far, or 0 before the header
// is written.
func (e *Exchange) Status() int { return e.rec.status }

// Written reports whether the response header has been written.
func (e *Exchange) Written() bool { return e.rec.status != 0 }

// Handler is a pipeline link for HTTP requests.
type Handler = gorawronion.Handler[*Exchange, struct{}]

// Error is an error that carries an HTTP status code.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError returns an *Error. An empty message uses the status text.
func NewError(code int, msg string) *Error {
	if msg == "" {
		msg = http.StatusText(code)
	}
	return &Error{Code: code, Message: msg}
}

// writeError answers with err unless a response was already started.
// Errors that are not an *Error become 500 Internal Server Error.
func writeError(e *Exchange, err error) {
	if e.Written() {
		return
	}
	var he *Error
	if !errors.As(err, &he) {
		he = NewError(http.StatusInternalServerError, "")
	}
	http.Error(e.W, he.Message, he.Code)
}

// responseStatus is the status the client sees for a run that ended with
// err: the status already written, else the one writeError will send.
func responseStatus(e *Exchange, err error) int {
	if e.Written() {
		return e.Status()
	}
	if err == nil {
		return http.StatusOK
	}
	var he *Error
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

// Wrap returns an http.Handler that runs handlers in order and then final.
func Wrap(final http.Handler, handlers ...Handler) (http.Handler, error) {
	pipeline, err := gorawronion.Compose(handlers...)
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve(pipeline, w, r, nil, func(e *Exchange) { final.ServeHTTP(e.W, e.R) })
	}), nil
}

// Route is like Wrap for httprouter handles. The route parameters are on
// the Exchange and reach final unchanged.
func Route(final httprouter.Handle, handlers ...Handler) (httprouter.Handle, error) {
	pipeline, err := gorawronion.Compose(handlers...)
	if err != nil {
		return nil, err
	}
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		serve(pipeline, w, r, ps, func(e *Exchange) { final(e.W, e.R, e.Params) })
	}, nil
}

func serve(pipeline Handler, w http.ResponseWriter, r *http.Request, ps httprouter.Params, final func(*Exchange)) {
	rec := &statusRecorder{ResponseWriter: w}
	e := &Exchange{W: rec, R: r, Params: ps, rec: rec}
	_, err := pipeline(e, func() (struct{}, error) {
		final(e)
		return struct{}{}, nil
	})
	if err != nil {
		writeError(e, err)
	}
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += int64(n)
	return n, err
}

// Flush calls the underlying ResponseWriter.Flush if it implements http.Flusher.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

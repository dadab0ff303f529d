// Package server serves a settings page for one schema over HTTP. GET
// renders the current values, POST submits the form through a session and
// either re-renders with errors or redirects once the payload is delivered.
package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/goliatone/go-devicecfg/pkg/render"
	"github.com/goliatone/go-devicecfg/pkg/schema"
	"github.com/goliatone/go-devicecfg/pkg/session"
	"github.com/goliatone/go-devicecfg/pkg/transport"
)

// ContractPath serves the payload contract document.
const ContractPath = "/payload-contract"

// SentNotice is shown after a successful submission.
const SentNotice = "Settings sent"

// DeliveryFailed replaces transport error details on the page.
const DeliveryFailed = "Could not deliver settings to the device. Please try again."

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger. Nil keeps the discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTitle overrides the page title passed to the renderer.
func WithTitle(title string) Option {
	return func(s *Server) {
		s.title = strings.TrimSpace(title)
	}
}

// WithReturnTo allows prefix as a return target. The first prefix becomes the
// default target when a request carries none. Posted return_to values outside
// this list are ignored.
func WithReturnTo(prefixes ...string) Option {
	return func(s *Server) {
		for _, p := range prefixes {
			if p = strings.TrimSpace(p); p != "" {
				s.returnTo = append(s.returnTo, p)
			}
		}
	}
}

// Server is an http.Handler for a single settings session.
type Server struct {
	session  *session.Session
	renderer render.Renderer
	logger   *slog.Logger
	title    string
	returnTo []string
	mux      *http.ServeMux
}

// New wires the page and contract routes.
func New(sess *session.Session, renderer render.Renderer, opts ...Option) (*Server, error) {
	if sess == nil {
		return nil, errors.New("server: session is required")
	}
	if renderer == nil {
		return nil, errors.New("server: renderer is required")
	}
	s := &Server{
		session:  sess,
		renderer: renderer,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("POST /{$}", s.handleSubmit)
	s.mux.HandleFunc("GET "+ContractPath, s.handleContract)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	values, err := s.session.Open(r.Context())
	if err != nil {
		s.busy(w, err)
		return
	}

	opts := render.RenderOptions{
		Values: values,
		Hidden: s.hidden(r.URL.Query().Get(render.ReturnToField)),
	}
	if r.URL.Query().Get("sent") == "1" {
		opts.Notice = SentNotice
	}
	s.write(w, r, http.StatusOK, opts)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, fmt.Sprintf("parse form: %v", err), http.StatusBadRequest)
		return
	}
	if _, err := s.session.Open(r.Context()); err != nil {
		s.busy(w, err)
		return
	}

	returnTo := s.allowedReturnTo(r.PostForm.Get(render.ReturnToField))
	result, err := s.session.Submit(r.Context(), FormValues(s.session.Schema(), r.PostForm))

	switch {
	case err == nil:
		location := r.URL.Path + "?sent=1"
		if returnTo != "" {
			location, err = transport.ReturnURL{Prefix: returnTo}.Location(result.Payload)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		s.logger.Info("settings submitted", "submission", result.ID, "redirect", location)
		http.Redirect(w, r, location, http.StatusSeeOther)
		return
	case errors.Is(err, session.ErrSubmissionInProgress), errors.Is(err, session.ErrNotEditing):
		s.busy(w, err)
		return
	}

	mapping := render.MapErrors(s.session.Schema(), err)
	var rejected *transport.RejectedError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrInvalid):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &rejected):
		status = http.StatusUnprocessableEntity
		mapping = render.MapErrorPayload(s.session.Schema(), rejected.Errors)
		if len(mapping.Fields) == 0 && len(mapping.Form) == 0 {
			mapping.Form = []string{DeliveryFailed}
		}
	case errors.Is(err, session.ErrTransport):
		status = http.StatusBadGateway
		mapping.Form = []string{DeliveryFailed}
	}
	s.logger.Warn("submission failed", "submission", result.ID, "status", status, "error", err)

	s.write(w, r, status, render.RenderOptions{
		Values:     s.session.Values(),
		Errors:     mapping.Fields,
		FormErrors: mapping.Form,
		Hidden:     s.hidden(returnTo),
	})
}

func (s *Server) handleContract(w http.ResponseWriter, _ *http.Request) {
	data, err := s.session.Contract().MarshalJSON()
	if err != nil {
		http.Error(w, fmt.Sprintf("encode contract: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		s.logger.Debug("write contract", "error", err)
	}
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, status int, opts render.RenderOptions) {
	opts.Title = s.title
	opts.Action = r.URL.Path
	out, err := s.renderer.Render(r.Context(), s.session.Schema(), opts)
	if err != nil {
		s.logger.Error("render settings page", "renderer", s.renderer.Name(), "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", s.renderer.ContentType())
	w.WriteHeader(status)
	if _, err := w.Write(out); err != nil {
		s.logger.Debug("write response", "error", err)
	}
}

func (s *Server) busy(w http.ResponseWriter, err error) {
	s.logger.Info("request rejected", "state", s.session.State().String(), "error", err)
	http.Error(w, "a submission is in progress", http.StatusConflict)
}

func (s *Server) allowedReturnTo(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if len(s.returnTo) > 0 {
			return s.returnTo[0]
		}
		return ""
	}
	if slices.Contains(s.returnTo, raw) {
		return raw
	}
	s.logger.Warn("ignoring unknown return target", "return_to", raw)
	return ""
}

func (s *Server) hidden(raw string) map[string]string {
	target := s.allowedReturnTo(raw)
	if target == "" {
		return nil
	}
	return render.MergeHiddenFields(nil, render.ReturnTo(target))
}

// FormValues converts a posted form into raw session input. The last value
// of a repeated name wins so a hidden "0" followed by a checked "1" reads as
// on. A toggle missing from the form is off; other missing fields keep their
// current value.
func FormValues(s *schema.Schema, form url.Values) map[string]any {
	raw := make(map[string]any, s.Len())
	for f := range s.AllFields() {
		values := form[f.Key()]
		if len(values) == 0 {
			if _, ok := f.(schema.Toggle); ok {
				raw[f.Key()] = "0"
			}
			continue
		}
		raw[f.Key()] = values[len(values)-1]
	}
	return raw
}

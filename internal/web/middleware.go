package web

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type sessionKey struct{}

// sessionID returns the session id stored by withSession.
func sessionID(r *http.Request) string {
	sid, _ := r.Context().Value(sessionKey{}).(string)
	return sid
}

// withSession resolves the session cookie, creating a session when the
// cookie is missing or names an unknown one.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := ""
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			sess, err := s.sessions.Get(c.Value)
			if err != nil {
				s.serverError(w, r, err)
				return
			}
			if sess != nil {
				sid = sess.ID
			}
		}

		if sid == "" {
			sess, err := s.sessions.Create()
			if err != nil {
				s.serverError(w, r, err)
				return
			}
			sid = sess.ID
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sid,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sid)))
	}
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPResponse(route, rec.code)

		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"route":    route,
			"status":   rec.code,
			"duration": time.Since(start).String(),
		}).Debug("http request")
	})
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Package apitest runs an in-memory implementation of the hospital REST API
// for package tests. It follows the production backend's wire format closely
// enough to exercise every gateway call, and lets tests intercept any route.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"hospital-desk/internal/auth"
	"hospital-desk/internal/model"
)

const Secret = "apitest-secret"

type Call struct {
	Method    string
	Path      string
	Query     url.Values
	Body      []byte
	Auth      string
	RequestID string
}

// InterceptFunc may answer a request itself; returning false falls through to
// the normal handler.
type InterceptFunc func(w http.ResponseWriter, r *http.Request) bool

type userRecord struct {
	model.User
	hash string
}

type Server struct {
	srv *httptest.Server

	mu         sync.Mutex
	users      map[int64]*userRecord
	byEmail    map[string]int64
	appts      map[int64]*model.Appointment
	resources  []model.Resource
	nextUser   int64
	nextAppt   int64
	calls      []Call
	intercepts map[string]InterceptFunc
	now        func() time.Time
}

func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		users:      make(map[int64]*userRecord),
		byEmail:    make(map[string]int64),
		appts:      make(map[int64]*model.Appointment),
		intercepts: make(map[string]InterceptFunc),
		now:        time.Now,
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// BaseURL is what the gateway should be configured with.
func (s *Server) BaseURL() string { return s.srv.URL + "/api" }

// Intercept installs fn for "METHOD /path" (path without the /api prefix).
func (s *Server) Intercept(method, path string, fn InterceptFunc) {
	s.mu.Lock()
	s.intercepts[method+" "+path] = fn
	s.mu.Unlock()
}

// Calls returns recorded requests matching method and path; empty strings
// match anything.
func (s *Server) Calls(method, path string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if (method == "" || c.Method == method) && (path == "" || c.Path == path) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	s.calls = nil
	s.mu.Unlock()
}

func (s *Server) AddUser(u model.User, password string) model.User {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	u.ID = s.nextUser
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.IsActive = true
	s.users[u.ID] = &userRecord{User: u, hash: hash}
	s.byEmail[u.Email] = u.ID
	return u
}

func (s *Server) AddAppointment(a model.Appointment) model.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAppt++
	a.ID = s.nextAppt
	if a.Status == "" {
		a.Status = model.StatusScheduled
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = 30
	}
	s.fillNames(&a)
	s.appts[a.ID] = &a
	return a
}

func (s *Server) AddResource(r model.Resource) model.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = int64(len(s.resources) + 1)
	r.IsActive = true
	s.resources = append(s.resources, r)
	return r
}

func (s *Server) Appointment(id int64) (model.Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, false
	}
	return *a, true
}

// Token mints a valid access token for uid.
func (s *Server) Token(uid int64) string {
	tok, err := auth.MakeToken(uid, Secret, time.Hour)
	if err != nil {
		panic(err)
	}
	return tok
}

func (s *Server) fillNames(a *model.Appointment) {
	if p, ok := s.users[a.PatientID]; ok {
		a.PatientName = p.FullName()
	}
	if d, ok := s.users[a.DoctorID]; ok {
		a.DoctorName = d.FullName()
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.Handle("GET /api/auth/me", s.requireAuth(s.me))
	mux.Handle("POST /api/auth/logout", s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
	}))

	mux.Handle("GET /api/appointments", s.requireAuth(s.listAppointments))
	mux.Handle("POST /api/appointments", s.requireAuth(s.createAppointment))
	mux.Handle("GET /api/appointments/doctors", s.requireAuth(s.doctors))
	mux.Handle("GET /api/appointments/available-slots", s.requireAuth(s.availableSlots))
	mux.Handle("GET /api/appointments/{id}", s.requireAuth(s.getAppointment))
	mux.Handle("PUT /api/appointments/{id}", s.requireAuth(s.updateAppointment))
	mux.Handle("DELETE /api/appointments/{id}", s.requireAuth(s.cancelAppointment))

	mux.Handle("GET /api/dashboard/stats", s.requireAuth(s.stats))
	mux.Handle("GET /api/dashboard/notifications", s.requireAuth(s.notifications))

	mux.Handle("GET /api/resources", s.requireAdmin(s.listResources))
	mux.Handle("GET /api/resources/alerts", s.requireAdmin(s.resourceAlerts))

	mux.Handle("GET /api/users", s.requireAdmin(s.listUsers))
	mux.Handle("POST /api/users/{id}/activate", s.requireAdmin(s.setActive(true)))
	mux.Handle("POST /api/users/{id}/deactivate", s.requireAdmin(s.setActive(false)))

	return s.record(mux)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		path := strings.TrimPrefix(r.URL.Path, "/api")
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Method:    r.Method,
			Path:      path,
			Query:     r.URL.Query(),
			Body:      body,
			Auth:      r.Header.Get("Authorization"),
			RequestID: r.Header.Get("X-Request-Id"),
		})
		fn := s.intercepts[r.Method+" "+path]
		s.mu.Unlock()

		if fn != nil && fn(w, r) {
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey string

const userIDKey ctxKey = "uid"

func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		claims, err := auth.ParseToken(raw, Secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Token has expired or is invalid")
			return
		}
		s.mu.Lock()
		u, ok := s.users[claims.UserID()]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, u.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.Handler {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if s.caller(r).Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "Access denied. Admin role required")
			return
		}
		next(w, r)
	})
}

// caller returns a copy of the authenticated user.
func (s *Server) caller(r *http.Request) model.User {
	uid, _ := r.Context().Value(userIDKey).(int64)
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[uid]; ok {
		return u.User
	}
	return model.User{}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Reply is a ready-made InterceptFunc answering with status and body.
func Reply(status int, body any) InterceptFunc {
	return func(w http.ResponseWriter, _ *http.Request) bool {
		writeJSON(w, status, body)
		return true
	}
}

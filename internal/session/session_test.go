package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"hospital-desk/internal/apitest"
	"hospital-desk/internal/gateway"
	"hospital-desk/internal/model"
	"hospital-desk/internal/nav"
	"hospital-desk/internal/session"
	"hospital-desk/internal/tokenstore"
)

type env struct {
	srv    *apitest.Server
	fx     apitest.Fixture
	tokens *tokenstore.Memory
	hist   *nav.History
	sess   *session.Store
}

func setup(t *testing.T, persisted string) *env {
	t.Helper()
	srv := apitest.New(t)
	e := &env{srv: srv, fx: srv.Seed(), tokens: tokenstore.NewMemory(persisted), hist: &nav.History{}}
	gw := gateway.New(gateway.Config{BaseURL: srv.BaseURL(), Tokens: e.tokens, Navigator: e.hist})
	e.sess = session.New(gw, e.tokens, nil)
	return e
}

func (e *env) persisted(t *testing.T) string {
	t.Helper()
	tok, err := e.tokens.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func TestLoginPersistsToken(t *testing.T) {
	e := setup(t, "")
	var seen []session.State
	e.sess.Subscribe(func(s session.State) { seen = append(seen, s) })

	if err := e.sess.Login(context.Background(), "patient@example.com", apitest.Password); err != nil {
		t.Fatalf("login: %v", err)
	}
	cur := e.sess.Current()
	if !cur.Authenticated() || cur.User.ID != e.fx.Patient.ID {
		t.Fatalf("state = %+v", cur)
	}
	if e.persisted(t) != cur.Token {
		t.Error("persisted token differs from in-memory token")
	}
	if len(seen) != 1 || !seen[0].Authenticated() {
		t.Errorf("subscribers saw %+v", seen)
	}
	if e.sess.Role() != model.RolePatient {
		t.Errorf("role = %q", e.sess.Role())
	}
}

func TestLoginFailure(t *testing.T) {
	e := setup(t, "")

	err := e.sess.Login(context.Background(), "patient@example.com", "nope")
	if gateway.MessageOr(err, "") != "Invalid email or password" {
		t.Errorf("err = %v", err)
	}
	if e.sess.Authenticated() || e.persisted(t) != "" {
		t.Error("failed login must leave no session")
	}
}

func TestMissingCredentials(t *testing.T) {
	e := setup(t, "")

	if err := e.sess.Login(context.Background(), "", "x"); !errors.Is(err, session.ErrMissingCredentials) {
		t.Errorf("login: %v", err)
	}
	err := e.sess.Register(context.Background(), model.RegisterProfile{Email: "a@b.c", Password: "longenough"})
	if !errors.Is(err, session.ErrMissingCredentials) {
		t.Errorf("register: %v", err)
	}
	if n := len(e.srv.Calls("", "")); n != 0 {
		t.Errorf("made %d requests", n)
	}
}

func TestRegister(t *testing.T) {
	e := setup(t, "")

	err := e.sess.Register(context.Background(), model.RegisterProfile{
		Email: "new@example.com", Password: "longenough", FirstName: "New", LastName: "Person", Role: model.RolePatient,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u := e.sess.User(); u == nil || u.Email != "new@example.com" {
		t.Errorf("user = %+v", u)
	}
	if e.persisted(t) == "" {
		t.Error("token not persisted")
	}
}

func TestRestore(t *testing.T) {
	e := setup(t, "")
	tok := e.srv.Token(e.fx.Doctor.ID)
	e.tokens.Save(context.Background(), tok)

	if err := e.sess.Restore(context.Background()); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if u := e.sess.User(); u == nil || u.ID != e.fx.Doctor.ID {
		t.Fatalf("user = %+v", u)
	}
	if e.sess.Token() != tok {
		t.Error("restored token differs")
	}
}

func TestRestoreNothingPersisted(t *testing.T) {
	e := setup(t, "")
	if err := e.sess.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(e.srv.Calls("", "")) != 0 {
		t.Error("no token should mean no /auth/me call")
	}
}

func TestFailedRestore(t *testing.T) {
	e := setup(t, "expired-token")

	if err := e.sess.Restore(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if e.sess.Authenticated() || e.sess.Token() != "" {
		t.Error("session should be signed out")
	}
	if e.persisted(t) != "" {
		t.Error("persisted token should be cleared")
	}
	if n := len(e.srv.Calls(http.MethodGet, "/auth/me")); n != 1 {
		t.Errorf("want a single /auth/me attempt, got %d", n)
	}
}

func TestFailedRestoreServerError(t *testing.T) {
	e := setup(t, "")
	e.tokens.Save(context.Background(), e.srv.Token(e.fx.Patient.ID))
	e.srv.Intercept(http.MethodGet, "/auth/me", apitest.Reply(http.StatusInternalServerError, map[string]string{"error": "boom"}))

	if err := e.sess.Restore(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	// any failure clears, not just 401
	if e.persisted(t) != "" || e.sess.Authenticated() {
		t.Error("session should be cleared")
	}
	if len(e.hist.Routes()) != 0 {
		t.Errorf("500 must not navigate: %v", e.hist.Routes())
	}
}

func TestLogout(t *testing.T) {
	e := setup(t, "")
	ctx := context.Background()
	if err := e.sess.Login(ctx, "admin@example.com", apitest.Password); err != nil {
		t.Fatal(err)
	}
	e.srv.Intercept(http.MethodPost, "/auth/logout", apitest.Reply(http.StatusInternalServerError, nil))

	e.sess.Logout(ctx)
	if e.sess.Authenticated() || e.persisted(t) != "" {
		t.Error("logout must clear state even when the server fails")
	}
	if len(e.srv.Calls(http.MethodPost, "/auth/logout")) != 1 {
		t.Error("server logout not attempted")
	}
}

func TestUnauthorizedExpiresSession(t *testing.T) {
	e := setup(t, "")
	ctx := context.Background()
	if err := e.sess.Login(ctx, "patient@example.com", apitest.Password); err != nil {
		t.Fatal(err)
	}
	var last session.State
	unsub := e.sess.Subscribe(func(s session.State) { last = s })
	defer unsub()

	e.srv.Intercept(http.MethodGet, "/auth/me", apitest.Reply(http.StatusUnauthorized, map[string]string{"error": "Token has expired"}))
	if err := e.sess.Restore(ctx); !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("err = %v", err)
	}
	if e.sess.Authenticated() || last.Authenticated() {
		t.Error("401 should drop the in-memory session")
	}
	if e.hist.Current() != nav.Login {
		t.Errorf("route = %q", e.hist.Current())
	}
}

func TestUnsubscribe(t *testing.T) {
	e := setup(t, "")
	calls := 0
	unsub := e.sess.Subscribe(func(session.State) { calls++ })
	unsub()
	e.sess.Logout(context.Background())
	if calls != 0 {
		t.Errorf("unsubscribed fn called %d times", calls)
	}
}

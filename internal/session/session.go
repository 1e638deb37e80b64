// Package session holds who is logged in. There is one Store per process; it
// owns the in-memory user and token and keeps the persisted token in step.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hospital-desk/internal/gateway"
	"hospital-desk/internal/model"
	"hospital-desk/internal/tokenstore"
)

var ErrMissingCredentials = errors.New("session: missing credentials")

// Backend is the part of the gateway the session needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*gateway.AuthResponse, error)
	Register(ctx context.Context, p model.RegisterProfile) (*gateway.AuthResponse, error)
	Me(ctx context.Context) (*model.User, error)
	Logout(ctx context.Context) error
	SetTokenSource(s gateway.TokenSource)
	OnUnauthorized(fn func())
}

// State is a snapshot. User is nil when unauthenticated.
type State struct {
	User  *model.User
	Token string
}

func (s State) Authenticated() bool { return s.User != nil && s.Token != "" }

type Store struct {
	gw     Backend
	tokens tokenstore.Store
	log    *zap.Logger

	mu    sync.RWMutex
	user  *model.User
	token string

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int
}

func New(gw Backend, tokens tokenstore.Store, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		gw:     gw,
		tokens: tokens,
		log:    log.Named("session"),
		subs:   make(map[int]func(State)),
	}
	gw.SetTokenSource(s)
	gw.OnUnauthorized(s.expire)
	return s
}

// Token implements gateway.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := State{Token: s.token}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

func (s *Store) User() *model.User { return s.Current().User }

func (s *Store) Authenticated() bool { return s.Current().Authenticated() }

// Role is "" when nobody is logged in.
func (s *Store) Role() model.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.Role
}

// Subscribe registers fn for every state change and returns a function that
// removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) publish() {
	st := s.Current()
	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

func (s *Store) set(u *model.User, token string) {
	s.mu.Lock()
	s.user = u
	s.token = token
	s.mu.Unlock()
}

func (s *Store) establish(ctx context.Context, resp *gateway.AuthResponse) {
	u := resp.User
	s.set(&u, resp.AccessToken)
	if err := s.tokens.Save(ctx, resp.AccessToken); err != nil {
		// the in-memory session stays usable for this run
		s.log.Error("persist token", zap.Error(err))
	}
	s.log.Info("signed in", zap.Int64("user_id", u.ID), zap.String("role", string(u.Role)))
	s.publish()
}

func (s *Store) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingCredentials
	}
	resp, err := s.gw.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.establish(ctx, resp)
	return nil
}

func (s *Store) Register(ctx context.Context, p model.RegisterProfile) error {
	if f := p.Missing(); f != "" {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, f)
	}
	resp, err := s.gw.Register(ctx, p)
	if err != nil {
		return err
	}
	s.establish(ctx, resp)
	return nil
}

// Restore revalidates a persisted token once. Any failure leaves the session
// signed out with nothing persisted; the error is returned for logging only.
func (s *Store) Restore(ctx context.Context) error {
	tok, err := s.tokens.Load(ctx)
	if err != nil {
		s.log.Warn("load persisted token", zap.Error(err))
		s.clear(ctx)
		return err
	}
	if tok == "" {
		return nil
	}

	// the token must be visible to the gateway for the /auth/me call
	s.set(nil, tok)
	u, err := s.gw.Me(ctx)
	if err != nil {
		s.log.Info("persisted token rejected", zap.Error(err))
		s.clear(ctx)
		return err
	}
	s.set(u, tok)
	s.publish()
	return nil
}

// Logout tells the server first, then drops local state whatever it said.
func (s *Store) Logout(ctx context.Context) {
	if s.Token() != "" {
		if err := s.gw.Logout(ctx); err != nil {
			s.log.Debug("server logout failed", zap.Error(err))
		}
	}
	s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) {
	s.set(nil, "")
	if err := s.tokens.Clear(ctx); err != nil {
		s.log.Error("clear persisted token", zap.Error(err))
	}
	s.publish()
}

// expire runs from the gateway's 401 policy, which has already cleared the
// persisted token.
func (s *Store) expire() {
	s.mu.Lock()
	was := s.token != "" || s.user != nil
	s.user = nil
	s.token = ""
	s.mu.Unlock()
	if was {
		s.publish()
	}
}

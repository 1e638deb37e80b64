package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"hospital-desk/internal/auth"
	"hospital-desk/internal/model"
)

func readAll(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(b))
	return b, err
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

type authReply struct {
	Message     string     `json:"message"`
	User        model.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(r, &req) || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	s.mu.Lock()
	rec, ok := s.users[s.byEmail[strings.ToLower(req.Email)]]
	s.mu.Unlock()
	// same answer for unknown email and bad password
	if !ok || !auth.CheckPassword(rec.hash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !rec.IsActive {
		writeError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	tok, err := auth.MakeToken(rec.ID, Secret, time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, authReply{Message: "Login successful", User: rec.User, AccessToken: tok})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var p model.RegisterProfile
	if !decode(r, &p) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if f := p.Missing(); f != "" {
		writeError(w, http.StatusBadRequest, f+" is required")
		return
	}
	switch p.Role {
	case model.RolePatient, model.RoleDoctor, model.RoleAdmin:
	default:
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}
	if len(p.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters long")
		return
	}

	s.mu.Lock()
	_, taken := s.byEmail[strings.ToLower(p.Email)]
	s.mu.Unlock()
	if taken {
		writeError(w, http.StatusConflict, "User with this email already exists")
		return
	}

	u := s.AddUser(model.User{
		Email:            p.Email,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Phone:            p.Phone,
		Role:             p.Role,
		Specialty:        p.Specialty,
		LicenseNumber:    p.LicenseNumber,
		ExperienceYears:  p.ExperienceYears,
		DateOfBirth:      p.DateOfBirth,
		Gender:           p.Gender,
		Address:          p.Address,
		EmergencyContact: p.EmergencyContact,
	}, p.Password)

	tok, err := auth.MakeToken(u.ID, Secret, time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, authReply{Message: "User registered successfully", User: u, AccessToken: tok})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]model.User{"data": s.caller(r)})
}

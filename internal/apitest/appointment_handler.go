package apitest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"hospital-desk/internal/model"
)

// visible reports whether u may see a.
func visible(u model.User, a *model.Appointment) bool {
	switch u.Role {
	case model.RolePatient:
		return a.PatientID == u.ID
	case model.RoleDoctor:
		return a.DoctorID == u.ID
	}
	return true
}

func intParam(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func paginate(total, page, per int) (lo, hi, pages int) {
	pages = (total + per - 1) / per
	lo = (page - 1) * per
	if lo > total {
		lo = total
	}
	hi = lo + per
	if hi > total {
		hi = total
	}
	return lo, hi, pages
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	u := s.caller(r)
	q := r.URL.Query()
	page := intParam(r, "page", 1)
	per := intParam(r, "per_page", 10)
	status := model.Status(q.Get("status"))
	from, to := q.Get("date_from"), q.Get("date_to")

	s.mu.Lock()
	var rows []model.Appointment
	for _, a := range s.appts {
		if !visible(u, a) {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		// ISO dates compare lexically
		if from != "" && a.AppointmentDate < from {
			continue
		}
		if to != "" && a.AppointmentDate > to {
			continue
		}
		rows = append(rows, *a)
	}
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AppointmentDate != rows[j].AppointmentDate {
			return rows[i].AppointmentDate > rows[j].AppointmentDate
		}
		return rows[i].AppointmentTime > rows[j].AppointmentTime
	})

	lo, hi, pages := paginate(len(rows), page, per)
	writeJSON(w, http.StatusOK, map[string]any{
		"appointments": append([]model.Appointment{}, rows[lo:hi]...),
		"total":        len(rows),
		"pages":        pages,
		"current_page": page,
		"per_page":     per,
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*model.Appointment, model.User, bool) {
	u := s.caller(r)
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Appointment not found")
		return nil, u, false
	}
	s.mu.Lock()
	a, ok := s.appts[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Appointment not found")
		return nil, u, false
	}
	if !visible(u, a) {
		writeError(w, http.StatusForbidden, "Access denied")
		return nil, u, false
	}
	return a, u, true
}

func (s *Server) getAppointment(w http.ResponseWriter, r *http.Request) {
	a, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	cp := *a
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]model.Appointment{"appointment": cp})
}

func (s *Server) createAppointment(w http.ResponseWriter, r *http.Request) {
	u := s.caller(r)
	if u.Role == model.RoleDoctor {
		writeError(w, http.StatusForbidden, "Only patients can book appointments")
		return
	}

	var req struct {
		DoctorID        int64  `json:"doctor_id"`
		PatientID       int64  `json:"patient_id"`
		AppointmentDate string `json:"appointment_date"`
		AppointmentTime string `json:"appointment_time"`
		Reason          string `json:"reason"`
		Notes           string `json:"notes"`
	}
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	switch {
	case req.DoctorID == 0:
		writeError(w, http.StatusBadRequest, "doctor_id is required")
		return
	case req.AppointmentDate == "":
		writeError(w, http.StatusBadRequest, "appointment_date is required")
		return
	case req.AppointmentTime == "":
		writeError(w, http.StatusBadRequest, "appointment_time is required")
		return
	}

	patient := u.ID
	if u.Role == model.RoleAdmin && req.PatientID != 0 {
		patient = req.PatientID
	}

	s.mu.Lock()
	doc, ok := s.users[req.DoctorID]
	if !ok || doc.Role != model.RoleDoctor || !doc.IsActive {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Invalid doctor")
		return
	}
	// app-level double booking check
	if s.booked(req.DoctorID, req.AppointmentDate)[req.AppointmentTime] {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Slot no longer available")
		return
	}
	s.mu.Unlock()

	a := s.AddAppointment(model.Appointment{
		PatientID:       patient,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		Reason:          req.Reason,
		Notes:           req.Notes,
	})
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":        "Appointment created successfully",
		"appointment_id": a.ID,
	})
}

func (s *Server) updateAppointment(w http.ResponseWriter, r *http.Request) {
	a, u, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req struct {
		Status model.Status `json:"status"`
		Notes  *string      `json:"notes"`
	}
	if !decode(r, &req) {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Status != "" {
		if !req.Status.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid status")
			return
		}
		// patients may only cancel
		if u.Role == model.RolePatient && req.Status != model.StatusCancelled {
			writeError(w, http.StatusForbidden, "Access denied")
			return
		}
		if !model.CanTransition(a.Status, req.Status) {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Cannot change status from %s to %s", a.Status, req.Status))
			return
		}
		a.Status = req.Status
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Appointment updated successfully",
		"appointment": *a,
	})
}

func (s *Server) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	a, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !a.Status.Open() {
		writeError(w, http.StatusBadRequest, "Appointment cannot be cancelled")
		return
	}
	a.Status = model.StatusCancelled
	writeJSON(w, http.StatusOK, map[string]string{"message": "Appointment cancelled successfully"})
}

func (s *Server) doctors(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var out []model.Doctor
	for _, u := range s.users {
		if u.Role != model.RoleDoctor || !u.IsActive {
			continue
		}
		out = append(out, model.Doctor{
			ID:              u.ID,
			FirstName:       u.FirstName,
			LastName:        u.LastName,
			Specialty:       u.Specialty,
			ExperienceYears: u.ExperienceYears,
		})
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, map[string]any{"doctors": out})
}

// SlotTimes is the working day grid: half hours from 09:00 to 16:30.
func SlotTimes() []string {
	var out []string
	for h := 9; h < 17; h++ {
		out = append(out, fmt.Sprintf("%02d:00", h), fmt.Sprintf("%02d:30", h))
	}
	return out
}

// booked must be called with s.mu held.
func (s *Server) booked(doctor int64, date string) map[string]bool {
	taken := make(map[string]bool)
	for _, a := range s.appts {
		if a.DoctorID == doctor && a.AppointmentDate == date && a.Status.Open() {
			taken[a.AppointmentTime] = true
		}
	}
	return taken
}

func (s *Server) availableSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctor, err := strconv.ParseInt(q.Get("doctor_id"), 10, 64)
	date := q.Get("date")
	if err != nil || date == "" {
		writeError(w, http.StatusBadRequest, "doctor_id and date are required")
		return
	}

	s.mu.Lock()
	taken := s.booked(doctor, date)
	s.mu.Unlock()

	slots := []model.Slot{}
	for _, t := range SlotTimes() {
		if !taken[t] {
			slots = append(slots, model.Slot{Time: t, DisplayTime: model.DisplayTime(t)})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"available_slots": slots})
}

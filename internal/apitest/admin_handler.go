package apitest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"hospital-desk/internal/model"
)

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	u := s.caller(r)
	today := s.now().Format("2006-01-02")

	s.mu.Lock()
	var st model.DashboardStats
	for _, a := range s.appts {
		if !visible(u, a) {
			continue
		}
		st.Appointments.Total++
		switch a.Status {
		case model.StatusScheduled:
			st.Appointments.Scheduled++
		case model.StatusConfirmed:
			st.Appointments.Confirmed++
		case model.StatusCompleted:
			st.Appointments.Completed++
		case model.StatusCancelled:
			st.Appointments.Cancelled++
		}
		if a.Status.Open() && a.AppointmentDate >= today {
			st.UpcomingAppointments = append(st.UpcomingAppointments, *a)
		}
	}
	if u.Role == model.RoleAdmin {
		st.Resources, st.Occupancy = s.resourceSummary()
	}
	s.mu.Unlock()

	sort.Slice(st.UpcomingAppointments, func(i, j int) bool {
		a, b := st.UpcomingAppointments[i], st.UpcomingAppointments[j]
		if a.AppointmentDate != b.AppointmentDate {
			return a.AppointmentDate < b.AppointmentDate
		}
		return a.AppointmentTime < b.AppointmentTime
	})
	if len(st.UpcomingAppointments) > 5 {
		st.UpcomingAppointments = st.UpcomingAppointments[:5]
	}
	writeJSON(w, http.StatusOK, map[string]any{"stats": st})
}

// resourceSummary must be called with s.mu held.
func (s *Server) resourceSummary() (*model.ResourceSummary, *model.Occupancy) {
	sum := &model.ResourceSummary{}
	occ := &model.Occupancy{}
	today := s.now().Format("2006-01-02")
	for i := range s.resources {
		res := &s.resources[i]
		sum.TotalResources++
		switch res.ResourceType {
		case model.ResourceBed:
			sum.TotalBeds++
			occ.TotalBeds += res.TotalQuantity
			occ.AvailableBeds += res.AvailableQuantity
		case model.ResourceMedicine:
			sum.TotalMedicines++
			if res.ExpiryDate != "" && res.ExpiryDate < today {
				sum.ExpiredMedicines++
			}
		case model.ResourceEquipment:
			sum.TotalEquipment++
		}
		if res.LowStock() {
			sum.LowStockCount++
		}
	}
	occ.OccupiedBeds = occ.TotalBeds - occ.AvailableBeds
	if occ.TotalBeds > 0 {
		occ.OccupancyRate = float64(occ.OccupiedBeds) / float64(occ.TotalBeds) * 100
	}
	return sum, occ
}

// alerts must be called with s.mu held.
func (s *Server) alerts() []model.ResourceAlert {
	out := []model.ResourceAlert{}
	today := s.now().Format("2006-01-02")
	for _, res := range s.resources {
		if res.LowStock() {
			out = append(out, model.ResourceAlert{
				Type:              "low_stock",
				ResourceID:        res.ID,
				ResourceName:      res.Name,
				AvailableQuantity: res.AvailableQuantity,
				MinThreshold:      res.MinThreshold,
				Priority:          "high",
			})
		}
		if res.ExpiryDate != "" && res.ExpiryDate < today {
			out = append(out, model.ResourceAlert{
				Type:         "expired",
				ResourceID:   res.ID,
				ResourceName: res.Name,
				ExpiryDate:   res.ExpiryDate,
				Priority:     "critical",
			})
		}
	}
	return out
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	u := s.caller(r)
	today := s.now().Format("2006-01-02")

	s.mu.Lock()
	out := []model.Notification{}
	for _, a := range s.appts {
		if visible(u, a) && a.Status.Open() && a.AppointmentDate == today {
			out = append(out, model.Notification{
				Type:     "appointment",
				Title:    "Appointment today",
				Message:  "Appointment at " + a.AppointmentTime,
				Date:     a.AppointmentDate,
				Priority: "medium",
			})
		}
	}
	if u.Role == model.RoleAdmin {
		for _, al := range s.alerts() {
			out = append(out, model.Notification{
				Type:     "resource",
				Title:    "Resource alert",
				Message:  al.ResourceName + ": " + al.Type,
				Date:     today,
				Priority: al.Priority,
			})
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (s *Server) listResources(w http.ResponseWriter, r *http.Request) {
	typ := model.ResourceType(r.URL.Query().Get("type"))
	page := intParam(r, "page", 1)
	per := intParam(r, "per_page", 10)

	s.mu.Lock()
	var rows []model.Resource
	for _, res := range s.resources {
		if typ == "" || res.ResourceType == typ {
			rows = append(rows, res)
		}
	}
	s.mu.Unlock()

	lo, hi, pages := paginate(len(rows), page, per)
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": append([]model.Resource{}, rows[lo:hi]...),
		"total":     len(rows),
		"pages":     pages,
	})
}

func (s *Server) resourceAlerts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := s.alerts()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"alerts": out})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role := model.Role(q.Get("role"))
	search := strings.ToLower(q.Get("search"))
	page := intParam(r, "page", 1)
	per := intParam(r, "per_page", 10)

	s.mu.Lock()
	var rows []model.User
	for _, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.FullName()+" "+u.Email), search) {
			continue
		}
		rows = append(rows, u.User)
	}
	s.mu.Unlock()
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	lo, hi, pages := paginate(len(rows), page, per)
	writeJSON(w, http.StatusOK, map[string]any{
		"users": append([]model.User{}, rows[lo:hi]...),
		"total": len(rows),
		"pages": pages,
	})
}

func (s *Server) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		s.mu.Lock()
		defer s.mu.Unlock()
		u, ok := s.users[id]
		if err != nil || !ok {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		u.IsActive = active
		writeJSON(w, http.StatusOK, map[string]string{"message": "User updated successfully"})
	}
}

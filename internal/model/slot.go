package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Slot is one bookable time for a doctor+date pair. Never persisted.
type Slot struct {
	Time        string `json:"time"`
	DisplayTime string `json:"display_time"`
}

// UnmarshalJSON accepts {"time","display_time"} and the bare "HH:MM" form.
func (s *Slot) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var t string
		if err := json.Unmarshal(b, &t); err != nil {
			return err
		}
		s.Time = t
		s.DisplayTime = DisplayTime(t)
		return nil
	}

	type plain Slot
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return fmt.Errorf("slot: %w", err)
	}
	*s = Slot(p)
	if s.DisplayTime == "" {
		s.DisplayTime = DisplayTime(s.Time)
	}
	return nil
}

// DisplayTime renders "09:00" as "9:00 AM". Unparseable input is returned as is.
func DisplayTime(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 PM")
}

type AppointmentCounts struct {
	Total     int `json:"total"`
	Scheduled int `json:"scheduled"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

type ResourceSummary struct {
	TotalResources   int `json:"total_resources"`
	TotalBeds        int `json:"total_beds"`
	TotalMedicines   int `json:"total_medicines"`
	TotalEquipment   int `json:"total_equipment"`
	LowStockCount    int `json:"low_stock_count"`
	ExpiredMedicines int `json:"expired_medicines"`
}

type Occupancy struct {
	TotalBeds     int     `json:"total_beds"`
	OccupiedBeds  int     `json:"occupied_beds"`
	AvailableBeds int     `json:"available_beds"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

type DashboardStats struct {
	Appointments         AppointmentCounts `json:"appointments"`
	UpcomingAppointments []Appointment     `json:"upcoming_appointments,omitempty"`
	Resources            *ResourceSummary  `json:"resources,omitempty"`
	Occupancy            *Occupancy        `json:"occupancy,omitempty"`
}

type Notification struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Date     string `json:"date"`
	Priority string `json:"priority"`
}

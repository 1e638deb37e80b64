package gateway

import (
	"context"
	"net/http"
	"strconv"

	"hospital-desk/internal/model"
)

// PageSize is fixed for appointment listings.
const PageSize = 10

type ListParams struct {
	Page     int
	PerPage  int
	Status   model.Status
	DateFrom string
	DateTo   string
}

// Query renders the params; empty filters are left out.
func (p ListParams) Query() map[string]string {
	page := p.Page
	if page < 1 {
		page = 1
	}
	per := p.PerPage
	if per < 1 {
		per = PageSize
	}
	q := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(per),
	}
	if p.Status != "" {
		q["status"] = string(p.Status)
	}
	if p.DateFrom != "" {
		q["date_from"] = p.DateFrom
	}
	if p.DateTo != "" {
		q["date_to"] = p.DateTo
	}
	return q
}

type AppointmentPage struct {
	Appointments []model.Appointment `json:"appointments"`
	Pages        int                 `json:"pages"`
	Total        int                 `json:"total"`
	CurrentPage  int                 `json:"current_page"`
	PerPage      int                 `json:"per_page"`
}

func (c *Client) ListAppointments(ctx context.Context, p ListParams) (*AppointmentPage, error) {
	out := &AppointmentPage{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/appointments", query: p.Query(), out: out})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// appointmentResponse covers the shapes mutating endpoints answer with: the
// appointment itself, {"appointment": ...}, {"data": ...} or just
// {"message", "appointment_id"}.
type appointmentResponse struct {
	Message       string             `json:"message"`
	AppointmentID int64              `json:"appointment_id"`
	Appt          *model.Appointment `json:"appointment"`
	Data          *model.Appointment `json:"data"`
	model.Appointment
}

func (r *appointmentResponse) appointment() *model.Appointment {
	switch {
	case r.Appt != nil:
		return r.Appt
	case r.Data != nil:
		return r.Data
	case r.Appointment.ID != 0:
		a := r.Appointment
		return &a
	}
	return &model.Appointment{ID: r.AppointmentID}
}

func (c *Client) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	out := &appointmentResponse{}
	err := c.do(ctx, call{method: http.MethodGet, path: "/appointments/" + strconv.FormatInt(id, 10), out: out})
	if err != nil {
		return nil, err
	}
	return out.appointment(), nil
}

type CreateAppointmentRequest struct {
	DoctorID        int64  `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	Reason          string `json:"reason,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func (c *Client) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*model.Appointment, error) {
	out := &appointmentResponse{}
	err := c.do(ctx, call{method: http.MethodPost, path: "/appointments", body: req, out: out})
	if err != nil {
		return nil, err
	}
	return out.appointment(), nil
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

func (c *Client) UpdateAppointmentStatus(ctx context.Context, id int64, status model.Status) (*model.Appointment, error) {
	out := &appointmentResponse{}
	err := c.do(ctx, call{
		method: http.MethodPut,
		path:   "/appointments/" + strconv.FormatInt(id, 10),
		body:   statusRequest{Status: status},
		out:    out,
	})
	if err != nil {
		return nil, err
	}
	return out.appointment(), nil
}

func (c *Client) CancelAppointment(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: "/appointments/" + strconv.FormatInt(id, 10)})
}

type doctorsResponse struct {
	Doctors []model.Doctor `json:"doctors"`
}

func (c *Client) Doctors(ctx context.Context) ([]model.Doctor, error) {
	out := &doctorsResponse{}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/appointments/doctors", out: out}); err != nil {
		return nil, err
	}
	return out.Doctors, nil
}

type slotsResponse struct {
	AvailableSlots []model.Slot `json:"available_slots"`
}

func (c *Client) AvailableSlots(ctx context.Context, doctorID int64, date string) ([]model.Slot, error) {
	out := &slotsResponse{}
	err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/appointments/available-slots",
		query: map[string]string{
			"doctor_id": strconv.FormatInt(doctorID, 10),
			"date":      date,
		},
		out: out,
	})
	if err != nil {
		return nil, err
	}
	return out.AvailableSlots, nil
}

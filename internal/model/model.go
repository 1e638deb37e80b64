package model

import "fmt"

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Phone            string `json:"phone,omitempty"`
	Role             Role   `json:"role"`
	IsActive         bool   `json:"is_active"`
	Specialty        string `json:"specialty,omitempty"`
	LicenseNumber    string `json:"license_number,omitempty"`
	ExperienceYears  int    `json:"experience_years,omitempty"`
	DateOfBirth      string `json:"date_of_birth,omitempty"`
	Gender           string `json:"gender,omitempty"`
	Address          string `json:"address,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// RegisterProfile is the payload for POST /auth/register. Doctor fields are
// only meaningful with RoleDoctor, patient fields with RolePatient.
type RegisterProfile struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Role             Role   `json:"role"`
	Phone            string `json:"phone,omitempty"`
	Specialty        string `json:"specialty,omitempty"`
	LicenseNumber    string `json:"license_number,omitempty"`
	ExperienceYears  int    `json:"experience_years,omitempty"`
	DateOfBirth      string `json:"date_of_birth,omitempty"`
	Gender           string `json:"gender,omitempty"`
	Address          string `json:"address,omitempty"`
	EmergencyContact string `json:"emergency_contact,omitempty"`
}

// Missing returns the first required field left empty, or "".
func (p *RegisterProfile) Missing() string {
	switch {
	case p.Email == "":
		return "email"
	case p.Password == "":
		return "password"
	case p.FirstName == "":
		return "first_name"
	case p.LastName == "":
		return "last_name"
	case p.Role == "":
		return "role"
	}
	return ""
}

type Doctor struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Specialty       string `json:"specialty,omitempty"`
	ExperienceYears int    `json:"experience_years,omitempty"`
}

func (d Doctor) DisplayName() string {
	return fmt.Sprintf("Dr. %s %s", d.FirstName, d.LastName)
}

type Appointment struct {
	ID              int64  `json:"id"`
	PatientID       int64  `json:"patient_id"`
	DoctorID        int64  `json:"doctor_id"`
	PatientName     string `json:"patient_name,omitempty"`
	DoctorName      string `json:"doctor_name,omitempty"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Status          Status `json:"status"`
	Reason          string `json:"reason,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// Counterpart is the name shown on a row: patients see the doctor, everyone
// else sees the patient.
func (a *Appointment) Counterpart(role Role) string {
	if role == RolePatient {
		return "Dr. " + a.DoctorName
	}
	return a.PatientName
}

type ResourceType string

const (
	ResourceBed       ResourceType = "bed"
	ResourceMedicine  ResourceType = "medicine"
	ResourceEquipment ResourceType = "equipment"
)

type Resource struct {
	ID                int64        `json:"id"`
	Name              string       `json:"name"`
	ResourceType      ResourceType `json:"resource_type"`
	Category          string       `json:"category,omitempty"`
	TotalQuantity     int          `json:"total_quantity"`
	AvailableQuantity int          `json:"available_quantity"`
	Unit              string       `json:"unit,omitempty"`
	Description       string       `json:"description,omitempty"`
	Location          string       `json:"location,omitempty"`
	ExpiryDate        string       `json:"expiry_date,omitempty"`
	MinThreshold      int          `json:"min_threshold"`
	IsActive          bool         `json:"is_active"`
	CreatedAt         string       `json:"created_at,omitempty"`
	UpdatedAt         string       `json:"updated_at,omitempty"`
}

func (r *Resource) LowStock() bool {
	return r.AvailableQuantity <= r.MinThreshold
}

type ResourceTransaction struct {
	ID              int64  `json:"id"`
	ResourceID      int64  `json:"resource_id"`
	TransactionType string `json:"transaction_type"` // in | out | adjustment
	Quantity        int    `json:"quantity"`
	Reason          string `json:"reason,omitempty"`
	ReferenceID     string `json:"reference_id,omitempty"`
	CreatedBy       int64  `json:"created_by,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

type Billing struct {
	ID                int64   `json:"id"`
	AppointmentID     int64   `json:"appointment_id"`
	PatientID         int64   `json:"patient_id"`
	TotalAmount       float64 `json:"total_amount"`
	ConsultationFee   float64 `json:"consultation_fee"`
	AdditionalCharges float64 `json:"additional_charges"`
	Discount          float64 `json:"discount"`
	TaxAmount         float64 `json:"tax_amount"`
	Status            string  `json:"status"`
	PaymentMethod     string  `json:"payment_method,omitempty"`
	PaymentReference  string  `json:"payment_reference,omitempty"`
	Notes             string  `json:"notes,omitempty"`
	CreatedAt         string  `json:"created_at,omitempty"`
	UpdatedAt         string  `json:"updated_at,omitempty"`
}

type ResourceAlert struct {
	Type              string `json:"type"`
	ResourceID        int64  `json:"resource_id"`
	ResourceName      string `json:"resource_name"`
	AvailableQuantity int    `json:"available_quantity,omitempty"`
	MinThreshold      int    `json:"min_threshold,omitempty"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	Priority          string `json:"priority"`
}

package apitest

import "hospital-desk/internal/model"

const Password = "password123"

// Fixture is the population created by Seed.
type Fixture struct {
	Patient model.User
	Doctor  model.User
	Admin   model.User
}

// Seed adds one user per role, all with Password.
func (s *Server) Seed() Fixture {
	return Fixture{
		Patient: s.AddUser(model.User{
			Email: "patient@example.com", FirstName: "Pat", LastName: "Jones", Role: model.RolePatient,
		}, Password),
		Doctor: s.AddUser(model.User{
			Email: "doctor@example.com", FirstName: "Ada", LastName: "Smith", Role: model.RoleDoctor,
			Specialty: "Cardiology", ExperienceYears: 12,
		}, Password),
		Admin: s.AddUser(model.User{
			Email: "admin@example.com", FirstName: "Sam", LastName: "Root", Role: model.RoleAdmin,
		}, Password),
	}
}

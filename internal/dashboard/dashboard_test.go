package dashboard_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"hospital-desk/internal/apitest"
	"hospital-desk/internal/dashboard"
	"hospital-desk/internal/gateway"
	"hospital-desk/internal/model"
	"hospital-desk/internal/notify"
	"hospital-desk/internal/tokenstore"
)

func setup(t *testing.T, pick func(apitest.Fixture) model.User) (*dashboard.Aggregator, *apitest.Server, *notify.Recorder, apitest.Fixture) {
	t.Helper()
	srv := apitest.New(t)
	fx := srv.Seed()
	gw := gateway.New(gateway.Config{
		BaseURL: srv.BaseURL(),
		Tokens:  tokenstore.NewMemory(srv.Token(pick(fx).ID)),
	})
	rec := &notify.Recorder{}
	return dashboard.New(gw, rec, nil), srv, rec, fx
}

func TestLoadPatient(t *testing.T) {
	agg, srv, rec, fx := setup(t, func(fx apitest.Fixture) model.User { return fx.Patient })
	today := time.Now().Format("2006-01-02")
	srv.AddAppointment(model.Appointment{PatientID: fx.Patient.ID, DoctorID: fx.Doctor.ID, AppointmentDate: today, AppointmentTime: "09:00"})
	srv.AddAppointment(model.Appointment{
		PatientID: fx.Patient.ID, DoctorID: fx.Doctor.ID,
		AppointmentDate: "2020-01-01", AppointmentTime: "09:00", Status: model.StatusCompleted,
	})

	data, err := agg.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if data.Stats.Appointments.Total != 2 || data.Stats.Appointments.Completed != 1 {
		t.Errorf("counts = %+v", data.Stats.Appointments)
	}
	if len(data.Notifications) != 1 {
		t.Errorf("notifications = %+v", data.Notifications)
	}
	if data.Stats.Resources != nil {
		t.Error("patients must not get resource figures")
	}
	if len(rec.All()) != 0 {
		t.Errorf("unexpected notices %+v", rec.All())
	}
}

func TestEitherFailureIsReportedOnce(t *testing.T) {
	for _, path := range []string{"/dashboard/stats", "/dashboard/notifications"} {
		t.Run(path, func(t *testing.T) {
			agg, srv, rec, _ := setup(t, func(fx apitest.Fixture) model.User { return fx.Admin })
			srv.Intercept(http.MethodGet, path, apitest.Reply(http.StatusInternalServerError, map[string]string{"error": "boom"}))

			data, err := agg.Load(context.Background())
			if err == nil || data != nil {
				t.Fatalf("want failure, got %+v %v", data, err)
			}
			if rec.Count(notify.LevelError) != 1 || rec.Last().Message != "Failed to load dashboard data" {
				t.Errorf("notices = %+v", rec.All())
			}
		})
	}
}

func TestBothFailStillOneNotice(t *testing.T) {
	agg, srv, rec, _ := setup(t, func(fx apitest.Fixture) model.User { return fx.Admin })
	fail := apitest.Reply(http.StatusBadGateway, nil)
	srv.Intercept(http.MethodGet, "/dashboard/stats", fail)
	srv.Intercept(http.MethodGet, "/dashboard/notifications", fail)

	if _, err := agg.Load(context.Background()); gateway.Classify(err) != gateway.KindRejected {
		t.Fatalf("err = %v", err)
	}
	if n := len(rec.All()); n != 1 {
		t.Errorf("got %d notices", n)
	}
}

func TestAdminCards(t *testing.T) {
	agg, srv, _, _ := setup(t, func(fx apitest.Fixture) model.User { return fx.Admin })
	srv.AddResource(model.Resource{Name: "Ward bed", ResourceType: model.ResourceBed, TotalQuantity: 4, AvailableQuantity: 1, MinThreshold: 0})

	data, err := agg.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	cards := dashboard.Cards(model.RoleAdmin, data.Stats)
	byTitle := map[string]string{}
	for _, c := range cards {
		byTitle[c.Title] = c.Value
	}
	if byTitle["Bed Occupancy"] != "75.0%" {
		t.Errorf("occupancy card = %q", byTitle["Bed Occupancy"])
	}
	if byTitle["Total Resources"] != "1" {
		t.Errorf("resources card = %q", byTitle["Total Resources"])
	}
}

func TestCardsByRole(t *testing.T) {
	stats := model.DashboardStats{
		Appointments: model.AppointmentCounts{Total: 5, Completed: 2},
		Resources:    &model.ResourceSummary{TotalResources: 9, LowStockCount: 1},
		Occupancy:    &model.Occupancy{OccupancyRate: 50},
	}
	cases := []struct {
		role model.Role
		want int
	}{
		{model.RolePatient, 2},
		{model.RoleDoctor, 2},
		{model.RoleAdmin, 5},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			cards := dashboard.Cards(tc.role, stats)
			if len(cards) != tc.want {
				t.Errorf("got %d cards: %+v", len(cards), cards)
			}
			if cards[0].Value != "5" || cards[1].Value != "2" {
				t.Errorf("common cards = %+v", cards[:2])
			}
		})
	}

	// admin without resource figures gets the common cards only
	if n := len(dashboard.Cards(model.RoleAdmin, model.DashboardStats{})); n != 2 {
		t.Errorf("got %d cards", n)
	}
}

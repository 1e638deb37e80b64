package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"hospital-desk/internal/apitest"
	"hospital-desk/internal/gateway"
	"hospital-desk/internal/model"
	"hospital-desk/internal/nav"
	"hospital-desk/internal/tokenstore"
)

func setup(t *testing.T, token string) (*gateway.Client, *apitest.Server, *tokenstore.Memory, *nav.History) {
	t.Helper()
	srv := apitest.New(t)
	tokens := tokenstore.NewMemory(token)
	hist := &nav.History{}
	gw := gateway.New(gateway.Config{
		BaseURL:   srv.BaseURL(),
		Tokens:    tokens,
		Navigator: hist,
	})
	return gw, srv, tokens, hist
}

func TestBearerAndRequestID(t *testing.T) {
	gw, srv, tokens, _ := setup(t, "")
	fx := srv.Seed()
	tok := srv.Token(fx.Patient.ID)
	tokens.Save(context.Background(), tok)

	if _, err := gw.Me(context.Background()); err != nil {
		t.Fatalf("me: %v", err)
	}
	calls := srv.Calls(http.MethodGet, "/auth/me")
	if len(calls) != 1 {
		t.Fatalf("want 1 call, got %d", len(calls))
	}
	if calls[0].Auth != "Bearer "+tok {
		t.Errorf("auth header = %q", calls[0].Auth)
	}
	if calls[0].RequestID == "" {
		t.Error("missing request id")
	}
}

func TestNoTokenNoHeader(t *testing.T) {
	gw, srv, _, _ := setup(t, "")
	srv.Seed()

	if _, err := gw.Login(context.Background(), "patient@example.com", apitest.Password); err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := srv.Calls(http.MethodPost, "/auth/login")[0].Auth; got != "" {
		t.Errorf("expected no auth header, got %q", got)
	}
}

type fixedSource string

func (s fixedSource) Token() string { return string(s) }

func TestTokenSourceWins(t *testing.T) {
	gw, srv, _, _ := setup(t, "persisted")
	fx := srv.Seed()
	tok := srv.Token(fx.Doctor.ID)
	gw.SetTokenSource(fixedSource(tok))

	u, err := gw.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if u.ID != fx.Doctor.ID {
		t.Errorf("got user %d", u.ID)
	}
}

func TestUnauthorizedPolicy(t *testing.T) {
	gw, srv, tokens, hist := setup(t, "stale-token")
	srv.Seed()

	hooked := 0
	gw.OnUnauthorized(func() { hooked++ })

	_, err := gw.ListAppointments(context.Background(), gateway.ListParams{})
	if !errors.Is(err, gateway.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
	if gateway.Classify(err) != gateway.KindAuth {
		t.Errorf("classify = %v", gateway.Classify(err))
	}

	tok, _ := tokens.Load(context.Background())
	if tok != "" {
		t.Errorf("token not cleared: %q", tok)
	}
	if hooked != 1 {
		t.Errorf("hook ran %d times", hooked)
	}
	if hist.Current() != nav.Login {
		t.Errorf("navigated to %q", hist.Current())
	}
}

func TestUnauthorizedOnLogin(t *testing.T) {
	gw, srv, _, hist := setup(t, "")
	srv.Seed()

	_, err := gw.Login(context.Background(), "patient@example.com", "wrong")
	if gateway.MessageOr(err, "") != "Invalid email or password" {
		t.Errorf("message = %q", gateway.MessageOr(err, ""))
	}
	// the global policy runs on every 401, login included
	if hist.Current() != nav.Login {
		t.Errorf("navigated to %q", hist.Current())
	}
}

func TestAPIErrorMessage(t *testing.T) {
	gw, srv, tokens, hist := setup(t, "")
	fx := srv.Seed()
	tokens.Save(context.Background(), srv.Token(fx.Patient.ID))
	srv.Intercept(http.MethodPost, "/appointments",
		apitest.Reply(http.StatusBadRequest, map[string]string{"error": "Slot no longer available"}))

	_, err := gw.CreateAppointment(context.Background(), gateway.CreateAppointmentRequest{
		DoctorID: fx.Doctor.ID, AppointmentDate: "2024-02-10", AppointmentTime: "09:00",
	})
	var apiErr *gateway.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %T %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message != "Slot no longer available" {
		t.Errorf("got %d %q", apiErr.StatusCode, apiErr.Message)
	}
	if apiErr.RequestID == "" {
		t.Error("request id not carried on error")
	}
	if gateway.Classify(err) != gateway.KindRejected {
		t.Errorf("classify = %v", gateway.Classify(err))
	}
	if errors.Is(err, gateway.ErrUnauthorized) {
		t.Error("400 must not match ErrUnauthorized")
	}
	if len(hist.Routes()) != 0 {
		t.Errorf("unexpected navigation %v", hist.Routes())
	}
}

func TestMessageOr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"server message", &gateway.APIError{StatusCode: 400, Message: "nope"}, "nope"},
		{"empty message", &gateway.APIError{StatusCode: 500}, "fallback"},
		{"transport", errors.New("connection refused"), "fallback"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := gateway.MessageOr(tc.err, "fallback"); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	gw := gateway.New(gateway.Config{BaseURL: "http://127.0.0.1:1/api"})
	_, err := gw.Doctors(context.Background())
	if gateway.Classify(err) != gateway.KindTransport {
		t.Fatalf("classify = %v (%v)", gateway.Classify(err), err)
	}
}

func TestListQuery(t *testing.T) {
	gw, srv, tokens, _ := setup(t, "")
	fx := srv.Seed()
	tokens.Save(context.Background(), srv.Token(fx.Patient.ID))

	_, err := gw.ListAppointments(context.Background(), gateway.ListParams{
		Page:     2,
		PerPage:  10,
		Status:   model.StatusConfirmed,
		DateFrom: "2024-01-01",
		DateTo:   "2024-01-31",
	})
	if err != nil {
		t.Fatal(err)
	}
	q := srv.Calls(http.MethodGet, "/appointments")[0].Query
	want := map[string]string{
		"page": "2", "per_page": "10", "status": "confirmed",
		"date_from": "2024-01-01", "date_to": "2024-01-31",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestListQueryOmitsEmptyFilters(t *testing.T) {
	q := gateway.ListParams{}.Query()
	if len(q) != 2 || q["page"] != "1" || q["per_page"] != "10" {
		t.Errorf("got %v", q)
	}
}

func TestMeEnvelopes(t *testing.T) {
	gw, srv, tokens, _ := setup(t, "")
	fx := srv.Seed()
	tokens.Save(context.Background(), srv.Token(fx.Patient.ID))

	u, err := gw.Me(context.Background())
	if err != nil || u.Email != "patient@example.com" {
		t.Fatalf("wrapped: %v %+v", err, u)
	}

	srv.Intercept(http.MethodGet, "/auth/me",
		apitest.Reply(http.StatusOK, model.User{ID: 9, Email: "bare@example.com", Role: model.RoleAdmin}))
	u, err = gw.Me(context.Background())
	if err != nil || u.ID != 9 || u.Role != model.RoleAdmin {
		t.Fatalf("bare: %v %+v", err, u)
	}

	srv.Intercept(http.MethodGet, "/auth/me", apitest.Reply(http.StatusOK, map[string]any{}))
	if _, err := gw.Me(context.Background()); err == nil {
		t.Fatal("empty body should fail")
	}
}

func TestSlotsBothShapes(t *testing.T) {
	gw, srv, tokens, _ := setup(t, "")
	fx := srv.Seed()
	tokens.Save(context.Background(), srv.Token(fx.Patient.ID))
	srv.AddAppointment(model.Appointment{
		PatientID: fx.Patient.ID, DoctorID: fx.Doctor.ID,
		AppointmentDate: "2024-02-10", AppointmentTime: "09:00",
	})

	slots, err := gw.AvailableSlots(context.Background(), fx.Doctor.ID, "2024-02-10")
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != len(apitest.SlotTimes())-1 {
		t.Fatalf("got %d slots", len(slots))
	}
	if slots[0].Time != "09:30" || slots[0].DisplayTime != "9:30 AM" {
		t.Errorf("first slot = %+v", slots[0])
	}

	srv.Intercept(http.MethodGet, "/appointments/available-slots",
		apitest.Reply(http.StatusOK, map[string]any{"available_slots": []string{"14:00"}}))
	slots, err = gw.AvailableSlots(context.Background(), fx.Doctor.ID, "2024-02-10")
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 1 || slots[0].DisplayTime != "2:00 PM" {
		t.Errorf("bare slots = %+v", slots)
	}
}

func TestAppointmentLifecycle(t *testing.T) {
	gw, srv, tokens, _ := setup(t, "")
	fx := srv.Seed()
	ctx := context.Background()
	tokens.Save(ctx, srv.Token(fx.Patient.ID))

	created, err := gw.CreateAppointment(ctx, gateway.CreateAppointmentRequest{
		DoctorID: fx.Doctor.ID, AppointmentDate: "2024-03-01", AppointmentTime: "10:00", Reason: "checkup",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("no id in create response")
	}

	tokens.Save(ctx, srv.Token(fx.Doctor.ID))
	updated, err := gw.UpdateAppointmentStatus(ctx, created.ID, model.StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != model.StatusConfirmed {
		t.Errorf("status = %s", updated.Status)
	}

	// confirmed -> scheduled is not an edge
	if _, err := gw.UpdateAppointmentStatus(ctx, created.ID, model.StatusScheduled); gateway.Classify(err) != gateway.KindRejected {
		t.Errorf("backwards transition: %v", err)
	}

	if err := gw.CancelAppointment(ctx, created.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err := gw.GetAppointment(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusCancelled {
		t.Errorf("status = %s", got.Status)
	}
}

func TestAdminEndpoints(t *testing.T) {
	gw, srv, tokens, _ := setup(t, "")
	fx := srv.Seed()
	ctx := context.Background()
	srv.AddResource(model.Resource{Name: "Ward A bed", ResourceType: model.ResourceBed, TotalQuantity: 10, AvailableQuantity: 4, MinThreshold: 2})
	srv.AddResource(model.Resource{Name: "Saline", ResourceType: model.ResourceMedicine, TotalQuantity: 50, AvailableQuantity: 3, MinThreshold: 5})

	tokens.Save(ctx, srv.Token(fx.Patient.ID))
	if _, err := gw.ListResources(ctx, gateway.ResourceParams{}); gateway.Classify(err) != gateway.KindRejected {
		t.Fatalf("patient listing resources: %v", err)
	}

	tokens.Save(ctx, srv.Token(fx.Admin.ID))
	page, err := gw.ListResources(ctx, gateway.ResourceParams{Type: model.ResourceMedicine})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Resources) != 1 || page.Resources[0].Name != "Saline" {
		t.Errorf("resources = %+v", page.Resources)
	}

	alerts, err := gw.ResourceAlerts(ctx)
	if err != nil || len(alerts) != 1 || alerts[0].Type != "low_stock" {
		t.Errorf("alerts = %+v, %v", alerts, err)
	}

	users, err := gw.ListUsers(ctx, gateway.UserParams{Role: model.RoleDoctor})
	if err != nil || len(users.Users) != 1 {
		t.Fatalf("users = %+v, %v", users, err)
	}
	if err := gw.DeactivateUser(ctx, fx.Doctor.ID); err != nil {
		t.Fatal(err)
	}
	docs, err := gw.Doctors(ctx)
	if err != nil || len(docs) != 0 {
		t.Errorf("deactivated doctor still listed: %+v %v", docs, err)
	}

	stats, err := gw.DashboardStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Occupancy == nil || stats.Occupancy.OccupiedBeds != 6 {
		t.Errorf("occupancy = %+v", stats.Occupancy)
	}
}

// Package booking drives the book-an-appointment form: pick a doctor and a
// date, get that pair's free slots, pick one, submit.
//
// Every doctor or date change is computed against the full next form before
// any slot fetch is issued, and every fetch is tagged with the pair it was
// issued for. A result whose tag no longer matches the form is dropped, so a
// slow answer for an old selection can never overwrite a newer one.
package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"hospital-desk/internal/gateway"
	"hospital-desk/internal/model"
	"hospital-desk/internal/nav"
	"hospital-desk/internal/notify"
)

var (
	ErrIncomplete     = errors.New("booking: doctor, date and time are required")
	ErrUnknownSlot    = errors.New("booking: time is not an available slot")
	ErrSubmitInFlight = errors.New("booking: submit already in progress")
)

const (
	msgBookFailed    = "Failed to book appointment"
	msgSlotsFailed   = "Failed to load available slots"
	msgDoctorsFailed = "Failed to load doctors"
)

type Backend interface {
	Doctors(ctx context.Context) ([]model.Doctor, error)
	AvailableSlots(ctx context.Context, doctorID int64, date string) ([]model.Slot, error)
	CreateAppointment(ctx context.Context, req gateway.CreateAppointmentRequest) (*model.Appointment, error)
}

type Form struct {
	DoctorID int64
	Date     string
	Time     string
	Reason   string
	Notes    string
}

func (f Form) Ready() bool {
	return f.DoctorID != 0 && f.Date != "" && f.Time != ""
}

type pair struct {
	doctor int64
	date   string
}

func (p pair) complete() bool { return p.doctor != 0 && p.date != "" }

func (f Form) pair() pair { return pair{f.DoctorID, f.Date} }

// State is a snapshot of the view.
type State struct {
	Form         Form
	Doctors      []model.Doctor
	Slots        []model.Slot
	LoadingSlots bool
	Submitting   bool
}

// CanSubmit is true only when every required field is set and no submit is
// already running.
func (s State) CanSubmit() bool {
	return s.Form.Ready() && !s.Submitting
}

type Workflow struct {
	gw     Backend
	notify notify.Notifier
	nav    nav.Navigator
	dir    *Directory
	log    *zap.Logger

	mu         sync.Mutex
	form       Form
	doctors    []model.Doctor
	slots      []model.Slot
	loading    bool
	submitting bool
	gen        uint64

	wg sync.WaitGroup
}

func New(gw Backend, n notify.Notifier, to nav.Navigator, dir *Directory, log *zap.Logger) *Workflow {
	if log == nil {
		log = zap.NewNop()
	}
	if dir == nil {
		dir = NewDirectory(0, 0)
	}
	return &Workflow{gw: gw, notify: n, nav: to, dir: dir, log: log.Named("booking")}
}

func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Form:         w.form,
		Doctors:      slices.Clone(w.doctors),
		Slots:        slices.Clone(w.slots),
		LoadingSlots: w.loading,
		Submitting:   w.submitting,
	}
}

func (w *Workflow) CanSubmit() bool { return w.Snapshot().CanSubmit() }

// LoadDoctors fetches the doctor list once per workflow.
func (w *Workflow) LoadDoctors(ctx context.Context) error {
	w.mu.Lock()
	loaded := w.doctors != nil
	w.mu.Unlock()
	if loaded {
		return nil
	}

	docs, err := w.gw.Doctors(ctx)
	if err != nil {
		w.log.Warn("load doctors", zap.Error(err))
		notify.Error(w.notify, msgDoctorsFailed)
		return fmt.Errorf("load doctors: %w", err)
	}
	if docs == nil {
		docs = []model.Doctor{}
	}
	w.dir.Put(docs...)

	w.mu.Lock()
	w.doctors = docs
	w.mu.Unlock()
	return nil
}

// SelectedDoctor looks the chosen doctor up in the directory.
func (w *Workflow) SelectedDoctor() (model.Doctor, bool) {
	w.mu.Lock()
	id := w.form.DoctorID
	w.mu.Unlock()
	if id == 0 {
		return model.Doctor{}, false
	}
	return w.dir.Get(id)
}

// Change applies fn to a copy of the form and installs the result. When the
// (doctor, date) pair changed, the chosen time and the slot list are cleared
// and, if both halves are set, a slot fetch for the new pair is started.
func (w *Workflow) Change(ctx context.Context, fn func(*Form)) {
	w.mu.Lock()
	prev := w.form.pair()
	next := w.form
	fn(&next)
	cur := next.pair()

	fetch := false
	var gen uint64
	if cur != prev {
		next.Time = ""
		w.slots = nil
		w.loading = false
		if cur.complete() {
			fetch = true
			w.loading = true
			w.gen++
			gen = w.gen
			w.wg.Add(1)
		}
	}
	w.form = next
	w.mu.Unlock()

	if fetch {
		go w.fetchSlots(ctx, cur, gen)
	}
}

func (w *Workflow) SelectDoctor(ctx context.Context, id int64) {
	w.Change(ctx, func(f *Form) { f.DoctorID = id })
}

func (w *Workflow) SelectDate(ctx context.Context, date string) {
	w.Change(ctx, func(f *Form) { f.Date = date })
}

func (w *Workflow) SetReason(reason string) {
	w.Change(context.Background(), func(f *Form) { f.Reason = reason })
}

func (w *Workflow) SetNotes(notes string) {
	w.Change(context.Background(), func(f *Form) { f.Notes = notes })
}

func (w *Workflow) fetchSlots(ctx context.Context, tag pair, gen uint64) {
	defer w.wg.Done()

	slots, err := w.gw.AvailableSlots(ctx, tag.doctor, tag.date)

	w.mu.Lock()
	// A -> B -> A issues two fetches for A; only the latest counts
	if gen != w.gen || w.form.pair() != tag {
		w.mu.Unlock()
		w.log.Debug("discarding stale slots",
			zap.Int64("doctor_id", tag.doctor),
			zap.String("date", tag.date),
		)
		return
	}
	w.loading = false
	if err == nil {
		w.slots = slots
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("load slots",
			zap.Int64("doctor_id", tag.doctor),
			zap.String("date", tag.date),
			zap.Error(err),
		)
		notify.Error(w.notify, msgSlotsFailed)
	}
}

// Wait blocks until every slot fetch started so far has settled.
func (w *Workflow) Wait() { w.wg.Wait() }

// SelectSlot sets the time. Only times in the current slot list are accepted.
func (w *Workflow) SelectSlot(t string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.slots {
		if s.Time == t {
			w.form.Time = t
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownSlot, t)
}

// Submit books the form. On failure every field is kept and the user is told
// why; on success the user is sent to the appointment list.
func (w *Workflow) Submit(ctx context.Context) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInFlight
	}
	if !w.form.Ready() {
		w.mu.Unlock()
		return ErrIncomplete
	}
	w.submitting = true
	f := w.form
	w.mu.Unlock()

	appt, err := w.gw.CreateAppointment(ctx, gateway.CreateAppointmentRequest{
		DoctorID:        f.DoctorID,
		AppointmentDate: f.Date,
		AppointmentTime: f.Time,
		Reason:          f.Reason,
		Notes:           f.Notes,
	})

	w.mu.Lock()
	w.submitting = false
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("book appointment", zap.Int64("doctor_id", f.DoctorID), zap.Error(err))
		notify.Error(w.notify, gateway.MessageOr(err, msgBookFailed))
		return err
	}

	w.log.Info("appointment booked", zap.Int64("appointment_id", appt.ID))
	notify.Success(w.notify, "Appointment booked successfully")
	w.nav.Navigate(nav.Appointments)
	return nil
}

// Package listing is the paginated, filterable appointment list with the
// per-row status actions a role is offered.
package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hospital-desk/internal/gateway"
	"hospital-desk/internal/model"
	"hospital-desk/internal/notify"
)

var ErrActionNotAllowed = errors.New("listing: action not allowed")

const (
	msgLoadFailed   = "Failed to load appointments"
	msgUpdateFailed = "Failed to update appointment status"
	msgCancelFailed = "Failed to cancel appointment"

	CancelPrompt = "Are you sure you want to cancel this appointment?"
)

type Backend interface {
	ListAppointments(ctx context.Context, p gateway.ListParams) (*gateway.AppointmentPage, error)
	UpdateAppointmentStatus(ctx context.Context, id int64, status model.Status) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, id int64) error
}

type RoleSource interface {
	Role() model.Role
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

type Filter struct {
	Status   model.Status
	DateFrom string
	DateTo   string
}

// Page is what the list currently shows.
type Page struct {
	Rows       []model.Appointment
	Filter     Filter
	Page       int
	TotalPages int
	Total      int
	Loading    bool
}

func (p Page) HasPrev() bool { return p.Page > 1 }
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

type View struct {
	gw      Backend
	roles   RoleSource
	confirm Confirmer
	notify  notify.Notifier
	log     *zap.Logger

	mu         sync.Mutex
	filter     Filter
	page       int
	totalPages int
	total      int
	rows       []model.Appointment
	loading    bool
	seq        uint64
}

func New(gw Backend, roles RoleSource, confirm Confirmer, n notify.Notifier, log *zap.Logger) *View {
	if log == nil {
		log = zap.NewNop()
	}
	return &View{
		gw:         gw,
		roles:      roles,
		confirm:    confirm,
		notify:     n,
		log:        log.Named("listing"),
		page:       1,
		totalPages: 1,
	}
}

func (v *View) Snapshot() Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Page{
		Rows:       append([]model.Appointment(nil), v.rows...),
		Filter:     v.filter,
		Page:       v.page,
		TotalPages: v.totalPages,
		Total:      v.total,
		Loading:    v.loading,
	}
}

// Load fetches the current page with the current filter. When loads overlap
// only the most recently started one is applied.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.seq++
	seq := v.seq
	params := gateway.ListParams{
		Page:     v.page,
		PerPage:  gateway.PageSize,
		Status:   v.filter.Status,
		DateFrom: v.filter.DateFrom,
		DateTo:   v.filter.DateTo,
	}
	v.loading = true
	v.mu.Unlock()

	res, err := v.gw.ListAppointments(ctx, params)

	v.mu.Lock()
	if seq != v.seq {
		v.mu.Unlock()
		return err
	}
	v.loading = false
	if err == nil {
		v.rows = res.Appointments
		v.total = res.Total
		v.totalPages = max(res.Pages, 1)
	}
	v.mu.Unlock()

	if err != nil {
		v.log.Warn("load appointments", zap.Int("page", params.Page), zap.Error(err))
		notify.Error(v.notify, msgLoadFailed)
		return fmt.Errorf("load appointments: %w", err)
	}
	return nil
}

// SetFilter replaces the filter, goes back to page 1 and reloads.
func (v *View) SetFilter(ctx context.Context, f Filter) error {
	v.mu.Lock()
	v.filter = f
	v.page = 1
	v.mu.Unlock()
	return v.Load(ctx)
}

func (v *View) update(ctx context.Context, fn func(*Filter)) error {
	v.mu.Lock()
	f := v.filter
	v.mu.Unlock()
	fn(&f)
	return v.SetFilter(ctx, f)
}

func (v *View) SetStatus(ctx context.Context, s model.Status) error {
	return v.update(ctx, func(f *Filter) { f.Status = s })
}

func (v *View) SetDateFrom(ctx context.Context, d string) error {
	return v.update(ctx, func(f *Filter) { f.DateFrom = d })
}

func (v *View) SetDateTo(ctx context.Context, d string) error {
	return v.update(ctx, func(f *Filter) { f.DateTo = d })
}

func (v *View) ClearFilters(ctx context.Context) error {
	return v.SetFilter(ctx, Filter{})
}

// NextPage is a no-op on the last known page.
func (v *View) NextPage(ctx context.Context) error {
	v.mu.Lock()
	if v.page >= v.totalPages {
		v.mu.Unlock()
		return nil
	}
	v.page++
	v.mu.Unlock()
	return v.Load(ctx)
}

// PrevPage is a no-op on page 1.
func (v *View) PrevPage(ctx context.Context) error {
	v.mu.Lock()
	if v.page <= 1 {
		v.mu.Unlock()
		return nil
	}
	v.page--
	v.mu.Unlock()
	return v.Load(ctx)
}

// Actions lists what the current role may do with row.
func (v *View) Actions(row model.Appointment) []model.Action {
	return model.ActionsFor(v.roles.Role(), row.Status)
}

func (v *View) row(id int64) (model.Appointment, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, a := range v.rows {
		if a.ID == id {
			return a, true
		}
	}
	return model.Appointment{}, false
}

func (v *View) Confirm(ctx context.Context, id int64) error {
	return v.Apply(ctx, id, model.ActionConfirm)
}

func (v *View) Complete(ctx context.Context, id int64) error {
	return v.Apply(ctx, id, model.ActionComplete)
}

func (v *View) Cancel(ctx context.Context, id int64) error {
	return v.Apply(ctx, id, model.ActionCancel)
}

// Apply runs action against a row on the current page, then reloads. A
// declined cancel confirmation sends nothing and returns nil.
func (v *View) Apply(ctx context.Context, id int64, action model.Action) error {
	row, ok := v.row(id)
	if !ok || !model.Allowed(v.roles.Role(), row.Status, action) {
		return fmt.Errorf("%w: %s on appointment %d", ErrActionNotAllowed, action, id)
	}

	var err error
	if action == model.ActionCancel {
		if !v.confirm.Confirm(CancelPrompt) {
			return nil
		}
		err = v.gw.CancelAppointment(ctx, id)
	} else {
		_, err = v.gw.UpdateAppointmentStatus(ctx, id, action.Target())
	}

	if err != nil {
		v.log.Warn("appointment action failed",
			zap.Int64("appointment_id", id),
			zap.String("action", string(action)),
			zap.Error(err),
		)
		if action == model.ActionCancel {
			notify.Error(v.notify, msgCancelFailed)
		} else {
			notify.Error(v.notify, msgUpdateFailed)
		}
		return err
	}

	if action == model.ActionCancel {
		notify.Success(v.notify, "Appointment cancelled successfully")
	} else {
		notify.Success(v.notify, "Appointment "+string(action.Target()))
	}
	return v.Load(ctx)
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"hospital-desk/internal/auth"
	"hospital-desk/internal/booking"
	"hospital-desk/internal/dashboard"
	"hospital-desk/internal/gateway"
	"hospital-desk/internal/listing"
	"hospital-desk/internal/model"
	"hospital-desk/internal/nav"
	"hospital-desk/internal/notify"
)

var commands = map[string]command{
	"login":        {usage: "-email EMAIL -password PASSWORD", run: cmdLogin},
	"register":     {usage: "-email EMAIL -password PASSWORD -first NAME -last NAME [-role patient|doctor|admin]", run: cmdRegister},
	"logout":       {usage: "", run: cmdLogout},
	"whoami":       {usage: "", auth: true, run: cmdWhoami},
	"appointments": {usage: "[-page N] [-status S] [-from DATE] [-to DATE]", auth: true, run: cmdAppointments},
	"confirm":      {usage: "ID", auth: true, run: action(model.ActionConfirm)},
	"complete":     {usage: "ID", auth: true, run: action(model.ActionComplete)},
	"cancel":       {usage: "[-yes] ID", auth: true, run: action(model.ActionCancel)},
	"doctors":      {usage: "", auth: true, run: cmdDoctors},
	"slots":        {usage: "-doctor ID -date YYYY-MM-DD", auth: true, run: cmdSlots},
	"book":         {usage: "-doctor ID -date YYYY-MM-DD -time HH:MM [-reason TEXT] [-notes TEXT]", auth: true, run: cmdBook},
	"dashboard":    {usage: "", auth: true, run: cmdDashboard},
	"resources":    {usage: "[-type bed|medicine|equipment] [-page N]", auth: true, run: cmdResources},
	"alerts":       {usage: "", auth: true, run: cmdAlerts},
	"users":        {usage: "[-role R] [-search TEXT] [-page N]", auth: true, run: cmdUsers},
	"activate":     {usage: "ID", auth: true, run: setActive(true)},
	"deactivate":   {usage: "ID", auth: true, run: setActive(false)},
}

func flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func idArg(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id < 1 {
		return 0, errUsage
	}
	return id, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func cmdLogin(a *app, ctx context.Context, args []string) error {
	fs := flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if err := a.sess.Login(ctx, *email, *password); err != nil {
		notify.Error(a.notices, gateway.MessageOr(err, "Login failed"))
		return err
	}
	u := a.sess.User()
	fmt.Fprintf(a.out, "logged in as %s (%s)\n", u.FullName(), u.Role)
	return nil
}

func cmdRegister(a *app, ctx context.Context, args []string) error {
	fs := flags("register")
	var p model.RegisterProfile
	role := fs.String("role", string(model.RolePatient), "patient, doctor or admin")
	fs.StringVar(&p.Email, "email", "", "")
	fs.StringVar(&p.Password, "password", "", "")
	fs.StringVar(&p.FirstName, "first", "", "")
	fs.StringVar(&p.LastName, "last", "", "")
	fs.StringVar(&p.Phone, "phone", "", "")
	fs.StringVar(&p.Specialty, "specialty", "", "doctors only")
	fs.StringVar(&p.LicenseNumber, "license", "", "doctors only")
	fs.IntVar(&p.ExperienceYears, "experience", 0, "doctors only")
	fs.StringVar(&p.DateOfBirth, "dob", "", "patients only")
	fs.StringVar(&p.Gender, "gender", "", "patients only")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	p.Role = model.Role(*role)

	if err := a.sess.Register(ctx, p); err != nil {
		notify.Error(a.notices, gateway.MessageOr(err, "Registration failed"))
		return err
	}
	fmt.Fprintf(a.out, "registered %s\n", p.Email)
	return nil
}

func cmdLogout(a *app, ctx context.Context, _ []string) error {
	// restore so the server sees the token being retired
	a.sess.Restore(ctx)
	a.sess.Logout(ctx)
	fmt.Fprintln(a.out, "logged out")
	return nil
}

func cmdWhoami(a *app, _ context.Context, _ []string) error {
	u := a.sess.User()
	fmt.Fprintf(a.out, "%s <%s>\nrole: %s\n", u.FullName(), u.Email, u.Role)
	if c, err := auth.Peek(a.sess.Token()); err == nil && !c.Expiry().IsZero() {
		fmt.Fprintf(a.out, "token expires: %s\n", c.Expiry().Local().Format(time.RFC1123))
	}
	return nil
}

func (a *app) listView() *listing.View {
	return listing.New(a.gw, a.sess, listing.ConfirmFunc(a.confirm), a.notices, a.log)
}

func cmdAppointments(a *app, ctx context.Context, args []string) error {
	fs := flags("appointments")
	page := fs.Int("page", 1, "")
	var f listing.Filter
	status := fs.String("status", "", "")
	fs.StringVar(&f.DateFrom, "from", "", "")
	fs.StringVar(&f.DateTo, "to", "", "")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	f.Status = model.Status(*status)
	if f.Status != "" && !f.Status.Valid() {
		return errUsage
	}

	v := a.listView()
	if err := v.SetFilter(ctx, f); err != nil {
		return err
	}
	for v.Snapshot().Page < *page && v.Snapshot().HasNext() {
		if err := v.NextPage(ctx); err != nil {
			return err
		}
	}

	p := v.Snapshot()
	role := a.sess.Role()
	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tWITH\tSTATUS\tACTIONS")
	for _, row := range p.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%v\n",
			row.ID, row.AppointmentDate, row.AppointmentTime, row.Counterpart(role), row.Status, v.Actions(row))
	}
	tw.Flush()
	fmt.Fprintf(a.out, "page %d of %d (%d total)\n", p.Page, p.TotalPages, p.Total)
	return nil
}

// action applies a row action. The row has to be on some page of the
// unfiltered list, which is walked until it turns up.
func action(act model.Action) func(*app, context.Context, []string) error {
	return func(a *app, ctx context.Context, args []string) error {
		fs := flags(string(act))
		yes := fs.Bool("yes", false, "skip the confirmation prompt")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		id, err := idArg(fs)
		if err != nil {
			return err
		}

		confirm := listing.ConfirmFunc(a.confirm)
		if *yes {
			confirm = func(string) bool { return true }
		}
		v := listing.New(a.gw, a.sess, confirm, a.notices, a.log)
		if err := v.Load(ctx); err != nil {
			return err
		}
		for !onPage(v.Snapshot(), id) && v.Snapshot().HasNext() {
			if err := v.NextPage(ctx); err != nil {
				return err
			}
		}
		return v.Apply(ctx, id, act)
	}
}

func onPage(p listing.Page, id int64) bool {
	for _, r := range p.Rows {
		if r.ID == id {
			return true
		}
	}
	return false
}

func (a *app) workflow() *booking.Workflow {
	return booking.New(a.gw, a.notices, nav.Func(a.navigate), a.dir, a.log)
}

func cmdDoctors(a *app, ctx context.Context, _ []string) error {
	wf := a.workflow()
	if err := wf.LoadDoctors(ctx); err != nil {
		return err
	}
	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tNAME\tSPECIALTY\tYEARS")
	for _, d := range wf.Snapshot().Doctors {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", d.ID, d.DisplayName(), d.Specialty, d.ExperienceYears)
	}
	return tw.Flush()
}

type bookFlags struct {
	doctor int64
	date   string
	time   string
	reason string
	notes  string
}

func parseBook(name string, args []string, withTime bool) (bookFlags, error) {
	var b bookFlags
	fs := flags(name)
	fs.Int64Var(&b.doctor, "doctor", 0, "")
	fs.StringVar(&b.date, "date", "", "")
	if withTime {
		fs.StringVar(&b.time, "time", "", "")
		fs.StringVar(&b.reason, "reason", "", "")
		fs.StringVar(&b.notes, "notes", "", "")
	}
	if err := fs.Parse(args); err != nil || b.doctor < 1 || b.date == "" {
		return b, errUsage
	}
	if _, err := time.Parse("2006-01-02", b.date); err != nil {
		return b, errUsage
	}
	return b, nil
}

func (a *app) slotsFor(ctx context.Context, b bookFlags) (*booking.Workflow, error) {
	wf := a.workflow()
	if err := wf.LoadDoctors(ctx); err != nil {
		return nil, err
	}
	wf.SelectDoctor(ctx, b.doctor)
	wf.SelectDate(ctx, b.date)
	wf.Wait()
	return wf, nil
}

func cmdSlots(a *app, ctx context.Context, args []string) error {
	b, err := parseBook("slots", args, false)
	if err != nil {
		return err
	}
	wf, err := a.slotsFor(ctx, b)
	if err != nil {
		return err
	}
	if doc, ok := wf.SelectedDoctor(); ok {
		fmt.Fprintf(a.out, "%s, %s\n", doc.DisplayName(), b.date)
	}
	slots := wf.Snapshot().Slots
	if len(slots) == 0 {
		fmt.Fprintln(a.out, "no available slots")
		return nil
	}
	for _, s := range slots {
		fmt.Fprintf(a.out, "  %s  (%s)\n", s.Time, s.DisplayTime)
	}
	return nil
}

func cmdBook(a *app, ctx context.Context, args []string) error {
	b, err := parseBook("book", args, true)
	if err != nil || b.time == "" {
		return errUsage
	}
	wf, err := a.slotsFor(ctx, b)
	if err != nil {
		return err
	}
	if err := wf.SelectSlot(b.time); err != nil {
		return err
	}
	wf.SetReason(b.reason)
	wf.SetNotes(b.notes)
	return wf.Submit(ctx)
}

func cmdDashboard(a *app, ctx context.Context, _ []string) error {
	data, err := dashboard.New(a.gw, a.notices, a.log).Load(ctx)
	if err != nil {
		return err
	}
	tw := table(a.out)
	for _, c := range dashboard.Cards(a.sess.Role(), data.Stats) {
		fmt.Fprintf(tw, "%s\t%s\n", c.Title, c.Value)
	}
	tw.Flush()

	role := a.sess.Role()
	if up := data.Stats.UpcomingAppointments; len(up) > 0 {
		fmt.Fprintln(a.out, "\nupcoming:")
		for _, ap := range up {
			fmt.Fprintf(a.out, "  %s %s  %s\n", ap.AppointmentDate, ap.AppointmentTime, ap.Counterpart(role))
		}
	}
	if len(data.Notifications) > 0 {
		fmt.Fprintln(a.out, "\nnotifications:")
		for _, n := range data.Notifications {
			fmt.Fprintf(a.out, "  [%s] %s: %s\n", n.Priority, n.Title, n.Message)
		}
	}
	return nil
}

func cmdResources(a *app, ctx context.Context, args []string) error {
	fs := flags("resources")
	typ := fs.String("type", "", "")
	page := fs.Int("page", 1, "")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	res, err := a.gw.ListResources(ctx, gateway.ResourceParams{Page: *page, Type: model.ResourceType(*typ)})
	if err != nil {
		notify.Error(a.notices, gateway.MessageOr(err, "Failed to load resources"))
		return err
	}
	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tAVAILABLE\tTOTAL\tLOW")
	for _, r := range res.Resources {
		low := ""
		if r.LowStock() {
			low = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n", r.ID, r.Name, r.ResourceType, r.AvailableQuantity, r.TotalQuantity, low)
	}
	tw.Flush()
	fmt.Fprintf(a.out, "page %d of %d\n", *page, max(res.Pages, 1))
	return nil
}

func cmdAlerts(a *app, ctx context.Context, _ []string) error {
	alerts, err := a.gw.ResourceAlerts(ctx)
	if err != nil {
		notify.Error(a.notices, gateway.MessageOr(err, "Failed to load alerts"))
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(a.out, "no alerts")
	}
	for _, al := range alerts {
		fmt.Fprintf(a.out, "[%s] %s: %s\n", al.Priority, al.ResourceName, al.Type)
	}
	return nil
}

func cmdUsers(a *app, ctx context.Context, args []string) error {
	fs := flags("users")
	var p gateway.UserParams
	role := fs.String("role", "", "")
	fs.StringVar(&p.Search, "search", "", "")
	fs.IntVar(&p.Page, "page", 1, "")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	p.Role = model.Role(*role)

	res, err := a.gw.ListUsers(ctx, p)
	if err != nil {
		notify.Error(a.notices, gateway.MessageOr(err, "Failed to load users"))
		return err
	}
	tw := table(a.out)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tACTIVE")
	for _, u := range res.Users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", u.ID, u.FullName(), u.Email, u.Role, u.IsActive)
	}
	tw.Flush()
	fmt.Fprintf(a.out, "page %d of %d (%d total)\n", p.Page, max(res.Pages, 1), res.Total)
	return nil
}

func setActive(active bool) func(*app, context.Context, []string) error {
	return func(a *app, ctx context.Context, args []string) error {
		fs := flags("activate")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		id, err := idArg(fs)
		if err != nil {
			return err
		}
		if active {
			err = a.gw.ActivateUser(ctx, id)
		} else {
			err = a.gw.DeactivateUser(ctx, id)
		}
		if err != nil {
			notify.Error(a.notices, gateway.MessageOr(err, "Failed to update user"))
			return err
		}
		notify.Success(a.notices, "User updated")
		return nil
	}
}

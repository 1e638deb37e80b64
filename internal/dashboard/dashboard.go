// Package dashboard loads the landing page: appointment stats, notifications
// and, for admins, resource and bed occupancy figures.
package dashboard

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hospital-desk/internal/model"
	"hospital-desk/internal/notify"
)

const msgLoadFailed = "Failed to load dashboard data"

type Backend interface {
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
	Notifications(ctx context.Context) ([]model.Notification, error)
}

type Data struct {
	Stats         model.DashboardStats
	Notifications []model.Notification
}

type Card struct {
	Title string
	Value string
}

type Aggregator struct {
	gw     Backend
	notify notify.Notifier
	log    *zap.Logger
}

func New(gw Backend, n notify.Notifier, log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{gw: gw, notify: n, log: log.Named("dashboard")}
}

// Load fetches stats and notifications together. If either fails the whole
// dashboard fails and the user is told once.
func (a *Aggregator) Load(ctx context.Context) (*Data, error) {
	var (
		stats  *model.DashboardStats
		notifs []model.Notification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = a.gw.DashboardStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		notifs, err = a.gw.Notifications(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		a.log.Warn("load dashboard", zap.Error(err))
		notify.Error(a.notify, msgLoadFailed)
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return &Data{Stats: *stats, Notifications: notifs}, nil
}

// Cards are the stat tiles for role. Resource and occupancy tiles are only
// shown to admins, and only when the backend sent those figures.
func Cards(role model.Role, s model.DashboardStats) []Card {
	cards := []Card{
		{Title: "Total Appointments", Value: strconv.Itoa(s.Appointments.Total)},
		{Title: "Completed", Value: strconv.Itoa(s.Appointments.Completed)},
	}
	if role != model.RoleAdmin {
		return cards
	}
	if s.Resources != nil {
		cards = append(cards,
			Card{Title: "Total Resources", Value: strconv.Itoa(s.Resources.TotalResources)},
			Card{Title: "Low Stock Items", Value: strconv.Itoa(s.Resources.LowStockCount)},
		)
	}
	if s.Occupancy != nil {
		cards = append(cards, Card{
			Title: "Bed Occupancy",
			Value: fmt.Sprintf("%.1f%%", s.Occupancy.OccupancyRate),
		})
	}
	return cards
}

package gateway

import (
	"context"
	"net/http"
	"strconv"

	"hospital-desk/internal/model"
)

type ResourceParams struct {
	Page    int
	PerPage int
	Type    model.ResourceType
}

type ResourcePage struct {
	Resources []model.Resource `json:"resources"`
	Pages     int              `json:"pages"`
	Total     int              `json:"total"`
}

func (c *Client) ListResources(ctx context.Context, p ResourceParams) (*ResourcePage, error) {
	q := pageQuery(p.Page, p.PerPage)
	if p.Type != "" {
		q["type"] = string(p.Type)
	}
	out := &ResourcePage{}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/resources", query: q, out: out}); err != nil {
		return nil, err
	}
	return out, nil
}

type alertsResponse struct {
	Alerts []model.ResourceAlert `json:"alerts"`
}

func (c *Client) ResourceAlerts(ctx context.Context) ([]model.ResourceAlert, error) {
	out := &alertsResponse{}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/resources/alerts", out: out}); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

type UserParams struct {
	Page    int
	PerPage int
	Role    model.Role
	Search  string
}

type UserPage struct {
	Users []model.User `json:"users"`
	Pages int          `json:"pages"`
	Total int          `json:"total"`
}

func (c *Client) ListUsers(ctx context.Context, p UserParams) (*UserPage, error) {
	q := pageQuery(p.Page, p.PerPage)
	if p.Role != "" {
		q["role"] = string(p.Role)
	}
	if p.Search != "" {
		q["search"] = p.Search
	}
	out := &UserPage{}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/users", query: q, out: out}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ActivateUser(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/users/" + strconv.FormatInt(id, 10) + "/activate"})
}

func (c *Client) DeactivateUser(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/users/" + strconv.FormatInt(id, 10) + "/deactivate"})
}

type statsResponse struct {
	Stats model.DashboardStats `json:"stats"`
}

func (c *Client) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	out := &statsResponse{}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/dashboard/stats", out: out}); err != nil {
		return nil, err
	}
	return &out.Stats, nil
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	out := &notificationsResponse{}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/dashboard/notifications", out: out}); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

func pageQuery(page, per int) map[string]string {
	if page < 1 {
		page = 1
	}
	if per < 1 {
		per = PageSize
	}
	return map[string]string{"page": strconv.Itoa(page), "per_page": strconv.Itoa(per)}
}

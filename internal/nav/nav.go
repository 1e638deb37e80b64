package nav

import "sync"

type Route string

const (
	Login        Route = "/login"
	Dashboard    Route = "/dashboard"
	Appointments Route = "/appointments"
	Book         Route = "/appointments/book"
)

type Navigator interface {
	Navigate(to Route)
}

type Func func(Route)

func (f Func) Navigate(to Route) { f(to) }

// History records navigations in order.
type History struct {
	mu     sync.Mutex
	routes []Route
}

func (h *History) Navigate(to Route) {
	h.mu.Lock()
	h.routes = append(h.routes, to)
	h.mu.Unlock()
}

func (h *History) Routes() []Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Route(nil), h.routes...)
}

func (h *History) Current() Route {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.routes) == 0 {
		return ""
	}
	return h.routes[len(h.routes)-1]
}

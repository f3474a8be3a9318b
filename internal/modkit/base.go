package modkit

import (
	"net/http"

	"repertoire/internal/modkit/httpkit"
	str "repertoire/internal/platform/strings"
)

// Base is the routing half of an API module. Modules embed it and add
// Ports; routes are the module's own handlers, mounted before any extra
// registrations passed through WithRegister
type Base struct {
	b      Built
	routes func(httpkit.Router)
}

// NewBase keeps the result of Build for the module
func NewBase(b Built, routes func(httpkit.Router)) *Base {
	if routes == nil {
		routes = func(httpkit.Router) {}
	}
	return &Base{b: b, routes: routes}
}

func (m *Base) Name() string   { return str.MustString(m.b.Name, "module name") }
func (m *Base) Prefix() string { return str.MustPrefix(m.b.Prefix) }

func (m *Base) Middlewares() []func(http.Handler) http.Handler { return m.b.Mw }

// MountRoutes mounts the module under its prefix with its own middleware
func (m *Base) MountRoutes(r httpkit.Router) {
	httpkit.MountUnder(r, m.Prefix(), m.b.Mw, func(sub httpkit.Router) {
		sub = m.b.Subrouter(sub)
		m.routes(sub)
		m.b.Register(sub)
	})
}

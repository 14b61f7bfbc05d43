// Package provision brings network connectivity up before anything else runs.
package provision

import "context"

// Service joins a network, opening a configuration portal when it has to.
// AutoConnect blocks until connected or the service gives up, calling
// onPortalStarted with the portal network name and its address if a portal
// is opened.
type Service interface {
	AutoConnect(ctx context.Context, onPortalStarted func(name, addr string)) bool
}

// Reporter is where progress lines go.
type Reporter interface {
	Report(msg string)
}

// Controller runs a Service once and reports each step.
type Controller struct {
	svc Service
	rep Reporter
}

func NewController(svc Service, rep Reporter) *Controller {
	return &Controller{svc: svc, rep: rep}
}

// Run reports progress and returns whether connectivity was established.
// A false result is final.
func (c *Controller) Run(ctx context.Context) bool {
	c.rep.Report("Connecting to WiFi...")
	ok := c.svc.AutoConnect(ctx, func(name, addr string) {
		c.rep.Report("Connect to WiFi: " + name)
		if addr != "" {
			c.rep.Report("Then open http://" + addr)
		}
	})
	if !ok {
		c.rep.Report("WiFi failed")
		return false
	}
	c.rep.Report("WiFi connected")
	return true
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, onPortalStarted func(name, addr string)) bool

func (f ServiceFunc) AutoConnect(ctx context.Context, onPortalStarted func(name, addr string)) bool {
	return f(ctx, onPortalStarted)
}

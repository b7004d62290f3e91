package app

import (
	"context"

	"github.com/hakim/vulntriage/internal/notify"
	"github.com/hakim/vulntriage/internal/view"
)

// DashboardPage is the render model of the dashboard
type DashboardPage struct {
	Frame
	Dashboard view.Dashboard
	Failed    bool
}

// Dashboard loads the aggregate statistics.
func (a *App) Dashboard(ctx context.Context, sid string) (*DashboardPage, error) {
	a.intent("dashboard", "load")

	page := &DashboardPage{}
	stats, err := a.api.DashboardStats(ctx)
	if err != nil {
		a.log.WithError(err).Warn("loading dashboard failed")
		page.Failed = true
		if err := a.report(sid, notify.KindError, failure("Failed to load dashboard", err)); err != nil {
			return nil, err
		}
	} else {
		page.Dashboard = view.BuildDashboard(stats, a.recentLimit)
	}

	frame, _, err := a.frame(sid)
	if err != nil {
		return nil, err
	}
	page.Frame = frame
	return page, nil
}

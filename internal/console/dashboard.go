package console

import (
	"context"
	"errors"

	"userconsole/internal/client"
	"userconsole/internal/models"
)

// DashboardView is the landing page after login.
type DashboardView struct {
	User     models.User
	Greeting string
	IsAdmin  bool
	// Stats is set for admins when the user list loaded.
	Stats      *Stats
	StatsError string
}

// Dashboard greets the user; admins also get the aggregate account counts.
func (c *Console) Dashboard(ctx context.Context) (*DashboardView, error) {
	sess, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	user := *sess.User
	view := &DashboardView{
		User:     user,
		Greeting: "Welcome back, " + user.DisplayName() + "!",
		IsAdmin:  user.IsAdmin(),
	}
	if !view.IsAdmin {
		return view, nil
	}

	all, err := c.users.List(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return nil, err
		}
		c.logger.WarnContext(ctx, "dashboard stats unavailable", "error", err)
		view.StatsError = client.Message(err)
		return view, nil
	}
	stats := ComputeStats(all)
	view.Stats = &stats
	return view, nil
}

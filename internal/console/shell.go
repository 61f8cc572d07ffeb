package console

import (
	"strings"

	"userconsole/internal/device"
	"userconsole/internal/models"
)

// NavItem is one entry of the navigation shell.
type NavItem struct {
	Label  string
	Path   string
	Active bool
}

// Shell is the chrome around every authenticated page.
type Shell struct {
	DisplayName string
	Username    string
	Initial     string
	Role        models.Role
	IsAdmin     bool
	Nav         []NavItem
	Device      device.Info
}

// BuildShell lists Dashboard and Profile for everyone and Users for admins.
func BuildShell(user models.User, currentPath string, dev device.Info) Shell {
	items := []NavItem{
		{Label: "Dashboard", Path: "/dashboard"},
		{Label: "Profile", Path: "/profile"},
	}
	if user.IsAdmin() {
		items = append(items, NavItem{Label: "Users", Path: "/users"})
	}
	for i := range items {
		items[i].Active = currentPath == items[i].Path || strings.HasPrefix(currentPath, items[i].Path+"/")
	}
	return Shell{
		DisplayName: user.DisplayName(),
		Username:    user.Username,
		Initial:     user.Initial(),
		Role:        user.Role,
		IsAdmin:     user.IsAdmin(),
		Nav:         items,
		Device:      dev,
	}
}

// Package cli is the userctl command line. It drives the same session store,
// API client, access guard and console as the web server; the session lives
// in a file readable only by the owner.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"userconsole/internal/client"
	"userconsole/internal/console"
	"userconsole/internal/guard"
	"userconsole/internal/models"
	"userconsole/internal/platform/logger"
	"userconsole/internal/session"
)

const sessionNamespace = "userctl"

var (
	ErrNotLoggedIn = errors.New("not logged in; run `userctl login` first")
	ErrForbidden   = errors.New("this command requires the ADMIN role")
	errStale       = errors.New("the session changed while the command ran; log in again")
)

// app is the state shared by every command of one invocation.
type app struct {
	v       *viper.Viper
	cfg     Config
	logger  *slog.Logger
	store   *session.Store
	guard   *guard.Guard
	nav     *sessionNavigator
	console *console.Console
}

// NewRootCommand builds the userctl command tree.
func NewRootCommand() (*cobra.Command, error) {
	a := &app{v: newViper()}
	root := &cobra.Command{
		Use:           "userctl",
		Short:         "Manage your account and, as an admin, everyone else's",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	if err := registerFlags(root.PersistentFlags(), a.v); err != nil {
		return nil, err
	}
	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.profileCmd(),
		a.usersCmd(),
	)
	return root, nil
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := LoadConfig(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.Output == OutputJSON {
		color.NoColor = true
	}
	a.logger = logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)
	a.store = session.NewStore(session.NewFileBackend(cfg.SessionFile), sessionNamespace, session.WithLogger(a.logger))
	a.nav = &sessionNavigator{}
	a.guard = guard.New(nil, a.logger)

	api := client.New(client.Config{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.Timeout,
		Logger:    a.logger,
		UserAgent: "userctl",
	}, a.store, a.nav)
	a.console = console.New(console.Deps{
		Auth:   api.Auth,
		Users:  api.Users,
		Store:  a.store,
		Logger: a.logger,
	})
	return nil
}

// require runs the access guard the way a protected web route does.
func (a *app) require(ctx context.Context, role models.Role) error {
	outcome, _, err := a.guard.Evaluate(ctx, a.store, role)
	if err != nil {
		return err
	}
	switch outcome.Redirect() {
	case guard.LoginPath:
		return ErrNotLoggedIn
	case guard.DefaultPath:
		return ErrForbidden
	}
	return nil
}

// explain turns a console error into what the user is told.
func (a *app) explain(err error) error {
	if reason, ok := a.nav.forced(); ok {
		return fmt.Errorf("%s (run `userctl login` to sign in again)", reason)
	}
	switch {
	case errors.Is(err, session.ErrNoSession):
		return ErrNotLoggedIn
	case errors.Is(err, session.ErrStaleSession):
		return errStale
	case client.KindOf(err) != "":
		return errors.New(client.Message(err))
	}
	return err
}

// sessionNavigator remembers why the API client ended the session.
type sessionNavigator struct {
	mu     sync.Mutex
	reason string
	fired  bool
}

func (n *sessionNavigator) ToLogin(_ context.Context, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.fired {
		n.fired = true
		n.reason = reason
	}
}

func (n *sessionNavigator) forced() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reason, n.fired
}

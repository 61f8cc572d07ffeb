package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"userconsole/internal/console"
)

// readSecret takes one line from stdin when a password was not passed as a
// flag.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr())
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) loginCmd() *cobra.Command {
	var form console.LoginForm
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if form.Password == "" {
				pw, err := readSecret(cmd, "Password: ")
				if err != nil {
					return err
				}
				form.Password = pw
			}
			sess, view, err := a.console.Login(cmd.Context(), form)
			if err != nil {
				return a.explain(err)
			}
			if view != nil {
				return formError(view.Errors, view.Error)
			}
			if a.cfg.Output == OutputJSON {
				return printJSON(cmd.OutOrStdout(), sess.User)
			}
			printNotice(cmd.OutOrStdout(), fmt.Sprintf("Logged in as %s (%s).", sess.User.Username, sess.User.Role))
			return nil
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var form console.RegisterForm
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if form.Password == "" {
				pw, err := readSecret(cmd, "Password: ")
				if err != nil {
					return err
				}
				form.Password = pw
			}
			view, err := a.console.Register(cmd.Context(), form)
			if err != nil {
				return a.explain(err)
			}
			if view.Register {
				return formError(view.Errors, view.Error)
			}
			printNotice(cmd.OutOrStdout(), view.Notice)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&form.Username, "username", "u", "", "username, 3 to 50 characters")
	flags.StringVarP(&form.Password, "password", "p", "", "password, at least 6 characters (read from stdin when omitted)")
	flags.StringVar(&form.FullName, "full-name", "", "full name")
	flags.StringVar(&form.Email, "email", "", "email address")
	flags.StringVar(&form.Phone, "phone", "", "phone number")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.console.Logout(cmd.Context()); err != nil {
				return a.explain(err)
			}
			printNotice(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account as cached locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.require(ctx, ""); err != nil {
				return err
			}
			sess, err := a.store.Get(ctx)
			if err != nil {
				return a.explain(err)
			}
			if a.cfg.Output == OutputJSON {
				return printJSON(cmd.OutOrStdout(), sess.User)
			}
			renderUser(cmd.OutOrStdout(), *sess.User)
			return nil
		},
	}
}

package cli

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"userconsole/internal/console"
	"userconsole/internal/models"
)

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer accounts (ADMIN only)",
	}
	cmd.AddCommand(
		a.usersListCmd(),
		a.usersShowCmd(),
		a.usersUpdateCmd(),
		a.usersToggleCmd(),
		a.usersDeleteCmd(),
	)
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

func (a *app) usersListCmd() *cobra.Command {
	var f console.Filter
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List accounts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.require(ctx, models.RoleAdmin); err != nil {
				return err
			}
			view, err := a.console.Users(ctx, f)
			if err != nil {
				return a.explain(err)
			}
			out := cmd.OutOrStdout()
			if a.cfg.Output == OutputJSON {
				return printJSON(out, usersOutput{
					Users: view.Users,
					Stats: statsOutput(view.Stats),
				})
			}
			if len(view.Users) == 0 {
				fmt.Fprintln(out, "No users match the current filters.")
			} else {
				renderUsers(out, view.Users, view.CurrentUserID)
			}
			renderStats(out, view.Stats)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Search, "search", "s", "", "case-insensitive match on username, full name or email")
	cmd.Flags().StringVarP(&f.Role, "role", "r", console.RoleAll, "ALL, ADMIN or USER")
	return cmd
}

func (a *app) usersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.require(ctx, models.RoleAdmin); err != nil {
				return err
			}
			view, err := a.console.EditUser(ctx, id)
			if err != nil {
				return a.explain(err)
			}
			if a.cfg.Output == OutputJSON {
				return printJSON(cmd.OutOrStdout(), view.User)
			}
			renderUser(cmd.OutOrStdout(), view.User)
			return nil
		},
	}
}

func (a *app) usersUpdateCmd() *cobra.Command {
	var edit console.UserEditForm
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change an account's username, email, full name, role or status",
		Long:  "Only the flags you pass change; the others keep their current values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.require(ctx, models.RoleAdmin); err != nil {
				return err
			}
			current, err := a.console.EditUser(ctx, id)
			if err != nil {
				return a.explain(err)
			}
			original := current.Form
			form := original
			flags := cmd.Flags()
			for name, set := range map[string]func(){
				"username":  func() { form.Username = edit.Username },
				"email":     func() { form.Email = edit.Email },
				"full-name": func() { form.FullName = edit.FullName },
				"role":      func() { form.Role = edit.Role },
				"status":    func() { form.Status = edit.Status },
			} {
				if flags.Changed(name) {
					set()
				}
			}

			view, err := a.console.SaveUser(ctx, id, original, form)
			if err != nil {
				return a.explain(err)
			}
			if err := formError(view.Errors, view.Error); err != nil {
				return err
			}
			if a.cfg.Output == OutputJSON {
				return printJSON(cmd.OutOrStdout(), view.User)
			}
			printNotice(cmd.OutOrStdout(), view.Notice)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&edit.Username, "username", "", "new username")
	flags.StringVar(&edit.Email, "email", "", "new email address")
	flags.StringVar(&edit.FullName, "full-name", "", "new full name")
	flags.StringVar(&edit.Role, "role", "", "USER or ADMIN")
	flags.StringVar(&edit.Status, "status", "", "ACTIVE or INACTIVE")
	return cmd
}

func (a *app) usersToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Switch an account between active and inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.require(ctx, models.RoleAdmin); err != nil {
				return err
			}
			user, err := a.console.ToggleStatus(ctx, id)
			if err != nil {
				return a.explain(err)
			}
			if a.cfg.Output == OutputJSON {
				return printJSON(cmd.OutOrStdout(), user)
			}
			state := "inactive"
			if user.Active() {
				state = "active"
			}
			printNotice(cmd.OutOrStdout(), fmt.Sprintf("User %s is now %s.", user.Username, state))
			return nil
		},
	}
}

func (a *app) usersDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := a.require(ctx, models.RoleAdmin); err != nil {
				return err
			}
			if !yes {
				fmt.Fprintf(cmd.ErrOrStderr(), "Delete user %d? [y/N] ", id)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}
			msg, err := a.console.DeleteUser(ctx, id)
			if err != nil {
				return a.explain(err)
			}
			printNotice(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

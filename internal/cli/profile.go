package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View or change your profile",
	}
	cmd.AddCommand(a.profileShowCmd(), a.profileUpdateCmd())
	return cmd
}

func (a *app) profileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile, refreshed from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.require(ctx, ""); err != nil {
				return err
			}
			view, err := a.console.Profile(ctx, false)
			if err != nil {
				return a.explain(err)
			}
			if view.Warning != "" {
				printWarning(cmd.ErrOrStderr(), view.Warning)
			}
			if a.cfg.Output == OutputJSON {
				return printJSON(cmd.OutOrStdout(), view.User)
			}
			renderUser(cmd.OutOrStdout(), view.User)
			return nil
		},
	}
}

func (a *app) profileUpdateCmd() *cobra.Command {
	var fullName, email, phone string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your full name, email or phone",
		Long:  "Only the flags you pass change; the others keep their current values.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.require(ctx, ""); err != nil {
				return err
			}
			current, err := a.console.Profile(ctx, true)
			if err != nil {
				return a.explain(err)
			}
			form := current.Form
			flags := cmd.Flags()
			if flags.Changed("full-name") {
				form.FullName = fullName
			}
			if flags.Changed("email") {
				form.Email = email
			}
			if flags.Changed("phone") {
				form.Phone = phone
			}

			view, err := a.console.SaveProfile(ctx, form)
			if err != nil {
				return a.explain(err)
			}
			if view.Editing {
				return formError(view.Errors, view.Error)
			}
			if a.cfg.Output == OutputJSON {
				return printJSON(cmd.OutOrStdout(), view.User)
			}
			printNotice(cmd.OutOrStdout(), view.Notice)
			return nil
		},
	}
	cmd.Flags().StringVar(&fullName, "full-name", "", "new full name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&phone, "phone", "", "new phone number (empty clears it)")
	return cmd
}

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ngenohkevin/libcatalog/internal/models"
)

type profileFlags struct {
	email     string
	contact   string
	firstName string
	lastName  string
}

func (f *profileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.contact, "contact", "", "contact number")
	cmd.Flags().StringVar(&f.firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&f.lastName, "last-name", "", "last name")
}

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage member accounts",
	}
	cmd.AddCommand(
		newAccountRegisterCmd(a),
		newAccountGetCmd(a),
		newAccountListCmd(a),
		newAccountUpdateCmd(a),
		newAccountPasswdCmd(a),
		newAccountRemoveCmd(a),
		newAccountClearCmd(a),
	)
	return cmd
}

func newAccountRegisterCmd(a *app) *cobra.Command {
	var (
		f        profileFlags
		password string
	)
	cmd := &cobra.Command{
		Use:   "register <user-id>",
		Short: "Create an account",
		Args:  exactArgs(1, "user-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.passwordFrom(password, "New password: ")
			if err != nil {
				return err
			}
			account, err := a.members.Register(cmd.Context(), models.RegisterAccountRequest{
				UserID:        args[0],
				Password:      pw,
				Email:         f.email,
				ContactNumber: f.contact,
				FirstName:     f.firstName,
				LastName:      f.lastName,
			})
			if err != nil {
				return err
			}
			return a.print(account, func() {
				fmt.Fprintf(a.out, "Registered %s\n", account.UserID)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newAccountGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get [user-id]",
		Short: "Show an account with its loans and fines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			userID, err := a.userOrSession(arg)
			if err != nil {
				return err
			}
			summary, err := a.reports.GetUserSummary(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return a.print(summary, func() {
				a.printAccount(&summary.Account)
				fmt.Fprintf(a.out, "Borrowed:    %d (%d more allowed)\n", summary.BorrowedCount, summary.RemainingQuota)
				fmt.Fprintf(a.out, "Overdue:     %d\n", summary.OverdueLoans)
				fmt.Fprintf(a.out, "Fine:        %s\n", summary.TotalFine.StringFixed(2))
			})
		},
	}
}

func newAccountListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every account by user id",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts := a.members.ListAccounts(cmd.Context())
			return a.print(accounts, func() {
				if len(accounts) == 0 {
					fmt.Fprintln(a.out, "No accounts")
					return
				}
				a.table("USER\tNAME\tEMAIL\tACTIVE\tBORROWED", func(w *tabwriter.Writer) {
					for _, acc := range accounts {
						fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\n", acc.UserID, acc.Name, acc.Email, acc.IsActive,
							a.circulation.BorrowedCount(cmd.Context(), acc.UserID))
					}
				})
			})
		},
	}
}

func newAccountUpdateCmd(a *app) *cobra.Command {
	var (
		f        profileFlags
		inactive bool
	)
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change profile fields; unset flags keep their values",
		Args:  exactArgs(1, "user-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := a.db.Accounts.Get(args[0])
			if err != nil {
				return err
			}

			req := models.ProfileRequestFrom(current)
			flags := cmd.Flags()
			if flags.Changed("email") {
				req.Email = f.email
			}
			if flags.Changed("contact") {
				req.ContactNumber = f.contact
			}
			if flags.Changed("first-name") {
				req.FirstName = f.firstName
			}
			if flags.Changed("last-name") {
				req.LastName = f.lastName
			}
			if flags.Changed("inactive") {
				req.IsActive = !inactive
			}

			account, err := a.members.UpdateProfile(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(account, func() { a.printAccount(account) })
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&inactive, "inactive", false, "deactivate the account (--inactive=false reactivates it)")
	return cmd
}

func newAccountPasswdCmd(a *app) *cobra.Command {
	var user, oldPassword, newPassword string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change a password",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := a.userOrSession(user)
			if err != nil {
				return err
			}
			oldPW, err := a.passwordFrom(oldPassword, "Current password: ")
			if err != nil {
				return err
			}
			newPW, err := a.passwordFrom(newPassword, "New password: ")
			if err != nil {
				return err
			}
			err = a.members.ChangePassword(cmd.Context(), models.ChangePasswordRequest{
				UserID:      userID,
				OldPassword: oldPW,
				NewPassword: newPW,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Password changed for %s\n", userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "account (defaults to the logged-in member)")
	cmd.Flags().StringVar(&oldPassword, "old-password", "", "current password (prompted when omitted)")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "new password (prompted when omitted)")
	return cmd
}

func newAccountRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <user-id>",
		Short: "Delete an account that holds no copies",
		Args:  exactArgs(1, "user-id"),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.members.DeleteAccount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(a.out, "Removed %s\n", args[0])
			} else {
				fmt.Fprintf(a.out, "No account %s\n", args[0])
			}
			return nil
		},
	}
}

func newAccountClearCmd(a *app) *cobra.Command {
	var confirm string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every account (requires --confirm CLEAR_ALL_USERS)",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.members.ClearAccounts(cmd.Context(), confirm)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %d accounts\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", "confirmation token")
	return cmd
}

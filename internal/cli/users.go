package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/library"
)

func newUserCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage borrowers",
	}
	cmd.AddCommand(
		newUserAddCmd(a),
		newUserListCmd(a),
		newUserShowCmd(a),
		newUserEditCmd(a),
		newUserDeleteCmd(a),
		newUserBanCmd(a, "ban", true),
		newUserBanCmd(a, "unban", false),
		newUserHistoryCmd(a),
		newUserBooksCmd(a),
	)
	return cmd
}

func newUserAddCmd(a *app) *cobra.Command {
	var (
		name, number string
		banned       bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := library.NewUser(name, number, banned)
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			id, err := mgr.AddUser(cmd.Context(), u)
			if err != nil {
				return fmt.Errorf("add user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added user '%s' with ID %d\n", u.Name, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&number, "student-number", "", "unique student number (optional)")
	cmd.Flags().BoolVar(&banned, "banned", false, "register as banned")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUserListCmd(a *app) *cobra.Command {
	var eligible bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			var users []*library.User
			if eligible {
				users, err = mgr.EligibleBorrowers(cmd.Context())
			} else {
				users, err = mgr.GetAllUsers(cmd.Context())
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users registered.")
				return nil
			}
			printUserHeader(out)
			for _, u := range users {
				fmt.Fprintln(out, library.PrettyUser(u))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&eligible, "eligible", false, "only users allowed to borrow")
	return cmd
}

func newUserShowCmd(a *app) *cobra.Command {
	var number string
	cmd := &cobra.Command{
		Use:   "show [USER_ID]",
		Short: "Show a user by id or student number",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (number == "") {
				return fmt.Errorf("give either a user id or --student-number")
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}

			var u *library.User
			if number != "" {
				u, err = mgr.GetUserByStudentNumber(cmd.Context(), number)
			} else {
				id, perr := parseID(args[0], "user")
				if perr != nil {
					return perr
				}
				u, err = mgr.GetUser(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			if u == nil {
				return library.ErrUserNotFound
			}

			out := cmd.OutOrStdout()
			printUserHeader(out)
			fmt.Fprintln(out, library.PrettyUser(u))
			return nil
		},
	}
	cmd.Flags().StringVar(&number, "student-number", "", "look up by student number")
	return cmd
}

func newUserEditCmd(a *app) *cobra.Command {
	var (
		name, number string
		banned       bool
	)
	cmd := &cobra.Command{
		Use:   "edit USER_ID",
		Short: "Change a user's name, student number or ban flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, mgr, err := a.loadUser(cmd, args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = strings.TrimSpace(name)
			}
			if flags.Changed("student-number") {
				u.StudentNumber = strings.TrimSpace(number)
			}
			if flags.Changed("banned") {
				u.Banned = banned
			}
			if _, err := mgr.UpdateUser(cmd.Context(), u); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated user ID %d\n", u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&number, "student-number", "", "new student number; empty clears it")
	cmd.Flags().BoolVar(&banned, "banned", false, "ban flag")
	cmd.MarkFlagsOneRequired("name", "student-number", "banned")
	return cmd
}

func newUserDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete USER_ID",
		Short: "Delete a user together with their lending history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, fmt.Sprintf("Delete user %d and all of their lending records?", id), yes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			n, err := mgr.DeleteUser(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			if n == 0 {
				return library.ErrUserNotFound
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user ID %d\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newUserBanCmd(a *app, use string, banned bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " USER_ID",
		Short: fmt.Sprintf("Set the user's ban flag to %t", banned),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			found, err := mgr.ToggleUserBan(cmd.Context(), id, banned)
			if err != nil {
				return err
			}
			if !found {
				return library.ErrUserNotFound
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User ID %d banned: %t\n", id, banned)
			return nil
		},
	}
}

func newUserHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history USER_ID",
		Short: "List every lending record of a user, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, mgr, err := a.loadUser(cmd, args[0])
			if err != nil {
				return err
			}
			records, err := mgr.GetUserLendingHistory(cmd.Context(), u.ID)
			if err != nil {
				return err
			}
			printLendings(cmd.OutOrStdout(), records, "No lending history.")
			return nil
		},
	}
}

func newUserBooksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "books USER_ID",
		Short: "List the books a user currently holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, mgr, err := a.loadUser(cmd, args[0])
			if err != nil {
				return err
			}
			books, err := mgr.GetBorrowedBooksByUser(cmd.Context(), u.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintf(out, "%s has no books.\n", u.Name)
				return nil
			}
			printBookHeader(out)
			for _, b := range books {
				fmt.Fprintln(out, library.PrettyBook(b, u.Name))
			}
			return nil
		},
	}
}

func (a *app) loadUser(cmd *cobra.Command, arg string) (*library.User, *library.LibraryManager, error) {
	id, err := parseID(arg, "user")
	if err != nil {
		return nil, nil, err
	}
	mgr, err := a.manager()
	if err != nil {
		return nil, nil, err
	}
	u, err := mgr.GetUser(cmd.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		return nil, nil, library.ErrUserNotFound
	}
	return u, mgr, nil
}

func printUserHeader(w io.Writer) {
	fmt.Fprintf(w, "%-5s %-30s %-15s %-6s\n", "ID", "Name", "Student No.", "Banned")
	fmt.Fprintln(w, strings.Repeat("-", 60))
}

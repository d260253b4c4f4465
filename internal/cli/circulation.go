package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/internal/scheduler"
	"library-lending/library"
)

func newBorrowCmd(a *app) *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "borrow BOOK_ID USER_ID",
		Short: "Lend a book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			userID, err := parseID(args[1], "user")
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			if due == "" {
				due = mgr.DefaultDueDate()
			}
			if err := mgr.BorrowBook(cmd.Context(), bookID, userID, due); err != nil {
				return fmt.Errorf("borrow: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book %d lent to user %d, due %s\n", bookID, userID, due)
			return nil
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "due date yyyy-mm-dd (default: today + loan period)")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return BOOK_ID",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			userID, err := mgr.ReturnBook(cmd.Context(), bookID)
			if err != nil {
				return fmt.Errorf("return: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Book %d returned by user %d\n", bookID, userID)
			return nil
		},
	}
}

func newLendingsCmd(a *app) *cobra.Command {
	var overdue bool
	cmd := &cobra.Command{
		Use:   "lendings",
		Short: "List lending records, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			var records []*library.LendingRecord
			if overdue {
				records, err = mgr.Overdue(cmd.Context())
			} else {
				records, err = mgr.GetAllLendingRecords(cmd.Context())
			}
			if err != nil {
				return err
			}
			printLendings(cmd.OutOrStdout(), records, "No lending records.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only open records past their due date")
	return cmd
}

func newReconcileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Repair availability flags and report overdue loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			res, err := scheduler.NewOverdueSweeper(mgr, a.cfg.OverdueSweep.Schedule, a.log).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Repaired %d availability flag(s)\n", res.Repaired)
			printLendings(out, res.Overdue, "No overdue loans.")
			return nil
		},
	}
}

func printLendings(w io.Writer, records []*library.LendingRecord, empty string) {
	if len(records) == 0 {
		fmt.Fprintln(w, empty)
		return
	}
	fmt.Fprintf(w, "%-5s %-7s %-7s %-10s %-10s %-10s\n", "ID", "Book", "User", "Issued", "Due", "Returned")
	fmt.Fprintln(w, strings.Repeat("-", 55))
	for _, r := range records {
		fmt.Fprintln(w, library.PrettyLending(r))
	}
}

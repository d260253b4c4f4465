package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"library-lending/library"
)

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Manage the catalogue",
	}
	cmd.AddCommand(
		newBookAddCmd(a),
		newBookListCmd(a),
		newBookShowCmd(a),
		newBookEditCmd(a),
		newBookDeleteCmd(a),
	)
	return cmd
}

func newBookAddCmd(a *app) *cobra.Command {
	var (
		title string
		pages int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			id, err := mgr.AddBook(cmd.Context(), title, pages)
			if err != nil {
				return fmt.Errorf("add book: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book ID %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().IntVar(&pages, "pages", 0, "page count")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}

func newBookListCmd(a *app) *cobra.Command {
	var available bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books that are not deleted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var books []*library.Book
			if available {
				books, err = mgr.GetAvailableBooks(ctx)
			} else {
				books, err = mgr.GetAllBooks(ctx)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintln(out, "No books in library.")
				return nil
			}
			printBookHeader(out)
			for _, b := range books {
				borrower := "None"
				if !b.Available {
					if u, err := mgr.GetBookBorrower(ctx, b.ID); err == nil && u != nil {
						borrower = fmt.Sprintf("%s (ID: %d)", u.Name, u.ID)
					}
				}
				fmt.Fprintln(out, library.PrettyBook(b, borrower))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "only books on the shelf")
	return cmd
}

func newBookShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show BOOK_ID",
		Short: "Show a book and who has it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			status, err := mgr.BookStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			if status == nil {
				return library.ErrBookNotFound
			}

			out := cmd.OutOrStdout()
			b := status.Book
			fmt.Fprintf(out, "ID:        %d\n", b.ID)
			fmt.Fprintf(out, "Title:     %s\n", b.Title)
			fmt.Fprintf(out, "Pages:     %d\n", b.PageCount)
			fmt.Fprintf(out, "Available: %t\n", b.Available)
			if b.Deleted {
				fmt.Fprintln(out, "Deleted:   true")
			}
			if status.Borrowed {
				name := fmt.Sprintf("ID: %d", status.Lending.UserID)
				if status.Borrower != nil {
					name = fmt.Sprintf("%s (ID: %d)", status.Borrower.Name, status.Borrower.ID)
				}
				fmt.Fprintf(out, "Borrower:  %s\n", name)
				fmt.Fprintf(out, "Issued:    %s\n", status.Lending.IssueDate)
				fmt.Fprintf(out, "Due:       %s\n", status.Lending.DueDate)
			}
			return nil
		},
	}
}

func newBookEditCmd(a *app) *cobra.Command {
	var (
		title string
		pages int
	)
	cmd := &cobra.Command{
		Use:   "edit BOOK_ID",
		Short: "Change title or page count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			mgr, err := a.manager()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			b, err := mgr.GetBook(ctx, id)
			if err != nil {
				return err
			}
			if b == nil || b.Deleted {
				return library.ErrBookNotFound
			}
			if cmd.Flags().Changed("title") {
				b.Title = strings.TrimSpace(title)
			}
			if cmd.Flags().Changed("pages") {
				b.PageCount = pages
			}
			if _, err := mgr.UpdateBook(ctx, b); err != nil {
				return fmt.Errorf("update book: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated book ID %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().IntVar(&pages, "pages", 0, "new page count")
	cmd.MarkFlagsOneRequired("title", "pages")
	return cmd
}

func newBookDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete BOOK_ID",
		Short: "Delete a book; lent books are archived with their history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "book")
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, fmt.Sprintf("Delete book %d?", id), yes)
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
			purged, err := mgr.DeleteBook(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("delete book: %w", err)
			}
			if purged {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed book ID %d\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Archived book ID %d (lending history kept)\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func printBookHeader(w io.Writer) {
	fmt.Fprintf(w, "%-5s %-30s %-6s %-10s %-25s\n", "ID", "Title", "Pages", "Available", "Borrower")
	fmt.Fprintln(w, strings.Repeat("-", 80))
}

// Package cli is the command-line front end of the lending system.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"library-lending/internal/config"
	"library-lending/internal/logging"
	"library-lending/library"
)

// Version is stamped at build time.
var Version = "dev"

type app struct {
	cfg  *config.Config
	opts []library.Option

	dbPath string
	log    logging.Logger
	mgr    *library.LibraryManager
}

// NewRootCmd builds the command tree. opts are passed to the database when it
// is opened; the returned func closes it and must run after Execute.
func NewRootCmd(cfg *config.Config, opts ...library.Option) (*cobra.Command, func() error) {
	a := &app{cfg: cfg, opts: opts}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Lend books to registered users",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log = logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", cfg.Database.Path, "path to the SQLite database (env DATABASE_PATH)")

	root.AddCommand(
		newBookCmd(a),
		newUserCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newLendingsCmd(a),
		newReconcileCmd(a),
		newServeCmd(a),
	)
	return root, a.close
}

// Execute runs the CLI with configuration from the environment.
func Execute() int {
	cfg := config.NewConfig()
	root, closeDB := NewRootCmd(cfg)
	err := root.ExecuteContext(context.Background())
	if cerr := closeDB(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// manager opens the database on first use.
func (a *app) manager() (*library.LibraryManager, error) {
	if a.mgr != nil {
		return a.mgr, nil
	}
	if a.log == nil {
		a.log = logging.Nop()
	}
	opts := append([]library.Option{library.WithLogger(a.log)}, a.opts...)
	mgr, err := library.NewLibraryManager(a.dbPath, a.cfg.LoanPeriod(), opts...)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.dbPath, err)
	}
	a.mgr = mgr
	return mgr, nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id: %q", what, s)
	}
	return id, nil
}

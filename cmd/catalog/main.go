package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ngenohkevin/libcatalog/internal/config"
	"github.com/ngenohkevin/libcatalog/internal/database"
	"github.com/ngenohkevin/libcatalog/internal/logging"
	"github.com/ngenohkevin/libcatalog/internal/models"
	"github.com/ngenohkevin/libcatalog/internal/services"
)

const kindAuth = "AUTH_ERROR"

// app holds everything one command invocation needs. It is built in the
// root command's pre-run and torn down by close.
type app struct {
	configFile string
	dataDir    string
	logLevel   string
	jsonOutput bool

	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	password func(prompt string) (string, error)
	now      func() time.Time

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
	db        *database.Database

	books       *services.BookService
	circulation *services.CirculationService
	members     *services.AccountService
	reports     *services.ReportService
	reminders   *services.ReminderService
	transfers   *services.ImportExportService
	sessions    *services.SessionService
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{in: stdin, out: stdout, errOut: stderr, now: time.Now}
	a.password = a.promptPassword

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(stderr, formatError(err))
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Library catalog and lending store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default: config.yaml in the usual places)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "override storage.data_dir")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log.level")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print results as JSON")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return models.NewValidationError("flags", models.RuleFormat, err.Error())
	})

	root.AddCommand(
		newBookCmd(a),
		newIssueCmd(a),
		newReturnCmd(a),
		newRenewCmd(a),
		newLoansCmd(a),
		newFineCmd(a),
		newAccountCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newStatsCmd(a),
		newReportCmd(a),
		newRemindCmd(a),
		newSettingsCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newBackupCmd(a),
		newPersistCmd(a),
	)
	return root
}

// setup loads configuration, opens the snapshots and wires the services.
func (a *app) setup() error {
	v := viper.New()
	if a.dataDir != "" {
		v.Set("storage.data_dir", a.dataDir)
	}
	if a.logLevel != "" {
		v.Set("log.level", a.logLevel)
	}

	cfg, err := config.LoadFrom(v, a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.cfg = cfg

	logger, closer, err := logging.New(cfg.Log, a.errOut)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	a.logger, a.logCloser = logger, closer
	slog.SetDefault(logger)

	credentials, err := services.NewCredentials(cfg.Auth.CredentialMode, logger)
	if err != nil {
		return err
	}

	db, err := database.New(cfg, logger, credentials)
	if err != nil {
		return fmt.Errorf("failed to open data store: %w", err)
	}
	a.db = db

	secret, err := loadSessionSecret(cfg)
	if err != nil {
		return err
	}
	a.sessions, err = services.NewSessionService(secret, time.Duration(cfg.Auth.SessionExpiryHours)*time.Hour)
	if err != nil {
		return err
	}

	coordinator := services.NewCoordinator()
	a.books = services.NewBookService(db.Catalog, logger)
	a.circulation = services.NewCirculationService(db.Catalog, db.Accounts, coordinator, logger)
	a.members = services.NewAccountService(db.Accounts, db.Catalog, credentials, coordinator, logger)
	a.reports = services.NewReportService(db.Catalog, db.Accounts)
	a.reminders = services.NewReminderService(db.Catalog, db.Accounts, nil, logger)
	a.transfers = services.NewImportExportService(a.books, db.Catalog, logger)
	return nil
}

// close force-persists both repositories and releases the log file.
func (a *app) close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
	}
	if a.logCloser != nil {
		err = errors.Join(err, a.logCloser.Close())
		a.logCloser = nil
	}
	return err
}

// formatError renders err as "<KIND>: <message>".
func formatError(err error) string {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAccountInactive),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTokenExpired),
		errors.Is(err, errNotLoggedIn):
		return fmt.Sprintf("%s: %v", kindAuth, err)
	}
	return fmt.Sprintf("%s: %v", models.KindOf(err), err)
}

// exactArgs is cobra.ExactArgs reported as a validation failure.
func exactArgs(n int, names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return models.NewValidationError("args", models.RuleRequired,
				fmt.Sprintf("%s expects %d argument(s) %v, got %d", cmd.CommandPath(), n, names, len(args)))
		}
		return nil
	}
}

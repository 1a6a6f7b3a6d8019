package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/tutortrack/core"
	"github.com/trezcool/tutortrack/core/user"
	"github.com/trezcool/tutortrack/storage/database"
)

var (
	// mockable
	readPasswordFunc = term.ReadPassword
	migrateFunc      = database.Migrate

	errHelp          = errors.New("help provided")
	errNoDB          = errors.New("database not configured")
	errEmptyPassword = errors.New("password cannot be empty")
)

type commandLine struct {
	db       *sql.DB // nil when no database is configured
	accounts user.AccountRepository
	usrSvc   user.Service
	out      io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "TutorTrack administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	migrateCmd := &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command (up, down, status, ...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return cli.migrate(args)
		},
	}

	var email, role string
	addUserCmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a password account with a role. The password is prompted next.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" || !user.Role(role).Valid() {
				_ = cmd.Help()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			return cli.addUser(email, pwd, user.Role(role))
		},
	}
	addUserCmd.Flags().StringVar(&email, "email", "", "The user's email")
	addUserCmd.Flags().StringVar(&role, "role", "", "The user's role: student|teacher")

	var roleEmail, newRole string
	setRoleCmd := &cobra.Command{
		Use:   "setrole",
		Short: "Set a user's role",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if roleEmail == "" || !user.Role(newRole).Valid() {
				_ = cmd.Help()
				return errHelp
			}
			return cli.setRole(roleEmail, user.Role(newRole))
		},
	}
	setRoleCmd.Flags().StringVar(&roleEmail, "email", "", "The user's email")
	setRoleCmd.Flags().StringVar(&newRole, "role", "", "The new role: student|teacher")

	var resetEmail string
	resetPasswordCmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password. The password is prompted next.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if resetEmail == "" {
				_ = cmd.Help()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			return cli.usrSvc.SetPassword(context.Background(), resetEmail, pwd)
		},
	}
	resetPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "The user's email")

	root.AddCommand(migrateCmd, addUserCmd, setRoleCmd, resetPasswordCmd)
	return root
}

// run executes the command line args, program name included.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPassword
	}
	return string(pwd), nil
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDB
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}

// addUser updates or creates an active password account with role.
func (cli *commandLine) addUser(email, pwd string, role user.Role) error {
	usr, err := cli.usrSvc.AddUser(context.Background(), email, pwd, role)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s (%s) saved\n", usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) setRole(email string, role user.Role) error {
	ctx := context.Background()
	acc, err := cli.accounts.GetAccountByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	usr, err := cli.usrSvc.SetRole(ctx, acc.ID, role)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cli.out, "%s is now a %s\n", usr.Email, usr.Role)
	return nil
}

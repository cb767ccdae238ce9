package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"libdesk/internal/borrowing"
	"libdesk/internal/platform/auth"
	"libdesk/internal/platform/db"
	"libdesk/internal/platform/logging"
	"libdesk/internal/platform/paging"
	"libdesk/internal/reconcile"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "libdesk",
		Short:        "Library desk server and tools",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", db.DefaultConfigPath, "path to config.yaml")

	root.AddCommand(
		serveCmd(&configPath),
		overdueCmd(&configPath),
		recentCmd(&configPath),
		loginCmd(&configPath),
		migrateCmd(&configPath),
	)
	return root
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the desk API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// loadCLI reads the config and builds the backend side without a journal.
// Logs go to stderr.
func loadCLI(configPath string) (*app, error) {
	cfg, err := db.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logging.InitLoggerTo(os.Stderr, cfg.LogLevel)
	return newApp(cfg, nil)
}

func overdueCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Print overdue borrowings with fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadCLI(*configPath)
			if err != nil {
				return err
			}
			res, err := a.ledger.Overdue(cmd.Context(), paging.Page{Number: 1, Size: limit})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tBOOK\tMEMBER\tDUE\tDAYS\tFINE")
			for _, v := range res.Items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
					v.ID, v.BookName, borrower(v), v.ReturnDate, v.DaysPastDue, v.FineDisplay)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d overdue\n", res.Total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "max rows")
	return cmd
}

func recentCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Print borrowings from the last 7 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadCLI(*configPath)
			if err != nil {
				return err
			}
			res, err := a.ledger.Recent(cmd.Context(), paging.Page{Number: 1, Size: limit})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tBOOK\tMEMBER\tBORROWED\tDUE\tSTATUS")
			for _, v := range res.Items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					v.ID, v.BookName, borrower(v), v.BorrowingDate, v.ReturnDate, v.ReturnStatus)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "max rows")
	return cmd
}

func borrower(v borrowing.BorrowingView) string {
	if v.BorrowerName != "" {
		return v.BorrowerName
	}
	return v.MemberName
}

func loginCmd(configPath *string) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in against the backend and print a desk token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadCLI(*configPath)
			if err != nil {
				return err
			}
			in := bufio.NewReader(cmd.InOrStdin())
			if email == "" {
				if email, err = prompt(in, cmd.ErrOrStderr(), "Email: "); err != nil {
					return err
				}
			}
			password, err := readPassword(in, cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}

			svc := auth.NewService(a.client, auth.NewMemoryStore(), []byte(a.cfg.Auth.JWTSecret), a.cfg.Auth.SessionTTL)
			res, err := svc.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "signed in as %s (%s), expires %s\n",
				res.Session.Name, res.Session.Role, res.Session.ExpiresAt.Format(time.RFC3339))
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "librarian email")
	return cmd
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errors.New("no input")
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when stdin is a terminal.
func readPassword(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(in, out, label)
	}
	fmt.Fprint(out, label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the reconciliation journal tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := db.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			logging.InitLoggerTo(os.Stderr, cfg.LogLevel)
			conn, err := db.Connect(cfg.DB)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := reconcile.Migrate(ctx, conn, cfg.DB.Driver); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "journal schema ready (%s)\n", cfg.DB.Driver)
			return nil
		},
	}
}

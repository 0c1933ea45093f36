package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nao1215/scoperival/internal/session"
)

// NewRegisterCmd creates the register command.
func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a Scoperival account and log in",
		Long: `Register creates an account and stores the access token in the local
database so that later commands are authenticated.

The password is read from standard input.

Examples:
  scoperival register --email you@example.com --company "Acme Inc"
  echo "$PASSWORD" | scoperival register --email you@example.com --company Acme --password-stdin`,
		Args: cobra.NoArgs,
		RunE: runRegisterCmd,
	}

	cmd.Flags().StringP("email", "e", "", "Account email address")
	cmd.Flags().String("company", "", "Your company name")
	cmd.Flags().Bool("password-stdin", false, "Read the password from stdin without prompting")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func runRegisterCmd(cmd *cobra.Command, _ []string) error {
	email, err := cmd.Flags().GetString("email")
	if err != nil {
		return err
	}
	company, err := cmd.Flags().GetString("company")
	if err != nil {
		return err
	}
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := a.session.Register(ctx, email, password, company); err != nil {
		return err
	}
	return printSession(cmd.OutOrStdout(), a.session, "Registered")
}

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Scoperival",
		Long: `Login exchanges your email and password for an access token and stores it
in the local database. A previous session is replaced.

Examples:
  scoperival login --email you@example.com
  echo "$PASSWORD" | scoperival login --email you@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: runLoginCmd,
	}

	cmd.Flags().StringP("email", "e", "", "Account email address")
	cmd.Flags().Bool("password-stdin", false, "Read the password from stdin without prompting")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runLoginCmd(cmd *cobra.Command, _ []string) error {
	email, err := cmd.Flags().GetString("email")
	if err != nil {
		return err
	}
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	if err := a.session.Login(ctx, email, password); err != nil {
		return err
	}
	return printSession(cmd.OutOrStdout(), a.session, "Logged in")
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Long:  `Logout removes the access token from the local database. It never fails when already logged out.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			a.session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if err := a.requireSession(ctx); err != nil {
				return err
			}
			return printSession(cmd.OutOrStdout(), a.session, "")
		},
	}
}

// printSession writes the account and token details.
func printSession(w io.Writer, store *session.Store, headline string) error {
	snap := store.Snapshot()
	if headline != "" {
		fmt.Fprintf(w, "%s.\n\n", headline)
	}
	if snap.State != session.Authenticated {
		fmt.Fprintf(w, "Session:  %s\n", snap.State)
		return nil
	}

	fmt.Fprintf(w, "Email:    %s\n", snap.User.Email)
	fmt.Fprintf(w, "Company:  %s\n", snap.User.CompanyName)
	fmt.Fprintf(w, "Token:    %s\n", snap.Fingerprint)
	printTokenExpiry(w, store.Token(), time.Now())
	return nil
}

// printTokenExpiry adds the expiry of a JWT token when it carries one.
func printTokenExpiry(w io.Writer, token string, now time.Time) {
	info := session.InspectToken(token)
	if info.Opaque || info.ExpiresAt.IsZero() {
		return
	}
	if info.Expired(now) {
		fmt.Fprintf(w, "Expires:  expired %s\n", info.ExpiresAt.Local().Format(time.DateTime))
		return
	}
	fmt.Fprintf(w, "Expires:  %s (in %s)\n", info.ExpiresAt.Local().Format(time.DateTime),
		info.ExpiresAt.Sub(now).Round(time.Minute))
}

// readPassword reads the password from stdin. A terminal gets a prompt on
// stderr and no echo. Piped input and --password-stdin read one line.
func readPassword(cmd *cobra.Command) (string, error) {
	quiet, err := cmd.Flags().GetBool("password-stdin")
	if err != nil {
		return "", err
	}

	var password string
	if f, ok := cmd.InOrStdin().(*os.File); ok && !quiet && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr()) // the newline was not echoed
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(b)
	} else {
		if !quiet {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		}
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return "", errors.New("password must not be empty")
	}
	return password, nil
}

// confirmOnStdin asks a yes/no question and reads the answer from stdin.
func confirmOnStdin(cmd *cobra.Command, question string) (bool, error) {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

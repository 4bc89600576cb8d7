package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"jobchat/internal/api"
	"jobchat/internal/session"
)

var errNotLoggedIn = errors.New("not logged in")

func newRequestID() string {
	return uuid.NewString()
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.passwordOrPrompt(password)
			if err != nil {
				return err
			}
			token, err := a.client.Login(a.requestContext(cmd.Context()), email, pw)
			if err != nil {
				return err
			}
			return a.establish(cmd, token)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var email, password, role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Long: `Create an account and log in. Roles offered by the portal are
"user" (Job Seeker) and "recruiter" (Recruiter).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := a.passwordOrPrompt(password)
			if err != nil {
				return err
			}
			token, err := a.client.Register(a.requestContext(cmd.Context()), email, pw, role)
			if err != nil {
				return err
			}
			return a.establish(cmd, token)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&role, "role", api.RoleJobSeeker, `account role: "user" or "recruiter"`)
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// establish installs token and reports who is now logged in.
func (a *app) establish(cmd *cobra.Command, token string) error {
	s, err := a.sessions.Login(cmd.Context(), token)
	if !s.LoggedIn() {
		return errors.New("received an invalid or expired token")
	}
	if err != nil {
		fmt.Fprintf(a.streams.Err, "warning: session not saved: %v\n", err)
	}
	fmt.Fprintf(a.streams.Out, "Logged in as %s (%s)\n", s.Identity.Email, roleName(s.Identity.Role))
	return nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.sessions.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.streams.Out, "Logged out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.sessions.Current()
			if !s.LoggedIn() {
				return errNotLoggedIn
			}
			out := a.streams.Out
			fmt.Fprintf(out, "email:   %s\n", s.Identity.Email)
			fmt.Fprintf(out, "id:      %s\n", s.Identity.ID)
			fmt.Fprintf(out, "role:    %s\n", roleName(s.Identity.Role))
			fmt.Fprintf(out, "expires: %s\n", describeExpiry(s, time.Now()))
			return nil
		},
	}
}

func describeExpiry(s session.Session, now time.Time) string {
	if s.ExpiresAt.IsZero() {
		return "never"
	}
	left := s.ExpiresAt.Sub(now).Round(time.Minute)
	return fmt.Sprintf("%s (in %s)", s.ExpiresAt.Local().Format(time.RFC3339), left)
}

func roleName(role string) string {
	if role == "" {
		return "no role"
	}
	return api.RoleLabel(role)
}

// passwordOrPrompt returns flagValue, or asks for it on the input stream.
// Terminal input is not echoed.
func (a *app) passwordOrPrompt(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(a.streams.Err, "Password: ")
	if f, ok := a.streams.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.streams.Err)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(a.streams.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/startupval/pkg/auth"
	"github.com/me/startupval/pkg/model"
)

func newLoginCmd() *cobra.Command {
	var creds model.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				pw, err := prompt(cmd, "Password: ")
				if err != nil {
					return err
				}
				creds.Password = pw
			}

			session, err := holder.Login(cmd.Context(), creds)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", displayName(session), session.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var reg model.Registration
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Password == "" {
				pw, err := prompt(cmd, "Password: ")
				if err != nil {
					return err
				}
				reg.Password = pw
			}
			reg.Role = model.Role(role)

			session, err := holder.Register(cmd.Context(), reg)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", displayName(session), session.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&reg.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&role, "role", "", "Requested role (user or admin); the backend decides")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := holder.Logout(cmd.Context()); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// userError replaces an auth failure with its user-facing message; the
// original error is still logged by the holder.
func userError(err error) error {
	var aerr *auth.Error
	if errors.As(err, &aerr) {
		return errors.New(aerr.UserMessage)
	}
	return err
}

func displayName(s *model.Session) string {
	switch {
	case s.Name != "" && s.Email != "":
		return fmt.Sprintf("%s <%s>", s.Name, s.Email)
	case s.Email != "":
		return s.Email
	case s.Name != "":
		return s.Name
	default:
		return "unknown user"
	}
}

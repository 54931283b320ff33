package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/artpar/artsy/internal/core"
	"github.com/spf13/cobra"
)

// CredentialOptions holds the flags of login and register.
type CredentialOptions struct {
	FullName      string
	Email         string
	Password      string
	PasswordStdin bool
}

func (c *CredentialOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Email, "email", "", "Account email address")
	cmd.Flags().StringVar(&c.Password, "password", "", "Account password")
	cmd.Flags().BoolVar(&c.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
}

func (c *CredentialOptions) password(in io.Reader) (string, error) {
	if !c.PasswordStdin {
		return c.Password, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewLoginCommand creates the login command.
func NewLoginCommand(root *RootOptions) *cobra.Command {
	opts := &CredentialOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := opts.password(cmd.InOrStdin())
			if err != nil {
				return err
			}

			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			sess, err := application.Auth().Login(cmd.Context(), opts.Email, password)
			if err != nil {
				return describeAuthError(cmd, err)
			}

			printSuccess(cmd.OutOrStdout(), "Logged in successfully")
			printIdentity(cmd.OutOrStdout(), sess)
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(root *RootOptions) *cobra.Command {
	opts := &CredentialOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := opts.password(cmd.InOrStdin())
			if err != nil {
				return err
			}

			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			sess, err := application.Auth().Register(cmd.Context(), opts.FullName, opts.Email, password)
			if err != nil {
				return describeAuthError(cmd, err)
			}

			printSuccess(cmd.OutOrStdout(), "Registered successfully")
			printIdentity(cmd.OutOrStdout(), sess)
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.FullName, "fullname", "", "Full name")
	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Auth().Logout(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Logged out successfully")
			return nil
		},
	}
}

// NewDeleteAccountCommand creates the delete-account command.
func NewDeleteAccountCommand(root *RootOptions) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Delete the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("refusing to delete the account without --yes")
			}

			application, err := root.openApp(cmd, nil)
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.Auth().DeleteAccount(cmd.Context()); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Deleted user successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "Confirm the deletion")
	return cmd
}

// describeAuthError prints field-level detail for validation and business
// errors and returns err for the exit status.
func describeAuthError(cmd *cobra.Command, err error) error {
	out := cmd.ErrOrStderr()

	var ve core.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			printFailure(out, "%s: %s", fe.Field, fe.Message)
		}
		return err
	}
	if field := core.FieldOf(err); field != "" {
		printFailure(out, "%s: %s", field, err)
	}
	return err
}

func printIdentity(w io.Writer, sess *core.Session) {
	if sess.IsAnonymous() {
		fmt.Fprintln(w, mutedStyle.Render("Not signed in"))
		return
	}
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(sess.FullName), mutedStyle.Render("("+sess.UserID+")"))
	if sess.AvatarURL != "" {
		fmt.Fprintf(w, "Avatar:    %s\n", sess.AvatarURL)
	}
	fmt.Fprintf(w, "Favorites: %d\n", sess.Favorites.Len())
}

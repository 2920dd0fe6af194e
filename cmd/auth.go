package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fintrack/internal/logger"
	"fintrack/pkg/models"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the finance API",
	Long: `Create a new account. The username is required, the email must contain "@",
and the password must have at least 6 characters and match its confirmation.
Registering does not log you in.

Passwords not given as flags are read from standard input, one per line.`,
	Example: `  fintrack register --username ada --email ada@example.com
  printf 'secret1\nsecret1\n' | fintrack register -u ada -e ada@example.com`,
	Args: cobra.NoArgs,
	RunE: runRegister,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	Example: `  fintrack login --username ada
  echo secret1 | fintrack login -u ada`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session token and cached transactions",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)

	registerCmd.Flags().StringP("username", "u", "", "Username")
	registerCmd.Flags().StringP("email", "e", "", "Email address")
	registerCmd.Flags().StringP("password", "p", "", "Password (read from stdin when empty)")
	registerCmd.Flags().String("confirm-password", "", "Password confirmation (read from stdin when empty)")

	loginCmd.Flags().StringP("username", "u", "", "Username")
	loginCmd.Flags().StringP("password", "p", "", "Password (read from stdin when empty)")
}

// prompt writes label and reads one line from in.
func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read %s", strings.TrimSuffix(strings.ToLower(label), ": "))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("register")

	r := models.Registration{}
	r.Username, _ = cmd.Flags().GetString("username")
	r.Email, _ = cmd.Flags().GetString("email")
	r.Password, _ = cmd.Flags().GetString("password")
	r.ConfirmPassword, _ = cmd.Flags().GetString("confirm-password")

	in := bufio.NewReader(cmd.InOrStdin())
	var err error
	if r.Password == "" {
		if r.Password, err = prompt(in, cmd.ErrOrStderr(), "Password: "); err != nil {
			return err
		}
	}
	if r.ConfirmPassword == "" {
		if r.ConfirmPassword, err = prompt(in, cmd.ErrOrStderr(), "Confirm password: "); err != nil {
			return err
		}
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.session.Register(ctx, r)
	if err != nil {
		return handleAPIError(err, log)
	}

	log.Info().Str("username", user.Username).Msg("Account created")
	fmt.Fprintf(cmd.OutOrStdout(), "Account %s created. Run 'fintrack login' to sign in.\n", r.Username)
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("login")

	creds := models.Credentials{}
	creds.Username, _ = cmd.Flags().GetString("username")
	creds.Password, _ = cmd.Flags().GetString("password")

	in := bufio.NewReader(cmd.InOrStdin())
	var err error
	if creds.Username == "" {
		if creds.Username, err = prompt(in, cmd.ErrOrStderr(), "Username: "); err != nil {
			return err
		}
	}
	if creds.Password == "" {
		if creds.Password, err = prompt(in, cmd.ErrOrStderr(), "Password: "); err != nil {
			return err
		}
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.session.Login(ctx, creds)
	if err != nil {
		return handleAPIError(err, log)
	}

	name := resp.Username
	if name == "" {
		name = creds.Username
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("logout")

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	a.store.Teardown()
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("whoami")

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	a, err := newApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.requireSession(ctx)
	if err != nil {
		return handleAPIError(err, log)
	}

	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), user)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> (id %s)\n", user.Username, user.Email, user.ID)
	return nil
}

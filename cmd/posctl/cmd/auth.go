package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handidevproject/pos-dashboard/internal/validation"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in and store the session for later commands.

The password is read from --password, then POSCTL_PASSWORD, then stdin.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv("POSCTL_PASSWORD")
	}
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	form, fe := validation.ParseLogin(validation.FormData{Values: url.Values{
		"email":    {email},
		"password": {password},
	}})
	if fe.HasErrors() {
		return fieldError(fe)
	}

	client, err := getClient(cmd)
	if err != nil {
		return err
	}

	session, err := client.Auth.SignInWithPassword(cmd.Context(), form.Email, form.Password)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), session.User)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s\n", colorGreen("✓"), form.Email)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	client, err := getClient(cmd)
	if err != nil {
		return err
	}
	if err := client.Auth.SignOut(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out\n", colorGreen("✓"))
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	client, err := getClient(cmd)
	if err != nil {
		return err
	}

	user, err := client.Auth.GetUser(cmd.Context())
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), user)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:     %s\n", user.ID)
	fmt.Fprintf(out, "Email:  %s\n", user.Email)
	fmt.Fprintf(out, "Name:   %s\n", user.MetadataString("name"))
	fmt.Fprintf(out, "Role:   %s\n", user.MetadataString("role"))
	return nil
}

// fieldError flattens field errors into one message per line.
func fieldError(fe validation.FieldErrors) error {
	var lines []string
	for field, msgs := range fe {
		for _, m := range msgs {
			if field == validation.FormKey {
				lines = append(lines, m)
			} else {
				lines = append(lines, field+": "+m)
			}
		}
	}
	sort.Strings(lines)
	return errors.New(strings.Join(lines, "\n"))
}

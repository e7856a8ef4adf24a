package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/pkg/pagination"
	"github.com/handidevproject/pos-dashboard/internal/repository"
	"github.com/handidevproject/pos-dashboard/internal/service"
	"github.com/handidevproject/pos-dashboard/internal/validation"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage dashboard users",
	Long: `User management commands.

Examples:
  posctl users list
  posctl users list --search ana --page 2 --limit 25
  posctl users create --email new@example.com --password s3cret --name "Ana Lima" --role cashier`,
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE:  runUsersList,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user",
	RunE:  runUsersCreate,
}

func init() {
	usersListCmd.Flags().String("search", "", "filter by name")
	usersListCmd.Flags().Int("page", pagination.DefaultPage, "page number")
	usersListCmd.Flags().Int("limit", pagination.DefaultLimit, "rows per page (5, 10, 25, 50, 100)")

	usersCreateCmd.Flags().String("email", "", "email address")
	usersCreateCmd.Flags().String("password", "", "initial password")
	usersCreateCmd.Flags().String("name", "", "display name")
	usersCreateCmd.Flags().String("role", "", "role (admin, cashier, kitchen)")
	usersCreateCmd.Flags().String("avatar-url", "", "avatar image URL")

	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersCreateCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	search, _ := cmd.Flags().GetString("search")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")

	client, err := getClient(cmd)
	if err != nil {
		return err
	}

	state := pagination.New().WithLimit(limit).WithPage(page)
	users := service.NewUserService(nil, logger(cmd))
	list, err := users.ListUsers(cmd.Context(), repository.NewProfileRepository(client), repository.ProfileQuery{
		Search: search,
		Page:   state,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, map[string]any{
			"users":       list.Profiles,
			"total":       list.Total,
			"page":        state.Page,
			"total_pages": state.TotalPages(list.Total),
		})
	}

	if len(list.Profiles) == 0 {
		fmt.Fprintln(out, "No users found")
		return nil
	}

	w := newTable(out)
	printTableHeader(w, "ID", "NAME", "ROLE", "CREATED")
	for _, p := range list.Profiles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Role, p.CreatedAt.Format("2006-01-02"))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nPage %d of %d (%d users)\n", state.Page, state.TotalPages(list.Total), list.Total)
	return nil
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	values := url.Values{}
	for flag, field := range map[string]string{
		"email":      "email",
		"password":   "password",
		"name":       "name",
		"role":       "role",
		"avatar-url": "avatar_url",
	} {
		v, _ := cmd.Flags().GetString(flag)
		values.Set(field, v)
	}

	client, err := getStatelessClient(cmd)
	if err != nil {
		return err
	}

	users := service.NewUserService(nil, logger(cmd))
	st := users.CreateUser(cmd.Context(), client.Auth, models.Idle(), validation.FormData{Values: values})

	if jsonOut {
		if err := printJSON(cmd.OutOrStdout(), st); err != nil {
			return err
		}
	}
	if st.Status() != models.StatusSuccess {
		return fieldError(st.Errors())
	}
	if !jsonOut {
		fmt.Fprintf(cmd.OutOrStdout(), "%s User %s created\n", colorGreen("✓"), values.Get("email"))
	}
	return nil
}

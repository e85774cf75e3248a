package cmd

import (
	"fmt"

	"github.com/solutionsscriptware-cmd/billflow/config"
	"github.com/solutionsscriptware-cmd/billflow/models"
	"github.com/solutionsscriptware-cmd/billflow/services"
	"github.com/spf13/cobra"
)

var addUserCmd = &cobra.Command{
	Use:   "add-user",
	Short: "Create a user account",
	Example: `  # Create the first administrator
  billflow add-user --email owner@example.com --name Owner --password 's3cret-pass' --role admin`,
	RunE: runAddUser,
}

func init() {
	rootCmd.AddCommand(addUserCmd)

	addUserCmd.Flags().String("email", "", "Login email [REQUIRED]")
	addUserCmd.Flags().String("name", "", "Display name")
	addUserCmd.Flags().String("password", "", "Password, at least 8 characters [REQUIRED]")
	addUserCmd.Flags().String("role", models.RoleUser, "Role (admin or user)")

	addUserCmd.MarkFlagRequired("email")
	addUserCmd.MarkFlagRequired("password")
}

func runAddUser(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	password, _ := cmd.Flags().GetString("password")
	role, _ := cmd.Flags().GetString("role")

	db, err := openDB()
	if err != nil {
		return err
	}
	if err := config.Migrate(db); err != nil {
		return err
	}

	if name == "" {
		name = email
	}
	user, err := services.NewUserService(db).CreateUser(cmd.Context(), email, name, password, role)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (id %d)\n", user.Role, user.Email, user.ID)
	return nil
}

package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/crimengo/crimengo/internal/auth"
	"github.com/crimengo/crimengo/internal/model"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage operator accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an operator account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		password, _ := cmd.Flags().GetString("password")
		isAdmin, _ := cmd.Flags().GetBool("admin")

		if len(password) < 8 {
			return eris.New("--password must be at least 8 characters")
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		existing, err := st.GetUser(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "user lookup")
		}
		if existing != nil {
			return eris.Errorf("user %q already exists", args[0])
		}

		if err := st.CreateUser(ctx, model.User{
			Username:     args[0],
			PasswordHash: hash,
			IsAdmin:      isAdmin,
		}); err != nil {
			return err
		}

		fmt.Printf("Created user %s (admin: %v).\n", args[0], isAdmin)
		return nil
	},
}

func init() {
	userCreateCmd.Flags().String("password", "", "account password")
	userCreateCmd.Flags().Bool("admin", false, "grant admin access")
	userCmd.AddCommand(userCreateCmd)
	rootCmd.AddCommand(userCmd)
}

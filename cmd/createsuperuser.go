/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/recipebox/apiserver/config"
	"github.com/recipebox/apiserver/internal/db"
	"github.com/recipebox/apiserver/internal/services"
	"github.com/recipebox/apiserver/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	superuserEmail string
	superuserName  string
)

// createsuperuserCmd bootstraps a staff/superuser account.
var createsuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a superuser account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		dbConn, err := db.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		fmt.Fprint(os.Stderr, "Password: ")
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		users := services.NewUserService(store.NewUserRepository(dbConn))
		user, err := users.CreateSuperuser(cmd.Context(), services.UserInput{
			Email:    superuserEmail,
			Name:     superuserName,
			Password: string(password),
		})
		if err != nil {
			return err
		}

		fmt.Printf("superuser %s created (id %d)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createsuperuserCmd)
	createsuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "email address of the superuser")
	createsuperuserCmd.Flags().StringVar(&superuserName, "name", "", "display name of the superuser")
	_ = createsuperuserCmd.MarkFlagRequired("email")
}

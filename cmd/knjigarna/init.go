package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var dbPath, username, email string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new database with default sections and an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(dbPath); err == nil {
				return fmt.Errorf("database file %s already exists", dbPath)
			}

			database, err := openDatabase(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			password, err := bootstrap(context.Background(), database, username, email)
			if err != nil {
				database.Close()
				os.Remove(dbPath)
				return err
			}

			printInitResult(dbPath, username, password)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dbPath, "db", "d", "knjigarna.sqlite3", "SQLite database path")
	cmd.Flags().StringVarP(&username, "user", "u", "admin", "admin username")
	cmd.Flags().StringVarP(&email, "email", "e", "admin@knjigarna.local", "admin email")
	return cmd
}

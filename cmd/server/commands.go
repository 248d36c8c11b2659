package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"taskpanel/internal/config"
	"taskpanel/internal/database"
	"taskpanel/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Task panel server",
	Long: `Task panel server. Without a subcommand it starts the HTTP server.

Configuration is read from the environment and an optional .env file.`,
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)
		return database.Migrate(db, cfg.DBDriver, database.DefaultMigrationConfig(cfg.DBName))
	},
}

var superAdmin struct {
	username string
	email    string
	password string
}

var createSuperAdminCmd = &cobra.Command{
	Use:   "create-superadmin",
	Short: "Create an active SuperAdmin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		defer database.Close(db)

		if err := database.Migrate(db, cfg.DBDriver, database.DefaultMigrationConfig(cfg.DBName)); err != nil {
			return err
		}

		user, err := server.CreateSuperAdmin(context.Background(), db, superAdmin.username, superAdmin.email, superAdmin.password)
		if err != nil {
			return fmt.Errorf("create superadmin: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "SuperAdmin %s created (%s)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	createSuperAdminCmd.Flags().StringVar(&superAdmin.username, "username", "", "login name")
	createSuperAdminCmd.Flags().StringVar(&superAdmin.email, "email", "", "email address")
	createSuperAdminCmd.Flags().StringVar(&superAdmin.password, "password", "", "initial password")
	_ = createSuperAdminCmd.MarkFlagRequired("username")
	_ = createSuperAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, migrateCmd, createSuperAdminCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	s, err := server.Init(cfg)
	if err != nil {
		log.Fatalf("❌ Server initialization failed: %v", err)
	}

	s.Run()
	return nil
}

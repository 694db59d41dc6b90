package main

import (
	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-pharmacy-auth"
	"github.com/goliatone/go-pharmacy-auth/session"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the organizations, users and session_states tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		if err := auth.CreateSchema(ctx, app.db); err != nil {
			return err
		}
		if err := session.NewBunStorage(app.db).CreateTable(ctx); err != nil {
			return err
		}

		app.GetLogger("migrate").Info("schema ready", "driver", app.config.Persistence.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

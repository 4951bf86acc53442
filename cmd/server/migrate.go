package main

import (
	"github.com/anonto42/storydesk/backend/pkg/config"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := config.InitDB(cfg.Store, log)
		if err != nil {
			return err
		}
		defer db.CloseDB()
		return db.Migrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

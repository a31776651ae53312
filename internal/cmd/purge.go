package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justestif/go-weather-mood/internal/learning"
	"github.com/justestif/go-weather-mood/internal/logging"
	"github.com/justestif/go-weather-mood/internal/purge"
)

var purgeDays int

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete mood feedback older than the retention period",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		days := cfg.Learning.RetentionDays
		if cmd.Flags().Changed("days") {
			days = purgeDays
		}

		store, err := openStorage(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		defer store.close()

		svc := purge.New(learning.NewStore(store.repo), days, purge.WithLogger(logging.Component("purge")))
		res, err := svc.Run(cmd.Context(), true)
		if err != nil {
			return fmt.Errorf("purging feedback: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d feedback records older than %d days\n", res.Deleted, days)
		return nil
	},
}

func init() {
	purgeCmd.Flags().IntVar(&purgeDays, "days", learning.DefaultRetentionDays, "retention in days (default from config)")
	rootCmd.AddCommand(purgeCmd)
}

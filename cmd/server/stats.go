package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"huanbo/internal/auth"
	"huanbo/internal/contact/service"
	"huanbo/internal/platform/config"
	"huanbo/internal/platform/logger"
)

func newStatsCmd(envFile *string) *cobra.Command {
	var mintTTL time.Duration

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print submission statistics, or mint an admin token with --mint-token",
		Long: "Prints the same aggregation served by GET /api/admin/stats. The badger backend " +
			"holds a directory lock, so run this against a stopped server or use the HTTP endpoint.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*envFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if mintTTL > 0 {
				if cfg.Admin.Mode != "jwt" {
					return errors.New("--mint-token requires ADMIN_AUTH=jwt")
				}
				token, err := auth.NewJWTIssuer(cfg.Admin).GenerateAdminToken(mintTTL)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, token)
				return err
			}

			loc, err := time.LoadLocation(cfg.Mail.Timezone)
			if err != nil {
				return fmt.Errorf("load timezone: %w", err)
			}
			log := logger.New(cfg.Server.Environment)
			submissions, closeStore, err := openStore(cfg.Storage, log, nil)
			if err != nil {
				return err
			}
			defer closeStore()

			subs, err := submissions.ReadAll(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(service.Aggregate(subs, time.Now(), loc))
		},
	}
	cmd.Flags().DurationVar(&mintTTL, "mint-token", 0, "mint an admin JWT valid for this long instead of printing stats")
	return cmd
}

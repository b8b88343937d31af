package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehrlich-b/ttyplay/internal/config"
	"github.com/ehrlich-b/ttyplay/internal/serve"
)

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	var recordingKey string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a serve-mode viewer token",
		Long:  "Generates a JWT a browser viewer can use to connect to a --listen session for the given recording key.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.UserConfigDir()
			if err != nil {
				return err
			}
			cfg, err := config.Load(dir)
			if err != nil {
				return err
			}
			if cfg.ServeSecret == "" {
				return fmt.Errorf("serve_secret not configured in %s/config.yaml", dir)
			}
			if recordingKey == "" {
				return fmt.Errorf("--recording-key is required")
			}
			tok, err := serve.IssueViewerToken([]byte(cfg.ServeSecret), recordingKey, ttl)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringVar(&recordingKey, "recording-key", "", "recording key the token authorizes")
	return cmd
}

package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"techbar/internal/models"
	"techbar/internal/service"
)

var (
	watchState   string
	watchTimeout time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <submission-id>",
	Short: "Wait for a submission to reach a core state",
	Long: `Polls a submission on the platform with an increasing delay until it
reaches --state (Submitted by default) and prints it as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), watchTimeout)
		defer cancel()

		svc := service.New(nil, service.WithSubmissions(newPlatformClient(cfg)))
		sub, err := svc.AwaitSubmission(ctx, args[0], models.CoreState(watchState))
		if err != nil {
			if sub != nil {
				zap.S().Infow("last seen state", "id", sub.ID, "state", sub.CoreState)
			}
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sub)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchState, "state", string(models.CoreStateSubmitted), "core state to wait for (Draft, Submitted, Closed)")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 10*time.Minute, "give up after this long")
}

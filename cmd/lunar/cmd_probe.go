package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lunarmonkeys/internal/manifest"
	"lunarmonkeys/internal/mission"
)

// probeCmd checks backend connectivity the same way the console does at
// startup.
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the mission backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cfg, manifest.NewFileTokenStore(cfg.GetTokenPath()))
		if err != nil {
			return err
		}

		logger.Debug("Probing backend", zap.String("url", cfg.BackendURL()))
		res := mission.Probe(cmd.Context(), a.client)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Backend: %s\n", cfg.BackendURL())
		fmt.Fprintf(out, "Admin:   %s\n", cfg.AdminURL())
		if !res.Success {
			fmt.Fprintln(out, "Status:  Connection Lost")
			logger.Warn("Backend unreachable", zap.Error(res.Err))
			return fmt.Errorf("backend unreachable: %w", res.Err)
		}

		fmt.Fprintln(out, "Status:  System Online")
		if a.client.HasSession() {
			fmt.Fprintln(out, "Session: stored token present")
		} else {
			fmt.Fprintln(out, "Session: none")
		}
		logger.Info("Backend reachable", zap.String("url", cfg.BackendURL()))
		return nil
	},
}

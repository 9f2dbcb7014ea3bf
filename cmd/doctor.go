package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/observability"
)

// newDoctorCmd verifies the local setup: configuration, browser driver, and
// browser launch.
func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verifies the configuration and browser installation",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg := a.cfg

			fmt.Printf("environment:  %s\n", cfg.Environment)
			fmt.Printf("base url:     %s\n", cfg.BaseURL)
			fmt.Printf("api url:      %s\n", cfg.API.BaseURL)
			fmt.Printf("browser:      %s (headless=%t, %dx%d)\n",
				cfg.Browser.Name, cfg.Browser.Headless,
				cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight)
			fmt.Printf("database:     %s\n", cfg.Database.DSN(false))
			fmt.Printf("workers:      %d\n", cfg.Test.ParallelWorkers)

			manager := browser.NewManager(cfg, logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := manager.Shutdown(shutdownCtx); err != nil {
					logger.Warn("browser shutdown failed", zap.Error(err))
				}
			}()

			started := time.Now()
			if err := manager.HealthCheck(cmd.Context()); err != nil {
				fmt.Printf("browser:      FAILED (%v)\n", err)
				return err
			}
			fmt.Printf("browser:      OK (launched in %s)\n", time.Since(started).Round(time.Millisecond))
			return nil
		},
	}
}

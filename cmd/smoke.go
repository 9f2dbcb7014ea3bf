package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/apiclient"
	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
	"github.com/xkilldash9x/sockshop-e2e/internal/observability"
	"github.com/xkilldash9x/sockshop-e2e/internal/pages"
	"github.com/xkilldash9x/sockshop-e2e/internal/runner"
)

// newSmokeCmd runs the smoke suite against the configured storefront: home
// page health, catalogue presence, and agreement between the UI and the
// catalogue API.
func newSmokeCmd(a *app) *cobra.Command {
	var skipAPI bool

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Runs the storefront smoke suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()
			cfg := a.cfg

			manager := browser.NewManager(cfg, logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := manager.Shutdown(shutdownCtx); err != nil {
					logger.Warn("browser shutdown failed", zap.Error(err))
				}
			}()

			suite := runner.NewSuite("smoke", cfg, manager, logger)
			suite.Add(
				runner.Scenario{
					Name: "home_page_loads",
					Tags: []string{"smoke"},
					Run: func(ctx context.Context, session *browser.Session) error {
						page, err := session.NewPage()
						if err != nil {
							return err
						}
						home := pages.NewHome(session, page, cfg, logger)
						if err := home.Open(ctx); err != nil {
							return err
						}
						title, err := home.Title()
						if err != nil {
							return err
						}
						logger.Info("home page loaded", zap.String("title", title))
						return nil
					},
				},
				runner.Scenario{
					Name: "catalogue_lists_products",
					Tags: []string{"smoke"},
					Run: func(ctx context.Context, session *browser.Session) error {
						page, err := session.NewPage()
						if err != nil {
							return err
						}
						catalogue := pages.NewCatalogue(session, page, cfg, logger)
						if err := catalogue.Open(ctx); err != nil {
							return err
						}
						count, err := catalogue.ProductCount()
						if err != nil {
							return err
						}
						if count == 0 {
							return errs.New("catalogue shows no products", errs.CategoryTest, errs.SeverityHigh)
						}
						logger.Info("catalogue populated", zap.Int("products", count))
						return nil
					},
				},
			)

			if !skipAPI {
				client, err := apiclient.NewClient(cfg, logger)
				if err != nil {
					return err
				}
				suite.Add(runner.Scenario{
					Name: "catalogue_api_agrees_with_ui",
					Tags: []string{"smoke", "api"},
					Run: func(ctx context.Context, session *browser.Session) error {
						size, err := client.CatalogueSize(ctx)
						if err != nil {
							return err
						}
						if size == 0 {
							return errs.New("catalogue API reports no products", errs.CategoryTest, errs.SeverityHigh)
						}

						page, err := session.NewPage()
						if err != nil {
							return err
						}
						catalogue := pages.NewCatalogue(session, page, cfg, logger)
						if err := catalogue.Open(ctx); err != nil {
							return err
						}
						shown, err := catalogue.ProductCount()
						if err != nil {
							return err
						}
						if shown > size {
							return errs.Newf(errs.CategoryTest, errs.SeverityHigh,
								"UI shows %d products but the API reports only %d", shown, size)
						}
						return nil
					},
				})
			}

			summary, err := suite.Run(cmd.Context())
			if err != nil {
				return err
			}

			written, err := runner.WriteReports(summary, cfg.Test.ReportDir, cfg.Test.ReportFormats, logger)
			if err != nil {
				logger.Warn("report generation failed", zap.Error(err))
			}
			for _, path := range written {
				fmt.Printf("report: %s\n", path)
			}

			fmt.Printf("smoke: %d passed, %d failed, %d skipped\n",
				summary.Passed, summary.Failed, summary.Skipped)
			if !summary.Ok() {
				return errs.Newf(errs.CategoryTest, errs.SeverityHigh,
					"smoke suite failed: %d of %d scenarios", summary.Failed, len(summary.Results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipAPI, "skip-api", false, "skip checks that call the backend API directly")
	return cmd
}

package cmd

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/sethvargo/go-githubactions"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-package-stats/internal/config"
	"github.com/naka-gawa/github-package-stats/internal/gateway"
	"github.com/naka-gawa/github-package-stats/internal/report"
	"github.com/naka-gawa/github-package-stats/internal/usecase"
)

func newPackagesCommand(a *app) *cobra.Command {
	var printJSON bool
	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Aggregates GitHub Packages of an organization and writes them as JSON",
		Long: `Enumerates every package of each supported type in a GitHub organization,
fetches its version count and owning repository, and writes the aggregate to
output/package-stats-org.json (org-level) or output/package-stats-repo.json (repo-level).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}

			// Inject dependencies and run the main business logic.
			githubGateway, err := gateway.NewGitHubGateway(ctx, cfg.Authenticator(), cfg.APIURL, a.logger)
			if err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInvalidArgument).
					WithMsg("failed to create GitHub gateway").
					WithCause(err)
			}
			aggregator := usecase.NewAggregator(githubGateway, a.logger)

			stats, err := aggregator.Aggregate(ctx, cfg.Org, cfg.Mode)
			if err != nil {
				return errbuilder.New().
					WithCode(errbuilder.CodeInternal).
					WithMsg("failed to aggregate package stats").
					WithCause(err)
			}

			writer := report.NewWriter(cfg.OutputDir, actionFromEnv())
			if printJSON {
				writer.Stdout = cmd.OutOrStdout()
			}
			path, err := writer.Write(stats)
			if err != nil {
				return err
			}
			a.logger.Info().Str("path", path).Msg("Package stats written")
			return nil
		},
	}
	cmd.Flags().StringP(config.KeyOrg, "o", "", "Target GitHub organization (defaults to GITHUB_REPOSITORY_OWNER)")
	cmd.Flags().StringP(config.KeyMode, "m", "", "Grouping mode: org-level or repo-level (default org-level)")
	cmd.Flags().String(config.KeyToken, "", "Token used for authentication (defaults to GITHUB_TOKEN)")
	cmd.Flags().String(config.KeyAppID, "", "GitHub App ID, used with --private-key and --installation-id")
	cmd.Flags().String(config.KeyPrivateKey, "", "GitHub App private key in PEM format")
	cmd.Flags().String(config.KeyInstallationID, "", "GitHub App installation ID")
	cmd.Flags().String(config.KeyOutputDir, "", "Directory the JSON report is written to (default output)")
	cmd.Flags().String(config.KeyAPIURL, "", "GitHub REST API URL, for GitHub Enterprise Server")
	cmd.Flags().BoolVar(&printJSON, "stdout", false, "Also print the JSON report to standard output")
	cobra.CheckErr(config.Bind(a.v, cmd.Flags()))
	return cmd
}

// actionFromEnv returns an Actions client when running inside a GitHub Actions workflow.
func actionFromEnv() *githubactions.Action {
	if os.Getenv("GITHUB_ACTIONS") != "true" {
		return nil
	}
	return githubactions.New()
}

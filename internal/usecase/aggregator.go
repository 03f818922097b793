// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/naka-gawa/github-package-stats/internal/domain"
	"github.com/naka-gawa/github-package-stats/internal/gateway"
)

// Aggregator is the use case for aggregating package stats.
// It orchestrates the fetching of packages and folds them into a report.
type Aggregator struct {
	fetcher gateway.PackageFetcher
	logger  zerolog.Logger
}

// NewAggregator creates a new Aggregator instance.
func NewAggregator(fetcher gateway.PackageFetcher, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Aggregate walks every package type serially and builds the report for mode.
// A type that cannot be listed, or a package whose detail cannot be fetched,
// is logged and skipped; only cancellation of ctx aborts the run.
func (a *Aggregator) Aggregate(ctx context.Context, org string, mode domain.Mode) (domain.Report, error) {
	if org == "" {
		return domain.Report{}, fmt.Errorf("organization must not be empty")
	}
	a.logger.Info().Str("org", org).Str("mode", string(mode)).Msg("Usecase: Starting package aggregation...")

	strategy := NewStrategy(mode)
	summary := newRunSummary()
	types := domain.AllPackageTypes()
	for i, packageType := range types {
		if err := ctx.Err(); err != nil {
			return domain.Report{}, err
		}
		a.logger.Info().Msgf("[%d/%d] Fetching %s packages...", i+1, len(types), packageType)

		packages, err := a.fetcher.ListPackages(ctx, org, packageType)
		if err != nil {
			a.logger.Warn().Err(err).Str("type", string(packageType)).Msg("Skipping package type")
			summary.skippedTypes++
			continue
		}
		if len(packages) == 0 {
			a.logger.Debug().Str("type", string(packageType)).Msg("No packages found")
			continue
		}
		summary.enumerated += len(packages)

		strategy.BeginType(packageType, len(packages))
		for _, pkg := range packages {
			if err := ctx.Err(); err != nil {
				return domain.Report{}, err
			}
			detail, err := a.fetcher.GetPackage(ctx, org, packageType, pkg.Name)
			if err != nil {
				a.logger.Warn().Err(err).Str("type", string(packageType)).Str("package", pkg.Name).Msg("Skipping package")
				summary.skippedPackages++
				continue
			}
			detail.Type = packageType
			strategy.AddPackage(detail)
			summary.record(packageType, detail.VersionCount)
		}
		strategy.EndType(packageType)
	}

	summary.log(a.logger)
	a.logger.Info().Msg("Usecase: Aggregation complete.")
	return strategy.Report(), nil
}

package usecase

import (
	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"github.com/naka-gawa/github-package-stats/internal/domain"
)

// runSummary collects what a run saw, for the closing log lines only.
// None of it ends up in the report.
type runSummary struct {
	enumerated      int
	skippedPackages int
	skippedTypes    int
	order           []domain.PackageType
	versions        map[domain.PackageType]stats.Float64Data
}

type versionDistribution struct {
	Packages int
	Mean     float64
	Median   float64
	Max      float64
}

func newRunSummary() *runSummary {
	return &runSummary{versions: make(map[domain.PackageType]stats.Float64Data)}
}

func (s *runSummary) record(packageType domain.PackageType, versionCount int64) {
	if _, ok := s.versions[packageType]; !ok {
		s.order = append(s.order, packageType)
	}
	s.versions[packageType] = append(s.versions[packageType], float64(versionCount))
}

func (s *runSummary) distribution(packageType domain.PackageType) (versionDistribution, bool) {
	data := s.versions[packageType]
	if len(data) == 0 {
		return versionDistribution{}, false
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return versionDistribution{}, false
	}
	median, err := stats.Median(data)
	if err != nil {
		return versionDistribution{}, false
	}
	maxVersions, err := stats.Max(data)
	if err != nil {
		return versionDistribution{}, false
	}
	return versionDistribution{Packages: len(data), Mean: mean, Median: median, Max: maxVersions}, true
}

func (s *runSummary) log(logger zerolog.Logger) {
	for _, packageType := range s.order {
		d, ok := s.distribution(packageType)
		if !ok {
			continue
		}
		logger.Info().
			Str("type", string(packageType)).
			Int("packages", d.Packages).
			Float64("mean_versions", d.Mean).
			Float64("median_versions", d.Median).
			Float64("max_versions", d.Max).
			Msg("Version distribution")
	}
	logger.Info().
		Int("enumerated", s.enumerated).
		Int("skipped_packages", s.skippedPackages).
		Int("skipped_types", s.skippedTypes).
		Msg("Run summary")
}

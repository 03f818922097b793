package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-package-stats/internal/domain"
)

// mockFetcher is a mock implementation of the gateway.PackageFetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) ListPackages(ctx context.Context, org string, packageType domain.PackageType) ([]domain.PackageSummary, error) {
	args := m.Called(ctx, org, packageType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PackageSummary), args.Error(1)
}

func (m *mockFetcher) GetPackage(ctx context.Context, org string, packageType domain.PackageType, name string) (domain.PackageDetail, error) {
	args := m.Called(ctx, org, packageType, name)
	return args.Get(0).(domain.PackageDetail), args.Error(1)
}

// fakePackage describes one package as the mock registry should serve it.
type fakePackage struct {
	name       string
	versions   int64
	repository string
	detailErr  error
}

// newMockFetcher registers every package type; types missing from packages are empty.
func newMockFetcher(packages map[domain.PackageType][]fakePackage, listErrs map[domain.PackageType]error) *mockFetcher {
	fetcher := new(mockFetcher)
	for _, packageType := range domain.AllPackageTypes() {
		if err, ok := listErrs[packageType]; ok {
			fetcher.On("ListPackages", mock.Anything, "any-org", packageType).Return(nil, err)
			continue
		}
		summaries := []domain.PackageSummary{}
		for _, pkg := range packages[packageType] {
			summaries = append(summaries, domain.PackageSummary{Name: pkg.name})
			detail := domain.PackageDetail{
				Name:         pkg.name,
				Type:         packageType,
				VersionCount: pkg.versions,
				Repository:   pkg.repository,
			}
			if pkg.detailErr != nil {
				detail = domain.PackageDetail{}
			}
			fetcher.On("GetPackage", mock.Anything, "any-org", packageType, pkg.name).Return(detail, pkg.detailErr)
		}
		fetcher.On("ListPackages", mock.Anything, "any-org", packageType).Return(summaries, nil)
	}
	return fetcher
}

// TestAggregator_Aggregate uses a table-driven approach to test the aggregator.
func TestAggregator_Aggregate(t *testing.T) {
	twoUnlinkedNpm := map[domain.PackageType][]fakePackage{
		domain.PackageTypeNpm: {{name: "a", versions: 3}, {name: "b", versions: 5}},
	}
	testCases := []struct {
		name           string
		mode           domain.Mode
		packages       map[domain.PackageType][]fakePackage
		listErrs       map[domain.PackageType]error
		expectedResult domain.Report
	}{
		{
			name:     "repo-level - unlinked npm packages",
			mode:     domain.ModeRepoLevel,
			packages: twoUnlinkedNpm,
			expectedResult: domain.Report{
				Mode: domain.ModeRepoLevel,
				Repositories: []domain.RepoAggregate{{
					Name:               domain.UnlinkedPackages,
					TotalPackageCount:  2,
					TotalVersionsCount: 8,
					Types:              []domain.RepoTypeBreakdown{{Type: domain.PackageTypeNpm, PackageCount: 2, VersionsCount: 8}},
				}},
			},
		},
		{
			name:     "org-level - unlinked npm packages",
			mode:     domain.ModeOrgLevel,
			packages: twoUnlinkedNpm,
			expectedResult: domain.Report{
				Mode:     domain.ModeOrgLevel,
				Packages: []domain.TypeAggregate{{Type: domain.PackageTypeNpm, TotalPackageCount: 2, VersionsCount: 8}},
			},
		},
		{
			name:           "org-level - no packages at all",
			mode:           domain.ModeOrgLevel,
			expectedResult: domain.Report{Mode: domain.ModeOrgLevel},
		},
		{
			name:           "repo-level - no packages at all",
			mode:           domain.ModeRepoLevel,
			expectedResult: domain.Report{Mode: domain.ModeRepoLevel},
		},
		{
			name: "org-level - failed detail still counts the package but not its versions",
			mode: domain.ModeOrgLevel,
			packages: map[domain.PackageType][]fakePackage{
				domain.PackageTypeNpm:    {{name: "a", versions: 3}, {name: "b", detailErr: errors.New("not found")}},
				domain.PackageTypeDocker: {{name: "c", detailErr: errors.New("forbidden")}},
			},
			expectedResult: domain.Report{
				Mode: domain.ModeOrgLevel,
				Packages: []domain.TypeAggregate{
					{Type: domain.PackageTypeNpm, TotalPackageCount: 2, VersionsCount: 3},
					{Type: domain.PackageTypeDocker, TotalPackageCount: 1, VersionsCount: 0},
				},
			},
		},
		{
			name: "repo-level - failed detail is dropped entirely",
			mode: domain.ModeRepoLevel,
			packages: map[domain.PackageType][]fakePackage{
				domain.PackageTypeNpm: {{name: "a", versions: 3, repository: "org/r1"}, {name: "b", detailErr: errors.New("not found")}},
			},
			expectedResult: domain.Report{
				Mode: domain.ModeRepoLevel,
				Repositories: []domain.RepoAggregate{{
					Name:               "org/r1",
					TotalPackageCount:  1,
					TotalVersionsCount: 3,
					Types:              []domain.RepoTypeBreakdown{{Type: domain.PackageTypeNpm, PackageCount: 1, VersionsCount: 3}},
				}},
			},
		},
		{
			name: "org-level - a type that cannot be listed is skipped",
			mode: domain.ModeOrgLevel,
			packages: map[domain.PackageType][]fakePackage{
				domain.PackageTypeRubyGems: {{name: "gem", versions: 7}},
			},
			listErrs: map[domain.PackageType]error{domain.PackageTypeMaven: errors.New("403 Forbidden")},
			expectedResult: domain.Report{
				Mode:     domain.ModeOrgLevel,
				Packages: []domain.TypeAggregate{{Type: domain.PackageTypeRubyGems, TotalPackageCount: 1, VersionsCount: 7}},
			},
		},
		{
			name: "repo-level - repositories and breakdowns keep first-seen order",
			mode: domain.ModeRepoLevel,
			packages: map[domain.PackageType][]fakePackage{
				domain.PackageTypeNpm: {
					{name: "a", versions: 2, repository: "org/r1"},
					{name: "b", versions: 1},
				},
				domain.PackageTypeContainer: {
					{name: "c", versions: 4, repository: "org/r2"},
					{name: "d", versions: 6, repository: "org/r1"},
				},
				domain.PackageTypeNuGet: {{name: "e", versions: 1, repository: "org/r1"}},
			},
			listErrs: map[domain.PackageType]error{domain.PackageTypeDocker: errors.New("timeout")},
			expectedResult: domain.Report{
				Mode: domain.ModeRepoLevel,
				Repositories: []domain.RepoAggregate{
					{
						Name:               "org/r1",
						TotalPackageCount:  3,
						TotalVersionsCount: 9,
						Types: []domain.RepoTypeBreakdown{
							{Type: domain.PackageTypeNpm, PackageCount: 1, VersionsCount: 2},
							{Type: domain.PackageTypeContainer, PackageCount: 1, VersionsCount: 6},
							{Type: domain.PackageTypeNuGet, PackageCount: 1, VersionsCount: 1},
						},
					},
					{
						Name:               domain.UnlinkedPackages,
						TotalPackageCount:  1,
						TotalVersionsCount: 1,
						Types:              []domain.RepoTypeBreakdown{{Type: domain.PackageTypeNpm, PackageCount: 1, VersionsCount: 1}},
					},
					{
						Name:               "org/r2",
						TotalPackageCount:  1,
						TotalVersionsCount: 4,
						Types:              []domain.RepoTypeBreakdown{{Type: domain.PackageTypeContainer, PackageCount: 1, VersionsCount: 4}},
					},
				},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := newMockFetcher(tc.packages, tc.listErrs)
			aggregator := NewAggregator(fetcher, zerolog.Nop())

			result, err := aggregator.Aggregate(context.Background(), "any-org", tc.mode)

			require.NoError(t, err)
			if diff := cmp.Diff(tc.expectedResult, result, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("report mismatch (-want +got):\n%s", diff)
			}
			for _, repo := range result.Repositories {
				assert.True(t, repo.Consistent(), "repository %s totals do not match its breakdown", repo.Name)
			}
			fetcher.AssertExpectations(t)
		})
	}
}

func TestAggregator_TotalsMatchFetchedPackages(t *testing.T) {
	packages := map[domain.PackageType][]fakePackage{
		domain.PackageTypeNpm:       {{name: "a", versions: 3, repository: "org/r1"}, {name: "b", versions: 5}},
		domain.PackageTypeMaven:     {{name: "m", versions: 11, repository: "org/r2"}, {name: "x", detailErr: errors.New("gone")}},
		domain.PackageTypeContainer: {{name: "img", versions: 40, repository: "org/r1"}},
	}
	var fetched int
	var versions int64
	for _, list := range packages {
		for _, pkg := range list {
			if pkg.detailErr == nil {
				fetched++
				versions += pkg.versions
			}
		}
	}

	orgReport, err := NewAggregator(newMockFetcher(packages, nil), zerolog.Nop()).Aggregate(context.Background(), "any-org", domain.ModeOrgLevel)
	require.NoError(t, err)
	var orgVersions int64
	for _, agg := range orgReport.Packages {
		orgVersions += agg.VersionsCount
	}
	assert.Equal(t, versions, orgVersions)

	repoReport, err := NewAggregator(newMockFetcher(packages, nil), zerolog.Nop()).Aggregate(context.Background(), "any-org", domain.ModeRepoLevel)
	require.NoError(t, err)
	var repoPackages int
	var repoVersions int64
	for _, repo := range repoReport.Repositories {
		repoPackages += repo.TotalPackageCount
		repoVersions += repo.TotalVersionsCount
	}
	assert.Equal(t, fetched, repoPackages)
	assert.Equal(t, versions, repoVersions)
}

func TestAggregator_Aggregate_Errors(t *testing.T) {
	t.Run("empty organization", func(t *testing.T) {
		fetcher := new(mockFetcher)
		_, err := NewAggregator(fetcher, zerolog.Nop()).Aggregate(context.Background(), "", domain.ModeOrgLevel)
		assert.Error(t, err)
		fetcher.AssertNotCalled(t, "ListPackages", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled context stops before any request", func(t *testing.T) {
		fetcher := new(mockFetcher)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewAggregator(fetcher, zerolog.Nop()).Aggregate(ctx, "any-org", domain.ModeRepoLevel)
		assert.ErrorIs(t, err, context.Canceled)
		fetcher.AssertNotCalled(t, "ListPackages", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRunSummary_Distribution(t *testing.T) {
	summary := newRunSummary()
	summary.record(domain.PackageTypeNpm, 1)
	summary.record(domain.PackageTypeNpm, 3)
	summary.record(domain.PackageTypeNpm, 8)
	summary.record(domain.PackageTypeDocker, 0)

	d, ok := summary.distribution(domain.PackageTypeNpm)
	require.True(t, ok)
	assert.Equal(t, versionDistribution{Packages: 3, Mean: 4, Median: 3, Max: 8}, d)

	_, ok = summary.distribution(domain.PackageTypeMaven)
	assert.False(t, ok)
	assert.Equal(t, []domain.PackageType{domain.PackageTypeNpm, domain.PackageTypeDocker}, summary.order)
}

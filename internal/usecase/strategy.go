package usecase

import "github.com/naka-gawa/github-package-stats/internal/domain"

// Strategy folds fetched packages into one report shape. A strategy instance
// holds the state of a single run and must not be reused.
type Strategy interface {
	// BeginType is called before the details of a type with at least one package are fetched.
	BeginType(packageType domain.PackageType, enumerated int)
	// AddPackage is called once per successfully fetched package.
	AddPackage(detail domain.PackageDetail)
	// EndType is called after every package of the type has been attempted.
	EndType(packageType domain.PackageType)
	Report() domain.Report
}

// NewStrategy returns the strategy for mode.
func NewStrategy(mode domain.Mode) Strategy {
	if mode == domain.ModeRepoLevel {
		return NewRepoLevelStrategy()
	}
	return NewOrgLevelStrategy()
}

// OrgLevelStrategy groups packages by package type. Package counts come from
// enumeration, so a package whose detail fetch failed is still counted.
type OrgLevelStrategy struct {
	current  *domain.TypeAggregate
	packages []domain.TypeAggregate
}

func NewOrgLevelStrategy() *OrgLevelStrategy {
	return &OrgLevelStrategy{}
}

func (s *OrgLevelStrategy) BeginType(packageType domain.PackageType, enumerated int) {
	s.current = &domain.TypeAggregate{Type: packageType, TotalPackageCount: enumerated}
}

func (s *OrgLevelStrategy) AddPackage(detail domain.PackageDetail) {
	if s.current == nil || s.current.Type != detail.Type {
		return
	}
	s.current.VersionsCount += detail.VersionCount
}

func (s *OrgLevelStrategy) EndType(packageType domain.PackageType) {
	if s.current == nil || s.current.Type != packageType {
		return
	}
	if s.current.TotalPackageCount > 0 {
		s.packages = append(s.packages, *s.current)
	}
	s.current = nil
}

func (s *OrgLevelStrategy) Report() domain.Report {
	return domain.Report{Mode: domain.ModeOrgLevel, Packages: s.packages}
}

// RepoLevelStrategy groups packages by owning repository, in the order
// repositories are first seen. Packages without a repository are collected
// under domain.UnlinkedPackages.
type RepoLevelStrategy struct {
	order []string
	repos map[string]*domain.RepoAggregate
}

func NewRepoLevelStrategy() *RepoLevelStrategy {
	return &RepoLevelStrategy{repos: make(map[string]*domain.RepoAggregate)}
}

func (s *RepoLevelStrategy) BeginType(domain.PackageType, int) {}

func (s *RepoLevelStrategy) AddPackage(detail domain.PackageDetail) {
	name := detail.Repository
	if name == "" {
		name = domain.UnlinkedPackages
	}
	repo, ok := s.repos[name]
	if !ok {
		repo = &domain.RepoAggregate{Name: name, Types: []domain.RepoTypeBreakdown{}}
		s.repos[name] = repo
		s.order = append(s.order, name)
	}
	repo.Add(detail.Type, detail.VersionCount)
}

func (s *RepoLevelStrategy) EndType(domain.PackageType) {}

func (s *RepoLevelStrategy) Report() domain.Report {
	repositories := make([]domain.RepoAggregate, 0, len(s.order))
	for _, name := range s.order {
		repositories = append(repositories, *s.repos[name])
	}
	return domain.Report{Mode: domain.ModeRepoLevel, Repositories: repositories}
}

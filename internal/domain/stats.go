// Package domain contains the core data structures and domain logic for the application.
package domain

import "encoding/json"

// UnlinkedPackages is the repository name used for packages that have no owning repository.
const UnlinkedPackages = "unlinked packages"

// TypeAggregate holds the package and version totals for one package type.
type TypeAggregate struct {
	Type              PackageType `json:"type"`
	TotalPackageCount int         `json:"total_package_count"`
	VersionsCount     int64       `json:"versions_count"`
}

// RepoTypeBreakdown holds the totals for one package type within a repository.
type RepoTypeBreakdown struct {
	Type          PackageType `json:"type"`
	PackageCount  int         `json:"package_count"`
	VersionsCount int64       `json:"versions_count"`
}

// RepoAggregate holds the package and version totals for a single repository.
type RepoAggregate struct {
	Name               string              `json:"name"`
	TotalPackageCount  int                 `json:"total_package_count"`
	TotalVersionsCount int64               `json:"total_versions_count"`
	Types              []RepoTypeBreakdown `json:"types"`
}

// Add records one package of type t with the given number of versions.
func (r *RepoAggregate) Add(t PackageType, versions int64) {
	r.TotalPackageCount++
	r.TotalVersionsCount += versions
	for i := range r.Types {
		if r.Types[i].Type == t {
			r.Types[i].PackageCount++
			r.Types[i].VersionsCount += versions
			return
		}
	}
	r.Types = append(r.Types, RepoTypeBreakdown{Type: t, PackageCount: 1, VersionsCount: versions})
}

// Consistent reports whether the totals match the sum of the breakdown entries.
func (r *RepoAggregate) Consistent() bool {
	var packages int
	var versions int64
	for _, b := range r.Types {
		packages += b.PackageCount
		versions += b.VersionsCount
	}
	return packages == r.TotalPackageCount && versions == r.TotalVersionsCount
}

// Report is the root of the JSON artifact. Mode decides which of the two
// collections is serialized; the other one is never emitted.
type Report struct {
	Mode         Mode
	Packages     []TypeAggregate
	Repositories []RepoAggregate
}

// MarshalJSON renders {"packages": [...]} or {"repositories": [...]}.
func (r Report) MarshalJSON() ([]byte, error) {
	if r.Mode == ModeRepoLevel {
		repos := r.Repositories
		if repos == nil {
			repos = []RepoAggregate{}
		}
		return json.Marshal(struct {
			Repositories []RepoAggregate `json:"repositories"`
		}{repos})
	}
	packages := r.Packages
	if packages == nil {
		packages = []TypeAggregate{}
	}
	return json.Marshal(struct {
		Packages []TypeAggregate `json:"packages"`
	}{packages})
}

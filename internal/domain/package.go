package domain

import "fmt"

// PackageType is the registry ecosystem a package belongs to.
type PackageType string

const (
	PackageTypeNpm       PackageType = "npm"
	PackageTypeMaven     PackageType = "maven"
	PackageTypeRubyGems  PackageType = "rubygems"
	PackageTypeDocker    PackageType = "docker"
	PackageTypeContainer PackageType = "container"
	PackageTypeNuGet     PackageType = "nuget"
)

// AllPackageTypes returns every supported package type in the order they are queried.
func AllPackageTypes() []PackageType {
	return []PackageType{
		PackageTypeNpm,
		PackageTypeMaven,
		PackageTypeRubyGems,
		PackageTypeDocker,
		PackageTypeContainer,
		PackageTypeNuGet,
	}
}

// Valid reports whether t is one of the supported package types.
func (t PackageType) Valid() bool {
	for _, known := range AllPackageTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// ParsePackageType converts a raw string into a PackageType.
func ParsePackageType(s string) (PackageType, error) {
	t := PackageType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown package type %q", s)
	}
	return t, nil
}

// PackageSummary identifies a package returned by enumeration.
type PackageSummary struct {
	Name string
}

// PackageDetail is the per-package metadata needed for aggregation.
// An empty Repository means the package is not linked to any repository.
type PackageDetail struct {
	Name         string
	Type         PackageType
	VersionCount int64
	Repository   string
}

// Mode selects how the report groups packages.
type Mode string

const (
	ModeOrgLevel  Mode = "org-level"
	ModeRepoLevel Mode = "repo-level"
)

// ParseMode converts a raw string into a Mode. An empty string yields ModeOrgLevel.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeOrgLevel:
		return ModeOrgLevel, nil
	case ModeRepoLevel:
		return ModeRepoLevel, nil
	}
	return "", fmt.Errorf("unknown mode %q (want %q or %q)", s, ModeOrgLevel, ModeRepoLevel)
}

// OutputFileName is the name of the JSON artifact written for this mode.
func (m Mode) OutputFileName() string {
	if m == ModeRepoLevel {
		return "package-stats-repo.json"
	}
	return "package-stats-org.json"
}

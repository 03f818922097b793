// Package gateway provides a gateway to the GitHub Packages API,
// abstracting away the underlying REST client and its transport stack.
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v84/github"
	"github.com/rs/zerolog"

	"github.com/naka-gawa/github-package-stats/internal/domain"
)

// DefaultAPIURL is the REST endpoint of github.com.
const DefaultAPIURL = "https://api.github.com/"

const userAgent = "github-package-stats"

// PackageFetcher defines the behavior of a gateway for reading package metadata from GitHub.
type PackageFetcher interface {
	// ListPackages returns every package of the given type owned by org, following pagination.
	ListPackages(ctx context.Context, org string, packageType domain.PackageType) ([]domain.PackageSummary, error)
	// GetPackage returns the version count and owning repository of a single package.
	GetPackage(ctx context.Context, org string, packageType domain.PackageType, name string) (domain.PackageDetail, error)
}

// GitHubGateway is the concrete implementation of the PackageFetcher interface.
type GitHubGateway struct {
	restClient *github.Client
	logger     zerolog.Logger
}

// NewGitHubGateway builds the REST client once for the whole run. Requests go
// through the authenticator's transport, then the retry transport, then the
// secondary rate limit waiter.
func NewGitHubGateway(ctx context.Context, auth Authenticator, apiURL string, logger zerolog.Logger) (*GitHubGateway, error) {
	transport, err := NewTransport(DefaultRetryPolicy(), logger)
	if err != nil {
		return nil, err
	}
	httpClient, err := auth.HTTPClient(ctx, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create authenticated client: %w", err)
	}
	restClient, err := newRESTClient(httpClient, apiURL)
	if err != nil {
		return nil, err
	}
	return &GitHubGateway{
		restClient: restClient,
		logger:     logger,
	}, nil
}

// newRESTClient points a go-github client at apiURL. An empty apiURL keeps
// github.com; any other host is treated as GitHub Enterprise Server.
func newRESTClient(httpClient *http.Client, apiURL string) (*github.Client, error) {
	client := github.NewClient(httpClient)
	if apiURL != "" && apiURL != DefaultAPIURL {
		var err error
		client, err = client.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse API URL %q: %w", apiURL, err)
		}
	}
	client.UserAgent = userAgent
	return client, nil
}

func (g *GitHubGateway) ListPackages(ctx context.Context, org string, packageType domain.PackageType) ([]domain.PackageSummary, error) {
	if org == "" {
		return nil, fmt.Errorf("organization must not be empty")
	}
	if !packageType.Valid() {
		return nil, fmt.Errorf("unsupported package type %q", packageType)
	}
	opts := &github.PackageListOptions{
		PackageType: github.Ptr(string(packageType)),
		ListOptions: github.ListOptions{PerPage: 100},
	}
	var packages []domain.PackageSummary
	for {
		result, resp, err := g.restClient.Organizations.ListPackages(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s packages: %w", packageType, err)
		}
		for _, pkg := range result {
			packages = append(packages, domain.PackageSummary{Name: pkg.GetName()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug().Str("type", string(packageType)).Int("page", resp.NextPage).Msg("Fetching next page of packages...")
	}
	return packages, nil
}

func (g *GitHubGateway) GetPackage(ctx context.Context, org string, packageType domain.PackageType, name string) (domain.PackageDetail, error) {
	pkg, _, err := g.restClient.Organizations.GetPackage(ctx, org, string(packageType), name)
	if err != nil {
		return domain.PackageDetail{}, fmt.Errorf("failed to get %s package %s: %w", packageType, name, err)
	}
	return domain.PackageDetail{
		Name:         name,
		Type:         packageType,
		VersionCount: pkg.GetVersionCount(),
		Repository:   pkg.GetRepository().GetFullName(),
	}, nil
}

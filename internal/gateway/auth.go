package gateway

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// Authenticator produces an HTTP client that authenticates every request sent over base.
type Authenticator interface {
	HTTPClient(ctx context.Context, base http.RoundTripper) (*http.Client, error)
}

// TokenAuthenticator authenticates with a static bearer token.
type TokenAuthenticator struct {
	Token string
}

func (a TokenAuthenticator) HTTPClient(_ context.Context, base http.RoundTripper) (*http.Client, error) {
	if a.Token == "" {
		return nil, fmt.Errorf("token must not be empty")
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   base,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: a.Token}),
		},
	}, nil
}

// AppAuthenticator exchanges GitHub App credentials for an installation token.
// The installation token is refreshed automatically once it expires.
type AppAuthenticator struct {
	AppID          int64
	InstallationID int64
	PrivateKey     []byte
	// APIURL is where the token exchange is sent. Empty means github.com.
	APIURL string

	now func() time.Time
}

func (a AppAuthenticator) HTTPClient(ctx context.Context, base http.RoundTripper) (*http.Client, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(a.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse app private key: %w", err)
	}
	now := a.now
	if now == nil {
		now = time.Now
	}
	appClient, err := newRESTClient(&http.Client{
		Transport: &oauth2.Transport{
			Base:   base,
			Source: oauth2.ReuseTokenSource(nil, &appJWTSource{appID: a.AppID, key: key, now: now}),
		},
	}, a.APIURL)
	if err != nil {
		return nil, err
	}
	installation := &installationTokenSource{
		ctx:            ctx,
		client:         appClient,
		installationID: a.InstallationID,
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Base:   base,
			Source: oauth2.ReuseTokenSource(nil, installation),
		},
	}, nil
}

// appJWTSource signs the short-lived RS256 JWT that identifies the app itself.
type appJWTSource struct {
	appID int64
	key   *rsa.PrivateKey
	now   func() time.Time
}

func (s *appJWTSource) Token() (*oauth2.Token, error) {
	now := s.now()
	// GitHub rejects app JWTs living longer than 10 minutes; iat is backdated for clock drift.
	expiresAt := now.Add(9 * time.Minute)
	claims := jwt.RegisteredClaims{
		Issuer:    strconv.FormatInt(s.appID, 10),
		IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign app JWT: %w", err)
	}
	return &oauth2.Token{AccessToken: signed, TokenType: "Bearer", Expiry: expiresAt.Add(-time.Minute)}, nil
}

type installationTokenSource struct {
	ctx            context.Context
	client         *github.Client
	installationID int64
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	token, _, err := s.client.Apps.CreateInstallationToken(s.ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token: %w", err)
	}
	return &oauth2.Token{
		AccessToken: token.GetToken(),
		TokenType:   "Bearer",
		Expiry:      token.GetExpiresAt().Time,
	}, nil
}

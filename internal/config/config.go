// Package config loads and validates the run configuration from flags, the
// environment (including GitHub Action inputs) and an optional config file.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/naka-gawa/github-package-stats/internal/domain"
	"github.com/naka-gawa/github-package-stats/internal/gateway"
)

const (
	KeyOrg            = "org"
	KeyMode           = "mode"
	KeyToken          = "token"
	KeyAppID          = "app-id"
	KeyPrivateKey     = "private-key"
	KeyInstallationID = "installation-id"
	KeyOutputDir      = "output-dir"
	KeyAPIURL         = "api-url"

	// keyFallbackToken is only consulted when no explicit credentials were given.
	keyFallbackToken = "github-token"

	DefaultOutputDir = "output"
)

// envs lists the environment variables read for each key, in priority order.
// GitHub Actions exposes inputs as INPUT_<NAME> with the name upper-cased.
var envs = map[string][]string{
	KeyOrg:            {"INPUT_ORG", "GITHUB_REPOSITORY_OWNER"},
	KeyMode:           {"INPUT_MODE"},
	KeyToken:          {"INPUT_TOKEN"},
	KeyAppID:          {"INPUT_APP-ID", "INPUT_APP_ID"},
	KeyPrivateKey:     {"INPUT_PRIVATE-KEY", "INPUT_PRIVATE_KEY"},
	KeyInstallationID: {"INPUT_INSTALLATION-ID", "INPUT_INSTALLATION_ID"},
	KeyOutputDir:      {"INPUT_OUTPUT-DIR", "INPUT_OUTPUT_DIR"},
	KeyAPIURL:         {"INPUT_API-URL", "GITHUB_API_URL"},
	keyFallbackToken:  {"GITHUB_TOKEN"},
}

// Config is the validated configuration of a single run.
type Config struct {
	Org       string
	Mode      domain.Mode
	OutputDir string
	APIURL    string

	Token          string
	AppID          int64
	InstallationID int64
	PrivateKey     string
}

// Bind wires the flags in fs and the environment variables above into v.
// Flags that are absent from fs are bound to the environment only.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	v.SetDefault(KeyMode, string(domain.ModeOrgLevel))
	v.SetDefault(KeyOutputDir, DefaultOutputDir)
	v.SetDefault(KeyAPIURL, gateway.DefaultAPIURL)
	for key, names := range envs {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
		if fs == nil {
			continue
		}
		if flag := fs.Lookup(key); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return fmt.Errorf("failed to bind flag %s: %w", key, err)
			}
		}
	}
	return nil
}

// Load reads and validates the configuration. It performs no network access.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Org:       strings.TrimSpace(v.GetString(KeyOrg)),
		OutputDir: v.GetString(KeyOutputDir),
		APIURL:    v.GetString(KeyAPIURL),
		Token:     v.GetString(KeyToken),
	}
	if cfg.Org == "" {
		return Config{}, invalid("organization is required (--org or INPUT_ORG)", nil)
	}
	mode, err := domain.ParseMode(v.GetString(KeyMode))
	if err != nil {
		return Config{}, invalid("invalid mode", err)
	}
	cfg.Mode = mode
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	appID := strings.TrimSpace(v.GetString(KeyAppID))
	installationID := strings.TrimSpace(v.GetString(KeyInstallationID))
	privateKey := v.GetString(KeyPrivateKey)
	anyApp := appID != "" || installationID != "" || privateKey != ""

	switch {
	case cfg.Token != "" && anyApp:
		return Config{}, invalid("token and app credentials are mutually exclusive", nil)
	case cfg.Token != "":
		return cfg, nil
	case !anyApp:
		cfg.Token = v.GetString(keyFallbackToken)
		if cfg.Token == "" {
			return Config{}, invalid("authentication is required: provide either token or app-id, private-key and installation-id", nil)
		}
		return cfg, nil
	}

	var missing []string
	if appID == "" {
		missing = append(missing, KeyAppID)
	}
	if privateKey == "" {
		missing = append(missing, KeyPrivateKey)
	}
	if installationID == "" {
		missing = append(missing, KeyInstallationID)
	}
	if len(missing) > 0 {
		return Config{}, invalid(fmt.Sprintf("incomplete app credentials, missing: %s", strings.Join(missing, ", ")), nil)
	}
	if cfg.AppID, err = strconv.ParseInt(appID, 10, 64); err != nil {
		return Config{}, invalid("app-id must be a number", err)
	}
	if cfg.InstallationID, err = strconv.ParseInt(installationID, 10, 64); err != nil {
		return Config{}, invalid("installation-id must be a number", err)
	}
	// Keys passed through env vars often have their newlines escaped.
	cfg.PrivateKey = strings.ReplaceAll(privateKey, `\n`, "\n")
	return cfg, nil
}

// Authenticator returns the authentication strategy matching the credentials in c.
func (c Config) Authenticator() gateway.Authenticator {
	if c.Token != "" {
		return gateway.TokenAuthenticator{Token: c.Token}
	}
	return gateway.AppAuthenticator{
		AppID:          c.AppID,
		InstallationID: c.InstallationID,
		PrivateKey:     []byte(c.PrivateKey),
		APIURL:         c.APIURL,
	}
}

func invalid(msg string, cause error) error {
	b := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(msg)
	if cause != nil {
		b = b.WithCause(cause)
	}
	return b
}

package commands

import (
	"fmt"
	"log/slog"
	"os"
	"sebastian/lib/configutil"
	"sebastian/lib/scrapers/ariel/core"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
)

const (
	usernameEnv = "SEBASTIAN_USERNAME"
	passwordEnv = "SEBASTIAN_PASSWORD"
)

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Output is the directory downloads are written under.
	Output string `json:"output"`
	// Ledger is the sqlite file that remembers finished downloads.
	Ledger            string       `json:"ledger"`
	RequestsPerSecond float64      `json:"requests_per_second"`
	BypassCloudflare  bool         `json:"bypass_cloudflare"`
	Sitemap           core.Sitemap `json:"sitemap"`
}

func defaultConfig() Config {
	return Config{
		Output:  "downloads",
		Ledger:  ".sebastian/ledger.db",
		Sitemap: core.DefaultSitemap(),
	}
}

func (c Config) credentials() core.Credentials {
	return core.Credentials{Username: c.Username, Password: c.Password}
}

// loadConfig reads the config at `path` (a missing file is fine), fills in
// defaults and then lets SEBASTIAN_USERNAME and SEBASTIAN_PASSWORD from the
// environment or a .env file override the credentials.
func loadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if os.IsNotExist(err) {
		slog.Debug("no config file, using defaults", "path", path)
	} else if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	err = mergo.Merge(&cfg, defaultConfig())
	if err != nil {
		return Config{}, err
	}

	err = godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}
	if username := os.Getenv(usernameEnv); username != "" {
		cfg.Username = username
	}
	if password := os.Getenv(passwordEnv); password != "" {
		cfg.Password = password
	}

	err = cfg.Sitemap.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// savedCredentials is what `login --save` writes to the local override of
// the config, so that nothing else in the config gets pinned.
type savedCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func saveCredentials(path string, creds core.Credentials) (string, error) {
	local := configutil.LocalPath(path)
	err := configutil.WriteConfig(local, savedCredentials{
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return "", fmt.Errorf("save credentials: %w", err)
	}
	return local, nil
}

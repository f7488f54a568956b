package core

import (
	"fmt"
	"net/url"
	"regexp"
)

// Sitemap holds the portal locations every component is configured with.
type Sitemap struct {
	LoginUrl  string `json:"login_url"`
	SearchUrl string `json:"search_url"`
	HomeUrl   string `json:"home_url"`
	// SiteHostPattern matches the hosts of course sites.
	SiteHostPattern string `json:"site_host_pattern"`
}

func DefaultSitemap() Sitemap {
	return Sitemap{
		LoginUrl:        "https://elearning.unimi.it/authentication/skin/portaleariel/login.aspx?url=https://ariel.unimi.it/",
		SearchUrl:       "https://ariel.unimi.it/offerta/search/quick",
		HomeUrl:         "https://ariel.unimi.it/",
		SiteHostPattern: `^[a-z0-9-]+\.ctu\.unimi\.it$`,
	}
}

// Validate checks that every location is present and well formed.
func (s Sitemap) Validate() error {
	for name, value := range map[string]string{
		"login_url":  s.LoginUrl,
		"search_url": s.SearchUrl,
		"home_url":   s.HomeUrl,
	} {
		u, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("sitemap %s: %w", name, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("sitemap %s: '%s' is not an absolute url", name, value)
		}
	}
	_, err := s.SiteHost()
	return err
}

func (s Sitemap) SiteHost() (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(s.SiteHostPattern)
	if err != nil {
		return nil, fmt.Errorf("sitemap site_host_pattern: %w", err)
	}
	return pattern, nil
}

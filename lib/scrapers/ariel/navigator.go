// Package ariel is the entry point to the portal: it logs in, searches
// sites, crawls them and downloads what the crawl found.
package ariel

import (
	"context"
	"fmt"
	"sebastian/internal/components/telemetry"
	"sebastian/lib/ledger"
	"sebastian/lib/scrapers/ariel/core"
	"sebastian/lib/scrapers/ariel/crawl"
	"sebastian/lib/scrapers/ariel/download"
	"sebastian/lib/scrapers/ariel/page"
	"strings"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("sebastian.lib.scrapers.ariel")

type Options struct {
	Sitemap core.Sitemap
	// Ledger can be nil, then nothing is skipped or recorded.
	Ledger *ledger.Ledger
	// MaxReauth defaults to download.DefaultMaxReauth.
	MaxReauth int
	Telemetry telemetry.API
}

type Navigator struct {
	Transport core.Transport
	Sitemap   core.Sitemap

	crawler *crawl.Crawler
	engine  *download.Engine
	ledger  *ledger.Ledger
	tel     telemetry.API
}

func NewNavigator(transport core.Transport, opts Options) (*Navigator, error) {
	siteHost, err := opts.Sitemap.SiteHost()
	if err != nil {
		return nil, err
	}

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}

	engine := download.NewEngine(transport, tel)
	if opts.MaxReauth > 0 {
		engine.MaxReauth = opts.MaxReauth
	}

	return &Navigator{
		Transport: transport,
		Sitemap:   opts.Sitemap,
		crawler:   crawl.NewCrawler(transport, page.Classifier{SiteHost: siteHost}, tel),
		engine:    engine,
		ledger:    opts.Ledger,
		tel:       telemetry.NewScopedAPI("navigator", tel),
	}, nil
}

func (n *Navigator) Login(ctx context.Context, creds core.Credentials) error {
	ctx, span := tracer.Start(ctx, "navigator:Login")
	defer span.End()

	if strings.TrimSpace(creds.Username) == "" || creds.Password == "" {
		return &core.AuthError{Reason: "username and password are required"}
	}
	err := n.Transport.Authenticate(ctx, creds)
	if err != nil {
		return fmt.Errorf("login as %s: %w", creds.Username, err)
	}
	return nil
}

// Crawl crawls the tree below `seed`, an empty seed starts from the portal
// home.
func (n *Navigator) Crawl(ctx context.Context, seed string) (crawl.Result, error) {
	if seed == "" {
		seed = n.Sitemap.HomeUrl
	}
	return n.crawler.Crawl(ctx, seed)
}

func (n *Navigator) ProbeSize(ctx context.Context, item page.ContentItem) (download.Size, error) {
	return n.engine.ProbeSize(ctx, item)
}

package crawl

import (
	"context"
	"fmt"
	"sebastian/internal/assert"
	"sebastian/internal/components/telemetry"
	"sebastian/lib/scrapers/ariel/core"
	"sebastian/lib/scrapers/ariel/page"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("sebastian.lib.scrapers.ariel.crawl")

// maxPassThrough bounds how many "v5" refresh pages are skipped in a row.
const maxPassThrough = 5

// Omission is a page that could not be fetched, the crawl continued
// without it.
type Omission struct {
	Url    string
	Parent string
	Err    error
}

type Result struct {
	// Pages in the order they were expanded.
	Pages []page.Page
	// Items deduplicated by url across the whole crawl.
	Items     []page.ContentItem
	Omissions []Omission
}

type Crawler struct {
	Transport  core.Transport
	Classifier page.Classifier

	tel telemetry.API
}

func NewCrawler(transport core.Transport, classifier page.Classifier, tel telemetry.API) *Crawler {
	assert.NotNil(transport)
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	return &Crawler{
		Transport:  transport,
		Classifier: classifier,
		tel:        telemetry.NewScopedAPI("crawler", tel),
	}
}

// visit fetches and classifies a page, a page that only refreshes into its
// "v5" sub-path is replaced by its target. It also returns the urls of the
// replaced pages, oldest first.
func (c *Crawler) visit(ctx context.Context, target string) (page.Page, []string, error) {
	doc, err := c.Transport.Fetch(ctx, target)
	if err != nil {
		return page.Page{}, nil, err
	}
	p := c.Classifier.Classify(doc.Url, doc.Body)

	var hops []string
	for i := 0; ; i++ {
		next, ok := p.PassThrough()
		if !ok {
			return p, hops, nil
		}
		if i >= maxPassThrough {
			return page.Page{}, nil, fmt.Errorf("%w: %s keeps refreshing into v5", core.ErrRefreshLoop, target)
		}
		hops = append(hops, p.Url.String())

		doc, err = c.Transport.Fetch(ctx, next)
		if err != nil {
			return page.Page{}, nil, err
		}
		p = c.Classifier.Classify(doc.Url, doc.Body)
	}
}

// Crawl expands the site tree below `seed` depth first. Only a failure to
// fetch the seed is returned as an error, pages below it that fail are
// recorded as omissions.
func (c *Crawler) Crawl(ctx context.Context, seed string) (Result, error) {
	ctx, span := tracer.Start(ctx, "crawler:Crawl")
	defer span.End()
	span.SetAttributes(attribute.String("seed", seed))

	// every url that was either visited or queued
	seen := map[string]bool{seed: true}

	root, hops, err := c.visit(ctx, seed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch seed")
		return Result{}, err
	}
	seen[root.Url.String()] = true
	for _, hop := range hops {
		seen[hop] = true
	}

	result := Result{
		Pages:     []page.Page{},
		Items:     []page.ContentItem{},
		Omissions: []Omission{},
	}
	collected := map[string]bool{}
	frontier := []page.Page{root}

	for len(frontier) > 0 {
		err = ctx.Err()
		if err != nil {
			return result, err
		}

		current := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		result.Pages = append(result.Pages, current)
		c.tel.ReportDebug("expanding", "url", current.Url.String(), "archetype", current.Archetype.String())

		for _, item := range current.Data() {
			if collected[item.Url] {
				continue
			}
			collected[item.Url] = true
			result.Items = append(result.Items, item)
		}

		for _, child := range current.Children() {
			if seen[child] {
				continue
			}
			seen[child] = true

			p, hops, err := c.visit(ctx, child)
			if err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				c.tel.ReportWarning("crawler.expand", fmt.Errorf("skipped %s: %w", child, err))
				result.Omissions = append(result.Omissions, Omission{
					Url:    child,
					Parent: current.Url.String(),
					Err:    err,
				})
				continue
			}

			// a pass-through target reached from elsewhere was already queued
			final := p.Url.String()
			if final != child && seen[final] {
				continue
			}
			seen[final] = true
			for _, hop := range hops {
				seen[hop] = true
			}
			frontier = append(frontier, p)
		}
		c.tel.ReportCount("crawler.frontier", int64(len(frontier)))
	}

	span.SetAttributes(
		attribute.Int("pages", len(result.Pages)),
		attribute.Int("items", len(result.Items)),
		attribute.Int("omissions", len(result.Omissions)),
	)
	return result, nil
}

package ariel

import (
	"context"
	"fmt"
	"sebastian/lib/scrapers/ariel/page"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Search looks up sites by name, results are sorted from the most to the
// least similar title. Sites the user cannot access are kept, flagged by
// CanAccess.
func (n *Navigator) Search(ctx context.Context, query string) ([]page.SearchResult, error) {
	ctx, span := tracer.Start(ctx, "navigator:Search")
	defer span.End()

	doc, err := n.Transport.Submit(ctx, n.Sitemap.SearchUrl, map[string]string{
		"keyword": query,
	})
	if err != nil {
		return nil, fmt.Errorf("search '%s': %w", query, err)
	}

	results := page.ParseSearchResults(doc.Url, doc.Body)
	n.tel.ReportDebug("search results", query, len(results))

	target := strings.ToLower(strings.TrimSpace(query))
	similarity := make(map[string]float64, len(results))
	for _, r := range results {
		similarity[r.Url] = matchr.JaroWinkler(target, strings.ToLower(r.Title), false)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return similarity[results[i].Url] > similarity[results[j].Url]
	})

	return results, nil
}

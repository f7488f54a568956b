package page

import (
	"bytes"
	"net/url"
	"sebastian/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

type SearchResult struct {
	Title     string
	Url       string
	Holders   []string
	CanAccess bool
}

// ParseSearchResults reads the sites listed on a search results page.
// Results without an access tag are not listed.
func ParseSearchResults(base *url.URL, raw []byte) []SearchResult {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil
	}

	results := []SearchResult{}
	doc.Find("div#sitiariel div.ariel-project").Each(func(_ int, site *goquery.Selection) {
		anchors := htmlutil.GetAnchors(base, site.Find("a.ariel").First())
		if len(anchors) == 0 {
			return
		}

		var canAccess bool
		switch {
		case site.Find("span.bg-tag-danger").Length() > 0:
			canAccess = false
		case site.Find("span.bg-tag-success").Length() > 0:
			canAccess = true
		default:
			return
		}

		holders := []string{}
		site.Find(`ul.list-user a[href*="teacher"]`).Each(func(_ int, holder *goquery.Selection) {
			holders = append(holders, htmlutil.SelectionText(holder))
		})

		results = append(results, SearchResult{
			Title:     anchors[0].Name,
			Url:       anchors[0].Href,
			Holders:   holders,
			CanAccess: canAccess,
		})
	})
	return results
}

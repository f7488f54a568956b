package page

import (
	"path"
	"sebastian/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type Kind int

const (
	Generic Kind = iota
	Stream
)

func (k Kind) String() string {
	if k == Stream {
		return "stream"
	}
	return "generic"
}

// ContentItem is a single downloadable unit, items are identified by Url.
type ContentItem struct {
	Name    string
	Url     string
	Site    string
	Ambient string
	Thread  string
	Kind    Kind
}

// Children returns the absolute urls of the pages reachable from this page,
// without duplicates and in document order.
func (p Page) Children() []string {
	if target, ok := p.PassThrough(); ok {
		return []string{target}
	}

	var anchors []htmlutil.Anchor
	switch p.Archetype {
	case Home:
		anchors = p.siteLinks()
	case SiteHome:
		contents := p.doc.Find(`ul.arielNav a[href*="toolName=cont"]`)
		if contents.Length() == 0 {
			contents = p.doc.Find(`a[href*="toolName=cont"]`)
		}
		anchors = htmlutil.GetAnchors(p.Url, contents.First())
	case SiteAmbient:
		rooms := p.doc.Find(`tbody.arielRoomList a[href*="ThreadList"]`)
		if rooms.Length() == 0 {
			rooms = p.doc.Find(`tbody.arielThreadList a[href*="ThreadList"]`)
		}
		anchors = htmlutil.GetAnchors(p.Url, rooms)
	}

	children := []string{}
	seen := map[string]bool{}
	for _, a := range anchors {
		if seen[a.Href] {
			continue
		}
		seen[a.Href] = true
		children = append(children, a.Href)
	}
	return children
}

func (p Page) siteLinks() []htmlutil.Anchor {
	listing := p.doc.Find("div#arielSites")
	if listing.Length() == 0 {
		listing = p.doc.Find("body")
	}

	var sites []htmlutil.Anchor
	for _, a := range htmlutil.GetAnchors(p.Url, listing.Find("a[href]")) {
		link, err := htmlutil.Resolve(nil, a.Href)
		if err != nil {
			continue
		}
		if link.Scheme != "http" && link.Scheme != "https" {
			continue
		}
		host := strings.ToLower(link.Hostname())
		if strings.HasPrefix(host, "www.") || !p.siteHost.MatchString(host) {
			continue
		}
		sites = append(sites, a)
	}
	return sites
}

// Data returns the content items listed on a contents ambient page, other
// archetypes carry no content.
func (p Page) Data() []ContentItem {
	if p.Archetype != SiteAmbient {
		return nil
	}

	site := p.siteTitle()
	ambient := p.heading()

	items := []ContentItem{}
	seen := map[string]bool{}
	add := func(item ContentItem) {
		if seen[item.Url] {
			return
		}
		seen[item.Url] = true
		items = append(items, item)
	}

	p.doc.Find("tbody.arielThreadList > tr").Each(func(_ int, row *goquery.Selection) {
		thread := htmlutil.SelectionText(row.Find("h2.arielTitle").First())
		if thread == "" {
			thread = htmlutil.SelectionText(row.Find(".postTitle").First())
		}

		media := row.Find(`a.filename, video source[type^="video"], video[type^="video"]`)
		media.Each(func(_ int, el *goquery.Selection) {
			if goquery.NodeName(el) == "a" {
				href, ok := el.Attr("href")
				if !ok {
					return
				}
				link, err := htmlutil.Resolve(p.Url, href)
				if err != nil {
					return
				}
				name := htmlutil.SelectionText(el)
				if name == "" {
					name = path.Base(link.Path)
				}
				add(ContentItem{
					Name:    name,
					Url:     link.String(),
					Site:    site,
					Ambient: ambient,
					Thread:  thread,
					Kind:    Generic,
				})
				return
			}

			src := strings.TrimSpace(el.AttrOr("src", ""))
			if src == "" {
				return
			}
			link, err := htmlutil.Resolve(p.Url, src)
			if err != nil {
				return
			}
			add(ContentItem{
				Name:    "recording_" + thread,
				Url:     link.String(),
				Site:    site,
				Ambient: ambient,
				Thread:  thread,
				Kind:    Stream,
			})
		})
	})

	return items
}

package page

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"sebastian/lib/htmlutil"
	"sebastian/lib/textutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type Archetype int

const (
	Unknown Archetype = iota
	Home
	SiteHome
	SiteAmbient
)

func (a Archetype) String() string {
	switch a {
	case Home:
		return "home"
	case SiteHome:
		return "site_home"
	case SiteAmbient:
		return "site_ambient"
	default:
		return "unknown"
	}
}

// DefaultSiteHost matches the hosts of the per-course sites linked from the
// portal home.
var DefaultSiteHost = regexp.MustCompile(`^[a-z0-9-]+\.ctu\.unimi\.it$`)

// the secondary navigation entry of a contents ambient is localized
var ambientKeywords = []string{"contenuti", "contents", "materiali", "materials"}

// Page is a fetched document together with the archetype it was classified
// as. A Page is never modified after Classify, refetching a url produces a
// new Page.
type Page struct {
	Url       *url.URL
	Archetype Archetype

	doc      *goquery.Document
	siteHost *regexp.Regexp
}

// Classifier decides the archetype of documents.
type Classifier struct {
	// SiteHost matches course site hosts, it defaults to DefaultSiteHost.
	SiteHost *regexp.Regexp
}

func Classify(u *url.URL, raw []byte) Page {
	return Classifier{}.Classify(u, raw)
}

func (c Classifier) Classify(u *url.URL, raw []byte) Page {
	siteHost := c.SiteHost
	if siteHost == nil {
		siteHost = DefaultSiteHost
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		doc = goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}

	return Page{
		Url:       u,
		Archetype: archetypeOf(doc),
		doc:       doc,
		siteHost:  siteHost,
	}
}

func archetypeOf(doc *goquery.Document) Archetype {
	primary := doc.Find("ul.navbar-nav > li.active").First()
	if primary.Length() > 0 && strings.EqualFold(htmlutil.SelectionText(primary), "home") {
		return Home
	}

	if doc.Find("h1.arielTitle").Length() == 0 {
		return Unknown
	}

	active := strings.ToLower(htmlutil.SelectionText(doc.Find("ul.arielNav > li.active").First()))
	if strings.Contains(active, "home") {
		return SiteHome
	}
	if textutil.MatchName(active, ambientKeywords) {
		return SiteAmbient
	}
	return Unknown
}

func (p Page) siteTitle() string {
	return htmlutil.SelectionText(p.doc.Find("h1.arielTitle").First())
}

func (p Page) heading() string {
	return htmlutil.SelectionText(p.doc.Find("h2.arielHeading").First())
}

func (p Page) Title() string {
	switch p.Archetype {
	case Home:
		return "Ariel"
	case SiteHome:
		return p.siteTitle()
	case SiteAmbient:
		return fmt.Sprintf("%s - %s", p.siteTitle(), p.heading())
	default:
		return fmt.Sprintf("unknown page (%s)", p.Url)
	}
}

// PassThrough returns the target of a document that only refreshes into its
// "v5" sub-path. Such a page is not a branching point of the site tree.
func (p Page) PassThrough() (string, bool) {
	if p.doc.Find(`meta[content*="URL=v5"]`).Length() == 0 {
		return "", false
	}
	target, err := htmlutil.Resolve(p.Url, "v5")
	if err != nil {
		return "", false
	}
	return target.String(), true
}

package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

type Anchor struct {
	Name string
	Href string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText trims a piece of text and collapses the whitespace inside of it.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	s = removeNonPrintable(s)
	s = strings.Trim(s, " ")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// SelectionText is the cleaned text of every node in the selection.
func SelectionText(sel *goquery.Selection) string {
	var out strings.Builder
	for _, n := range sel.Nodes {
		out.WriteString(GetText(n))
		out.WriteString(" ")
	}
	return CleanText(out.String())
}

// Resolve makes `href` absolute relative to `base`.
func Resolve(base *url.URL, href string) (*url.URL, error) {
	link, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	if base == nil {
		return link, nil
	}
	return base.ResolveReference(link), nil
}

// GetAnchors returns the anchors of every node in the selection that has an
// href, resolved against `base`. Nodes with an unparsable href are skipped.
func GetAnchors(base *url.URL, sel *goquery.Selection) []Anchor {
	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		found := false
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				found = true
				break
			}
		}
		if !found {
			continue
		}

		link, err := Resolve(base, href)
		if err != nil {
			continue
		}

		anchors = append(anchors, Anchor{
			Name: CleanText(GetText(n)),
			Href: link.String(),
		})
	}

	return anchors
}

package page

import (
	"bytes"
	"regexp"
	"sebastian/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var refreshMarker = regexp.MustCompile(`<META HTTP-EQUIV="REFRESH" CONTENT="0; URL=([^"]*)">`)

// RefreshTarget returns the (possibly relative) target of the portal's
// client side refresh marker.
func RefreshTarget(raw []byte) (string, bool) {
	groups := refreshMarker.FindSubmatch(raw)
	if len(groups) < 2 {
		return "", false
	}
	return string(groups[1]), true
}

// IsLoginFailure reports whether a login response carries the "invalid login"
// message and returns its text.
func IsLoginFailure(raw []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return "", false
	}
	marker := doc.Find("span#cvLogin.text-danger").First()
	if marker.Length() == 0 {
		return "", false
	}
	return htmlutil.SelectionText(marker), true
}

var loginPageMarker = []byte(`name="tbLogin"`)

// IsLoginPage reports whether a response is the login form. An expired
// session is still answered with 200, just with the login form in place of
// the requested content.
func IsLoginPage(raw []byte) bool {
	return bytes.Contains(raw, loginPageMarker)
}

package download

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"sebastian/lib/scrapers/ariel/page"
	"sebastian/lib/textutil"
	"strings"

	"github.com/mazen160/go-random"
)

// GenericFilename is the item's name, only characters that cannot appear in
// a path segment are replaced.
func GenericFilename(item page.ContentItem) string {
	return textutil.SanitizePathSegment(item.Name)
}

// streaming urls look like .../vod/mp4:lecture_01.mp4/manifest.m3u8
var vodPattern = regexp.MustCompile(`/vod/([^/:]+):([^/]+)/manifest`)

// StreamFilename derives the name of a recording from its manifest url,
// falling back to the item name followed by a random suffix.
func StreamFilename(item page.ContentItem) (string, error) {
	groups := vodPattern.FindStringSubmatch(item.Url)
	if len(groups) < 3 {
		suffix, err := random.String(8)
		if err != nil {
			return "", fmt.Errorf("generate filename for %s: %w", item.Url, err)
		}
		return textutil.SanitizePathSegment(item.Name + suffix), nil
	}

	container := strings.ToLower(groups[1])
	name, err := url.PathUnescape(groups[2])
	if err != nil {
		name = groups[2]
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if ext == "" {
		ext = "." + container
	}

	base = textutil.SnakeCase(base)
	if base == "" {
		base = textutil.SnakeCase(item.Name)
	}
	return textutil.SanitizePathSegment(base + strings.ToLower(ext)), nil
}

package ariel

import (
	"fmt"
	"sebastian/lib/scrapers/ariel/page"
	"sort"
	"strconv"
	"strings"
)

// Choice is an item as presented to the user, Index is 1-based.
type Choice struct {
	Index int
	Label string
	Item  page.ContentItem
}

// Selectable orders items by where they were found, so that items of the
// same thread are listed together, and numbers them.
func Selectable(items []page.ContentItem) []Choice {
	sorted := make([]page.ContentItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Site != b.Site {
			return a.Site < b.Site
		}
		if a.Ambient != b.Ambient {
			return a.Ambient < b.Ambient
		}
		return a.Thread < b.Thread
	})

	choices := make([]Choice, len(sorted))
	for i, item := range sorted {
		choices[i] = Choice{
			Index: i + 1,
			Label: fmt.Sprintf("%s / %s / %s / %s", item.Site, item.Ambient, item.Thread, item.Name),
			Item:  item,
		}
	}
	return choices
}

// Pick returns the choices named by `selection`, a comma separated list of
// indices and inclusive ranges like "1,3-5". Each choice is returned once,
// in list order.
func Pick(choices []Choice, selection string) ([]Choice, error) {
	picked := make([]bool, len(choices))
	for _, part := range strings.Split(selection, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		from, to := part, part
		if before, after, ok := strings.Cut(part, "-"); ok {
			from, to = strings.TrimSpace(before), strings.TrimSpace(after)
		}
		start, err := strconv.Atoi(from)
		if err != nil {
			return nil, fmt.Errorf("invalid selection '%s'", part)
		}
		end, err := strconv.Atoi(to)
		if err != nil {
			return nil, fmt.Errorf("invalid selection '%s'", part)
		}
		if start > end || start < 1 || end > len(choices) {
			return nil, fmt.Errorf("selection '%s' is out of range 1-%d", part, len(choices))
		}
		for i := start; i <= end; i++ {
			picked[i-1] = true
		}
	}

	var out []Choice
	for i, ok := range picked {
		if ok {
			out = append(out, choices[i])
		}
	}
	return out, nil
}

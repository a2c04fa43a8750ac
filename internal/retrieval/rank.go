package retrieval

import (
	"sort"

	"websift/internal/models"
)

// Rank groups refs by (URL, Title) and orders the groups by descending
// occurrence count. Equal counts keep first-appearance order.
func Rank(refs []models.PageRef) []models.RankedURL {
	type key struct{ url, title string }
	idx := map[key]int{}
	out := make([]models.RankedURL, 0, len(refs))
	for _, r := range refs {
		k := key{r.URL, r.Title}
		if i, ok := idx[k]; ok {
			out[i].Count++
			continue
		}
		idx[k] = len(out)
		out = append(out, models.RankedURL{URL: r.URL, Title: r.Title, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// Intersect keeps the pages of the first list, by page id and in first-list
// order, that occur in every other list. Each page appears at most once.
func Intersect(lists [][]models.PageRef) []models.PageRef {
	if len(lists) == 0 {
		return nil
	}
	rest := make([]map[string]struct{}, 0, len(lists)-1)
	for _, l := range lists[1:] {
		set := make(map[string]struct{}, len(l))
		for _, r := range l {
			set[r.ID] = struct{}{}
		}
		rest = append(rest, set)
	}
	seen := map[string]struct{}{}
	out := make([]models.PageRef, 0)
outer:
	for _, r := range lists[0] {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		for _, set := range rest {
			if _, ok := set[r.ID]; !ok {
				continue outer
			}
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

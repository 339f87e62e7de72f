package board

import (
	"strings"

	"github.com/alfredjeanlab/todoboard/internal/model"
)

// FilterItems returns the items that pass the state's status filter and
// search term, in their original order. The search is a case-insensitive
// substring match over the title, description, notes and tag names.
func FilterItems(items []model.TodoItem, state State) []model.TodoItem {
	term := strings.ToLower(state.SearchTerm)
	out := make([]model.TodoItem, 0, len(items))
	for _, item := range items {
		if !state.StatusFilter.Matches(item.Status) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(searchText(&item)), term) {
			continue
		}
		out = append(out, item)
	}
	return out
}

func searchText(item *model.TodoItem) string {
	return strings.Join([]string{
		item.Title,
		model.Deref(item.Description),
		model.Deref(item.Notes),
		strings.Join(item.TagNames(), " "),
	}, " ")
}

// TagCount is one row of a tag summary.
type TagCount struct {
	Name  string
	Count int
}

// TagSummary counts tag occurrences across items, in first-seen order.
func TagSummary(items []model.TodoItem) []TagCount {
	var out []TagCount
	index := make(map[string]int)
	for _, item := range items {
		for _, tag := range item.Tags {
			if i, ok := index[tag.Name]; ok {
				out[i].Count++
				continue
			}
			index[tag.Name] = len(out)
			out = append(out, TagCount{Name: tag.Name, Count: 1})
		}
	}
	return out
}

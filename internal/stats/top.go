package stats

import (
	"sort"

	"github.com/verte-zerg/kpicalc/internal/model"
)

// TopCategories returns the n categories with the most points across
// entries. Categories with no points are left out.
func TopCategories(entries []model.HistoryEntry, n int) []model.Category {
	if n <= 0 || len(entries) == 0 {
		return nil
	}
	type item struct {
		key   model.Category
		order int
		total int
	}
	items := make([]item, 0, len(model.Catalog))
	for i, info := range model.Catalog {
		total := 0
		for _, e := range entries {
			total += e.Point(info.Key)
		}
		if total > 0 {
			items = append(items, item{key: info.Key, order: i, total: total})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].total == items[j].total {
			return items[i].order < items[j].order
		}
		return items[i].total > items[j].total
	})
	n = min(n, len(items))
	out := make([]model.Category, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].key)
	}
	return out
}
